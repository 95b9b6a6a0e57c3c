//go:build go1.21

package slog

import (
	"bytes"
	"errors"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/beancache"
)

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo})
	l := New(stdslog.New(h))

	l.Debug("hidden", beancache.Fields{"k": 1})
	l.Warn("state lost", beancache.Fields{"reason": "gen_mismatch", "err": errors.New("stale"), "key": "bean:ns:a"})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug should be filtered: %q", out)
	}
	for _, want := range []string{
		"level=WARN",
		`msg="state lost"`,
		"beancache.err=stale beancache.key=bean:ns:a beancache.reason=gen_mismatch",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}
