package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/beancache"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Warn("passivation failed", beancache.Fields{"key": "bean:ns:a", "err": errors.New("full"), "cause": nil})
	l.Debug("quiet", nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "beancache" || e.Level != zapcore.WarnLevel {
		t.Fatalf("unexpected entry %+v", e.Entry)
	}
	ctx := e.ContextMap()
	if ctx["key"] != "bean:ns:a" || ctx["err"] != "full" {
		t.Fatalf("fields: %v", ctx)
	}
	if _, ok := ctx["cause"]; ok {
		t.Fatalf("nil field should be dropped: %v", ctx)
	}
	if e.Context[0].Key != "err" {
		t.Fatalf("fields not sorted: %v", e.Context)
	}
}
