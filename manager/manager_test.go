package manager

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestUUIDFactoryMintsDistinctIDs(t *testing.T) {
	f := UUIDFactory{}
	a, b := f.CreateIdentifier(), f.CreateIdentifier()
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("not a uuid: %q: %v", a, err)
	}
}

func TestAffinityString(t *testing.T) {
	cases := []struct {
		a    Affinity
		want string
	}{
		{NoAffinity(), "none"},
		{NodeAffinity("n1"), "node:n1"},
		{ClusterAffinity("ejb"), "cluster:ejb"},
	}
	for _, tc := range cases {
		if got := tc.a.String(); got != tc.want {
			t.Fatalf("String() = %q, want %q", got, tc.want)
		}
	}
	if !NoAffinity().IsNone() || NodeAffinity("x").IsNone() {
		t.Fatalf("IsNone mismatch")
	}
}

func TestFuncAdapters(t *testing.T) {
	n := 0
	ids := IdentifierFactoryFunc[int](func() int { n++; return n })
	if ids.CreateIdentifier() != 1 || ids.CreateIdentifier() != 2 {
		t.Fatalf("IdentifierFactoryFunc did not delegate")
	}

	var got string
	l := RemoveListenerFunc[string](func(_ context.Context, v string) { got = v })
	l.Removed(context.Background(), "bean-1")
	if got != "bean-1" {
		t.Fatalf("RemoveListenerFunc did not delegate, got %q", got)
	}
}
