package asynchook

import (
	"sync"
	"testing"

	"github.com/unkn0wn-root/beancache"
)

type recorder struct {
	beancache.NopHooks
	mu      sync.Mutex
	removed []string
	block   chan struct{}
}

func (r *recorder) BeanRemoved(id string) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.removed = append(r.removed, id)
	r.mu.Unlock()
}

func TestDeliversAndDrainsOnClose(t *testing.T) {
	rec := &recorder{}
	h := New(rec, 2, 16)
	for _, id := range []string{"a", "b", "c"} {
		h.BeanRemoved(id)
	}
	h.Close()
	h.Close()

	if len(rec.removed) != 3 {
		t.Fatalf("delivered %v", rec.removed)
	}
	h.BeanRemoved("late")
	if h.Dropped() != 1 {
		t.Fatalf("events after Close must be dropped, dropped=%d", h.Dropped())
	}
}

func TestDropsWhenFull(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	h := New(rec, 1, 1)

	// one event parks the worker, one fills the queue; the rest drop
	for i := 0; i < 10; i++ {
		h.BeanRemoved("x")
	}
	close(rec.block)
	h.Close()

	if got := uint64(len(rec.removed)) + h.Dropped(); got != 10 {
		t.Fatalf("delivered+dropped = %d, want 10", got)
	}
	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a blocked worker")
	}
}
