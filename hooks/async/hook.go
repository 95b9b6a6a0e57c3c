// Package asynchook moves hook delivery off invocation paths.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    StoreEventEvery: 100, // sample passivation/activation logs
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := beancache.New(beancache.Options[string, *Cart]{
//	    Manager: mgr,
//	    Factory: carts,
//	    Hooks:   hooks, // or `raw` if you don't want async
//	})
//
// Events are dropped, never blocked on, when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/beancache"
)

type Hooks struct {
	inner   beancache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends on a closed queue
	closed  bool
	dropped atomic.Uint64
}

var _ beancache.Hooks = (*Hooks)(nil)

func New(inner beancache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}
	if inner == nil {
		inner = beancache.NopHooks{}
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events raised after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were lost to a full or closed queue.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) BeanCreated(id, group string) { h.try(func() { h.inner.BeanCreated(id, group) }) }
func (h *Hooks) BeanRemoved(id string)        { h.try(func() { h.inner.BeanRemoved(id) }) }
func (h *Hooks) BatchDiscarded(op string)     { h.try(func() { h.inner.BatchDiscarded(op) }) }
func (h *Hooks) BatchCloseFailed(op string, err error) {
	h.try(func() { h.inner.BatchCloseFailed(op, err) })
}
func (h *Hooks) Passivated(k string) { h.try(func() { h.inner.Passivated(k) }) }
func (h *Hooks) Activated(k string)  { h.try(func() { h.inner.Activated(k) }) }
func (h *Hooks) PassivationFailed(k string, err error) {
	h.try(func() { h.inner.PassivationFailed(k, err) })
}
func (h *Hooks) StateLost(k, reason string) { h.try(func() { h.inner.StateLost(k, reason) }) }
