package local

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/beancache"
	"github.com/unkn0wn-root/beancache/batch"
	"github.com/unkn0wn-root/beancache/manager"
)

type bean[K comparable, V any] struct {
	m *Manager[K, V]
	e *entry[K, V]
}

var _ manager.Bean[string, struct{}] = (*bean[string, struct{}])(nil)

func (b *bean[K, V]) ID() K    { return b.e.id }
func (b *bean[K, V]) Group() K { return b.e.group }

func (b *bean[K, V]) IsValid() bool {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	return !b.e.removed
}

func (b *bean[K, V]) Acquire(ctx context.Context) (V, error) {
	var zero V
	m, e := b.m, b.e
	if err := m.hold(ctx, e); err != nil {
		return zero, err
	}
	defer m.mu.Unlock()
	if e.idle != nil {
		m.idle.Remove(e.idle)
		e.idle = nil
	}
	e.pins++
	return e.value, nil
}

func (b *bean[K, V]) Release(context.Context) (bool, error) {
	m, e := b.m, b.e
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.removed {
		return false, manager.ErrBeanRemoved
	}
	if e.pins > 0 {
		e.pins--
	}
	return e.pins == 0, nil
}

// Close makes an unpinned bean poolable and, when passivation is on, schedules
// an eviction pass for when the current batch commits.
func (b *bean[K, V]) Close(ctx context.Context) error {
	m, e := b.m, b.e
	m.mu.Lock()
	if e.removed || e.pins > 0 || e.passivated || e.moving != nil {
		m.mu.Unlock()
		return nil
	}
	if e.idle == nil {
		e.idle = m.idle.PushFront(e)
	} else {
		m.idle.MoveToFront(e.idle)
	}
	m.mu.Unlock()

	if !m.passivating() {
		return nil
	}
	if en, ok := batch.FromContext(ctx).(batch.Enlister); ok {
		ectx := context.WithoutCancel(ctx)
		en.OnCommit(func() error {
			m.evict(ectx)
			return nil
		})
		return nil
	}
	m.evict(ctx)
	return nil
}

func (b *bean[K, V]) Remove(ctx context.Context, listener manager.RemoveListener[V]) error {
	m, e := b.m, b.e
	if err := m.hold(ctx, e); err != nil {
		if errors.Is(err, manager.ErrBeanRemoved) || errors.Is(err, ErrPassivatedStateLost) {
			// already gone; nothing left to destroy
			return nil
		}
		return err
	}
	key := m.key(e.id)
	v := e.value
	m.unlinkLocked(e)
	m.mu.Unlock()

	if m.gens != nil {
		if _, err := m.gens.Bump(ctx, key); err != nil {
			m.log.Warn("gen bump failed on remove", beancache.Fields{"key": key, "err": err})
		}
	}
	if listener != nil {
		listener.Removed(ctx, v)
	}
	return nil
}
