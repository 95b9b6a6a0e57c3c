package local

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/beancache"
	"github.com/unkn0wn-root/beancache/internal/wire"
	"github.com/unkn0wn-root/beancache/manager"
)

// evict passivates idle beans, least recently used first, until at most
// maxActive beans are in memory or only pinned beans remain. It stops at the
// first failure; the bean stays in memory and is retried on the next pass.
//
// Each bean is marked as moving while its record is written, without the
// store lock; other calls on that bean wait for the move to finish.
func (m *Manager[K, V]) evict(ctx context.Context) {
	for {
		m.mu.Lock()
		if len(m.entries)-m.passive-m.outgoing <= m.maxActive {
			m.mu.Unlock()
			return
		}
		el := m.idle.Back()
		if el == nil {
			m.mu.Unlock()
			return
		}
		e := el.Value.(*entry[K, V])
		m.idle.Remove(el)
		e.idle = nil
		e.moving = make(chan struct{})
		m.outgoing++
		v := e.value
		m.mu.Unlock()

		err := m.passivate(ctx, e.id, v)

		m.mu.Lock()
		m.outgoing--
		moved := e.moving
		e.moving = nil
		if err == nil {
			var zero V
			e.value = zero
			e.passivated = true
			m.passive++
		} else {
			e.idle = m.idle.PushBack(e)
		}
		m.mu.Unlock()
		close(moved)
		if err != nil {
			return
		}
	}
}

// passivate writes v as the record of id. On failure PostActivate undoes
// PrePassivate.
func (m *Manager[K, V]) passivate(ctx context.Context, id K, v V) (err error) {
	key := m.key(id)
	m.listener.PrePassivate(ctx, v)
	defer func() {
		if err != nil {
			m.listener.PostActivate(ctx, v)
			m.hooks.PassivationFailed(key, err)
			m.log.Warn("passivation failed", beancache.Fields{"key": key, "err": err})
		}
	}()

	payload, err := m.codec.Encode(v)
	if err != nil {
		return err
	}
	gen, err := m.gens.Snapshot(ctx, key)
	if err != nil {
		return err
	}
	rec, err := wire.EncodeRecord(wire.Record{Gen: gen, Key: key, Payload: payload})
	if err != nil {
		return err
	}
	ok, err := m.provider.Set(ctx, key, rec, int64(len(rec)), m.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return errRejected
	}
	m.hooks.Passivated(key)
	m.log.Debug("bean passivated", beancache.Fields{"key": key, "gen": gen, "bytes": len(rec)})
	return nil
}

// activate brings the passivated bean e back into memory. The caller has
// marked e as moving and released the store lock. Read errors leave the bean
// passivated; unusable records drop it and return ErrPassivatedStateLost.
func (m *Manager[K, V]) activate(ctx context.Context, e *entry[K, V]) error {
	key := m.key(e.id)
	v, reason, err := m.load(ctx, key)

	m.mu.Lock()
	moved := e.moving
	e.moving = nil
	switch {
	case reason != "":
		m.unlinkLocked(e)
	case err == nil:
		e.value = v
		e.passivated = false
		m.passive--
	}
	m.mu.Unlock()
	close(moved)

	if reason != "" {
		m.deleteRecord(ctx, key)
		m.hooks.StateLost(key, reason)
		m.log.Warn("passivated state lost; bean dropped", beancache.Fields{"key": key, "reason": reason})
		return fmt.Errorf("%w: %v (%s)", ErrPassivatedStateLost, e.id, reason)
	}
	if err != nil {
		m.log.Error("passivated record read failed", beancache.Fields{"key": key, "err": err})
		return fmt.Errorf("local: activate %v: %w", e.id, err)
	}
	m.hooks.Activated(key)
	m.log.Debug("bean activated", beancache.Fields{"key": key})
	return nil
}

// load reads and validates the record at key. A non-empty reason means the
// state is gone for good; err alone is a retryable read failure.
func (m *Manager[K, V]) load(ctx context.Context, key string) (v V, reason string, err error) {
	raw, ok, err := m.provider.Get(ctx, key)
	if err != nil {
		return v, "", err
	}
	if !ok {
		return v, "missing", nil
	}
	rec, err := wire.DecodeRecord(raw)
	if err != nil || rec.Key != key {
		return v, "corrupt", nil
	}
	gen, err := m.gens.Snapshot(ctx, key)
	if err != nil {
		return v, "", err
	}
	if rec.Gen != gen {
		return v, "gen_mismatch", nil
	}
	v, err = m.codec.Decode(rec.Payload)
	if err != nil {
		var zero V
		return zero, "decode", nil
	}
	m.deleteRecord(ctx, key)
	m.listener.PostActivate(ctx, v)
	return v, "", nil
}

// hold locks the store once e is in memory and not moving, activating it
// first when passivated. On error the lock is not held.
func (m *Manager[K, V]) hold(ctx context.Context, e *entry[K, V]) error {
	for {
		m.mu.Lock()
		if e.removed {
			m.mu.Unlock()
			return manager.ErrBeanRemoved
		}
		if moving := e.moving; moving != nil {
			m.mu.Unlock()
			select {
			case <-moving:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if !e.passivated {
			return nil
		}
		e.moving = make(chan struct{})
		m.mu.Unlock()
		if err := m.activate(ctx, e); err != nil {
			return err
		}
	}
}
