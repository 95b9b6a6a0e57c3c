package beancache

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/beancache/batch"
	"github.com/unkn0wn-root/beancache/manager"
)

type cache[K comparable, V Value[K]] struct {
	manager  manager.BeanManager[K, V]
	batcher  batch.Batcher
	factory  StatefulObjectFactory[V]
	onRemove manager.RemoveListener[V]
	log      Logger
	hooks    Hooks
	metrics  *cacheMetrics
}

func newCache[K comparable, V Value[K]](opts Options[K, V]) (*cache[K, V], error) {
	if opts.Manager == nil {
		return nil, fmt.Errorf("beancache: bean manager is required")
	}
	if opts.Factory == nil {
		return nil, fmt.Errorf("beancache: object factory is required")
	}
	c := &cache[K, V]{
		manager: opts.Manager,
		batcher: opts.Manager.Batcher(),
		factory: opts.Factory,
	}
	if c.batcher == nil {
		return nil, fmt.Errorf("beancache: bean manager has no batcher")
	}

	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	destroy := removeListener[V]{factory: opts.Factory}
	c.onRemove = manager.RemoveListenerFunc[V](func(ctx context.Context, v V) {
		destroy.Removed(ctx, v)
		c.hooks.BeanRemoved(fmt.Sprint(v.ID()))
		c.metrics.recordRemove()
	})

	if opts.Metrics != nil {
		m, err := newCacheMetrics(opts.Metrics, coalesce(opts.Name, "default"),
			c.manager.ActiveCount, c.manager.PassiveCount)
		if err != nil {
			return nil, fmt.Errorf("beancache: register metrics: %w", err)
		}
		c.metrics = m
	}
	return c, nil
}

func (c *cache[K, V]) CreateIdentifier(ctx context.Context) K {
	id := c.manager.IdentifierFactory().CreateIdentifier()
	if g := groupFrom[K](ctx); g != nil {
		g.bind(id)
	}
	return id
}

// Create returns an error, and no value, when the batch rolls back on close:
// a nested create may fail while the factory carries on without it.
func (c *cache[K, V]) Create(ctx context.Context) (v V, err error) {
	var zero V
	g := groupFrom[K](ctx)
	if g == nil {
		// outermost create owns the group for its whole call tree
		ctx, g = withGroup[K](ctx)
		defer g.clear()
	}

	ctx, b := c.batcher.CreateBatch(ctx)
	completed := false
	var id, group K
	defer func() {
		c.finish("create", b, completed, &err)
		if !completed || err != nil {
			v = zero
			return
		}
		c.hooks.BeanCreated(fmt.Sprint(id), fmt.Sprint(group))
		c.metrics.recordCreate()
	}()

	v, err = c.factory.CreateInstance(ctx)
	if err != nil {
		return zero, err
	}
	id = v.ID()
	group, ok := g.get()
	if !ok {
		group = id
	}
	bean, err := c.manager.CreateBean(ctx, id, group, v)
	if err != nil {
		return zero, err
	}
	// poolable right away
	if err := bean.Close(ctx); err != nil {
		return zero, err
	}
	completed = true
	return v, nil
}

func (c *cache[K, V]) Get(ctx context.Context, id K) (_ V, _ bool, err error) {
	var zero V
	ctx, b := c.batcher.CreateBatch(ctx)
	suspended, completed := false, false
	defer func() {
		if !suspended {
			c.finish("get", b, completed, &err)
		}
	}()

	bean, err := c.manager.FindBean(ctx, id)
	if err != nil {
		return zero, false, err
	}
	if bean == nil {
		completed = true
		c.metrics.recordLookup(false)
		return zero, false, nil
	}
	v, err := bean.Acquire(ctx)
	if err != nil {
		return zero, false, err
	}
	// the batch stays open until Release or Discard
	v.SetCacheContext(c.batcher.SuspendBatch(ctx))
	suspended = true
	c.metrics.recordLookup(true)
	return v, true, nil
}

func (c *cache[K, V]) Release(ctx context.Context, v V) error {
	return c.resume(ctx, "release", v, func(ctx context.Context, bean manager.Bean[K, V]) error {
		reclaimable, err := bean.Release(ctx)
		if err != nil {
			return err
		}
		if reclaimable {
			return bean.Close(ctx)
		}
		return nil
	})
}

func (c *cache[K, V]) Discard(ctx context.Context, v V) error {
	return c.resume(ctx, "discard", v, func(ctx context.Context, bean manager.Bean[K, V]) error {
		return bean.Remove(ctx, c.onRemove)
	})
}

// resume runs fn against the bean behind v inside the batch v carries.
// The batch is closed first, then the resumed scope, on every path.
// A value without a batch (already released or discarded) gets a fresh one.
func (c *cache[K, V]) resume(ctx context.Context, op string, v V, fn func(context.Context, manager.Bean[K, V]) error) (err error) {
	var scope batch.Context
	b := v.CacheContext()
	if b == nil {
		ctx, b = c.batcher.CreateBatch(ctx)
	} else {
		ctx, scope, err = c.batcher.ResumeBatch(ctx, b)
		if err != nil {
			return err
		}
	}
	v.SetCacheContext(nil)

	completed := false
	defer func() {
		c.finish(op, b, completed, &err)
		if scope != nil {
			scope.Close()
		}
	}()

	bean, err := c.manager.FindBean(ctx, v.ID())
	if err != nil {
		return err
	}
	if bean != nil {
		if err := fn(ctx, bean); err != nil {
			return err
		}
	}
	completed = true
	return nil
}

func (c *cache[K, V]) Remove(ctx context.Context, id K) (err error) {
	ctx, b := c.batcher.CreateBatch(ctx)
	completed := false
	defer func() { c.finish("remove", b, completed, &err) }()

	bean, err := c.manager.FindBean(ctx, id)
	if err != nil {
		return err
	}
	if bean != nil {
		if err := bean.Remove(ctx, c.onRemove); err != nil {
			return err
		}
	}
	completed = true
	return nil
}

func (c *cache[K, V]) Contains(ctx context.Context, id K) (_ bool, err error) {
	ctx, b := c.batcher.CreateBatch(ctx)
	completed := false
	defer func() { c.finish("contains", b, completed, &err) }()

	ok, err := c.manager.ContainsBean(ctx, id)
	if err != nil {
		return false, err
	}
	completed = true
	return ok, nil
}

func (c *cache[K, V]) StrictAffinity(ctx context.Context) manager.Affinity {
	_, b := c.batcher.CreateBatch(ctx)
	defer c.closeQuietly("strict_affinity", b)
	return c.manager.StrictAffinity()
}

func (c *cache[K, V]) WeakAffinity(ctx context.Context, id K) manager.Affinity {
	_, b := c.batcher.CreateBatch(ctx)
	defer c.closeQuietly("weak_affinity", b)
	return c.manager.WeakAffinity(id)
}

func (c *cache[K, V]) Start(ctx context.Context) error { return c.manager.Start(ctx) }
func (c *cache[K, V]) Stop(ctx context.Context) error  { return c.manager.Stop(ctx) }

func (c *cache[K, V]) CacheSize() int       { return c.manager.ActiveCount() }
func (c *cache[K, V]) PassivatedCount() int { return c.manager.PassiveCount() }
func (c *cache[K, V]) TotalSize() int       { return c.CacheSize() + c.PassivatedCount() }

// finish closes b, discarding it first unless the operation completed.
// An operation error in *err is left untouched; a close error is reported
// through *err only when the operation itself succeeded.
func (c *cache[K, V]) finish(op string, b batch.Batch, completed bool, err *error) {
	if !completed {
		b.Discard()
		c.hooks.BatchDiscarded(op)
		c.metrics.recordDiscard(op)
	}
	cerr := b.Close()
	if cerr == nil {
		return
	}
	c.hooks.BatchCloseFailed(op, cerr)
	if *err == nil {
		*err = &BatchCloseError{Op: op, Err: cerr}
		return
	}
	c.log.Warn("batch close failed after operation error", Fields{"op": op, "err": cerr, "cause": *err})
}

func (c *cache[K, V]) closeQuietly(op string, b batch.Batch) {
	if err := b.Close(); err != nil {
		c.hooks.BatchCloseFailed(op, err)
		c.log.Warn("batch close failed", Fields{"op": op, "err": err})
	}
}
