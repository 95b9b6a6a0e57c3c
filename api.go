package beancache

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/beancache/batch"
	"github.com/unkn0wn-root/beancache/manager"
)

// Value is implemented by cached stateful instances.
// The cache context is the open batch attached by Get and closed by Release or Discard.
type Value[K comparable] interface {
	ID() K
	CacheContext() batch.Batch
	SetCacheContext(b batch.Batch)
}

// StatefulObjectFactory creates and destroys instances.
// CreateInstance receives the context of the enclosing Create and must pass it
// to any nested Create so nested beans join the same group and batch.
type StatefulObjectFactory[V any] interface {
	CreateInstance(ctx context.Context) (V, error)
	DestroyInstance(ctx context.Context, v V)
}

// Cache is the distributable cache of stateful instances, one per client session.
//
// Lifecycle of a bean as seen through this API:
//
//	Create -> pooled -> Get -> pinned -> Release -> pooled | passivated
//	Remove / Discard -> removed (destroy callback fires exactly once)
//
// Callers must guarantee at most one active invocation per instance; the cache
// does not serialize concurrent Get calls on the same id.
type Cache[K comparable, V Value[K]] interface {
	// CreateIdentifier mints an id. Inside a Create it also becomes the creation
	// group when none has been chosen yet.
	CreateIdentifier(ctx context.Context) K
	Create(ctx context.Context) (V, error)
	// Get returns ok=false for unknown ids. On success the value carries an open
	// batch which must be closed by Release or Discard.
	Get(ctx context.Context, id K) (v V, ok bool, err error)
	Release(ctx context.Context, v V) error
	Remove(ctx context.Context, id K) error
	// Discard removes the bean behind v, typically after an aborted invocation.
	Discard(ctx context.Context, v V) error
	Contains(ctx context.Context, id K) (bool, error)

	// Routing hints
	StrictAffinity(ctx context.Context) manager.Affinity
	WeakAffinity(ctx context.Context, id K) manager.Affinity

	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// Monitoring
	CacheSize() int
	PassivatedCount() int
	TotalSize() int
}

// Options configure a Cache.
// Only Manager and Factory are required; others have sensible defaults.
type Options[K comparable, V Value[K]] struct {
	// Required
	Manager manager.BeanManager[K, V]
	Factory StatefulObjectFactory[V]

	Name    string                // metrics label; "" => "default"
	Logger  Logger                // if nil, NopLogger is used
	Hooks   Hooks                 // if nil, NopHooks is used
	Metrics prometheus.Registerer // if nil, no metrics are exported
}

func New[K comparable, V Value[K]](opts Options[K, V]) (Cache[K, V], error) {
	return newCache[K, V](opts)
}
