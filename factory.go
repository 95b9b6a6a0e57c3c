package beancache

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/beancache/manager"
)

// CacheFactory produces caches bound to the store chosen at assembly time.
type CacheFactory[K comparable, V Value[K]] interface {
	CreateCache(ids manager.IdentifierFactory[K], factory StatefulObjectFactory[V], listener manager.PassivationListener[V]) (Cache[K, V], error)
}

// StoreConfig is what a store provider gets to build one bean manager.
type StoreConfig[K comparable, V any] struct {
	IdentifierFactory   manager.IdentifierFactory[K]
	PassivationListener manager.PassivationListener[V]
}

// StoreProvider builds bean managers for one store implementation.
type StoreProvider[K comparable, V any] interface {
	BeanManager(cfg StoreConfig[K, V]) (manager.BeanManager[K, V], error)
}

// StoreProviderFunc adapts a function to StoreProvider.
type StoreProviderFunc[K comparable, V any] func(cfg StoreConfig[K, V]) (manager.BeanManager[K, V], error)

func (f StoreProviderFunc[K, V]) BeanManager(cfg StoreConfig[K, V]) (manager.BeanManager[K, V], error) {
	return f(cfg)
}

// Registry maps store names to providers. Stores register themselves once at
// assembly; caches resolve them by the name found in the deployment config.
type Registry[K comparable, V any] struct {
	mu        sync.RWMutex
	providers map[string]StoreProvider[K, V]
}

func NewRegistry[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{providers: make(map[string]StoreProvider[K, V])}
}

// Register makes a provider available by name.
// It panics if p is nil or the name is taken.
func (r *Registry[K, V]) Register(name string, p StoreProvider[K, V]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p == nil {
		panic("beancache: Register provider is nil")
	}
	if _, dup := r.providers[name]; dup {
		panic("beancache: Register called twice for provider " + name)
	}
	r.providers[name] = p
}

func (r *Registry[K, V]) Lookup(name string) (StoreProvider[K, V], error) {
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, name)
	}
	return p, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry[K, V]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FactoryOptions are applied to every cache a factory creates.
type FactoryOptions struct {
	Name    string
	Logger  Logger
	Hooks   Hooks
	Metrics prometheus.Registerer
}

type cacheFactory[K comparable, V Value[K]] struct {
	store    string
	provider StoreProvider[K, V]
	opts     FactoryOptions
}

// NewCacheFactory returns a factory bound to the provider registered as store.
func NewCacheFactory[K comparable, V Value[K]](r *Registry[K, V], store string, opts FactoryOptions) (CacheFactory[K, V], error) {
	p, err := r.Lookup(store)
	if err != nil {
		return nil, err
	}
	return &cacheFactory[K, V]{store: store, provider: p, opts: opts}, nil
}

func (f *cacheFactory[K, V]) CreateCache(ids manager.IdentifierFactory[K], factory StatefulObjectFactory[V], listener manager.PassivationListener[V]) (Cache[K, V], error) {
	if ids == nil {
		return nil, fmt.Errorf("beancache: identifier factory is required")
	}
	if listener == nil {
		listener = manager.NopPassivationListener[V]{}
	}
	mgr, err := f.provider.BeanManager(StoreConfig[K, V]{
		IdentifierFactory:   ids,
		PassivationListener: listener,
	})
	if err != nil {
		return nil, fmt.Errorf("beancache: store %q: %w", f.store, err)
	}
	return New[K, V](Options[K, V]{
		Manager: mgr,
		Factory: factory,
		Name:    f.opts.Name,
		Logger:  f.opts.Logger,
		Hooks:   f.opts.Hooks,
		Metrics: f.opts.Metrics,
	})
}
