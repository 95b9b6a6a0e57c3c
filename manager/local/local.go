// Package local is an in-process bean store.
//
// Beans live in a table guarded by one mutex. Idle (unpinned) beans beyond
// MaxActive are passivated, least recently used first, into a provider.Provider
// when the batch that released them commits. Bean creation is undone when its
// batch is discarded.
//
// Provider, generation store, codec and passivation listener calls run
// without the store lock. A bean moving between memory and the provider is
// marked, and calls on that bean wait until the move is over; other beans are
// unaffected.
package local

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/unkn0wn-root/beancache"
	"github.com/unkn0wn-root/beancache/batch"
	"github.com/unkn0wn-root/beancache/codec"
	"github.com/unkn0wn-root/beancache/genstore"
	"github.com/unkn0wn-root/beancache/internal/util"
	"github.com/unkn0wn-root/beancache/manager"
	"github.com/unkn0wn-root/beancache/provider"
)

var (
	// ErrDuplicateBean is returned by CreateBean for an id already in the store.
	ErrDuplicateBean = errors.New("local: duplicate bean id")

	// ErrPassivatedStateLost is returned when a passivated bean cannot be
	// activated (record missing, corrupt, stale or undecodable). The bean is
	// dropped from the store.
	ErrPassivatedStateLost = errors.New("local: passivated state lost")

	errRejected = errors.New("local: provider rejected passivated record")
)

// Config of a local bean manager.
// Namespace and IdentifierFactory are required; Provider and Codec are
// required when MaxActive > 0.
type Config[K comparable, V any] struct {
	Namespace string
	Node      string // weak affinity target, and strict when Cluster is empty
	Cluster   string // strict affinity target

	MaxActive      int           // idle beans kept in memory; 0 disables passivation
	PassivationTTL time.Duration // TTL of passivated records; 0 => no expiry

	IdentifierFactory   manager.IdentifierFactory[K]
	Batcher             batch.Batcher // nil => batch.NewBatcher()
	Provider            provider.Provider
	Codec               codec.Codec[V]
	GenStore            genstore.GenStore // nil => in-process generations
	PassivationListener manager.PassivationListener[V]

	// KeyFunc renders ids into storage keys; nil => fmt.Sprint.
	KeyFunc func(K) string

	Logger beancache.Logger // if nil, NopLogger is used
	Hooks  beancache.Hooks  // if nil, NopHooks is used
}

type entry[K comparable, V any] struct {
	id, group  K
	value      V // zero while passivated
	pins       int
	passivated bool
	removed    bool
	idle       *list.Element // position in Manager.idle while unpinned and in memory
	moving     chan struct{} // non-nil while passivating or activating; closed when done
}

// Manager is the local BeanManager.
type Manager[K comparable, V any] struct {
	ns        string
	node      string
	cluster   string
	maxActive int
	ttl       time.Duration

	ids      manager.IdentifierFactory[K]
	batcher  batch.Batcher
	provider provider.Provider
	codec    codec.Codec[V]
	gens     genstore.GenStore
	listener manager.PassivationListener[V]
	keyOf    func(K) string
	log      beancache.Logger
	hooks    beancache.Hooks

	mu       sync.Mutex
	entries  map[K]*entry[K, V]
	idle     *list.List // of *entry; front = most recently used
	passive  int
	outgoing int // beans being passivated

	stopOnce sync.Once
	stopErr  error
}

var _ manager.BeanManager[string, struct{}] = (*Manager[string, struct{}])(nil)

func New[K comparable, V any](cfg Config[K, V]) (*Manager[K, V], error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("local: namespace is required")
	}
	if cfg.IdentifierFactory == nil {
		return nil, fmt.Errorf("local: identifier factory is required")
	}
	if cfg.MaxActive < 0 {
		return nil, fmt.Errorf("local: max active must not be negative")
	}
	if cfg.MaxActive > 0 && (cfg.Provider == nil || cfg.Codec == nil) {
		return nil, fmt.Errorf("local: passivation needs a provider and a codec")
	}

	m := &Manager[K, V]{
		ns:        cfg.Namespace,
		node:      cfg.Node,
		cluster:   cfg.Cluster,
		maxActive: cfg.MaxActive,
		ttl:       cfg.PassivationTTL,
		ids:       cfg.IdentifierFactory,
		batcher:   cfg.Batcher,
		provider:  cfg.Provider,
		codec:     cfg.Codec,
		gens:      cfg.GenStore,
		listener:  cfg.PassivationListener,
		keyOf:     cfg.KeyFunc,
		log:       cfg.Logger,
		hooks:     cfg.Hooks,
		entries:   make(map[K]*entry[K, V]),
		idle:      list.New(),
	}
	if m.batcher == nil {
		m.batcher = batch.NewBatcher()
	}
	if m.gens == nil && m.provider != nil {
		m.gens = genstore.NewLocalGenStore(0, 0)
	}
	if m.listener == nil {
		m.listener = manager.NopPassivationListener[V]{}
	}
	if m.keyOf == nil {
		m.keyOf = func(id K) string { return fmt.Sprint(id) }
	}
	if m.log == nil {
		m.log = beancache.NopLogger{}
	}
	if m.hooks == nil {
		m.hooks = beancache.NopHooks{}
	}
	return m, nil
}

func (m *Manager[K, V]) key(id K) string { return util.BeanKey(m.ns, m.keyOf(id)) }

func (m *Manager[K, V]) passivating() bool { return m.maxActive > 0 }

func (m *Manager[K, V]) CreateBean(ctx context.Context, id, group K, v V) (manager.Bean[K, V], error) {
	m.mu.Lock()
	if _, dup := m.entries[id]; dup {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrDuplicateBean, id)
	}
	e := &entry[K, V]{id: id, group: group, value: v}
	m.entries[id] = e
	m.mu.Unlock()

	if en, ok := batch.FromContext(ctx).(batch.Enlister); ok {
		en.OnRollback(func() { m.drop(context.WithoutCancel(ctx), e) })
	}
	return &bean[K, V]{m: m, e: e}, nil
}

func (m *Manager[K, V]) FindBean(_ context.Context, id K) (manager.Bean[K, V], error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return &bean[K, V]{m: m, e: e}, nil
}

func (m *Manager[K, V]) ContainsBean(_ context.Context, id K) (bool, error) {
	m.mu.Lock()
	_, ok := m.entries[id]
	m.mu.Unlock()
	return ok, nil
}

func (m *Manager[K, V]) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries) - m.passive
}

func (m *Manager[K, V]) PassiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.passive
}

func (m *Manager[K, V]) IdentifierFactory() manager.IdentifierFactory[K] { return m.ids }
func (m *Manager[K, V]) Batcher() batch.Batcher                          { return m.batcher }

func (m *Manager[K, V]) StrictAffinity() manager.Affinity {
	switch {
	case m.cluster != "":
		return manager.ClusterAffinity(m.cluster)
	case m.node != "":
		return manager.NodeAffinity(m.node)
	default:
		return manager.NoAffinity()
	}
}

func (m *Manager[K, V]) WeakAffinity(id K) manager.Affinity {
	if m.node == "" {
		return manager.NoAffinity()
	}
	m.mu.Lock()
	_, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return manager.NoAffinity()
	}
	return manager.NodeAffinity(m.node)
}

func (m *Manager[K, V]) Start(context.Context) error {
	m.log.Info("local bean manager started", beancache.Fields{
		"ns": m.ns, "node": m.node, "max_active": m.maxActive,
	})
	return nil
}

// Stop closes the generation store and the provider. Safe to call more than once.
func (m *Manager[K, V]) Stop(ctx context.Context) error {
	m.stopOnce.Do(func() {
		var errs []error
		if m.gens != nil {
			errs = append(errs, m.gens.Close(ctx))
		}
		if m.provider != nil {
			errs = append(errs, m.provider.Close(ctx))
		}
		m.stopErr = errors.Join(errs...)
		m.log.Info("local bean manager stopped", beancache.Fields{"ns": m.ns, "err": m.stopErr})
	})
	return m.stopErr
}

// drop undoes a creation whose batch was discarded.
func (m *Manager[K, V]) drop(ctx context.Context, e *entry[K, V]) {
	for {
		m.mu.Lock()
		if m.entries[e.id] != e {
			m.mu.Unlock()
			return
		}
		moving := e.moving
		if moving == nil {
			break
		}
		m.mu.Unlock()
		<-moving
	}
	passivated := e.passivated
	m.unlinkLocked(e)
	m.mu.Unlock()
	if passivated {
		m.deleteRecord(ctx, m.key(e.id))
	}
	m.log.Debug("bean creation rolled back", beancache.Fields{"id": e.id})
}

func (m *Manager[K, V]) unlinkLocked(e *entry[K, V]) {
	var zero V
	if m.entries[e.id] == e {
		delete(m.entries, e.id)
	}
	if e.idle != nil {
		m.idle.Remove(e.idle)
		e.idle = nil
	}
	if e.passivated {
		m.passive--
		e.passivated = false
	}
	e.value = zero
	e.removed = true
}

func (m *Manager[K, V]) deleteRecord(ctx context.Context, key string) {
	if m.provider == nil {
		return
	}
	if err := m.provider.Del(ctx, key); err != nil {
		m.log.Warn("passivated record delete failed", beancache.Fields{"key": key, "err": err})
	}
}
