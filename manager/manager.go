// Package manager defines the store-facing contracts the cache coordinates:
// bean managers, beans, identifier factories and affinity.
//
// Implementations own per-bean consistency (pin counts, passivation state).
// Every method that takes a context expects the context returned by the
// manager's own Batcher, so stores can enlist work in the current batch.
package manager

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/beancache/batch"
)

// ErrBeanRemoved is returned when operating on a bean handle after the bean
// left the store.
var ErrBeanRemoved = errors.New("manager: bean removed")

// Bean is a store handle to one stateful instance.
type Bean[K comparable, V any] interface {
	ID() K
	Group() K
	// IsValid reports whether the bean is still in the store.
	IsValid() bool

	// Acquire pins the bean and returns its instance, activating it first if it
	// was passivated.
	Acquire(ctx context.Context) (V, error)
	// Release unpins the bean. It returns true when no pins remain and the bean
	// may be reclaimed.
	Release(ctx context.Context) (bool, error)
	// Remove takes the bean out of the store and notifies listener exactly once.
	// Removing an already removed bean is a no-op.
	Remove(ctx context.Context, listener RemoveListener[V]) error
	// Close hands the bean back to the store. Unpinned beans become poolable.
	Close(ctx context.Context) error
}

// RemoveListener is notified when a bean leaves the store for good.
type RemoveListener[V any] interface {
	Removed(ctx context.Context, v V)
}

// RemoveListenerFunc adapts a function to RemoveListener.
type RemoveListenerFunc[V any] func(ctx context.Context, v V)

func (f RemoveListenerFunc[V]) Removed(ctx context.Context, v V) { f(ctx, v) }

// PassivationListener observes instances moving out of and back into memory.
type PassivationListener[V any] interface {
	PrePassivate(ctx context.Context, v V)
	PostActivate(ctx context.Context, v V)
}

// NopPassivationListener ignores passivation events.
type NopPassivationListener[V any] struct{}

func (NopPassivationListener[V]) PrePassivate(context.Context, V) {}
func (NopPassivationListener[V]) PostActivate(context.Context, V) {}

// IdentifierFactory mints fresh bean identifiers.
type IdentifierFactory[K comparable] interface {
	CreateIdentifier() K
}

// IdentifierFactoryFunc adapts a function to IdentifierFactory.
type IdentifierFactoryFunc[K comparable] func() K

func (f IdentifierFactoryFunc[K]) CreateIdentifier() K { return f() }

// UUIDFactory mints random (version 4) UUID strings.
type UUIDFactory struct{}

func (UUIDFactory) CreateIdentifier() string { return uuid.NewString() }

// BeanManager is the distributed (or local) store of beans.
type BeanManager[K comparable, V any] interface {
	// CreateBean registers v under id in the given affinity group.
	CreateBean(ctx context.Context, id, group K, v V) (Bean[K, V], error)
	// FindBean returns nil, nil when id is unknown.
	FindBean(ctx context.Context, id K) (Bean[K, V], error)
	ContainsBean(ctx context.Context, id K) (bool, error)

	ActiveCount() int
	PassiveCount() int

	IdentifierFactory() IdentifierFactory[K]
	Batcher() batch.Batcher

	StrictAffinity() Affinity
	WeakAffinity(id K) Affinity

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
