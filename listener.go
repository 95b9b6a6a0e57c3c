package beancache

import (
	"context"

	"github.com/unkn0wn-root/beancache/manager"
)

// removeListener forwards store removal events to the object factory's
// destroy callback. It does not de-duplicate: firing once per bean is the
// store's contract.
type removeListener[V any] struct {
	factory StatefulObjectFactory[V]
}

var _ manager.RemoveListener[struct{}] = removeListener[struct{}]{}

func (l removeListener[V]) Removed(ctx context.Context, v V) {
	l.factory.DestroyInstance(ctx, v)
}
