package beancache

import (
	"context"
	"sync"
)

// creationGroup holds the affinity group chosen during one outermost Create.
type creationGroup[K comparable] struct {
	mu  sync.Mutex
	id  K
	set bool
}

type groupKey struct{}

func groupFrom[K comparable](ctx context.Context) *creationGroup[K] {
	g, _ := ctx.Value(groupKey{}).(*creationGroup[K])
	return g
}

func withGroup[K comparable](ctx context.Context) (context.Context, *creationGroup[K]) {
	g := &creationGroup[K]{}
	return context.WithValue(ctx, groupKey{}, g), g
}

// bind sets id as the group unless one is already set.
func (g *creationGroup[K]) bind(id K) {
	g.mu.Lock()
	if !g.set {
		g.id, g.set = id, true
	}
	g.mu.Unlock()
}

func (g *creationGroup[K]) get() (K, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id, g.set
}

func (g *creationGroup[K]) clear() {
	var zero K
	g.mu.Lock()
	g.id, g.set = zero, false
	g.mu.Unlock()
}
