package batch

import (
	"context"
	"errors"
	"sync"
)

// LocalBatcher is an in-process Batcher. Its batches collect commit and
// rollback callbacks from the store (see Enlister) and run them when the
// outermost batch closes.
type LocalBatcher struct{}

var _ Batcher = LocalBatcher{}

// NewBatcher returns an in-process batcher.
func NewBatcher() LocalBatcher { return LocalBatcher{} }

func (LocalBatcher) CreateBatch(ctx context.Context) (context.Context, Batch) {
	ctx, s := ensureStack(ctx)
	b := &localBatch{state: Active}
	if cur, ok := FromContext(ctx).(*localBatch); ok && cur.State().Open() {
		b.parent = cur
	}
	b.stack = s
	s.Push(b)
	return withCurrent(ctx, b), b
}

func (LocalBatcher) SuspendBatch(ctx context.Context) Batch {
	cur := FromContext(ctx)
	b, ok := cur.(*localBatch)
	if !ok {
		return cur
	}
	b.mu.Lock()
	s := b.stack
	b.stack = nil
	b.mu.Unlock()
	if s != nil && s.Pop() != b {
		panic(ErrAsymmetricUsage)
	}
	return b
}

func (LocalBatcher) ResumeBatch(ctx context.Context, batch Batch) (context.Context, Context, error) {
	b, ok := batch.(*localBatch)
	if !ok {
		return ctx, nil, ErrNotResumable
	}
	ctx, s := ensureStack(ctx)
	b.mu.Lock()
	if !b.state.Open() || b.stack != nil {
		b.mu.Unlock()
		return ctx, nil, ErrNotResumable
	}
	b.stack = s
	b.mu.Unlock()
	s.Push(b)
	return withCurrent(ctx, b), &resumed{b: b, s: s}, nil
}

type resumed struct {
	b    *localBatch
	s    *Stack
	once sync.Once
}

func (r *resumed) Close() {
	r.once.Do(func() {
		r.b.mu.Lock()
		pushed := r.b.stack == r.s
		if pushed {
			r.b.stack = nil
		}
		r.b.mu.Unlock()
		if pushed && r.s.Pop() != r.b {
			panic(ErrAsymmetricUsage)
		}
	})
}

type localBatch struct {
	mu     sync.Mutex
	parent *localBatch
	state  State
	// stack holding this batch while it is current on some invocation;
	// nil while suspended or closed.
	stack     *Stack
	commits   []func() error
	rollbacks []func()
	// owned is set once Discard was called on this batch itself.
	owned bool
}

var _ Enlister = (*localBatch)(nil)

func (b *localBatch) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *localBatch) Discard() { b.discard(true) }

// discard marks b and its ancestors rollback-only. owner is false when the
// mark comes from a nested batch.
func (b *localBatch) discard(owner bool) {
	b.mu.Lock()
	if !b.state.Open() {
		b.mu.Unlock()
		return
	}
	if owner {
		b.owned = true
	}
	if b.state == Discarding {
		b.mu.Unlock()
		return
	}
	b.state = Discarding
	b.mu.Unlock()
	if b.parent != nil {
		b.parent.discard(false)
	}
}

func (b *localBatch) OnCommit(fn func() error) {
	r := b.root()
	r.mu.Lock()
	r.commits = append(r.commits, fn)
	r.mu.Unlock()
}

func (b *localBatch) OnRollback(fn func()) {
	r := b.root()
	r.mu.Lock()
	r.rollbacks = append(r.rollbacks, fn)
	r.mu.Unlock()
}

func (b *localBatch) root() *localBatch {
	for b.parent != nil {
		b = b.parent
	}
	return b
}

func (b *localBatch) Close() error {
	b.mu.Lock()
	if !b.state.Open() {
		b.mu.Unlock()
		return ErrClosed
	}
	discarding, owned := b.state == Discarding, b.owned
	if discarding {
		b.state = Discarded
	} else {
		b.state = Committed
	}
	s := b.stack
	b.stack = nil
	commits, rollbacks := b.commits, b.rollbacks
	b.commits, b.rollbacks = nil, nil
	b.mu.Unlock()

	if s != nil && s.Pop() != b {
		panic(ErrAsymmetricUsage)
	}
	if b.parent != nil {
		// nested: the outermost batch decides
		return nil
	}
	if discarding {
		for i := len(rollbacks) - 1; i >= 0; i-- {
			rollbacks[i]()
		}
		if !owned {
			return ErrRolledBack
		}
		return nil
	}
	var errs []error
	for _, fn := range commits {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
