package batch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustPanicAsymmetric(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value should be an error, got %T", r)
		require.ErrorIs(t, err, ErrAsymmetricUsage)
	}()
	fn()
}

func TestStackPopEmptyPanics(t *testing.T) {
	s := &Stack{}
	mustPanicAsymmetric(t, func() { s.Pop() })
}

func TestStackLIFO(t *testing.T) {
	s := &Stack{}
	a, b := &localBatch{}, &localBatch{}
	s.Push(a)
	s.Push(b)
	require.Equal(t, 2, s.Len())
	require.Same(t, b, s.Pop())
	require.Same(t, a, s.Pop())
	require.Equal(t, 0, s.Len())
	mustPanicAsymmetric(t, func() { s.Pop() })
}

func TestStackFromContext(t *testing.T) {
	ctx := context.Background()
	require.Nil(t, StackFrom(ctx))
	ctx = WithStack(ctx)
	require.NotNil(t, StackFrom(ctx))
}

func TestCreateAndCommit(t *testing.T) {
	bt := NewBatcher()
	ctx, b := bt.CreateBatch(context.Background())
	require.Equal(t, Active, b.State())
	require.Same(t, b, FromContext(ctx))
	require.Equal(t, 1, StackFrom(ctx).Len())

	var committed bool
	b.(Enlister).OnCommit(func() error { committed = true; return nil })
	b.(Enlister).OnRollback(func() { t.Fatalf("rollback must not run on commit") })

	require.NoError(t, b.Close())
	require.True(t, committed)
	require.Equal(t, Committed, b.State())
	require.Equal(t, 0, StackFrom(ctx).Len())
	require.ErrorIs(t, b.Close(), ErrClosed)
}

func TestDiscardRunsRollbacksInReverse(t *testing.T) {
	bt := NewBatcher()
	_, b := bt.CreateBatch(context.Background())
	var order []int
	e := b.(Enlister)
	e.OnRollback(func() { order = append(order, 1) })
	e.OnRollback(func() { order = append(order, 2) })
	e.OnCommit(func() error { t.Fatalf("commit must not run on discard"); return nil })

	b.Discard()
	require.Equal(t, Discarding, b.State())
	require.True(t, b.State().Open())
	require.NoError(t, b.Close())
	require.Equal(t, Discarded, b.State())
	require.Equal(t, []int{2, 1}, order)
}

func TestCommitErrorsAreJoined(t *testing.T) {
	bt := NewBatcher()
	_, b := bt.CreateBatch(context.Background())
	e1, e2 := errors.New("one"), errors.New("two")
	b.(Enlister).OnCommit(func() error { return e1 })
	b.(Enlister).OnCommit(func() error { return e2 })
	err := b.Close()
	require.ErrorIs(t, err, e1)
	require.ErrorIs(t, err, e2)
}

func TestNestedBatchSharesOutcome(t *testing.T) {
	bt := NewBatcher()
	outerCtx, outer := bt.CreateBatch(context.Background())
	innerCtx, inner := bt.CreateBatch(outerCtx)
	require.Same(t, inner, FromContext(innerCtx))
	require.Equal(t, 2, StackFrom(innerCtx).Len())

	var rolledBack bool
	inner.(Enlister).OnRollback(func() { rolledBack = true })

	inner.Discard()
	require.NoError(t, inner.Close())
	require.False(t, rolledBack, "nested close must defer to the outer batch")
	require.Equal(t, Discarding, outer.State())

	require.ErrorIs(t, outer.Close(), ErrRolledBack, "outer owner never discarded")
	require.True(t, rolledBack)
	require.Equal(t, Discarded, outer.State())
	require.Equal(t, 0, StackFrom(outerCtx).Len())
}

func TestOwnerDiscardAfterNestedDiscard(t *testing.T) {
	bt := NewBatcher()
	outerCtx, outer := bt.CreateBatch(context.Background())
	_, inner := bt.CreateBatch(outerCtx)

	inner.Discard()
	require.NoError(t, inner.Close())
	outer.Discard()
	require.NoError(t, outer.Close())
	require.Equal(t, Discarded, outer.State())
}

func TestDeeplyNestedDiscardReachesRoot(t *testing.T) {
	bt := NewBatcher()
	rootCtx, root := bt.CreateBatch(context.Background())
	midCtx, mid := bt.CreateBatch(rootCtx)
	_, leaf := bt.CreateBatch(midCtx)

	leaf.Discard()
	require.NoError(t, leaf.Close())
	require.Equal(t, Discarding, mid.State())
	require.NoError(t, mid.Close(), "nested batches defer to the root")
	require.ErrorIs(t, root.Close(), ErrRolledBack)
}

func TestOutOfOrderClosePanics(t *testing.T) {
	bt := NewBatcher()
	outerCtx, outer := bt.CreateBatch(context.Background())
	_, _ = bt.CreateBatch(outerCtx)
	mustPanicAsymmetric(t, func() { _ = outer.Close() })
}

func TestSuspendAndResume(t *testing.T) {
	bt := NewBatcher()
	ctx, b := bt.CreateBatch(context.Background())
	require.Same(t, b, bt.SuspendBatch(ctx))
	require.Equal(t, 0, StackFrom(ctx).Len())
	require.True(t, b.State().Open())

	rctx, scope, err := bt.ResumeBatch(context.Background(), b)
	require.NoError(t, err)
	require.Same(t, b, FromContext(rctx))

	// not reentrant
	_, _, err = bt.ResumeBatch(context.Background(), b)
	require.ErrorIs(t, err, ErrNotResumable)

	scope.Close()
	require.Equal(t, 0, StackFrom(rctx).Len())
	require.True(t, b.State().Open())

	// resumable again after the scope ends
	rctx, scope, err = bt.ResumeBatch(context.Background(), b)
	require.NoError(t, err)
	require.NoError(t, b.Close())
	scope.Close()
	require.Equal(t, 0, StackFrom(rctx).Len())

	_, _, err = bt.ResumeBatch(context.Background(), b)
	require.ErrorIs(t, err, ErrNotResumable)
}

func TestResumeOnAnotherGoroutine(t *testing.T) {
	bt := NewBatcher()
	ctx, b := bt.CreateBatch(context.Background())
	b = bt.SuspendBatch(ctx)

	var wg sync.WaitGroup
	var closeErr, resumeErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, scope, err := bt.ResumeBatch(context.Background(), b)
		if err != nil {
			resumeErr = err
			return
		}
		defer scope.Close()
		closeErr = b.Close()
	}()
	wg.Wait()
	require.NoError(t, resumeErr)
	require.NoError(t, closeErr)
	require.Equal(t, Committed, b.State())
}

type foreignBatch struct{}

func (foreignBatch) State() State { return Active }
func (foreignBatch) Discard()     {}
func (foreignBatch) Close() error { return nil }

func TestResumeForeignBatch(t *testing.T) {
	_, _, err := NewBatcher().ResumeBatch(context.Background(), foreignBatch{})
	require.ErrorIs(t, err, ErrNotResumable)
}
