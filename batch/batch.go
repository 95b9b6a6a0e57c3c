// Package batch defines units of work against a bean store and the
// invocation-scoped plumbing that lets one unit of work span several nested
// cache calls.
//
// Nothing here is thread-local. The current batch and the batch stack travel in
// a context.Context, so a batch can be handed to another goroutine only by
// resuming it explicitly on that goroutine's context.
package batch

import (
	"context"
	"errors"
)

var (
	// ErrAsymmetricUsage is the panic value raised when batches are popped
	// without a matching push, or closed out of order.
	ErrAsymmetricUsage = errors.New("batch: asymmetric cache usage")

	// ErrNotResumable is returned when resuming a batch that is closed, already
	// active on some invocation, or foreign to the batcher.
	ErrNotResumable = errors.New("batch: batch is not resumable")

	// ErrClosed is returned when closing a batch twice.
	ErrClosed = errors.New("batch: batch already closed")

	// ErrRolledBack is returned by Close of an outermost batch that was rolled
	// back because a nested batch was discarded, although its own owner never
	// called Discard. Work done in it did not happen.
	ErrRolledBack = errors.New("batch: batch rolled back by a nested batch")
)

// State of a batch. A batch is open while Active or Discarding.
type State uint8

const (
	// Active batches commit on Close.
	Active State = iota
	// Discarding batches roll back on Close.
	Discarding
	// Committed batches were closed normally.
	Committed
	// Discarded batches were closed after Discard.
	Discarded
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Discarding:
		return "discarding"
	case Committed:
		return "committed"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Open reports whether the batch has not been closed yet.
func (s State) Open() bool { return s == Active || s == Discarding }

// Batch is a unit of work. Close commits it unless Discard was called first,
// on it or on a batch nested in it.
type Batch interface {
	State() State
	Discard()
	Close() error
}

// Context is the scope returned by Batcher.ResumeBatch. Closing it detaches
// the resumed batch from the invocation again unless the batch was closed
// inside the scope.
type Context interface {
	Close()
}

// Batcher creates and moves batches between invocation contexts.
type Batcher interface {
	// CreateBatch opens a batch and returns a context in which it is current.
	// If ctx already carries an open batch, the new batch is nested in it and
	// shares its outcome.
	CreateBatch(ctx context.Context) (context.Context, Batch)

	// SuspendBatch detaches the current batch of ctx from the invocation,
	// leaving it open, and returns it. Returns nil if ctx has no batch.
	SuspendBatch(ctx context.Context) Batch

	// ResumeBatch makes a suspended batch current again on ctx.
	ResumeBatch(ctx context.Context, b Batch) (context.Context, Context, error)
}

// Enlister is implemented by batches that run callbacks when their outcome is
// decided. Stores use it to defer work to commit or undo work on discard.
type Enlister interface {
	// OnCommit registers fn to run after a successful commit, in order.
	OnCommit(fn func() error)
	// OnRollback registers fn to run when the batch is discarded, in reverse order.
	OnRollback(fn func())
}

var currentKey = "batch.Current"

// FromContext returns the batch current on ctx, or nil.
func FromContext(ctx context.Context) Batch {
	b, _ := ctx.Value(&currentKey).(Batch)
	return b
}

func withCurrent(ctx context.Context, b Batch) context.Context {
	return context.WithValue(ctx, &currentKey, b)
}
