package batch

import (
	"context"
	"sync"
)

// Stack is a LIFO of open batches scoped to one invocation.
// Push and Pop calls made within one scope must balance. There is
// no Peek: code may only take back what it pushed.
type Stack struct {
	mu     sync.Mutex
	frames []Batch
}

// Push puts b on top of the stack.
func (s *Stack) Push(b Batch) {
	s.mu.Lock()
	s.frames = append(s.frames, b)
	s.mu.Unlock()
}

// Pop removes and returns the top batch.
// It panics with ErrAsymmetricUsage if the stack is empty.
func (s *Stack) Pop() Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.frames)
	if n == 0 {
		panic(ErrAsymmetricUsage)
	}
	b := s.frames[n-1]
	s.frames[n-1] = nil
	s.frames = s.frames[:n-1]
	return b
}

// Len is the number of pushed batches.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

var stackKey = "batch.Stack"

// WithStack installs a fresh, empty Stack into ctx.
func WithStack(ctx context.Context) context.Context {
	return context.WithValue(ctx, &stackKey, &Stack{})
}

// StackFrom returns the Stack installed in ctx, or nil.
func StackFrom(ctx context.Context) *Stack {
	s, _ := ctx.Value(&stackKey).(*Stack)
	return s
}

func ensureStack(ctx context.Context) (context.Context, *Stack) {
	if s := StackFrom(ctx); s != nil {
		return ctx, s
	}
	ctx = WithStack(ctx)
	return ctx, StackFrom(ctx)
}
