package genstore

import (
	"context"
	"sync"
	"time"
)

type gen struct {
	n       uint64
	touched int64 // unix nanos of the last bump
}

// LocalGenStore keeps generations in process memory. It is the default for a
// manager whose passivation store is not shared with other processes.
type LocalGenStore struct {
	mu   sync.RWMutex
	gens map[string]gen
	now  func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

var _ GenStore = (*LocalGenStore)(nil)

// NewLocalGenStore creates a store. With a positive interval and retention a
// janitor goroutine calls Cleanup(retention) every interval until Close.
func NewLocalGenStore(interval, retention time.Duration) *LocalGenStore {
	s := &LocalGenStore{gens: make(map[string]gen), now: time.Now}
	if interval <= 0 || retention <= 0 {
		return s
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel, s.done = cancel, make(chan struct{})
	go s.janitor(ctx, interval, retention)
	return s
}

func (s *LocalGenStore) janitor(ctx context.Context, interval, retention time.Duration) {
	defer close(s.done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Cleanup(retention)
		}
	}
}

func (s *LocalGenStore) Snapshot(_ context.Context, storageKey string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[storageKey].n, nil
}

func (s *LocalGenStore) Bump(_ context.Context, storageKey string) (uint64, error) {
	ts := s.now().UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.gens[storageKey]
	g.n++
	g.touched = ts
	s.gens[storageKey] = g
	return g.n, nil
}

// Cleanup forgets generations not bumped within retention. A forgotten key
// reads as 0 again, so retention must outlive every passivated record.
func (s *LocalGenStore) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := s.now().Add(-retention).UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, g := range s.gens {
		if g.touched < cutoff {
			delete(s.gens, k)
		}
	}
}

// Len reports how many keys currently carry a generation.
func (s *LocalGenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}

// Close stops the janitor and waits for it. Safe to call more than once.
func (s *LocalGenStore) Close(context.Context) error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}
