package store

import (
	"context"
	"sync"
	"time"

	"github.com/archfirm/gatehouse/core"
)

type attemptWindow struct {
	attempts int
	start    time.Time
}

// MemoryStore is a process-local fixed window attempt counter
type MemoryStore struct {
	windows     map[string]*attemptWindow
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the time source
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates a new in-memory attempt store
func NewMemoryStore(maxAttempts int, windowSize time.Duration, opts ...MemoryOption) *MemoryStore {
	maxAttempts, windowSize = normalize(maxAttempts, windowSize)
	s := &MemoryStore{
		windows:     make(map[string]*attemptWindow),
		maxAttempts: maxAttempts,
		window:      windowSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hit records an attempt for identifier
func (s *MemoryStore) Hit(ctx context.Context, identifier string) (core.Attempt, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.windows[identifier]
	if !exists || now.Sub(w.start) > s.window {
		s.windows[identifier] = &attemptWindow{attempts: 1, start: now}
		return verdict(1, s.maxAttempts, 0), nil
	}

	w.attempts++
	return verdict(w.attempts, s.maxAttempts, w.start.Add(s.window).Sub(now)), nil
}

// Reset drops the window for identifier
func (s *MemoryStore) Reset(ctx context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, identifier)
	return nil
}

// Sweep evicts every window that has elapsed at now and returns how many were removed
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, w := range s.windows {
		if now.Sub(w.start) > s.window {
			delete(s.windows, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}

// Len reports how many clients are currently tracked
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
