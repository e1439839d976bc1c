// Package verification keeps short-lived one-time codes.
//
// A Store is created once at process start and swept periodically by Run.
// Expired entries are also dropped lazily on Get.
package verification

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("verification entry not found")
	ErrExpired  = errors.New("verification entry expired")
	ErrMismatch = errors.New("verification code mismatch")
	// ErrTooManyAttempts is returned once a code has been guessed wrongly MaxAttempts times.
	ErrTooManyAttempts = errors.New("too many verification attempts")
)

// DefaultSweepInterval is used when Run is given a non-positive interval.
const DefaultSweepInterval = 5 * time.Minute

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Store is a concurrency-safe map whose entries expire.
type Store[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	now     func() time.Time
}

// NewStore creates an empty store. now defaults to time.Now.
func NewStore[V any](now func() time.Time) *Store[V] {
	if now == nil {
		now = time.Now
	}
	return &Store[V]{
		entries: make(map[string]entry[V]),
		now:     now,
	}
}

// Put stores value under key until ttl elapses, replacing any previous entry.
func (s *Store[V]) Put(key string, value V, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{value: value, expiresAt: s.now().Add(ttl)}
}

// Get returns the live value for key. An expired entry is removed and
// reported as ErrExpired.
func (s *Store[V]) Get(key string) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	e, ok := s.entries[key]
	if !ok {
		return zero, ErrNotFound
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return zero, ErrExpired
	}
	return e.value, nil
}

// Update replaces the value for key while keeping its expiry. It returns false
// if the key is absent.
func (s *Store[V]) Update(key string, value V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.value = value
	s.entries[key] = e
	return true
}

// Delete removes key.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len returns the number of entries, expired or not.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes every expired entry and returns how many were removed.
func (s *Store[V]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled. onSweep, if non-nil,
// receives the number of entries removed by each sweep.
func (s *Store[V]) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := s.Sweep()
			if onSweep != nil {
				onSweep(removed)
			}
		case <-ctx.Done():
			return
		}
	}
}
