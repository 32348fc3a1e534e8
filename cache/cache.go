/*
Package cache keeps derived, recomputable data close to the API.

PURPOSE:
  The portfolio dashboard sums the calculator output of every approved
  request. The result is cheap to rebuild but read on every dashboard
  load, so the last summary is kept until a write invalidates it or its
  TTL runs out.

BACKENDS:
  Memory: process-local map with per-key expiry (default, tests)
  Redis:  shared across instances (go-redis)

Neither backend is a source of truth: a miss or an error only means the
caller recomputes.

SEE ALSO:
  - portfolio.go: request.SummaryCache on top of a Cache
  - request/service.go: invalidation on writes
*/
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache stores opaque values by key. A zero ttl means no expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// =============================================================================
// MEMORY
// =============================================================================

type entry struct {
	value     []byte
	expiresAt time.Time // zero means never
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

// WithClock replaces the clock used for expiry. Tests only.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if now := m.now(); e.expired(now) {
		// Re-read under the write lock: a Set may have replaced the entry.
		m.mu.Lock()
		e, ok = m.entries[key]
		if ok && e.expired(now) {
			delete(m.entries, key)
			ok = false
		}
		m.mu.Unlock()
		if !ok {
			return nil, false, nil
		}
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
