// Package store provides in-memory request.Store and request.ExecutiveStore
// implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/hedge-desk/request"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	requests   map[string]request.Request
	executives map[string]request.Executive
}

func NewMemory() *Memory {
	return &Memory{
		requests:   make(map[string]request.Request),
		executives: make(map[string]request.Executive),
	}
}

// Save inserts or replaces a request. The stored copy shares nothing with
// the caller's value.
func (m *Memory) Save(_ context.Context, r request.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (request.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.requests[id]
	if !ok {
		return request.Request{}, fmt.Errorf("request %s: %w", id, request.ErrNotFound)
	}
	return r.Clone(), nil
}

func (m *Memory) List(_ context.Context, f request.Filter) ([]request.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []request.Request{}
	for _, r := range m.requests {
		if f.Matches(r) {
			result = append(result, r.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[id]; !ok {
		return fmt.Errorf("request %s: %w", id, request.ErrNotFound)
	}
	delete(m.requests, id)
	return nil
}

// Reset drops everything. Used when loading demo scenarios.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]request.Request)
	m.executives = make(map[string]request.Executive)
	return nil
}

// =============================================================================
// EXECUTIVES
// =============================================================================

func (m *Memory) SaveExecutive(_ context.Context, e request.Executive) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executives[e.ID] = e
	return nil
}

func (m *Memory) ListExecutives(_ context.Context, bank string) ([]request.Executive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []request.Executive{}
	for _, e := range m.executives {
		if bank == "" || e.Bank == bank {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Bank != result[j].Bank {
			return result[i].Bank < result[j].Bank
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (m *Memory) DeleteExecutive(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.executives[id]; !ok {
		return fmt.Errorf("executive %s: %w", id, request.ErrNotFound)
	}
	delete(m.executives, id)
	return nil
}
