package request

import (
	"context"

	"github.com/warp/hedge-desk/portfolio"
)

// =============================================================================
// STORE - Persistence for requests and bank executives
// =============================================================================

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Status   Status
	SellerID string
}

// Matches reports whether r passes the filter.
func (f Filter) Matches(r Request) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.SellerID != "" && r.SellerID != f.SellerID {
		return false
	}
	return true
}

// Store persists requests. Coverage results are never stored.
//
// IMPLEMENTATIONS:
//   - request/store/memory.go: in-memory (tests, dev)
//   - store/sqlite/sqlite.go: SQLite
type Store interface {
	// Save inserts or replaces the request, payments included.
	Save(ctx context.Context, r Request) error

	// Get returns ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (Request, error)

	// List returns matching requests, newest first.
	List(ctx context.Context, f Filter) ([]Request, error)

	// Delete returns ErrNotFound when id is unknown.
	Delete(ctx context.Context, id string) error
}

// ExecutiveStore persists bank contacts.
type ExecutiveStore interface {
	SaveExecutive(ctx context.Context, e Executive) error
	// ListExecutives returns the contacts of bank, or all when bank is "".
	ListExecutives(ctx context.Context, bank string) ([]Executive, error)
	DeleteExecutive(ctx context.Context, id string) error
}

// SummaryCache holds the last computed portfolio summary.
//
// IMPLEMENTATIONS:
//   - cache/portfolio.go over cache.Memory or cache.Redis
type SummaryCache interface {
	Load(ctx context.Context) (portfolio.Summary, bool, error)
	Store(ctx context.Context, s portfolio.Summary) error
	Invalidate(ctx context.Context) error
}
