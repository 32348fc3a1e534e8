package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/hedge-desk/portfolio"
)

// PortfolioKey is where the dashboard summary lives.
const PortfolioKey = "hedge:portfolio:summary"

// Portfolio stores a portfolio.Summary as JSON in a Cache. It satisfies
// request.SummaryCache.
type Portfolio struct {
	Backend Cache
	TTL     time.Duration
}

func NewPortfolio(backend Cache, ttl time.Duration) *Portfolio {
	return &Portfolio{Backend: backend, TTL: ttl}
}

func (p *Portfolio) Load(ctx context.Context) (portfolio.Summary, bool, error) {
	raw, ok, err := p.Backend.Get(ctx, PortfolioKey)
	if err != nil || !ok {
		return portfolio.Summary{}, false, err
	}

	var sum portfolio.Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		// A stale format is a miss; drop it so the next Store replaces it.
		_ = p.Backend.Delete(ctx, PortfolioKey)
		return portfolio.Summary{}, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return sum, true, nil
}

func (p *Portfolio) Store(ctx context.Context, sum portfolio.Summary) error {
	raw, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return p.Backend.Set(ctx, PortfolioKey, raw, p.TTL)
}

func (p *Portfolio) Invalidate(ctx context.Context) error {
	return p.Backend.Delete(ctx, PortfolioKey)
}
