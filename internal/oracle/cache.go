package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

type cacheKey struct {
	symbol string
	class  domain.AssetClass
}

type cacheEntry struct {
	quote   domain.Quote
	expires time.Time
}

// CachedOracle memoizes current quotes for a fixed TTL. Historical
// queries and failures are never cached.
type CachedOracle struct {
	next Oracle
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

// NewCachedOracle wraps next. A non-positive ttl returns next unchanged.
func NewCachedOracle(next Oracle, ttl time.Duration) Oracle {
	if ttl <= 0 {
		return next
	}
	return &CachedOracle{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// CurrentQuote implements Oracle.
func (c *CachedOracle) CurrentQuote(ctx context.Context, symbol string, class domain.AssetClass) (domain.Quote, error) {
	key := cacheKey{symbol: symbol, class: class}
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok && now.Before(e.expires) {
		return e.quote, nil
	}

	q, err := c.next.CurrentQuote(ctx, symbol, class)
	if err != nil {
		return domain.Quote{}, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{quote: q, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return q, nil
}

// HistoricalQuotes implements Oracle.
func (c *CachedOracle) HistoricalQuotes(ctx context.Context, symbol string, class domain.AssetClass, resolution string, from, to time.Time) ([]domain.Quote, error) {
	return c.next.HistoricalQuotes(ctx, symbol, class, resolution, from, to)
}
