package oracle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/shopspring/decimal"
)

// StaticSource serves prices set in process. It backs local runs and
// tests, and can be told to fail to simulate an outage.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
	fail   map[string]error
	calls  map[string]int
	now    func() time.Time
}

// NewStaticSource creates a StaticSource seeded with prices keyed by
// symbol.
func NewStaticSource(prices map[string]decimal.Decimal) *StaticSource {
	s := &StaticSource{
		prices: make(map[string]decimal.Decimal),
		fail:   make(map[string]error),
		calls:  make(map[string]int),
		now:    time.Now,
	}
	for sym, p := range prices {
		s.prices[strings.ToUpper(sym)] = p
	}
	return s
}

// SetPrice sets the current price for symbol and clears any failure.
func (s *StaticSource) SetPrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sym := strings.ToUpper(symbol)
	s.prices[sym] = price
	delete(s.fail, sym)
}

// Fail makes lookups for symbol return err until the next SetPrice.
func (s *StaticSource) Fail(symbol string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[strings.ToUpper(symbol)] = err
}

// Calls reports how many quote lookups were made for symbol.
func (s *StaticSource) Calls(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[strings.ToUpper(symbol)]
}

// Quote implements Source.
func (s *StaticSource) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, err
	}
	sym := strings.ToUpper(symbol)

	s.mu.Lock()
	s.calls[sym]++
	failErr := s.fail[sym]
	price, ok := s.prices[sym]
	s.mu.Unlock()

	if failErr != nil {
		return domain.Quote{}, failErr
	}
	if !ok {
		return domain.Quote{}, fmt.Errorf("no static price for %s", sym)
	}
	return domain.Quote{
		Symbol:        symbol,
		Price:         price,
		Open:          price,
		High:          price,
		Low:           price,
		PreviousClose: price,
		Timestamp:     s.now().UTC(),
	}, nil
}

// History implements Source with a single flat candle at the current
// price, or nothing when the symbol has no price.
func (s *StaticSource) History(ctx context.Context, symbol, _ string, _, to time.Time) ([]domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := s.Quote(ctx, symbol)
	if err != nil {
		return []domain.Quote{}, nil
	}
	q.Timestamp = to.UTC()
	return []domain.Quote{q}, nil
}

// CurrentQuote implements Oracle, ignoring the asset class.
func (s *StaticSource) CurrentQuote(ctx context.Context, symbol string, _ domain.AssetClass) (domain.Quote, error) {
	q, err := s.Quote(ctx, symbol)
	if err != nil {
		return domain.Quote{}, unavailable(err)
	}
	return q, nil
}

// HistoricalQuotes implements Oracle, ignoring the asset class.
func (s *StaticSource) HistoricalQuotes(ctx context.Context, symbol string, _ domain.AssetClass, resolution string, from, to time.Time) ([]domain.Quote, error) {
	return s.History(ctx, symbol, resolution, from, to)
}
