// Package oracle supplies market prices. The engine depends only on the
// Oracle interface; concrete sources talk to Finnhub, Coinbase Exchange
// and Alpaca, or serve configured static prices.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

// Oracle returns current and historical quotes. Every failure wraps
// domain.ErrOracleUnavailable.
type Oracle interface {
	CurrentQuote(ctx context.Context, symbol string, class domain.AssetClass) (domain.Quote, error)
	HistoricalQuotes(ctx context.Context, symbol string, class domain.AssetClass, resolution string, from, to time.Time) ([]domain.Quote, error)
}

// Source is a price feed for a single asset class.
type Source interface {
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
	History(ctx context.Context, symbol, resolution string, from, to time.Time) ([]domain.Quote, error)
}

// Router dispatches to a Source by asset class.
type Router struct {
	sources map[domain.AssetClass]Source
}

// NewRouter creates a Router serving equities from equity and crypto
// from crypto.
func NewRouter(equity, crypto Source) *Router {
	return &Router{sources: map[domain.AssetClass]Source{
		domain.AssetClassEquity: equity,
		domain.AssetClassCrypto: crypto,
	}}
}

func (r *Router) source(class domain.AssetClass) (Source, error) {
	s, ok := r.sources[class]
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: no price source for asset class %q", domain.ErrOracleUnavailable, class)
	}
	return s, nil
}

// CurrentQuote implements Oracle.
func (r *Router) CurrentQuote(ctx context.Context, symbol string, class domain.AssetClass) (domain.Quote, error) {
	s, err := r.source(class)
	if err != nil {
		return domain.Quote{}, err
	}
	q, err := s.Quote(ctx, symbol)
	if err != nil {
		return domain.Quote{}, unavailable(err)
	}
	q.Class = class
	return q, nil
}

// HistoricalQuotes implements Oracle.
func (r *Router) HistoricalQuotes(ctx context.Context, symbol string, class domain.AssetClass, resolution string, from, to time.Time) ([]domain.Quote, error) {
	s, err := r.source(class)
	if err != nil {
		return nil, err
	}
	qs, err := s.History(ctx, symbol, resolution, from, to)
	if err != nil {
		return nil, unavailable(err)
	}
	for i := range qs {
		qs[i].Class = class
	}
	return qs, nil
}

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrOracleUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
}
