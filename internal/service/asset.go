package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/oracle"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/google/uuid"
)

// DefaultHistoryWindow is used when a history request has no start.
const DefaultHistoryWindow = 30 * 24 * time.Hour

// CreateAssetRequest represents the input for adding an asset to the
// catalog.
type CreateAssetRequest struct {
	Symbol string
	Name   string
	Class  string
}

// HistoryRequest represents the input for historical quotes. Zero times
// select the DefaultHistoryWindow ending now.
type HistoryRequest struct {
	Symbol     string
	Resolution string
	From       time.Time
	To         time.Time
}

// AssetService handles the asset catalog and market data queries.
type AssetService struct {
	store  store.Store
	oracle oracle.Oracle
	logger *slog.Logger
	now    func() time.Time
}

// NewAssetService creates a new AssetService.
func NewAssetService(s store.Store, o oracle.Oracle, logger *slog.Logger) *AssetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetService{
		store:  s,
		oracle: o,
		logger: logger,
		now:    time.Now,
	}
}

// Create validates the request and adds an active asset.
func (s *AssetService) Create(ctx context.Context, req CreateAssetRequest) (*domain.Asset, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if !domain.ValidSymbol(symbol) {
		return nil, &domain.ValidationError{
			Message: "symbol must match ^[A-Z][A-Z0-9.]{0,14}$",
		}
	}
	class := domain.AssetClass(strings.ToLower(strings.TrimSpace(req.Class)))
	if !class.Valid() {
		return nil, &domain.ValidationError{
			Message: "class must be 'equity' or 'crypto'",
		}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = symbol
	}

	a := &domain.Asset{
		AssetID:   uuid.New().String(),
		Symbol:    symbol,
		Name:      name,
		Class:     class,
		Active:    true,
		CreatedAt: s.now(),
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateAsset(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Seed creates every catalog entry that does not exist yet and returns
// how many were added.
func (s *AssetService) Seed(ctx context.Context, entries []CreateAssetRequest) (int, error) {
	added := 0
	for _, e := range entries {
		_, err := s.Create(ctx, e)
		if errors.Is(err, domain.ErrAssetAlreadyExists) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("seed %s: %w", e.Symbol, err)
		}
		added++
	}
	s.logger.Info("asset catalog seeded", "entries", len(entries), "added", added)
	return added, nil
}

// List returns every asset ordered by symbol.
func (s *AssetService) List(ctx context.Context) ([]*domain.Asset, error) {
	var out []*domain.Asset
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListAssets(ctx)
		return err
	})
	return out, err
}

// Get returns an asset by symbol.
func (s *AssetService) Get(ctx context.Context, symbol string) (*domain.Asset, error) {
	var a *domain.Asset
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		a, err = tx.GetAssetBySymbol(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
		return err
	})
	return a, err
}

// GetQuote returns the current quote for a listed asset.
func (s *AssetService) GetQuote(ctx context.Context, symbol string) (*domain.Asset, domain.Quote, error) {
	a, err := s.Get(ctx, symbol)
	if err != nil {
		return nil, domain.Quote{}, err
	}
	q, err := s.oracle.CurrentQuote(ctx, a.Symbol, a.Class)
	if err != nil {
		return nil, domain.Quote{}, err
	}
	return a, q, nil
}

// GetHistory returns historical quotes for a listed asset, oldest first.
func (s *AssetService) GetHistory(ctx context.Context, req HistoryRequest) (*domain.Asset, []domain.Quote, error) {
	to := req.To
	if to.IsZero() {
		to = s.now()
	}
	from := req.From
	if from.IsZero() {
		from = to.Add(-DefaultHistoryWindow)
	}
	if !from.Before(to) {
		return nil, nil, &domain.ValidationError{
			Message: "from must be before to",
		}
	}
	resolution := strings.TrimSpace(req.Resolution)
	if resolution == "" {
		resolution = "D"
	}

	a, err := s.Get(ctx, req.Symbol)
	if err != nil {
		return nil, nil, err
	}
	qs, err := s.oracle.HistoricalQuotes(ctx, a.Symbol, a.Class, resolution, from, to)
	if err != nil {
		return nil, nil, err
	}
	return a, qs, nil
}
