package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/oracle"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/sourcegraph/conc/pool"
)

// watchlistQuoteWorkers bounds concurrent oracle calls when pricing a
// watchlist.
const watchlistQuoteWorkers = 4

// WatchedAsset is a watchlist entry with its asset and, when the oracle
// answered, its current quote.
type WatchedAsset struct {
	Item   *domain.WatchlistItem
	Asset  *domain.Asset
	Quote  domain.Quote
	Priced bool
}

// WatchlistService manages the assets a user follows.
type WatchlistService struct {
	store  store.Store
	oracle oracle.Oracle
	logger *slog.Logger
	now    func() time.Time
}

// NewWatchlistService creates a new WatchlistService.
func NewWatchlistService(s store.Store, o oracle.Oracle, logger *slog.Logger) *WatchlistService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchlistService{
		store:  s,
		oracle: o,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the user's watchlist newest first. Entries whose price
// cannot be fetched are returned unpriced.
func (s *WatchlistService) Get(ctx context.Context, userID string) ([]WatchedAsset, error) {
	var out []WatchedAsset
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		items, err := tx.ListWatchlist(ctx, userID)
		if err != nil {
			return err
		}
		out = make([]WatchedAsset, len(items))
		for i, item := range items {
			a, err := tx.GetAsset(ctx, item.AssetID)
			if err != nil {
				return err
			}
			out[i] = WatchedAsset{Item: item, Asset: a}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(out) > 0 {
		p := pool.New().WithMaxGoroutines(min(watchlistQuoteWorkers, len(out)))
		for i := range out {
			p.Go(func() {
				out[i].Quote, out[i].Priced = s.quote(ctx, out[i].Asset)
			})
		}
		p.Wait()
	}
	return out, nil
}

// Add puts symbol on the user's watchlist.
func (s *WatchlistService) Add(ctx context.Context, userID, symbol string) (WatchedAsset, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return WatchedAsset{}, err
	}

	var w WatchedAsset
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		a, err := tx.GetAssetBySymbol(ctx, symbol)
		if err != nil {
			return err
		}
		item := &domain.WatchlistItem{
			UserID:    userID,
			AssetID:   a.AssetID,
			CreatedAt: s.now(),
		}
		if err := tx.AddWatchlistItem(ctx, item); err != nil {
			return err
		}
		w = WatchedAsset{Item: item, Asset: a}
		return nil
	})
	if err != nil {
		return WatchedAsset{}, err
	}

	s.logger.Info("watchlist item added", "user_id", userID, "symbol", symbol)
	w.Quote, w.Priced = s.quote(ctx, w.Asset)
	return w, nil
}

// Remove takes symbol off the user's watchlist.
func (s *WatchlistService) Remove(ctx context.Context, userID, symbol string) error {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return err
	}
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		a, err := tx.GetAssetBySymbol(ctx, symbol)
		if errors.Is(err, domain.ErrAssetNotFound) {
			return domain.ErrWatchlistItemNotFound
		}
		if err != nil {
			return err
		}
		return tx.RemoveWatchlistItem(ctx, userID, a.AssetID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("watchlist item removed", "user_id", userID, "symbol", symbol)
	return nil
}

// IsWatching reports whether the user watches symbol. Unlisted symbols
// are never watched.
func (s *WatchlistService) IsWatching(ctx context.Context, userID, symbol string) (bool, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return false, err
	}
	var watching bool
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		a, err := tx.GetAssetBySymbol(ctx, symbol)
		if errors.Is(err, domain.ErrAssetNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.GetWatchlistItem(ctx, userID, a.AssetID)
		if errors.Is(err, domain.ErrWatchlistItemNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		watching = true
		return nil
	})
	return watching, err
}

func (s *WatchlistService) quote(ctx context.Context, a *domain.Asset) (domain.Quote, bool) {
	q, err := s.oracle.CurrentQuote(ctx, a.Symbol, a.Class)
	if err != nil {
		s.logger.Warn("watchlist quote unavailable", "symbol", a.Symbol, "error", err)
		return domain.Quote{}, false
	}
	return q, true
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !domain.ValidSymbol(symbol) {
		return "", &domain.ValidationError{
			Message: "symbol must match ^[A-Z][A-Z0-9.]{0,14}$",
		}
	}
	return symbol, nil
}
