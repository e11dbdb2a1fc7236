package store

import (
	"context"
	"sort"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

type watchKey struct {
	userID  string
	assetID string
}

func (tx *memTx) AddWatchlistItem(_ context.Context, w *domain.WatchlistItem) error {
	if _, ok := tx.s.users[w.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := tx.s.assets[w.AssetID]; !ok {
		return domain.ErrAssetNotFound
	}
	k := watchKey{w.UserID, w.AssetID}
	if _, ok := tx.s.watchlist[k]; ok {
		return domain.ErrWatchlistItemExists
	}
	cp := *w
	mapSet(tx, tx.s.watchlist, k, &cp)
	return nil
}

func (tx *memTx) GetWatchlistItem(_ context.Context, userID, assetID string) (*domain.WatchlistItem, error) {
	w, ok := tx.s.watchlist[watchKey{userID, assetID}]
	if !ok {
		return nil, domain.ErrWatchlistItemNotFound
	}
	cp := *w
	return &cp, nil
}

// ListWatchlist returns the user's items newest first.
func (tx *memTx) ListWatchlist(_ context.Context, userID string) ([]*domain.WatchlistItem, error) {
	result := make([]*domain.WatchlistItem, 0)
	for k, w := range tx.s.watchlist {
		if k.userID != userID {
			continue
		}
		cp := *w
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return createdBefore(result[j].CreatedAt, result[j].AssetID, result[i].CreatedAt, result[i].AssetID)
	})
	return result, nil
}

func (tx *memTx) RemoveWatchlistItem(_ context.Context, userID, assetID string) error {
	k := watchKey{userID, assetID}
	if _, ok := tx.s.watchlist[k]; !ok {
		return domain.ErrWatchlistItemNotFound
	}
	mapDelete(tx, tx.s.watchlist, k)
	return nil
}
