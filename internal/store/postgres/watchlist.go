package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/jackc/pgx/v5"
)

const watchlistSelect = `
SELECT user_id, asset_id, created_at
FROM watchlist_items`

func (t *pgTx) AddWatchlistItem(ctx context.Context, w *domain.WatchlistItem) error {
	ok, err := t.exists(ctx, `SELECT 1 FROM users WHERE user_id = $1`, w.UserID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	ok, err = t.exists(ctx, `SELECT 1 FROM assets WHERE asset_id = $1`, w.AssetID)
	if err != nil {
		return fmt.Errorf("check asset: %w", err)
	}
	if !ok {
		return domain.ErrAssetNotFound
	}
	_, err = t.tx.Exec(ctx, `
INSERT INTO watchlist_items (user_id, asset_id, created_at)
VALUES (@user_id, @asset_id, @created_at)`,
		pgx.NamedArgs{
			"user_id":    w.UserID,
			"asset_id":   w.AssetID,
			"created_at": w.CreatedAt,
		})
	if isUniqueViolation(err) {
		return domain.ErrWatchlistItemExists
	}
	if err != nil {
		return fmt.Errorf("insert watchlist item: %w", err)
	}
	return nil
}

func (t *pgTx) GetWatchlistItem(ctx context.Context, userID, assetID string) (*domain.WatchlistItem, error) {
	row := t.tx.QueryRow(ctx, watchlistSelect+` WHERE user_id = $1 AND asset_id = $2`, userID, assetID)
	w, err := scanWatchlistItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWatchlistItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select watchlist item: %w", err)
	}
	return w, nil
}

// ListWatchlist returns the user's items newest first.
func (t *pgTx) ListWatchlist(ctx context.Context, userID string) ([]*domain.WatchlistItem, error) {
	rows, err := t.tx.Query(ctx, watchlistSelect+` WHERE user_id = $1 ORDER BY created_at DESC, asset_id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.WatchlistItem, 0)
	for rows.Next() {
		w, err := scanWatchlistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watchlist item: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (t *pgTx) RemoveWatchlistItem(ctx context.Context, userID, assetID string) error {
	err := t.execOne(ctx, domain.ErrWatchlistItemNotFound,
		`DELETE FROM watchlist_items WHERE user_id = $1 AND asset_id = $2`, userID, assetID)
	if err != nil && !errors.Is(err, domain.ErrWatchlistItemNotFound) {
		return fmt.Errorf("delete watchlist item: %w", err)
	}
	return err
}

func scanWatchlistItem(row pgx.Row) (*domain.WatchlistItem, error) {
	var w domain.WatchlistItem
	if err := row.Scan(&w.UserID, &w.AssetID, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}
