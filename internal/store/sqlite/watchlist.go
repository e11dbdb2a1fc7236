package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

const watchlistColumns = `user_id, asset_id, created_at`

func (t *liteTx) AddWatchlistItem(ctx context.Context, w *domain.WatchlistItem) error {
	ok, err := t.exists(ctx, `SELECT 1 FROM users WHERE user_id = ?`, w.UserID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	ok, err = t.exists(ctx, `SELECT 1 FROM assets WHERE asset_id = ?`, w.AssetID)
	if err != nil {
		return fmt.Errorf("check asset: %w", err)
	}
	if !ok {
		return domain.ErrAssetNotFound
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO watchlist_items (`+watchlistColumns+`) VALUES (?, ?, ?)`,
		w.UserID, w.AssetID, micros(w.CreatedAt))
	if isUniqueViolation(err) {
		return domain.ErrWatchlistItemExists
	}
	if err != nil {
		return fmt.Errorf("insert watchlist item: %w", err)
	}
	return nil
}

func (t *liteTx) GetWatchlistItem(ctx context.Context, userID, assetID string) (*domain.WatchlistItem, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+watchlistColumns+` FROM watchlist_items WHERE user_id = ? AND asset_id = ?`, userID, assetID)
	w, err := scanWatchlistItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWatchlistItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select watchlist item: %w", err)
	}
	return w, nil
}

// ListWatchlist returns the user's items newest first.
func (t *liteTx) ListWatchlist(ctx context.Context, userID string) ([]*domain.WatchlistItem, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+watchlistColumns+` FROM watchlist_items WHERE user_id = ? ORDER BY created_at DESC, asset_id DESC`, userID)
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

func (t *liteTx) RemoveWatchlistItem(ctx context.Context, userID, assetID string) error {
	err := t.execOne(ctx, domain.ErrWatchlistItemNotFound,
		`DELETE FROM watchlist_items WHERE user_id = ? AND asset_id = ?`, userID, assetID)
	if err != nil && !errors.Is(err, domain.ErrWatchlistItemNotFound) {
		return fmt.Errorf("delete watchlist item: %w", err)
	}
	return err
}

func scanWatchlistItem(row rowScanner) (*domain.WatchlistItem, error) {
	var (
		w       domain.WatchlistItem
		created int64
	)
	if err := row.Scan(&w.UserID, &w.AssetID, &created); err != nil {
		return nil, err
	}
	w.CreatedAt = fromMicros(created)
	return &w, nil
}
