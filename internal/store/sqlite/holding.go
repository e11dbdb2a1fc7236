package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

const holdingColumns = `portfolio_id, asset_id, quantity, average_price, created_at, updated_at`

func (t *liteTx) GetHolding(ctx context.Context, portfolioID, assetID string) (*domain.Holding, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+holdingColumns+` FROM holdings WHERE portfolio_id = ? AND asset_id = ?`, portfolioID, assetID)
	h, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrHoldingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select holding: %w", err)
	}
	return h, nil
}

// ListHoldings returns the portfolio's positions in acquisition order.
func (t *liteTx) ListHoldings(ctx context.Context, portfolioID string) ([]*domain.Holding, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+holdingColumns+` FROM holdings WHERE portfolio_id = ? ORDER BY created_at, asset_id`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Holding, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// SaveHolding inserts or replaces the position for (portfolio, asset).
// The original created_at survives a replace.
func (t *liteTx) SaveHolding(ctx context.Context, h *domain.Holding) error {
	ok, err := t.exists(ctx, `SELECT 1 FROM portfolios WHERE portfolio_id = ?`, h.PortfolioID)
	if err != nil {
		return fmt.Errorf("check portfolio: %w", err)
	}
	if !ok {
		return domain.ErrPortfolioNotFound
	}
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO holdings (`+holdingColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (portfolio_id, asset_id) DO UPDATE SET
		     quantity = excluded.quantity,
		     average_price = excluded.average_price,
		     updated_at = excluded.updated_at`,
		h.PortfolioID, h.AssetID, h.Quantity.String(), h.AveragePrice.String(),
		micros(h.CreatedAt), micros(h.UpdatedAt)); err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}
	return nil
}

func (t *liteTx) DeleteHolding(ctx context.Context, portfolioID, assetID string) error {
	err := t.execOne(ctx, domain.ErrHoldingNotFound,
		`DELETE FROM holdings WHERE portfolio_id = ? AND asset_id = ?`, portfolioID, assetID)
	if err != nil && !errors.Is(err, domain.ErrHoldingNotFound) {
		return fmt.Errorf("delete holding: %w", err)
	}
	return err
}

func (t *liteTx) DeleteHoldings(ctx context.Context, portfolioID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM holdings WHERE portfolio_id = ?`, portfolioID); err != nil {
		return fmt.Errorf("delete holdings: %w", err)
	}
	return nil
}

func scanHolding(row rowScanner) (*domain.Holding, error) {
	var (
		h                domain.Holding
		created, updated int64
	)
	if err := row.Scan(&h.PortfolioID, &h.AssetID, &h.Quantity, &h.AveragePrice, &created, &updated); err != nil {
		return nil, err
	}
	h.CreatedAt = fromMicros(created)
	h.UpdatedAt = fromMicros(updated)
	return &h, nil
}
