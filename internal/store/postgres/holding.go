package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/jackc/pgx/v5"
)

const holdingSelect = `
SELECT portfolio_id, asset_id, quantity::text, average_price::text, created_at, updated_at
FROM holdings`

func (t *pgTx) GetHolding(ctx context.Context, portfolioID, assetID string) (*domain.Holding, error) {
	row := t.tx.QueryRow(ctx, holdingSelect+` WHERE portfolio_id = $1 AND asset_id = $2`, portfolioID, assetID)
	h, err := scanHolding(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrHoldingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select holding: %w", err)
	}
	return h, nil
}

// ListHoldings returns the portfolio's positions in acquisition order.
func (t *pgTx) ListHoldings(ctx context.Context, portfolioID string) ([]*domain.Holding, error) {
	rows, err := t.tx.Query(ctx, holdingSelect+` WHERE portfolio_id = $1 ORDER BY created_at, asset_id`, portfolioID)
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
func (t *pgTx) SaveHolding(ctx context.Context, h *domain.Holding) error {
	ok, err := t.exists(ctx, `SELECT 1 FROM portfolios WHERE portfolio_id = $1`, h.PortfolioID)
	if err != nil {
		return fmt.Errorf("check portfolio: %w", err)
	}
	if !ok {
		return domain.ErrPortfolioNotFound
	}
	if _, err := t.tx.Exec(ctx, `
INSERT INTO holdings (portfolio_id, asset_id, quantity, average_price, created_at, updated_at)
VALUES (@portfolio_id, @asset_id, @quantity, @average_price, @created_at, @updated_at)
ON CONFLICT (portfolio_id, asset_id) DO UPDATE SET
    quantity = EXCLUDED.quantity,
    average_price = EXCLUDED.average_price,
    updated_at = EXCLUDED.updated_at`,
		pgx.NamedArgs{
			"portfolio_id":  h.PortfolioID,
			"asset_id":      h.AssetID,
			"quantity":      numeric(h.Quantity),
			"average_price": numeric(h.AveragePrice),
			"created_at":    h.CreatedAt,
			"updated_at":    h.UpdatedAt,
		}); err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteHolding(ctx context.Context, portfolioID, assetID string) error {
	err := t.execOne(ctx, domain.ErrHoldingNotFound,
		`DELETE FROM holdings WHERE portfolio_id = $1 AND asset_id = $2`, portfolioID, assetID)
	if err != nil && !errors.Is(err, domain.ErrHoldingNotFound) {
		return fmt.Errorf("delete holding: %w", err)
	}
	return err
}

func (t *pgTx) DeleteHoldings(ctx context.Context, portfolioID string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM holdings WHERE portfolio_id = $1`, portfolioID); err != nil {
		return fmt.Errorf("delete holdings: %w", err)
	}
	return nil
}

func scanHolding(row pgx.Row) (*domain.Holding, error) {
	var h domain.Holding
	if err := row.Scan(&h.PortfolioID, &h.AssetID, &h.Quantity, &h.AveragePrice, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}
