package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/jackc/pgx/v5"
)

const assetSelect = `SELECT asset_id, symbol, name, class, active, created_at FROM assets`

func (t *pgTx) CreateAsset(ctx context.Context, a *domain.Asset) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO assets (asset_id, symbol, name, class, active, created_at)
VALUES (@asset_id, @symbol, @name, @class, @active, @created_at)`,
		pgx.NamedArgs{
			"asset_id":   a.AssetID,
			"symbol":     a.Symbol,
			"name":       a.Name,
			"class":      string(a.Class),
			"active":     a.Active,
			"created_at": a.CreatedAt,
		})
	if isUniqueViolation(err) {
		return domain.ErrAssetAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (t *pgTx) GetAsset(ctx context.Context, assetID string) (*domain.Asset, error) {
	return t.getAsset(ctx, assetSelect+` WHERE asset_id = $1`, assetID)
}

func (t *pgTx) GetAssetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	return t.getAsset(ctx, assetSelect+` WHERE symbol = $1`, symbol)
}

func (t *pgTx) getAsset(ctx context.Context, query, arg string) (*domain.Asset, error) {
	a, err := scanAsset(t.tx.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select asset: %w", err)
	}
	return a, nil
}

// ListAssets returns every asset ordered by symbol.
func (t *pgTx) ListAssets(ctx context.Context) ([]*domain.Asset, error) {
	rows, err := t.tx.Query(ctx, assetSelect+` ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var (
		a     domain.Asset
		class string
	)
	if err := row.Scan(&a.AssetID, &a.Symbol, &a.Name, &class, &a.Active, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Class = domain.AssetClass(class)
	return &a, nil
}
