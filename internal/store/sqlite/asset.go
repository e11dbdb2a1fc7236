package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

const assetColumns = `asset_id, symbol, name, class, active, created_at`

func (t *liteTx) CreateAsset(ctx context.Context, a *domain.Asset) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO assets (`+assetColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		a.AssetID, a.Symbol, a.Name, string(a.Class), a.Active, micros(a.CreatedAt))
	if isUniqueViolation(err) {
		return domain.ErrAssetAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (t *liteTx) GetAsset(ctx context.Context, assetID string) (*domain.Asset, error) {
	return t.getAsset(ctx, `SELECT `+assetColumns+` FROM assets WHERE asset_id = ?`, assetID)
}

func (t *liteTx) GetAssetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	return t.getAsset(ctx, `SELECT `+assetColumns+` FROM assets WHERE symbol = ?`, symbol)
}

func (t *liteTx) getAsset(ctx context.Context, query string, arg string) (*domain.Asset, error) {
	a, err := scanAsset(t.tx.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select asset: %w", err)
	}
	return a, nil
}

// ListAssets returns every asset ordered by symbol.
func (t *liteTx) ListAssets(ctx context.Context) ([]*domain.Asset, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY symbol`)
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

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var (
		a       domain.Asset
		class   string
		created int64
	)
	if err := row.Scan(&a.AssetID, &a.Symbol, &a.Name, &class, &a.Active, &created); err != nil {
		return nil, err
	}
	a.Class = domain.AssetClass(class)
	a.CreatedAt = fromMicros(created)
	return &a, nil
}
