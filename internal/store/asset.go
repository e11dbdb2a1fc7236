package store

import (
	"context"
	"sort"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

// CreateAsset adds an asset. It returns domain.ErrAssetAlreadyExists if
// the symbol is already listed.
func (tx *memTx) CreateAsset(_ context.Context, a *domain.Asset) error {
	if _, exists := tx.s.symbols[a.Symbol]; exists {
		return domain.ErrAssetAlreadyExists
	}
	cp := *a
	mapSet(tx, tx.s.assets, a.AssetID, &cp)
	mapSet(tx, tx.s.symbols, a.Symbol, a.AssetID)
	return nil
}

func (tx *memTx) GetAsset(_ context.Context, assetID string) (*domain.Asset, error) {
	a, ok := tx.s.assets[assetID]
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	cp := *a
	return &cp, nil
}

func (tx *memTx) GetAssetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	id, ok := tx.s.symbols[symbol]
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	return tx.GetAsset(ctx, id)
}

// ListAssets returns all assets ordered by symbol.
func (tx *memTx) ListAssets(_ context.Context) ([]*domain.Asset, error) {
	result := make([]*domain.Asset, 0, len(tx.s.assets))
	for _, a := range tx.s.assets {
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result, nil
}
