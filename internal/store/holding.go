package store

import (
	"context"
	"sort"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

func (tx *memTx) GetHolding(_ context.Context, portfolioID, assetID string) (*domain.Holding, error) {
	h, ok := tx.s.holdings[holdingKey{portfolioID, assetID}]
	if !ok {
		return nil, domain.ErrHoldingNotFound
	}
	cp := *h
	return &cp, nil
}

// ListHoldings returns the portfolio's holdings ordered by creation time.
func (tx *memTx) ListHoldings(_ context.Context, portfolioID string) ([]*domain.Holding, error) {
	result := make([]*domain.Holding, 0)
	for k, h := range tx.s.holdings {
		if k.portfolioID != portfolioID {
			continue
		}
		cp := *h
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return createdBefore(result[i].CreatedAt, result[i].AssetID, result[j].CreatedAt, result[j].AssetID)
	})
	return result, nil
}

// SaveHolding inserts or replaces the (portfolio, asset) row.
func (tx *memTx) SaveHolding(_ context.Context, h *domain.Holding) error {
	if _, ok := tx.s.portfolios[h.PortfolioID]; !ok {
		return domain.ErrPortfolioNotFound
	}
	cp := *h
	mapSet(tx, tx.s.holdings, holdingKey{h.PortfolioID, h.AssetID}, &cp)
	return nil
}

func (tx *memTx) DeleteHolding(_ context.Context, portfolioID, assetID string) error {
	k := holdingKey{portfolioID, assetID}
	if _, ok := tx.s.holdings[k]; !ok {
		return domain.ErrHoldingNotFound
	}
	mapDelete(tx, tx.s.holdings, k)
	return nil
}

func (tx *memTx) DeleteHoldings(_ context.Context, portfolioID string) error {
	for k := range tx.s.holdings {
		if k.portfolioID == portfolioID {
			mapDelete(tx, tx.s.holdings, k)
		}
	}
	return nil
}
