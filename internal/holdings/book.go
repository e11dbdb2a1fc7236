// Package holdings maintains per-portfolio positions and their average
// cost.
package holdings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/shopspring/decimal"
)

// Book applies fills to holdings inside the caller's unit of work.
type Book struct {
	now func() time.Time
}

// NewBook creates a Book.
func NewBook() *Book {
	return &Book{now: time.Now}
}

// WithClock overrides the timestamp source.
func (b *Book) WithClock(now func() time.Time) *Book {
	b.now = now
	return b
}

// Quantity returns the position size, zero when there is no holding.
func (b *Book) Quantity(ctx context.Context, tx store.Tx, portfolioID, assetID string) (decimal.Decimal, error) {
	h, err := tx.GetHolding(ctx, portfolioID, assetID)
	if errors.Is(err, domain.ErrHoldingNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return h.Quantity, nil
}

// Require returns domain.ErrInsufficientHoldings unless the portfolio
// holds at least qty units of the asset.
func (b *Book) Require(ctx context.Context, tx store.Tx, portfolioID, assetID string, qty decimal.Decimal) error {
	have, err := b.Quantity(ctx, tx, portfolioID, assetID)
	if err != nil {
		return err
	}
	if have.LessThan(qty) {
		return domain.ErrInsufficientHoldings
	}
	return nil
}

// ApplyBuy adds qty units bought at unitPrice, creating the holding on
// first purchase.
func (b *Book) ApplyBuy(ctx context.Context, tx store.Tx, portfolioID, assetID string, qty, unitPrice decimal.Decimal) (*domain.Holding, error) {
	now := b.now()
	h, err := tx.GetHolding(ctx, portfolioID, assetID)
	switch {
	case errors.Is(err, domain.ErrHoldingNotFound):
		h = &domain.Holding{
			PortfolioID:  portfolioID,
			AssetID:      assetID,
			Quantity:     decimal.Zero,
			AveragePrice: decimal.Zero,
			CreatedAt:    now,
		}
	case err != nil:
		return nil, err
	}

	h.Buy(qty, unitPrice, now)
	if err := tx.SaveHolding(ctx, h); err != nil {
		return nil, fmt.Errorf("save holding: %w", err)
	}
	return h, nil
}

// ApplySell removes qty units. The holding row is deleted when the
// position reaches exactly zero, in which case the returned holding has
// zero quantity.
func (b *Book) ApplySell(ctx context.Context, tx store.Tx, portfolioID, assetID string, qty decimal.Decimal) (*domain.Holding, error) {
	h, err := tx.GetHolding(ctx, portfolioID, assetID)
	if errors.Is(err, domain.ErrHoldingNotFound) {
		return nil, domain.ErrInsufficientHoldings
	}
	if err != nil {
		return nil, err
	}
	if err := h.Sell(qty, b.now()); err != nil {
		return nil, err
	}

	if h.Empty() {
		if err := tx.DeleteHolding(ctx, portfolioID, assetID); err != nil {
			return nil, fmt.Errorf("delete holding: %w", err)
		}
		return h, nil
	}
	if err := tx.SaveHolding(ctx, h); err != nil {
		return nil, fmt.Errorf("save holding: %w", err)
	}
	return h, nil
}
