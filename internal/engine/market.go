package engine

import (
	"context"
	"fmt"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/journal"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/shopspring/decimal"
)

// MarketOrder is a request to trade immediately at the current price.
type MarketOrder struct {
	UserID      string
	PortfolioID string
	Symbol      string
	Direction   domain.Direction
	Quantity    decimal.Decimal
}

// MarketExecutor settles market orders at the oracle's current price.
type MarketExecutor struct {
	d Deps
}

// NewMarketExecutor creates a MarketExecutor.
func NewMarketExecutor(d Deps) *MarketExecutor {
	return &MarketExecutor{d: d.withDefaults()}
}

// Execute settles o and returns the journal entry. A buy larger than the
// available cash is reduced to the largest affordable quantity at the
// precision of the requested quantity, counting significant fractional
// digits only: "10" and "10.00" cap to whole units, while "10.5" caps to
// tenths. A cap that rounds down to zero is ErrInsufficientFunds.
func (m *MarketExecutor) Execute(ctx context.Context, o MarketOrder) (*domain.OrderRecord, error) {
	if !o.Direction.Valid() {
		return nil, domain.Invalid("direction must be buy or sell")
	}
	if err := domain.CheckPositive("quantity", o.Quantity, domain.QuantityScale); err != nil {
		return nil, err
	}

	t, err := m.d.resolve(ctx, o.UserID, o.PortfolioID, o.Symbol)
	if err != nil {
		return nil, err
	}
	q, err := m.d.price(ctx, t.asset)
	if err != nil {
		return nil, err
	}

	var rec *domain.OrderRecord
	err = m.d.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var txErr error
		if o.Direction == domain.DirectionBuy {
			rec, txErr = m.buy(ctx, tx, o, t, q.Price)
		} else {
			rec, txErr = m.sell(ctx, tx, o, t, q.Price)
		}
		return txErr
	})
	if err != nil {
		return nil, err
	}

	m.d.Metrics.recordFill(ctx, domain.SourceMarket, o.Direction)
	m.d.Logger.Info("market order executed",
		"order_id", rec.OrderID,
		"user_id", rec.UserID,
		"symbol", rec.Symbol,
		"direction", o.Direction,
		"quantity", rec.Quantity.String(),
		"price", rec.UnitPrice.String(),
	)
	return rec, nil
}

func (m *MarketExecutor) buy(ctx context.Context, tx store.Tx, o MarketOrder, t target, price decimal.Decimal) (*domain.OrderRecord, error) {
	u, err := tx.GetUser(ctx, o.UserID)
	if err != nil {
		return nil, err
	}

	qty := o.Quantity
	total := domain.Notional(price, qty)
	if total.GreaterThan(u.CashBalance) {
		qty = domain.AffordableQuantity(u.CashBalance, price, domain.Places(o.Quantity))
		if !qty.IsPositive() {
			return nil, domain.ErrInsufficientFunds
		}
		total = domain.Notional(price, qty)
	}

	if _, err := m.d.Ledger.Reserve(ctx, tx, o.UserID, total); err != nil {
		return nil, err
	}
	if _, err := m.d.Holdings.ApplyBuy(ctx, tx, t.portfolio.PortfolioID, t.asset.AssetID, qty, price); err != nil {
		return nil, fmt.Errorf("apply buy: %w", err)
	}
	return m.d.Journal.RecordFill(ctx, tx, journal.Fill{
		UserID:      o.UserID,
		PortfolioID: t.portfolio.PortfolioID,
		Asset:       t.asset,
		Direction:   domain.DirectionBuy,
		Source:      domain.SourceMarket,
		Quantity:    qty,
		UnitPrice:   price,
		TotalAmount: total,
	})
}

func (m *MarketExecutor) sell(ctx context.Context, tx store.Tx, o MarketOrder, t target, price decimal.Decimal) (*domain.OrderRecord, error) {
	// The user row lock serializes concurrent sells of the same position.
	if _, err := tx.GetUser(ctx, o.UserID); err != nil {
		return nil, err
	}
	if _, err := m.d.Holdings.ApplySell(ctx, tx, t.portfolio.PortfolioID, t.asset.AssetID, o.Quantity); err != nil {
		return nil, err
	}
	total := domain.Notional(price, o.Quantity)
	if _, err := m.d.Ledger.Release(ctx, tx, o.UserID, total); err != nil {
		return nil, err
	}
	return m.d.Journal.RecordFill(ctx, tx, journal.Fill{
		UserID:      o.UserID,
		PortfolioID: t.portfolio.PortfolioID,
		Asset:       t.asset,
		Direction:   domain.DirectionSell,
		Source:      domain.SourceMarket,
		Quantity:    o.Quantity,
		UnitPrice:   price,
		TotalAmount: total,
	})
}
