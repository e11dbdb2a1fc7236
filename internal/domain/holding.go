package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a position in one asset inside one portfolio. AveragePrice
// is meaningful only while Quantity is positive.
type Holding struct {
	PortfolioID  string
	AssetID      string
	Quantity     decimal.Decimal
	AveragePrice decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Buy adds qty units bought at price and recomputes the average cost.
func (h *Holding) Buy(qty, price decimal.Decimal, now time.Time) {
	h.AveragePrice = WeightedAverage(h.Quantity, h.AveragePrice, qty, price)
	h.Quantity = RoundQuantity(h.Quantity.Add(qty))
	h.UpdatedAt = now
}

// Sell removes qty units. The average cost is unchanged. It returns
// ErrInsufficientHoldings without modifying h when qty exceeds the
// position.
func (h *Holding) Sell(qty decimal.Decimal, now time.Time) error {
	if h.Quantity.LessThan(qty) {
		return ErrInsufficientHoldings
	}
	h.Quantity = RoundQuantity(h.Quantity.Sub(qty))
	h.UpdatedAt = now
	return nil
}

// Empty reports whether the position has been fully sold.
func (h *Holding) Empty() bool {
	return h.Quantity.IsZero()
}

// CostBasis returns quantity × average price at currency scale.
func (h *Holding) CostBasis() decimal.Decimal {
	return Notional(h.AveragePrice, h.Quantity)
}
