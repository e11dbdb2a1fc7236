package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a deferred (limit or stop) order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusFilled, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// CancelReason records why a deferred order was cancelled.
type CancelReason string

const (
	CancelReasonUser                 CancelReason = "user"
	CancelReasonInsufficientHoldings CancelReason = "insufficient_holdings"
)

// LimitOrder is a deferred order that fills when the market price crosses
// TargetPrice. ReservedAmount is non-zero only for buys.
type LimitOrder struct {
	OrderID        string
	UserID         string
	PortfolioID    string
	AssetID        string
	Symbol         string
	Class          AssetClass
	Direction      Direction
	TargetPrice    decimal.Decimal
	Quantity       decimal.Decimal
	ReservedAmount decimal.Decimal
	Status         OrderStatus
	FilledPrice    decimal.Decimal
	FilledAt       *time.Time
	CancelledAt    *time.Time
	CancelReason   CancelReason
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Triggered reports whether price satisfies the order's fill condition:
// at or below target for buys, at or above target for sells.
func (o *LimitOrder) Triggered(price decimal.Decimal) bool {
	if o.Direction == DirectionBuy {
		return price.LessThanOrEqual(o.TargetPrice)
	}
	return price.GreaterThanOrEqual(o.TargetPrice)
}

// Fill transitions a pending order to filled at price.
func (o *LimitOrder) Fill(price decimal.Decimal, now time.Time) error {
	if o.Status != OrderStatusPending {
		return ErrConcurrencyConflict
	}
	o.Status = OrderStatusFilled
	o.FilledPrice = price
	o.FilledAt = &now
	o.UpdatedAt = now
	return nil
}

// Cancel transitions a pending order to cancelled.
func (o *LimitOrder) Cancel(reason CancelReason, now time.Time) error {
	if o.Status != OrderStatusPending {
		return ErrConcurrencyConflict
	}
	o.Status = OrderStatusCancelled
	o.CancelReason = reason
	o.CancelledAt = &now
	o.UpdatedAt = now
	return nil
}

// StopOrder is a deferred stop-loss sell that triggers when the market
// price falls to StopPrice or below.
type StopOrder struct {
	OrderID      string
	UserID       string
	PortfolioID  string
	AssetID      string
	Symbol       string
	Class        AssetClass
	Direction    Direction
	StopPrice    decimal.Decimal
	Quantity     decimal.Decimal
	Status       OrderStatus
	FilledPrice  decimal.Decimal
	TriggeredAt  *time.Time
	FilledAt     *time.Time
	CancelledAt  *time.Time
	CancelReason CancelReason
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Triggered reports whether price is at or below the stop price.
func (o *StopOrder) Triggered(price decimal.Decimal) bool {
	return price.LessThanOrEqual(o.StopPrice)
}

// Fill transitions a pending stop order to filled, recording the trigger
// and fill time.
func (o *StopOrder) Fill(price decimal.Decimal, triggeredAt, now time.Time) error {
	if o.Status != OrderStatusPending {
		return ErrConcurrencyConflict
	}
	o.Status = OrderStatusFilled
	o.FilledPrice = price
	o.TriggeredAt = &triggeredAt
	o.FilledAt = &now
	o.UpdatedAt = now
	return nil
}

// Cancel transitions a pending stop order to cancelled. A non-nil
// triggeredAt records that the stop fired before the cancellation.
func (o *StopOrder) Cancel(reason CancelReason, triggeredAt *time.Time, now time.Time) error {
	if o.Status != OrderStatusPending {
		return ErrConcurrencyConflict
	}
	o.Status = OrderStatusCancelled
	o.CancelReason = reason
	o.TriggeredAt = triggeredAt
	o.CancelledAt = &now
	o.UpdatedAt = now
	return nil
}
