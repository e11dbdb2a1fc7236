package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/journal"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LimitRequest is a request to place a limit order.
type LimitRequest struct {
	UserID      string
	PortfolioID string
	Symbol      string
	Direction   domain.Direction
	TargetPrice decimal.Decimal
	Quantity    decimal.Decimal
}

// LimitEngine creates, cancels and evaluates limit orders. Buy orders
// reserve targetPrice × quantity when placed; sells reserve nothing and
// re-check holdings at fill time.
type LimitEngine struct {
	d       Deps
	workers int
}

// NewLimitEngine creates a LimitEngine evaluating up to workers
// (portfolio, asset) groups concurrently.
func NewLimitEngine(d Deps, workers int) *LimitEngine {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &LimitEngine{d: d.withDefaults(), workers: workers}
}

// Create validates and persists a pending limit order.
func (e *LimitEngine) Create(ctx context.Context, r LimitRequest) (*domain.LimitOrder, error) {
	if !r.Direction.Valid() {
		return nil, domain.Invalid("direction must be buy or sell")
	}
	if err := domain.CheckPositive("target_price", r.TargetPrice, domain.CurrencyScale); err != nil {
		return nil, err
	}
	if err := domain.CheckPositive("quantity", r.Quantity, domain.QuantityScale); err != nil {
		return nil, err
	}

	t, err := e.d.resolve(ctx, r.UserID, r.PortfolioID, r.Symbol)
	if err != nil {
		return nil, err
	}

	now := e.d.Now()
	o := &domain.LimitOrder{
		OrderID:        uuid.New().String(),
		UserID:         r.UserID,
		PortfolioID:    t.portfolio.PortfolioID,
		AssetID:        t.asset.AssetID,
		Symbol:         t.asset.Symbol,
		Class:          t.asset.Class,
		Direction:      r.Direction,
		TargetPrice:    r.TargetPrice,
		Quantity:       r.Quantity,
		ReservedAmount: decimal.Zero,
		Status:         domain.OrderStatusPending,
		FilledPrice:    decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = e.d.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetUser(ctx, r.UserID); err != nil {
			return err
		}
		if o.Direction == domain.DirectionBuy {
			o.ReservedAmount = domain.Notional(o.TargetPrice, o.Quantity)
			if _, err := e.d.Ledger.Reserve(ctx, tx, r.UserID, o.ReservedAmount); err != nil {
				return err
			}
		} else if err := e.d.Holdings.Require(ctx, tx, o.PortfolioID, o.AssetID, o.Quantity); err != nil {
			return err
		}
		return tx.CreateLimitOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	e.d.Logger.Info("limit order created",
		"order_id", o.OrderID,
		"user_id", o.UserID,
		"symbol", o.Symbol,
		"direction", o.Direction,
		"target_price", o.TargetPrice.String(),
		"quantity", o.Quantity.String(),
	)
	return o, nil
}

// Cancel cancels a pending order owned by userID and refunds any
// reservation. Orders owned by someone else are reported as missing.
func (e *LimitEngine) Cancel(ctx context.Context, userID, orderID string) (*domain.LimitOrder, error) {
	var o *domain.LimitOrder
	err := e.d.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		o, err = tx.GetLimitOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return domain.ErrLimitOrderNotFound
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if err := o.Cancel(domain.CancelReasonUser, e.d.Now()); err != nil {
			return err
		}
		if err := tx.UpdateLimitOrder(ctx, o); err != nil {
			return err
		}
		if o.Direction == domain.DirectionBuy && o.ReservedAmount.IsPositive() {
			if _, err := e.d.Ledger.Release(ctx, tx, userID, o.ReservedAmount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.d.Metrics.recordCancel(ctx, "limit", domain.CancelReasonUser)
	e.d.Logger.Info("limit order cancelled", "order_id", o.OrderID, "user_id", userID)
	return o, nil
}

// Get returns an order owned by userID.
func (e *LimitEngine) Get(ctx context.Context, userID, orderID string) (*domain.LimitOrder, error) {
	var o *domain.LimitOrder
	err := e.d.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		o, err = tx.GetLimitOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return domain.ErrLimitOrderNotFound
		}
		return nil
	})
	return o, err
}

// List returns orders matching q, oldest first.
func (e *LimitEngine) List(ctx context.Context, q store.DeferredQuery) ([]*domain.LimitOrder, error) {
	var out []*domain.LimitOrder
	err := e.d.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListLimitOrders(ctx, q)
		return err
	})
	return out, err
}

// Evaluate runs one pass over every pending limit order.
func (e *LimitEngine) Evaluate(ctx context.Context) (EvaluationReport, error) {
	pending, err := e.List(ctx, store.DeferredQuery{Status: domain.OrderStatusPending})
	if err != nil {
		return EvaluationReport{}, fmt.Errorf("list pending limit orders: %w", err)
	}
	candidates := make([]candidate, 0, len(pending))
	for _, o := range pending {
		candidates = append(candidates, candidate{
			orderID:     o.OrderID,
			portfolioID: o.PortfolioID,
			assetID:     o.AssetID,
			symbol:      o.Symbol,
			class:       o.Class,
		})
	}
	return runPass(ctx, "limit", e.d, e.workers, candidates, e.settle), nil
}

// settle re-reads the order under lock and fills or cancels it if it is
// still pending and price satisfies its condition.
func (e *LimitEngine) settle(ctx context.Context, c candidate, price decimal.Decimal) (outcome, error) {
	var res outcome
	var filled *domain.LimitOrder
	err := e.d.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		res = outcomeSkipped
		o, err := tx.GetLimitOrder(ctx, c.orderID)
		if err != nil {
			return err
		}
		if o.Status != domain.OrderStatusPending || !o.Triggered(price) {
			return nil
		}
		if _, err := tx.GetUser(ctx, o.UserID); err != nil {
			return err
		}
		asset, err := tx.GetAsset(ctx, o.AssetID)
		if err != nil {
			return err
		}

		now := e.d.Now()
		total := domain.Notional(price, o.Quantity)
		if o.Direction == domain.DirectionBuy {
			if refund := o.ReservedAmount.Sub(total); refund.IsPositive() {
				if _, err := e.d.Ledger.Release(ctx, tx, o.UserID, refund); err != nil {
					return err
				}
			}
			if _, err := e.d.Holdings.ApplyBuy(ctx, tx, o.PortfolioID, o.AssetID, o.Quantity, price); err != nil {
				return err
			}
		} else {
			have, err := e.d.Holdings.Quantity(ctx, tx, o.PortfolioID, o.AssetID)
			if err != nil {
				return err
			}
			if have.LessThan(o.Quantity) {
				if err := o.Cancel(domain.CancelReasonInsufficientHoldings, now); err != nil {
					return err
				}
				res = outcomeCancelled
				return tx.UpdateLimitOrder(ctx, o)
			}
			if _, err := e.d.Holdings.ApplySell(ctx, tx, o.PortfolioID, o.AssetID, o.Quantity); err != nil {
				return err
			}
			if _, err := e.d.Ledger.Release(ctx, tx, o.UserID, total); err != nil {
				return err
			}
		}

		if _, err := e.d.Journal.RecordFill(ctx, tx, journal.Fill{
			UserID:        o.UserID,
			PortfolioID:   o.PortfolioID,
			Asset:         asset,
			Direction:     o.Direction,
			Source:        domain.SourceLimit,
			Quantity:      o.Quantity,
			UnitPrice:     price,
			TotalAmount:   total,
			ParentOrderID: o.OrderID,
		}); err != nil {
			return err
		}
		if err := o.Fill(price, now); err != nil {
			return err
		}
		res = outcomeFilled
		filled = o
		return tx.UpdateLimitOrder(ctx, o)
	})
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeFailed, err
	}

	switch res {
	case outcomeFilled:
		e.d.Metrics.recordFill(ctx, domain.SourceLimit, filled.Direction)
		e.d.Logger.Info("limit order filled",
			"order_id", filled.OrderID,
			"symbol", filled.Symbol,
			"price", price.String(),
		)
	case outcomeCancelled:
		e.d.Metrics.recordCancel(ctx, "limit", domain.CancelReasonInsufficientHoldings)
		e.d.Logger.Info("limit order cancelled", "order_id", c.orderID, "reason", domain.CancelReasonInsufficientHoldings)
	}
	return res, nil
}
