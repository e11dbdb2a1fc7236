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

// StopRequest is a request to place a stop-loss order. Direction may be
// left empty; only sells are accepted.
type StopRequest struct {
	UserID      string
	PortfolioID string
	Symbol      string
	Direction   domain.Direction
	StopPrice   decimal.Decimal
	Quantity    decimal.Decimal
}

// StopEngine creates, cancels and evaluates stop-loss sell orders.
type StopEngine struct {
	d       Deps
	workers int
}

// NewStopEngine creates a StopEngine evaluating up to workers
// (portfolio, asset) groups concurrently.
func NewStopEngine(d Deps, workers int) *StopEngine {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &StopEngine{d: d.withDefaults(), workers: workers}
}

// Create validates and persists a pending stop order. The portfolio must
// hold at least the requested quantity.
func (e *StopEngine) Create(ctx context.Context, r StopRequest) (*domain.StopOrder, error) {
	if r.Direction == "" {
		r.Direction = domain.DirectionSell
	}
	if r.Direction != domain.DirectionSell {
		return nil, domain.Invalid("stop orders must be sell orders")
	}
	if err := domain.CheckPositive("stop_price", r.StopPrice, domain.CurrencyScale); err != nil {
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
	o := &domain.StopOrder{
		OrderID:     uuid.New().String(),
		UserID:      r.UserID,
		PortfolioID: t.portfolio.PortfolioID,
		AssetID:     t.asset.AssetID,
		Symbol:      t.asset.Symbol,
		Class:       t.asset.Class,
		Direction:   domain.DirectionSell,
		StopPrice:   r.StopPrice,
		Quantity:    r.Quantity,
		Status:      domain.OrderStatusPending,
		FilledPrice: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = e.d.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetUser(ctx, r.UserID); err != nil {
			return err
		}
		if err := e.d.Holdings.Require(ctx, tx, o.PortfolioID, o.AssetID, o.Quantity); err != nil {
			return err
		}
		return tx.CreateStopOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	e.d.Logger.Info("stop order created",
		"order_id", o.OrderID,
		"user_id", o.UserID,
		"symbol", o.Symbol,
		"stop_price", o.StopPrice.String(),
		"quantity", o.Quantity.String(),
	)
	return o, nil
}

// Cancel cancels a pending stop order owned by userID.
func (e *StopEngine) Cancel(ctx context.Context, userID, orderID string) (*domain.StopOrder, error) {
	var o *domain.StopOrder
	err := e.d.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		o, err = tx.GetStopOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return domain.ErrStopOrderNotFound
		}
		if err := o.Cancel(domain.CancelReasonUser, nil, e.d.Now()); err != nil {
			return err
		}
		return tx.UpdateStopOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	e.d.Metrics.recordCancel(ctx, "stop", domain.CancelReasonUser)
	e.d.Logger.Info("stop order cancelled", "order_id", o.OrderID, "user_id", userID)
	return o, nil
}

// Get returns a stop order owned by userID.
func (e *StopEngine) Get(ctx context.Context, userID, orderID string) (*domain.StopOrder, error) {
	var o *domain.StopOrder
	err := e.d.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		o, err = tx.GetStopOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return domain.ErrStopOrderNotFound
		}
		return nil
	})
	return o, err
}

// List returns stop orders matching q, oldest first.
func (e *StopEngine) List(ctx context.Context, q store.DeferredQuery) ([]*domain.StopOrder, error) {
	var out []*domain.StopOrder
	err := e.d.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListStopOrders(ctx, q)
		return err
	})
	return out, err
}

// Evaluate runs one pass over every pending stop order.
func (e *StopEngine) Evaluate(ctx context.Context) (EvaluationReport, error) {
	pending, err := e.List(ctx, store.DeferredQuery{Status: domain.OrderStatusPending})
	if err != nil {
		return EvaluationReport{}, fmt.Errorf("list pending stop orders: %w", err)
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
	return runPass(ctx, "stop", e.d, e.workers, candidates, e.settle), nil
}

// settle triggers a pending stop order when price is at or below its stop
// and sells at price, or cancels it when the position has shrunk.
func (e *StopEngine) settle(ctx context.Context, c candidate, price decimal.Decimal) (outcome, error) {
	var res outcome
	var filled *domain.StopOrder
	err := e.d.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		res = outcomeSkipped
		o, err := tx.GetStopOrder(ctx, c.orderID)
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

		triggeredAt := e.d.Now()
		have, err := e.d.Holdings.Quantity(ctx, tx, o.PortfolioID, o.AssetID)
		if err != nil {
			return err
		}
		if have.LessThan(o.Quantity) {
			if err := o.Cancel(domain.CancelReasonInsufficientHoldings, &triggeredAt, triggeredAt); err != nil {
				return err
			}
			res = outcomeCancelled
			return tx.UpdateStopOrder(ctx, o)
		}

		total := domain.Notional(price, o.Quantity)
		if _, err := e.d.Holdings.ApplySell(ctx, tx, o.PortfolioID, o.AssetID, o.Quantity); err != nil {
			return err
		}
		if _, err := e.d.Ledger.Release(ctx, tx, o.UserID, total); err != nil {
			return err
		}
		if _, err := e.d.Journal.RecordFill(ctx, tx, journal.Fill{
			UserID:        o.UserID,
			PortfolioID:   o.PortfolioID,
			Asset:         asset,
			Direction:     domain.DirectionSell,
			Source:        domain.SourceStop,
			Quantity:      o.Quantity,
			UnitPrice:     price,
			TotalAmount:   total,
			ParentOrderID: o.OrderID,
		}); err != nil {
			return err
		}
		if err := o.Fill(price, triggeredAt, e.d.Now()); err != nil {
			return err
		}
		res = outcomeFilled
		filled = o
		return tx.UpdateStopOrder(ctx, o)
	})
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeFailed, err
	}

	switch res {
	case outcomeFilled:
		e.d.Metrics.recordFill(ctx, domain.SourceStop, domain.DirectionSell)
		e.d.Logger.Info("stop order filled",
			"order_id", filled.OrderID,
			"symbol", filled.Symbol,
			"price", price.String(),
		)
	case outcomeCancelled:
		e.d.Metrics.recordCancel(ctx, "stop", domain.CancelReasonInsufficientHoldings)
		e.d.Logger.Info("stop order cancelled", "order_id", c.orderID, "reason", domain.CancelReasonInsufficientHoldings)
	}
	return res, nil
}
