package store

import (
	"context"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/shopspring/decimal"
)

func (tx *memTx) CreateLimitOrder(_ context.Context, o *domain.LimitOrder) error {
	if _, ok := tx.s.portfolios[o.PortfolioID]; !ok {
		return domain.ErrPortfolioNotFound
	}
	cp := *o
	mapSet(tx, tx.s.limitOrders, o.OrderID, &cp)
	treeSet(tx, tx.s.limitIndex, &cp)
	return nil
}

func (tx *memTx) GetLimitOrder(_ context.Context, orderID string) (*domain.LimitOrder, error) {
	o, ok := tx.s.limitOrders[orderID]
	if !ok {
		return nil, domain.ErrLimitOrderNotFound
	}
	cp := *o
	return &cp, nil
}

// UpdateLimitOrder persists a transition out of pending.
func (tx *memTx) UpdateLimitOrder(_ context.Context, o *domain.LimitOrder) error {
	cur, ok := tx.s.limitOrders[o.OrderID]
	if !ok {
		return domain.ErrLimitOrderNotFound
	}
	if cur.Status != domain.OrderStatusPending {
		return domain.ErrConcurrencyConflict
	}
	cp := *o
	mapSet(tx, tx.s.limitOrders, o.OrderID, &cp)
	treeSet(tx, tx.s.limitIndex, &cp)
	return nil
}

func (tx *memTx) ListLimitOrders(_ context.Context, q DeferredQuery) ([]*domain.LimitOrder, error) {
	result := make([]*domain.LimitOrder, 0)
	tx.s.limitIndex.Ascend(func(o *domain.LimitOrder) bool {
		if q.Match(o.UserID, o.PortfolioID, o.Status) {
			cp := *o
			result = append(result, &cp)
		}
		return true
	})
	return result, nil
}

func (tx *memTx) DeleteLimitOrders(_ context.Context, portfolioID string) error {
	for id, o := range tx.s.limitOrders {
		if o.PortfolioID != portfolioID {
			continue
		}
		treeDelete(tx, tx.s.limitIndex, o)
		mapDelete(tx, tx.s.limitOrders, id)
	}
	return nil
}

// ReservedCash sums the reservations of the user's pending buy orders.
func (tx *memTx) ReservedCash(_ context.Context, userID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range tx.s.limitOrders {
		if o.UserID == userID && o.Status == domain.OrderStatusPending && o.Direction == domain.DirectionBuy {
			total = total.Add(o.ReservedAmount)
		}
	}
	return total, nil
}

func (tx *memTx) CreateStopOrder(_ context.Context, o *domain.StopOrder) error {
	if _, ok := tx.s.portfolios[o.PortfolioID]; !ok {
		return domain.ErrPortfolioNotFound
	}
	cp := *o
	mapSet(tx, tx.s.stopOrders, o.OrderID, &cp)
	treeSet(tx, tx.s.stopIndex, &cp)
	return nil
}

func (tx *memTx) GetStopOrder(_ context.Context, orderID string) (*domain.StopOrder, error) {
	o, ok := tx.s.stopOrders[orderID]
	if !ok {
		return nil, domain.ErrStopOrderNotFound
	}
	cp := *o
	return &cp, nil
}

// UpdateStopOrder persists a transition out of pending.
func (tx *memTx) UpdateStopOrder(_ context.Context, o *domain.StopOrder) error {
	cur, ok := tx.s.stopOrders[o.OrderID]
	if !ok {
		return domain.ErrStopOrderNotFound
	}
	if cur.Status != domain.OrderStatusPending {
		return domain.ErrConcurrencyConflict
	}
	cp := *o
	mapSet(tx, tx.s.stopOrders, o.OrderID, &cp)
	treeSet(tx, tx.s.stopIndex, &cp)
	return nil
}

func (tx *memTx) ListStopOrders(_ context.Context, q DeferredQuery) ([]*domain.StopOrder, error) {
	result := make([]*domain.StopOrder, 0)
	tx.s.stopIndex.Ascend(func(o *domain.StopOrder) bool {
		if q.Match(o.UserID, o.PortfolioID, o.Status) {
			cp := *o
			result = append(result, &cp)
		}
		return true
	})
	return result, nil
}

func (tx *memTx) DeleteStopOrders(_ context.Context, portfolioID string) error {
	for id, o := range tx.s.stopOrders {
		if o.PortfolioID != portfolioID {
			continue
		}
		treeDelete(tx, tx.s.stopIndex, o)
		mapDelete(tx, tx.s.stopOrders, id)
	}
	return nil
}
