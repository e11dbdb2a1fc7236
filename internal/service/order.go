package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/engine"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/journal"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
)

// MaxJournalPage bounds the number of journal entries returned at once.
const MaxJournalPage = 500

// MarketOrderRequest represents the input for a market order. Amounts
// are decimal strings.
type MarketOrderRequest struct {
	UserID      string
	PortfolioID string
	Symbol      string
	Direction   string
	Quantity    string
}

// LimitOrderRequest represents the input for a limit order.
type LimitOrderRequest struct {
	UserID      string
	PortfolioID string
	Symbol      string
	Direction   string
	TargetPrice string
	Quantity    string
}

// StopOrderRequest represents the input for a stop-loss order. Direction
// may be empty.
type StopOrderRequest struct {
	UserID      string
	PortfolioID string
	Symbol      string
	Direction   string
	StopPrice   string
	Quantity    string
}

// OrderService handles order placement, cancellation and listing.
type OrderService struct {
	store  store.Store
	market *engine.MarketExecutor
	limit  *engine.LimitEngine
	stop   *engine.StopEngine
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(
	s store.Store,
	market *engine.MarketExecutor,
	limit *engine.LimitEngine,
	stop *engine.StopEngine,
) *OrderService {
	return &OrderService{
		store:  s,
		market: market,
		limit:  limit,
		stop:   stop,
	}
}

// PlaceMarketOrder validates the request and settles it immediately.
func (s *OrderService) PlaceMarketOrder(ctx context.Context, req MarketOrderRequest) (*domain.OrderRecord, error) {
	dir, err := parseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	qty, err := domain.ParseQuantity("quantity", req.Quantity)
	if err != nil {
		return nil, err
	}
	return s.market.Execute(ctx, engine.MarketOrder{
		UserID:      req.UserID,
		PortfolioID: req.PortfolioID,
		Symbol:      req.Symbol,
		Direction:   dir,
		Quantity:    qty,
	})
}

// CreateLimitOrder validates the request and places a pending limit order.
func (s *OrderService) CreateLimitOrder(ctx context.Context, req LimitOrderRequest) (*domain.LimitOrder, error) {
	dir, err := parseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	price, err := domain.ParseAmount("target_price", req.TargetPrice)
	if err != nil {
		return nil, err
	}
	qty, err := domain.ParseQuantity("quantity", req.Quantity)
	if err != nil {
		return nil, err
	}
	return s.limit.Create(ctx, engine.LimitRequest{
		UserID:      req.UserID,
		PortfolioID: req.PortfolioID,
		Symbol:      req.Symbol,
		Direction:   dir,
		TargetPrice: price,
		Quantity:    qty,
	})
}

// CancelLimitOrder cancels a pending limit order and refunds its
// reservation.
func (s *OrderService) CancelLimitOrder(ctx context.Context, userID, orderID string) (*domain.LimitOrder, error) {
	return s.limit.Cancel(ctx, userID, orderID)
}

// GetLimitOrder returns one of the user's limit orders.
func (s *OrderService) GetLimitOrder(ctx context.Context, userID, orderID string) (*domain.LimitOrder, error) {
	return s.limit.Get(ctx, userID, orderID)
}

// ListLimitOrders returns the user's limit orders, optionally filtered by
// portfolio and status.
func (s *OrderService) ListLimitOrders(ctx context.Context, userID, portfolioID, status string) ([]*domain.LimitOrder, error) {
	q, err := s.deferredQuery(ctx, userID, portfolioID, status)
	if err != nil {
		return nil, err
	}
	return s.limit.List(ctx, q)
}

// CreateStopOrder validates the request and places a pending stop order.
func (s *OrderService) CreateStopOrder(ctx context.Context, req StopOrderRequest) (*domain.StopOrder, error) {
	var dir domain.Direction
	if req.Direction != "" {
		d, err := parseDirection(req.Direction)
		if err != nil {
			return nil, err
		}
		dir = d
	}
	price, err := domain.ParseAmount("stop_price", req.StopPrice)
	if err != nil {
		return nil, err
	}
	qty, err := domain.ParseQuantity("quantity", req.Quantity)
	if err != nil {
		return nil, err
	}
	return s.stop.Create(ctx, engine.StopRequest{
		UserID:      req.UserID,
		PortfolioID: req.PortfolioID,
		Symbol:      req.Symbol,
		Direction:   dir,
		StopPrice:   price,
		Quantity:    qty,
	})
}

// CancelStopOrder cancels a pending stop order.
func (s *OrderService) CancelStopOrder(ctx context.Context, userID, orderID string) (*domain.StopOrder, error) {
	return s.stop.Cancel(ctx, userID, orderID)
}

// GetStopOrder returns one of the user's stop orders.
func (s *OrderService) GetStopOrder(ctx context.Context, userID, orderID string) (*domain.StopOrder, error) {
	return s.stop.Get(ctx, userID, orderID)
}

// ListStopOrders returns the user's stop orders, optionally filtered by
// portfolio and status.
func (s *OrderService) ListStopOrders(ctx context.Context, userID, portfolioID, status string) ([]*domain.StopOrder, error) {
	q, err := s.deferredQuery(ctx, userID, portfolioID, status)
	if err != nil {
		return nil, err
	}
	return s.stop.List(ctx, q)
}

// ListOrders returns the user's journal, newest first, optionally
// limited to one portfolio. limit must be between 1 and MaxJournalPage;
// zero selects the maximum.
func (s *OrderService) ListOrders(ctx context.Context, userID, portfolioID string, limit int) ([]*domain.OrderRecord, error) {
	if limit == 0 {
		limit = MaxJournalPage
	}
	if limit < 1 || limit > MaxJournalPage {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("limit must be between 1 and %d", MaxJournalPage),
		}
	}
	if err := s.checkOwner(ctx, userID, portfolioID); err != nil {
		return nil, err
	}
	return journal.List(ctx, s.store, store.OrderQuery{
		UserID:      userID,
		PortfolioID: portfolioID,
		Limit:       limit,
	})
}

func (s *OrderService) deferredQuery(ctx context.Context, userID, portfolioID, status string) (store.DeferredQuery, error) {
	q := store.DeferredQuery{UserID: userID, PortfolioID: portfolioID}
	if status != "" {
		st := domain.OrderStatus(strings.ToLower(status))
		if !st.Valid() {
			return q, &domain.ValidationError{
				Message: fmt.Sprintf("Invalid status filter: '%s'. Must be one of: pending, filled, cancelled", status),
			}
		}
		q.Status = st
	}
	return q, s.checkOwner(ctx, userID, portfolioID)
}

// checkOwner verifies the user exists and, when portfolioID is set, owns
// that portfolio.
func (s *OrderService) checkOwner(ctx context.Context, userID, portfolioID string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if portfolioID == "" {
			return nil
		}
		_, err := ownedPortfolio(ctx, tx, userID, portfolioID)
		return err
	})
}

func parseDirection(s string) (domain.Direction, error) {
	d := domain.Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", &domain.ValidationError{
			Message: "direction must be 'buy' or 'sell'",
		}
	}
	return d, nil
}

