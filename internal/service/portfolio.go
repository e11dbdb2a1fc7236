package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/ledger"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/oracle"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePortfolioRequest represents the input for portfolio creation.
type CreatePortfolioRequest struct {
	Name        string
	Description string
}

// HoldingValuation is one position priced at the current market.
// Priced is false when the oracle failed and the average cost was used.
type HoldingValuation struct {
	Holding           *domain.Holding
	Asset             *domain.Asset
	CurrentPrice      decimal.Decimal
	MarketValue       decimal.Decimal
	CostBasis         decimal.Decimal
	ProfitLoss        decimal.Decimal
	ProfitLossPercent decimal.Decimal
	Priced            bool
}

// PortfolioValuation is a portfolio with every holding priced.
type PortfolioValuation struct {
	Portfolio         *domain.Portfolio
	Holdings          []HoldingValuation
	TotalValue        decimal.Decimal
	TotalCost         decimal.Decimal
	ProfitLoss        decimal.Decimal
	ProfitLossPercent decimal.Decimal
	ValuedAt          time.Time
}

// PortfolioService handles portfolio lifecycle and valuation.
type PortfolioService struct {
	store  store.Store
	oracle oracle.Oracle
	ledger *ledger.Ledger
	logger *slog.Logger
	now    func() time.Time
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(s store.Store, o oracle.Oracle, l *ledger.Ledger, logger *slog.Logger) *PortfolioService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortfolioService{
		store:  s,
		oracle: o,
		ledger: l,
		logger: logger,
		now:    time.Now,
	}
}

// Create validates the request and creates a portfolio for userID.
func (s *PortfolioService) Create(ctx context.Context, userID string, req CreatePortfolioRequest) (*domain.Portfolio, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 100 {
		return nil, &domain.ValidationError{
			Message: "name must be between 1 and 100 characters",
		}
	}
	if len(req.Description) > 1000 {
		return nil, &domain.ValidationError{
			Message: "description must be at most 1000 characters",
		}
	}

	now := s.now()
	p := &domain.Portfolio{
		PortfolioID: uuid.New().String(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		return tx.CreatePortfolio(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("portfolio created", "portfolio_id", p.PortfolioID, "user_id", userID)
	return p, nil
}

// List returns the user's portfolios, oldest first.
func (s *PortfolioService) List(ctx context.Context, userID string) ([]*domain.Portfolio, error) {
	var out []*domain.Portfolio
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListPortfolios(ctx, userID)
		return err
	})
	return out, err
}

// Get returns the portfolio with its holdings valued at current prices.
// A holding whose price cannot be fetched is valued at its average cost.
func (s *PortfolioService) Get(ctx context.Context, userID, portfolioID string) (*PortfolioValuation, error) {
	var (
		p      *domain.Portfolio
		hs     []*domain.Holding
		assets = make(map[string]*domain.Asset)
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if p, err = ownedPortfolio(ctx, tx, userID, portfolioID); err != nil {
			return err
		}
		if hs, err = tx.ListHoldings(ctx, portfolioID); err != nil {
			return err
		}
		for _, h := range hs {
			a, err := tx.GetAsset(ctx, h.AssetID)
			if err != nil {
				return err
			}
			assets[h.AssetID] = a
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	v := &PortfolioValuation{
		Portfolio:  p,
		Holdings:   make([]HoldingValuation, 0, len(hs)),
		TotalValue: decimal.Zero,
		TotalCost:  decimal.Zero,
		ValuedAt:   s.now(),
	}
	for _, h := range hs {
		hv := s.value(ctx, h, assets[h.AssetID])
		v.Holdings = append(v.Holdings, hv)
		v.TotalValue = v.TotalValue.Add(hv.MarketValue)
		v.TotalCost = v.TotalCost.Add(hv.CostBasis)
	}
	v.ProfitLoss = v.TotalValue.Sub(v.TotalCost)
	v.ProfitLossPercent = domain.Percent(v.ProfitLoss, v.TotalCost)
	return v, nil
}

func (s *PortfolioService) value(ctx context.Context, h *domain.Holding, a *domain.Asset) HoldingValuation {
	hv := HoldingValuation{
		Holding:      h,
		Asset:        a,
		CurrentPrice: h.AveragePrice,
		CostBasis:    h.CostBasis(),
	}
	q, err := s.oracle.CurrentQuote(ctx, a.Symbol, a.Class)
	if err == nil && q.Price.IsPositive() {
		hv.CurrentPrice = q.Price
		hv.Priced = true
	} else {
		s.logger.Warn("valuing holding at cost", "symbol", a.Symbol, "error", err)
	}
	hv.MarketValue = domain.Notional(hv.CurrentPrice, h.Quantity)
	hv.ProfitLoss = hv.MarketValue.Sub(hv.CostBasis)
	hv.ProfitLossPercent = domain.Percent(hv.ProfitLoss, hv.CostBasis)
	return hv
}

// Delete removes a portfolio and everything in it. Pending buy limit
// reservations are refunded first, then limit orders, stop orders,
// holdings, journal entries and finally the portfolio are removed, all
// in one unit of work.
func (s *PortfolioService) Delete(ctx context.Context, userID, portfolioID string) error {
	var refunded decimal.Decimal
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := ownedPortfolio(ctx, tx, userID, portfolioID); err != nil {
			return err
		}

		// Order rows are locked before the user row, matching the
		// evaluation passes.
		query := store.DeferredQuery{
			PortfolioID: portfolioID,
			Status:      domain.OrderStatusPending,
		}
		pending, err := tx.ListLimitOrders(ctx, query)
		if err != nil {
			return err
		}
		for _, listed := range pending {
			if _, err := tx.GetLimitOrder(ctx, listed.OrderID); err != nil {
				return err
			}
		}
		stops, err := tx.ListStopOrders(ctx, query)
		if err != nil {
			return err
		}
		for _, listed := range stops {
			if _, err := tx.GetStopOrder(ctx, listed.OrderID); err != nil {
				return err
			}
		}

		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		// Orders created before the user lock was granted are not in the
		// first listing but are removed below, so the refund is summed
		// over a fresh read. Later reservations wait on the user row.
		refunded, err = pendingReservations(ctx, tx, query)
		if err != nil {
			return err
		}
		if refunded.IsPositive() {
			if _, err := s.ledger.Release(ctx, tx, userID, refunded); err != nil {
				return err
			}
		}

		if err := tx.DeleteLimitOrders(ctx, portfolioID); err != nil {
			return err
		}
		if err := tx.DeleteStopOrders(ctx, portfolioID); err != nil {
			return err
		}
		if err := tx.DeleteHoldings(ctx, portfolioID); err != nil {
			return err
		}
		if err := tx.DeleteOrders(ctx, portfolioID); err != nil {
			return err
		}
		return tx.DeletePortfolio(ctx, portfolioID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("portfolio deleted",
		"portfolio_id", portfolioID,
		"user_id", userID,
		"refunded", refunded.String(),
	)
	return nil
}

// ownedPortfolio loads a portfolio, reporting one owned by someone else
// as missing.
func ownedPortfolio(ctx context.Context, tx store.Tx, userID, portfolioID string) (*domain.Portfolio, error) {
	p, err := tx.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(userID) {
		return nil, domain.ErrPortfolioNotFound
	}
	return p, nil
}

// pendingReservations sums the cash reserved by pending buy limit orders
// matching q.
func pendingReservations(ctx context.Context, tx store.Tx, q store.DeferredQuery) (decimal.Decimal, error) {
	orders, err := tx.ListLimitOrders(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, o := range orders {
		if o.Status == domain.OrderStatusPending && o.Direction == domain.DirectionBuy {
			total = total.Add(o.ReservedAmount)
		}
	}
	return total, nil
}
