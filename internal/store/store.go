// Package store defines the transactional persistence boundary and its
// in-memory implementation. SQL backends live in the sqlite and postgres
// subpackages.
package store

import (
	"context"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/shopspring/decimal"
)

// Store runs units of work. Every read and write happens inside WithTx;
// a non-nil error from fn rolls back everything fn did.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// Tx is the set of operations available inside a unit of work.
//
// AddWatchlistItem returns domain.ErrWatchlistItemExists when the user
// already watches the asset. ListWatchlist is newest first.
//
// GetUser, GetLimitOrder and GetStopOrder lock the returned row until the
// transaction ends on backends that support row locks. UpdateLimitOrder and
// UpdateStopOrder only succeed while the stored order is still pending and
// return domain.ErrConcurrencyConflict otherwise.
type Tx interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error

	CreatePortfolio(ctx context.Context, p *domain.Portfolio) error
	GetPortfolio(ctx context.Context, portfolioID string) (*domain.Portfolio, error)
	ListPortfolios(ctx context.Context, userID string) ([]*domain.Portfolio, error)
	DeletePortfolio(ctx context.Context, portfolioID string) error

	CreateAsset(ctx context.Context, a *domain.Asset) error
	GetAsset(ctx context.Context, assetID string) (*domain.Asset, error)
	GetAssetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error)
	ListAssets(ctx context.Context) ([]*domain.Asset, error)

	GetHolding(ctx context.Context, portfolioID, assetID string) (*domain.Holding, error)
	ListHoldings(ctx context.Context, portfolioID string) ([]*domain.Holding, error)
	SaveHolding(ctx context.Context, h *domain.Holding) error
	DeleteHolding(ctx context.Context, portfolioID, assetID string) error
	DeleteHoldings(ctx context.Context, portfolioID string) error

	AppendOrder(ctx context.Context, r *domain.OrderRecord) error
	ListOrders(ctx context.Context, q OrderQuery) ([]*domain.OrderRecord, error)
	DeleteOrders(ctx context.Context, portfolioID string) error

	CreateLimitOrder(ctx context.Context, o *domain.LimitOrder) error
	GetLimitOrder(ctx context.Context, orderID string) (*domain.LimitOrder, error)
	UpdateLimitOrder(ctx context.Context, o *domain.LimitOrder) error
	ListLimitOrders(ctx context.Context, q DeferredQuery) ([]*domain.LimitOrder, error)
	DeleteLimitOrders(ctx context.Context, portfolioID string) error
	ReservedCash(ctx context.Context, userID string) (decimal.Decimal, error)

	CreateStopOrder(ctx context.Context, o *domain.StopOrder) error
	GetStopOrder(ctx context.Context, orderID string) (*domain.StopOrder, error)
	UpdateStopOrder(ctx context.Context, o *domain.StopOrder) error
	ListStopOrders(ctx context.Context, q DeferredQuery) ([]*domain.StopOrder, error)
	DeleteStopOrders(ctx context.Context, portfolioID string) error

	AddWatchlistItem(ctx context.Context, w *domain.WatchlistItem) error
	GetWatchlistItem(ctx context.Context, userID, assetID string) (*domain.WatchlistItem, error)
	ListWatchlist(ctx context.Context, userID string) ([]*domain.WatchlistItem, error)
	RemoveWatchlistItem(ctx context.Context, userID, assetID string) error
}

// OrderQuery filters journal entries. Results are newest first.
// Empty fields match everything; Limit <= 0 means no limit.
type OrderQuery struct {
	UserID      string
	PortfolioID string
	Limit       int
}

// DeferredQuery filters limit and stop orders. Results are in creation
// order, oldest first. Empty fields match everything.
type DeferredQuery struct {
	UserID      string
	PortfolioID string
	Status      domain.OrderStatus
}

// Match reports whether an order with the given owner and status passes
// the filter.
func (q DeferredQuery) Match(userID, portfolioID string, status domain.OrderStatus) bool {
	if q.UserID != "" && q.UserID != userID {
		return false
	}
	if q.PortfolioID != "" && q.PortfolioID != portfolioID {
		return false
	}
	return q.Status == "" || q.Status == status
}

// Match reports whether a journal entry passes the filter.
func (q OrderQuery) Match(r *domain.OrderRecord) bool {
	if q.UserID != "" && q.UserID != r.UserID {
		return false
	}
	return q.PortfolioID == "" || q.PortfolioID == r.PortfolioID
}
