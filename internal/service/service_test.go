package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/engine"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/journal"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/ledger"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/oracle"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testEnv bundles all services over an in-memory store.
type testEnv struct {
	store      *store.MemoryStore
	prices     *oracle.StaticSource
	accounts   *AccountService
	portfolios *PortfolioService
	orders     *OrderService
	assets     *AssetService
	watchlist  *WatchlistService
	limit      *engine.LimitEngine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := store.NewMemoryStore()
	prices := oracle.NewStaticSource(nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.New(dec("1000000"))
	j := journal.New()

	d := engine.Deps{Store: s, Oracle: prices, Ledger: l, Journal: j, Logger: logger}
	limit := engine.NewLimitEngine(d, 2)
	env := &testEnv{
		store:      s,
		prices:     prices,
		accounts:   NewAccountService(s, l, j, logger),
		portfolios: NewPortfolioService(s, prices, l, logger),
		orders:     NewOrderService(s, engine.NewMarketExecutor(d), limit, engine.NewStopEngine(d, 2)),
		assets:     NewAssetService(s, prices, logger),
		watchlist:  NewWatchlistService(s, prices, logger),
		limit:      limit,
	}
	if _, err := env.assets.Seed(context.Background(), []CreateAssetRequest{
		{Symbol: "AAPL", Name: "Apple Inc.", Class: "equity"},
		{Symbol: "BTC", Name: "Bitcoin", Class: "crypto"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return env
}

// newFundedUser creates a user with cash and one portfolio.
func (env *testEnv) newFundedUser(t *testing.T, name, cash string) (*domain.User, *domain.Portfolio) {
	t.Helper()
	ctx := context.Background()
	u, err := env.accounts.CreateUser(ctx, CreateUserRequest{Username: name, Email: name + "@example.com"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if cash != "" && cash != "0" {
		if _, err := env.accounts.Deposit(ctx, u.UserID, cash); err != nil {
			t.Fatalf("Deposit: %v", err)
		}
	}
	p, err := env.portfolios.Create(ctx, u.UserID, CreatePortfolioRequest{Name: "main"})
	if err != nil {
		t.Fatalf("Create portfolio: %v", err)
	}
	return u, p
}

func isValidation(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}
