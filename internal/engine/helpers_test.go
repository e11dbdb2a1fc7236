package engine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/oracle"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/shopspring/decimal"
)

// tb is the subset of testing.TB that *rapid.T also satisfies.
type tb interface {
	Helper()
	Fatalf(format string, args ...any)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testEnv bundles an engine stack over an in-memory store and a static
// price source.
type testEnv struct {
	store  *store.MemoryStore
	prices *oracle.StaticSource
	market *MarketExecutor
	limit  *LimitEngine
	stop   *StopEngine
}

func newTestEnv(t tb) *testEnv {
	t.Helper()
	s := store.NewMemoryStore()
	prices := oracle.NewStaticSource(nil)
	d := Deps{
		Store:  s,
		Oracle: prices,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	env := &testEnv{
		store:  s,
		prices: prices,
		market: NewMarketExecutor(d),
		limit:  NewLimitEngine(d, 4),
		stop:   NewStopEngine(d, 4),
	}
	env.seedAsset(t, "AAPL", domain.AssetClassEquity)
	env.seedAsset(t, "BTC", domain.AssetClassCrypto)
	return env
}

func (env *testEnv) seedAsset(t tb, symbol string, class domain.AssetClass) {
	t.Helper()
	err := env.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.CreateAsset(ctx, &domain.Asset{
			AssetID:   "asset-" + symbol,
			Symbol:    symbol,
			Name:      symbol,
			Class:     class,
			Active:    true,
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		t.Fatalf("seed asset %s: %v", symbol, err)
	}
}

// seedUser creates user id with cash and one portfolio "<id>-p".
func (env *testEnv) seedUser(t tb, id, cash string) string {
	t.Helper()
	portfolioID := id + "-p"
	now := time.Now()
	err := env.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateUser(ctx, &domain.User{
			UserID:           id,
			Username:         id,
			CashBalance:      dec(cash),
			TotalDeposits:    dec(cash),
			TotalWithdrawals: decimal.Zero,
			CreatedAt:        now,
			UpdatedAt:        now,
		}); err != nil {
			return err
		}
		return tx.CreatePortfolio(ctx, &domain.Portfolio{
			PortfolioID: portfolioID,
			UserID:      id,
			Name:        "main",
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return portfolioID
}

func (env *testEnv) seedHolding(t tb, portfolioID, symbol, qty, avg string) {
	t.Helper()
	err := env.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.SaveHolding(ctx, &domain.Holding{
			PortfolioID:  portfolioID,
			AssetID:      "asset-" + symbol,
			Quantity:     dec(qty),
			AveragePrice: dec(avg),
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		})
	})
	if err != nil {
		t.Fatalf("seed holding: %v", err)
	}
}

func (env *testEnv) cash(t tb, userID string) decimal.Decimal {
	t.Helper()
	var u *domain.User
	err := env.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, userID)
		return err
	})
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u.CashBalance
}

// holding returns the holding or nil when none exists.
func (env *testEnv) holding(t tb, portfolioID, symbol string) *domain.Holding {
	t.Helper()
	var h *domain.Holding
	err := env.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		h, err = tx.GetHolding(ctx, portfolioID, "asset-"+symbol)
		return err
	})
	if err != nil {
		return nil
	}
	return h
}

func (env *testEnv) journal(t tb, userID string) []*domain.OrderRecord {
	t.Helper()
	var out []*domain.OrderRecord
	err := env.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListOrders(ctx, store.OrderQuery{UserID: userID})
		return err
	})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	return out
}

func (env *testEnv) limitOrder(t tb, id string) *domain.LimitOrder {
	t.Helper()
	var o *domain.LimitOrder
	err := env.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		o, err = tx.GetLimitOrder(ctx, id)
		return err
	})
	if err != nil {
		t.Fatalf("get limit order: %v", err)
	}
	return o
}

func (env *testEnv) stopOrder(t tb, id string) *domain.StopOrder {
	t.Helper()
	var o *domain.StopOrder
	err := env.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		o, err = tx.GetStopOrder(ctx, id)
		return err
	})
	if err != nil {
		t.Fatalf("get stop order: %v", err)
	}
	return o
}
