package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// Feature: papertrade, Property 6: Market buy conserves value

func TestProperty_MarketBuyConservesValue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		env := newTestEnv(t)
		cash := decimal.New(rapid.Int64Range(0, 10_000_000).Draw(t, "cash"), -2)
		price := decimal.New(rapid.Int64Range(1, 1_000_000).Draw(t, "price"), -2)
		qty := decimal.New(rapid.Int64Range(1, 100_000).Draw(t, "qty"), -int32(rapid.IntRange(0, 4).Draw(t, "places")))
		p := env.seedUser(t, "u1", cash.String())
		env.prices.SetPrice("AAPL", price)

		rec, err := env.market.Execute(context.Background(), MarketOrder{
			UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionBuy, Quantity: qty,
		})
		after := env.cash(t, "u1")
		if err != nil {
			if !after.Equal(cash) {
				t.Fatalf("failed buy changed cash %s -> %s", cash, after)
			}
			if env.holding(t, p, "AAPL") != nil {
				t.Fatal("failed buy created a holding")
			}
			return
		}
		if after.IsNegative() {
			t.Fatalf("cash went negative: %s", after)
		}
		if !after.Equal(cash.Sub(rec.TotalAmount)) {
			t.Fatalf("cash %s, want %s - %s", after, cash, rec.TotalAmount)
		}
		if rec.Quantity.GreaterThan(qty) {
			t.Fatalf("executed %s more than requested %s", rec.Quantity, qty)
		}
		if h := env.holding(t, p, "AAPL"); h == nil || !h.Quantity.Equal(rec.Quantity) {
			t.Fatalf("holding = %+v, want quantity %s", h, rec.Quantity)
		}
	})
}

// Feature: papertrade, Property 7: Limit cancel restores cash exactly

func TestProperty_LimitCancelRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		env := newTestEnv(t)
		cash := decimal.New(rapid.Int64Range(1, 100_000_000).Draw(t, "cash"), -4)
		target := decimal.New(rapid.Int64Range(1, 10_000_000).Draw(t, "target"), -4)
		qty := decimal.New(rapid.Int64Range(1, 1_000_000).Draw(t, "qty"), -3)
		p := env.seedUser(t, "u1", cash.String())
		ctx := context.Background()

		o, err := env.limit.Create(ctx, LimitRequest{
			UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionBuy,
			TargetPrice: target, Quantity: qty,
		})
		if err != nil {
			if !env.cash(t, "u1").Equal(cash) {
				t.Fatalf("failed create changed cash")
			}
			return
		}
		if _, err := env.limit.Cancel(ctx, "u1", o.OrderID); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if got := env.cash(t, "u1"); !got.Equal(cash) {
			t.Fatalf("cash %s after round trip, want %s", got, cash)
		}
	})
}

// Feature: papertrade, Property 8: Deferred orders fill at most once

func TestProperty_LimitFillsAtMostOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		env := newTestEnv(t)
		p := env.seedUser(t, "u1", "1000000")
		ctx := context.Background()
		n := rapid.IntRange(1, 6).Draw(t, "orders")
		for i := 0; i < n; i++ {
			target := decimal.NewFromInt(rapid.Int64Range(1, 200).Draw(t, fmt.Sprintf("target%d", i)))
			if _, err := env.limit.Create(ctx, LimitRequest{
				UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionBuy,
				TargetPrice: target, Quantity: decimal.NewFromInt(1),
			}); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}
		env.prices.SetPrice("AAPL", decimal.NewFromInt(rapid.Int64Range(1, 200).Draw(t, "price")))

		first, _ := env.limit.Evaluate(ctx)
		second, _ := env.limit.Evaluate(ctx)
		if second.Filled != 0 {
			t.Fatalf("second pass filled %d orders", second.Filled)
		}
		if got := len(env.journal(t, "u1")); got != first.Filled {
			t.Fatalf("journal entries %d, want %d", got, first.Filled)
		}
		h := env.holding(t, p, "AAPL")
		switch {
		case first.Filled == 0 && h != nil:
			t.Fatalf("holding without fills")
		case first.Filled > 0 && !h.Quantity.Equal(decimal.NewFromInt(int64(first.Filled))):
			t.Fatalf("quantity %s, want %d", h.Quantity, first.Filled)
		}
	})
}
