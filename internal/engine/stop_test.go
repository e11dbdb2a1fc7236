package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

// Scenario B: a stop at 50000 fires at 49000 and sells the whole position.
func TestStop_TriggersAndSells(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "0")
	env.seedHolding(t, p, "BTC", "5", "40000")
	ctx := context.Background()

	o, err := env.stop.Create(ctx, StopRequest{
		UserID: "u1", PortfolioID: p, Symbol: "BTC", StopPrice: dec("50000"), Quantity: dec("5"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	env.prices.SetPrice("BTC", dec("51000"))
	if r, _ := env.stop.Evaluate(ctx); r.Filled != 0 {
		t.Fatalf("fired above stop: %+v", r)
	}

	env.prices.SetPrice("BTC", dec("49000"))
	r, err := env.stop.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if r.Filled != 1 {
		t.Fatalf("report = %+v", r)
	}
	if env.holding(t, p, "BTC") != nil {
		t.Error("holding should be deleted")
	}
	if got := env.cash(t, "u1"); !got.Equal(dec("245000")) {
		t.Errorf("cash = %s, want 245000", got)
	}
	got := env.stopOrder(t, o.OrderID)
	if got.Status != domain.OrderStatusFilled || got.TriggeredAt == nil || got.FilledAt == nil || !got.FilledPrice.Equal(dec("49000")) {
		t.Errorf("order = %+v", got)
	}
	recs := env.journal(t, "u1")
	if len(recs) != 1 || recs[0].Source != domain.SourceStop || recs[0].Type != domain.RecordTypeSell {
		t.Errorf("journal = %+v", recs)
	}
}

func TestStop_RejectsBuy(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "1000")
	_, err := env.stop.Create(context.Background(), StopRequest{
		UserID: "u1", PortfolioID: p, Symbol: "BTC", Direction: domain.DirectionBuy,
		StopPrice: dec("1"), Quantity: dec("1"),
	})
	if !isValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestStop_RequiresHoldingsAtCreation(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "1000")
	_, err := env.stop.Create(context.Background(), StopRequest{
		UserID: "u1", PortfolioID: p, Symbol: "BTC", StopPrice: dec("1"), Quantity: dec("1"),
	})
	if !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("err = %v, want ErrInsufficientHoldings", err)
	}
}

func TestStop_CancelledWhenHoldingsShrink(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "0")
	env.seedHolding(t, p, "BTC", "2", "100")
	ctx := context.Background()

	o, err := env.stop.Create(ctx, StopRequest{
		UserID: "u1", PortfolioID: p, Symbol: "BTC", StopPrice: dec("90"), Quantity: dec("2"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	env.prices.SetPrice("BTC", dec("95"))
	if _, err := env.market.Execute(ctx, MarketOrder{
		UserID: "u1", PortfolioID: p, Symbol: "BTC", Direction: domain.DirectionSell, Quantity: dec("1"),
	}); err != nil {
		t.Fatalf("market sell: %v", err)
	}

	env.prices.SetPrice("BTC", dec("80"))
	if r, _ := env.stop.Evaluate(ctx); r.Cancelled != 1 {
		t.Fatalf("report = %+v", r)
	}
	got := env.stopOrder(t, o.OrderID)
	if got.Status != domain.OrderStatusCancelled || got.CancelReason != domain.CancelReasonInsufficientHoldings || got.TriggeredAt == nil {
		t.Errorf("order = %+v", got)
	}
	if h := env.holding(t, p, "BTC"); !h.Quantity.Equal(dec("1")) {
		t.Errorf("remaining = %s, want 1", h.Quantity)
	}
}

func TestStop_Cancel(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "0")
	env.seedHolding(t, p, "BTC", "1", "100")
	ctx := context.Background()

	o, err := env.stop.Create(ctx, StopRequest{
		UserID: "u1", PortfolioID: p, Symbol: "BTC", StopPrice: dec("90"), Quantity: dec("1"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.stop.Cancel(ctx, "someone-else", o.OrderID); !errors.Is(err, domain.ErrStopOrderNotFound) {
		t.Errorf("foreign cancel err = %v", err)
	}
	got, err := env.stop.Cancel(ctx, "u1", o.OrderID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != domain.OrderStatusCancelled || got.TriggeredAt != nil {
		t.Errorf("order = %+v", got)
	}

	env.prices.SetPrice("BTC", dec("10"))
	if r, _ := env.stop.Evaluate(ctx); r.Scanned != 0 {
		t.Errorf("cancelled order evaluated: %+v", r)
	}
	if _, err := env.stop.Cancel(ctx, "u1", o.OrderID); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Errorf("second cancel err = %v", err)
	}
}
