package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

type countingEvaluator struct {
	calls atomic.Int32
}

func (c *countingEvaluator) Evaluate(context.Context) (EvaluationReport, error) {
	c.calls.Add(1)
	return EvaluationReport{Scanned: 1, Skipped: 1}, nil
}

func TestScheduler_TicksUntilCancelled(t *testing.T) {
	limit := &countingEvaluator{}
	stop := &countingEvaluator{}
	s := NewScheduler(5*time.Millisecond, limit, stop, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	s.Start(ctx)

	deadline := time.After(2 * time.Second)
	for limit.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("scheduler did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if stop.calls.Load() == 0 {
		t.Error("stop pass never ran")
	}
	n := limit.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if limit.calls.Load() != n {
		t.Error("scheduler kept running after stop")
	}
}

func TestScheduler_RunOnceRunsBothPasses(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "1000")
	env.seedHolding(t, p, "BTC", "1", "100")
	ctx := context.Background()

	if _, err := env.limit.Create(ctx, LimitRequest{
		UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionBuy,
		TargetPrice: dec("10"), Quantity: dec("1"),
	}); err != nil {
		t.Fatalf("Create limit: %v", err)
	}
	if _, err := env.stop.Create(ctx, StopRequest{
		UserID: "u1", PortfolioID: p, Symbol: "BTC", StopPrice: dec("90"), Quantity: dec("1"),
	}); err != nil {
		t.Fatalf("Create stop: %v", err)
	}
	env.prices.SetPrice("AAPL", dec("10"))
	env.prices.SetPrice("BTC", dec("80"))

	s := NewScheduler(time.Hour, env.limit, env.stop, nil)
	limit, stop := s.RunOnce(ctx)
	if limit.Filled != 1 || stop.Filled != 1 {
		t.Errorf("limit = %+v, stop = %+v", limit, stop)
	}
}

// A cancel racing an evaluation pass must leave exactly one outcome.
func TestLimit_CancelRacesFill(t *testing.T) {
	for i := 0; i < 20; i++ {
		env := newTestEnv(t)
		p := env.seedUser(t, "u1", "1000")
		ctx := context.Background()
		o, err := env.limit.Create(ctx, LimitRequest{
			UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionBuy,
			TargetPrice: dec("100"), Quantity: dec("1"),
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		env.prices.SetPrice("AAPL", dec("80"))

		var wg sync.WaitGroup
		var cancelErr error
		var report EvaluationReport
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, cancelErr = env.limit.Cancel(ctx, "u1", o.OrderID)
		}()
		go func() {
			defer wg.Done()
			report, _ = env.limit.Evaluate(ctx)
		}()
		wg.Wait()

		got := env.limitOrder(t, o.OrderID)
		switch got.Status {
		case domain.OrderStatusFilled:
			if cancelErr == nil {
				t.Fatal("cancel succeeded on a filled order")
			}
			if !env.cash(t, "u1").Equal(dec("920")) {
				t.Fatalf("cash = %s after fill, want 920", env.cash(t, "u1"))
			}
		case domain.OrderStatusCancelled:
			if report.Filled != 0 {
				t.Fatal("fill reported for a cancelled order")
			}
			if !env.cash(t, "u1").Equal(dec("1000")) {
				t.Fatalf("cash = %s after cancel, want 1000", env.cash(t, "u1"))
			}
		default:
			t.Fatalf("status = %s", got.Status)
		}
	}
}

// Stop cancels lock only the order row, so the race resolves on the
// pending-only update.
func TestStop_CancelRacesFill(t *testing.T) {
	for i := 0; i < 20; i++ {
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
		env.prices.SetPrice("BTC", dec("80"))

		var wg sync.WaitGroup
		var cancelErr error
		var report EvaluationReport
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, cancelErr = env.stop.Cancel(ctx, "u1", o.OrderID)
		}()
		go func() {
			defer wg.Done()
			report, _ = env.stop.Evaluate(ctx)
		}()
		wg.Wait()

		got := env.stopOrder(t, o.OrderID)
		switch got.Status {
		case domain.OrderStatusFilled:
			if cancelErr == nil {
				t.Fatal("cancel succeeded on a filled order")
			}
			if !env.cash(t, "u1").Equal(dec("80")) {
				t.Fatalf("cash = %s after fill, want 80", env.cash(t, "u1"))
			}
			if h := env.holding(t, p, "BTC"); h != nil {
				t.Fatalf("holding left after fill: %s", h.Quantity)
			}
		case domain.OrderStatusCancelled:
			if report.Filled != 0 {
				t.Fatal("fill reported for a cancelled order")
			}
			if !env.cash(t, "u1").IsZero() {
				t.Fatalf("cash = %s after cancel, want 0", env.cash(t, "u1"))
			}
			if h := env.holding(t, p, "BTC"); h == nil || !h.Quantity.Equal(dec("1")) {
				t.Fatal("holding changed by a cancelled stop order")
			}
		default:
			t.Fatalf("status = %s", got.Status)
		}
	}
}
