package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

func TestMarket_BuyDebitsCashAndCreatesHolding(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "1000")
	env.prices.SetPrice("AAPL", dec("100"))

	rec, err := env.market.Execute(context.Background(), MarketOrder{
		UserID: "u1", PortfolioID: p, Symbol: "aapl", Direction: domain.DirectionBuy, Quantity: dec("2.5"),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !rec.TotalAmount.Equal(dec("250")) || rec.Source != domain.SourceMarket || rec.Type != domain.RecordTypeBuy {
		t.Errorf("record = %+v", rec)
	}
	if got := env.cash(t, "u1"); !got.Equal(dec("750")) {
		t.Errorf("cash = %s, want 750", got)
	}
	h := env.holding(t, p, "AAPL")
	if h == nil || !h.Quantity.Equal(dec("2.5")) || !h.AveragePrice.Equal(dec("100")) {
		t.Fatalf("holding = %+v", h)
	}
	if n := len(env.journal(t, "u1")); n != 1 {
		t.Errorf("journal entries = %d, want 1", n)
	}
}

func TestMarket_BuyUpdatesWeightedAverage(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "10000")
	env.seedHolding(t, p, "AAPL", "10", "100")
	env.prices.SetPrice("AAPL", dec("130"))

	_, err := env.market.Execute(context.Background(), MarketOrder{
		UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionBuy, Quantity: dec("5"),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	h := env.holding(t, p, "AAPL")
	if !h.Quantity.Equal(dec("15")) || !h.AveragePrice.Equal(dec("110")) {
		t.Errorf("holding qty/avg = %s/%s, want 15/110", h.Quantity, h.AveragePrice)
	}
}

// Scenario D: cash 100, price 30, BUY 10 executes 3 units for 90.
func TestMarket_BuyCapsToAffordableQuantity(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "100")
	env.prices.SetPrice("AAPL", dec("30"))

	rec, err := env.market.Execute(context.Background(), MarketOrder{
		UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionBuy, Quantity: dec("10"),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !rec.Quantity.Equal(dec("3")) || !rec.TotalAmount.Equal(dec("90")) {
		t.Errorf("executed %s for %s, want 3 for 90", rec.Quantity, rec.TotalAmount)
	}
	if got := env.cash(t, "u1"); !got.Equal(dec("10")) {
		t.Errorf("cash = %s, want 10", got)
	}
}

func TestMarket_BuyCapKeepsRequestPrecision(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "100")
	env.prices.SetPrice("BTC", dec("30"))

	rec, err := env.market.Execute(context.Background(), MarketOrder{
		UserID: "u1", PortfolioID: p, Symbol: "BTC", Direction: domain.DirectionBuy, Quantity: dec("10.00"),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !rec.Quantity.Equal(dec("3")) {
		t.Errorf("whole-unit request capped to %s, want 3", rec.Quantity)
	}

	p2 := env.seedUser(t, "u2", "100")
	rec, err = env.market.Execute(context.Background(), MarketOrder{
		UserID: "u2", PortfolioID: p2, Symbol: "BTC", Direction: domain.DirectionBuy, Quantity: dec("10.5"),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !rec.Quantity.Equal(dec("3.3")) || !rec.TotalAmount.Equal(dec("99")) {
		t.Errorf("fractional request capped to %s for %s, want 3.3 for 99", rec.Quantity, rec.TotalAmount)
	}
}

// The cap precision follows the significant digits of the request.
func TestMarket_BuyCapPrecisionFollowsRequestDigits(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		wantQty  string
		wantErr  error
	}{
		{"whole", "10", "", domain.ErrInsufficientFunds},
		{"trailing zeros", "10.00", "", domain.ErrInsufficientFunds},
		{"tenths", "10.5", "0.3", nil},
		{"hundredths", "10.25", "0.33", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			p := env.seedUser(t, "u1", "10")
			env.prices.SetPrice("BTC", dec("30"))

			rec, err := env.market.Execute(context.Background(), MarketOrder{
				UserID: "u1", PortfolioID: p, Symbol: "BTC", Direction: domain.DirectionBuy, Quantity: dec(tt.quantity),
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if got := env.cash(t, "u1"); !got.Equal(dec("10")) {
					t.Errorf("cash = %s after rejected buy, want 10", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if !rec.Quantity.Equal(dec(tt.wantQty)) {
				t.Errorf("quantity = %s, want %s", rec.Quantity, tt.wantQty)
			}
			if !rec.TotalAmount.Equal(domain.Notional(dec("30"), dec(tt.wantQty))) {
				t.Errorf("total = %s", rec.TotalAmount)
			}
		})
	}
}

func TestMarket_BuyWithNoAffordableUnitsFails(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "20")
	env.prices.SetPrice("AAPL", dec("30"))

	_, err := env.market.Execute(context.Background(), MarketOrder{
		UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionBuy, Quantity: dec("1"),
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if got := env.cash(t, "u1"); !got.Equal(dec("20")) {
		t.Errorf("cash changed to %s", got)
	}
	if env.holding(t, p, "AAPL") != nil {
		t.Error("holding created on failed buy")
	}
}

func TestMarket_SellCreditsCashAndRemovesEmptyHolding(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "0")
	env.seedHolding(t, p, "AAPL", "4", "100")
	env.prices.SetPrice("AAPL", dec("120"))

	ctx := context.Background()
	if _, err := env.market.Execute(ctx, MarketOrder{
		UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionSell, Quantity: dec("1"),
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if h := env.holding(t, p, "AAPL"); !h.Quantity.Equal(dec("3")) || !h.AveragePrice.Equal(dec("100")) {
		t.Errorf("holding = %s @ %s, want 3 @ 100", h.Quantity, h.AveragePrice)
	}
	if _, err := env.market.Execute(ctx, MarketOrder{
		UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionSell, Quantity: dec("3"),
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if env.holding(t, p, "AAPL") != nil {
		t.Error("holding should be deleted at zero")
	}
	if got := env.cash(t, "u1"); !got.Equal(dec("480")) {
		t.Errorf("cash = %s, want 480", got)
	}
}

func TestMarket_SellMoreThanHeldFails(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "0")
	env.seedHolding(t, p, "AAPL", "1", "100")
	env.prices.SetPrice("AAPL", dec("120"))

	_, err := env.market.Execute(context.Background(), MarketOrder{
		UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionSell, Quantity: dec("2"),
	})
	if !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("err = %v, want ErrInsufficientHoldings", err)
	}
	if len(env.journal(t, "u1")) != 0 {
		t.Error("journal written on failed sell")
	}
}

func TestMarket_OracleFailureLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "1000")
	env.prices.Fail("AAPL", errors.New("feed down"))

	_, err := env.market.Execute(context.Background(), MarketOrder{
		UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionBuy, Quantity: dec("1"),
	})
	if !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Fatalf("err = %v, want ErrOracleUnavailable", err)
	}
	if got := env.cash(t, "u1"); !got.Equal(dec("1000")) {
		t.Errorf("cash = %s, want 1000", got)
	}
}

func TestMarket_Validation(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, "u1", "1000")
	other := env.seedUser(t, "u2", "1000")
	env.prices.SetPrice("AAPL", dec("10"))
	ctx := context.Background()

	tests := []struct {
		name  string
		order MarketOrder
		check func(error) bool
	}{
		{"bad direction", MarketOrder{UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: "hold", Quantity: dec("1")}, isValidation},
		{"zero quantity", MarketOrder{UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionBuy, Quantity: dec("0")}, isValidation},
		{"too many places", MarketOrder{UserID: "u1", PortfolioID: p, Symbol: "AAPL", Direction: domain.DirectionBuy, Quantity: dec("0.000000001")}, isValidation},
		{"unknown symbol", MarketOrder{UserID: "u1", PortfolioID: p, Symbol: "ZZZZ", Direction: domain.DirectionBuy, Quantity: dec("1")}, is(domain.ErrAssetNotFound)},
		{"foreign portfolio", MarketOrder{UserID: "u1", PortfolioID: other, Symbol: "AAPL", Direction: domain.DirectionBuy, Quantity: dec("1")}, is(domain.ErrPortfolioNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.market.Execute(ctx, tt.order)
			if !tt.check(err) {
				t.Errorf("unexpected err: %v", err)
			}
		})
	}
}

func isValidation(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}
