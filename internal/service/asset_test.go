package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

func TestAssetSeed_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	added, err := env.assets.Seed(context.Background(), []CreateAssetRequest{
		{Symbol: "AAPL", Name: "Apple Inc.", Class: "equity"},
		{Symbol: "eth", Name: "Ether", Class: "crypto"},
	})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
	list, _ := env.assets.List(context.Background())
	if len(list) != 3 || list[0].Symbol != "AAPL" || list[2].Symbol != "ETH" {
		t.Errorf("list = %+v", list)
	}
}

func TestAssetCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.assets.Create(ctx, CreateAssetRequest{Symbol: "1BAD", Class: "equity"}); !isValidation(err) {
		t.Errorf("bad symbol err = %v", err)
	}
	if _, err := env.assets.Create(ctx, CreateAssetRequest{Symbol: "GOLD", Class: "metal"}); !isValidation(err) {
		t.Errorf("bad class err = %v", err)
	}
}

func TestAssetQuote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.prices.SetPrice("AAPL", dec("187.25"))

	a, q, err := env.assets.GetQuote(ctx, "aapl")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if a.Symbol != "AAPL" || !q.Price.Equal(dec("187.25")) {
		t.Errorf("asset/quote = %s/%s", a.Symbol, q.Price)
	}
	if _, _, err := env.assets.GetQuote(ctx, "NOPE"); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Errorf("unknown symbol err = %v", err)
	}
	env.prices.Fail("AAPL", errors.New("down"))
	if _, _, err := env.assets.GetQuote(ctx, "AAPL"); !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Errorf("outage err = %v", err)
	}
}

func TestAssetHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.prices.SetPrice("BTC", dec("50000"))

	_, qs, err := env.assets.GetHistory(ctx, HistoryRequest{Symbol: "BTC"})
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(qs) != 1 {
		t.Errorf("history = %d candles, want 1", len(qs))
	}
	now := time.Now()
	if _, _, err := env.assets.GetHistory(ctx, HistoryRequest{Symbol: "BTC", From: now, To: now.Add(-time.Hour)}); !isValidation(err) {
		t.Errorf("inverted range err = %v", err)
	}
}
