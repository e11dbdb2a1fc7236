package holdings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestBook(t *testing.T) (*Book, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateUser(ctx, &domain.User{UserID: "u1", Username: "alice"}); err != nil {
			return err
		}
		return tx.CreatePortfolio(ctx, &domain.Portfolio{PortfolioID: "p1", UserID: "u1", Name: "Main", CreatedAt: time.Now()})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewBook(), s
}

func run(t *testing.T, s store.Store, fn func(ctx context.Context, tx store.Tx) error) error {
	t.Helper()
	return s.WithTx(context.Background(), fn)
}

func TestBook_ApplyBuyCreatesHolding(t *testing.T) {
	b, s := newTestBook(t)
	var h *domain.Holding
	err := run(t, s, func(ctx context.Context, tx store.Tx) error {
		var err error
		h, err = b.ApplyBuy(ctx, tx, "p1", "AAPL-ID", dec("10"), dec("85"))
		return err
	})
	if err != nil {
		t.Fatalf("ApplyBuy: %v", err)
	}
	if !h.Quantity.Equal(dec("10")) || !h.AveragePrice.Equal(dec("85")) {
		t.Errorf("holding = %s @ %s, want 10 @ 85", h.Quantity, h.AveragePrice)
	}
}

func TestBook_ApplyBuyAverages(t *testing.T) {
	b, s := newTestBook(t)
	err := run(t, s, func(ctx context.Context, tx store.Tx) error {
		if _, err := b.ApplyBuy(ctx, tx, "p1", "a1", dec("1"), dec("10")); err != nil {
			return err
		}
		h, err := b.ApplyBuy(ctx, tx, "p1", "a1", dec("2"), dec("11"))
		if err != nil {
			return err
		}
		if !h.Quantity.Equal(dec("3")) || !h.AveragePrice.Equal(dec("10.6667")) {
			t.Errorf("holding = %s @ %s, want 3 @ 10.6667", h.Quantity, h.AveragePrice)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestBook_ApplySellDeletesAtZero(t *testing.T) {
	b, s := newTestBook(t)
	err := run(t, s, func(ctx context.Context, tx store.Tx) error {
		if _, err := b.ApplyBuy(ctx, tx, "p1", "a1", dec("5"), dec("100")); err != nil {
			return err
		}
		h, err := b.ApplySell(ctx, tx, "p1", "a1", dec("2"))
		if err != nil {
			return err
		}
		if !h.Quantity.Equal(dec("3")) || !h.AveragePrice.Equal(dec("100")) {
			t.Errorf("after partial sell = %s @ %s", h.Quantity, h.AveragePrice)
		}
		if _, err := b.ApplySell(ctx, tx, "p1", "a1", dec("3")); err != nil {
			return err
		}
		_, err = tx.GetHolding(ctx, "p1", "a1")
		if !errors.Is(err, domain.ErrHoldingNotFound) {
			t.Errorf("holding should be deleted, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestBook_ApplySellInsufficient(t *testing.T) {
	b, s := newTestBook(t)
	err := run(t, s, func(ctx context.Context, tx store.Tx) error {
		_, err := b.ApplySell(ctx, tx, "p1", "a1", dec("1"))
		return err
	})
	if !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("sell with no holding = %v, want ErrInsufficientHoldings", err)
	}

	err = run(t, s, func(ctx context.Context, tx store.Tx) error {
		if _, err := b.ApplyBuy(ctx, tx, "p1", "a1", dec("1"), dec("10")); err != nil {
			return err
		}
		_, err := b.ApplySell(ctx, tx, "p1", "a1", dec("1.5"))
		return err
	})
	if !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("oversell = %v, want ErrInsufficientHoldings", err)
	}
}

func TestBook_Require(t *testing.T) {
	b, s := newTestBook(t)
	err := run(t, s, func(ctx context.Context, tx store.Tx) error {
		if err := b.Require(ctx, tx, "p1", "a1", dec("1")); !errors.Is(err, domain.ErrInsufficientHoldings) {
			t.Errorf("Require on empty = %v", err)
		}
		if _, err := b.ApplyBuy(ctx, tx, "p1", "a1", dec("3"), dec("10")); err != nil {
			return err
		}
		if err := b.Require(ctx, tx, "p1", "a1", dec("3")); err != nil {
			t.Errorf("Require(3) = %v", err)
		}
		q, err := b.Quantity(ctx, tx, "p1", "a1")
		if err != nil {
			return err
		}
		if !q.Equal(dec("3")) {
			t.Errorf("Quantity = %s, want 3", q)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
