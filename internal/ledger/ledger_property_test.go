package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// Feature: papertrade, Property 5: Reserve then release restores cash exactly

func TestProperty_ReserveReleaseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cash := decimal.New(rapid.Int64Range(0, 1_000_000_000_000).Draw(t, "cash"), -4)
		amount := decimal.New(rapid.Int64Range(0, 1_000_000_000_000).Draw(t, "amount"), -4)

		s := store.NewMemoryStore()
		l := New(decimal.Zero)
		ctx := context.Background()
		_ = s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.CreateUser(ctx, &domain.User{UserID: "u1", Username: "u1", CashBalance: cash, CreatedAt: time.Now()})
		})

		err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
			if _, err := l.Reserve(ctx, tx, "u1", amount); err != nil {
				return err
			}
			_, err := l.Release(ctx, tx, "u1", amount)
			return err
		})
		if amount.GreaterThan(cash) {
			if err == nil {
				t.Fatalf("reserve of %s from %s should fail", amount, cash)
			}
		} else if err != nil {
			t.Fatalf("round trip failed: %v", err)
		}

		_ = s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
			u, _ := tx.GetUser(ctx, "u1")
			if !u.CashBalance.Equal(cash) {
				t.Fatalf("cash %s, want %s", u.CashBalance, cash)
			}
			if u.CashBalance.IsNegative() {
				t.Fatalf("negative balance %s", u.CashBalance)
			}
			return nil
		})
	})
}
