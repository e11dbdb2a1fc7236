package ledger

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

// newTestLedger returns a ledger and a store holding user "u1" with cash.
func newTestLedger(t *testing.T, cash string) (*Ledger, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.CreateUser(ctx, &domain.User{
			UserID:      "u1",
			Username:    "alice",
			CashBalance: dec(cash),
			CreatedAt:   time.Now(),
		})
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return New(decimal.Zero), s
}

func balance(t *testing.T, s store.Store) *domain.User {
	t.Helper()
	var u *domain.User
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, "u1")
		return err
	})
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u
}

func TestLedger_ReserveDebits(t *testing.T) {
	l, s := newTestLedger(t, "1000")
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := l.Reserve(ctx, tx, "u1", dec("900"))
		return err
	})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if got := balance(t, s).CashBalance; !got.Equal(dec("100")) {
		t.Errorf("CashBalance = %s, want 100", got)
	}
}

func TestLedger_ReserveInsufficientFunds(t *testing.T) {
	l, s := newTestLedger(t, "100")
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := l.Reserve(ctx, tx, "u1", dec("100.0001"))
		return err
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balance(t, s).CashBalance; !got.Equal(dec("100")) {
		t.Errorf("CashBalance = %s, want unchanged 100", got)
	}
}

func TestLedger_ReserveExactBalance(t *testing.T) {
	l, s := newTestLedger(t, "100")
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := l.Reserve(ctx, tx, "u1", dec("100"))
		return err
	})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if got := balance(t, s).CashBalance; !got.IsZero() {
		t.Errorf("CashBalance = %s, want 0", got)
	}
}

func TestLedger_Release(t *testing.T) {
	l, s := newTestLedger(t, "100")
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := l.Release(ctx, tx, "u1", dec("50"))
		return err
	})
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := balance(t, s).CashBalance; !got.Equal(dec("150")) {
		t.Errorf("CashBalance = %s, want 150", got)
	}
}

func TestLedger_Deposit(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"positive", "250.25", false},
		{"maximum", "1000000000", false},
		{"zero", "0", true},
		{"negative", "-1", true},
		{"over maximum", "1000000000.0001", true},
		{"too precise", "1.00001", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, s := newTestLedger(t, "0")
			err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
				_, err := l.Deposit(ctx, tx, "u1", dec(tt.amount))
				return err
			})
			if tt.wantErr {
				var ve *domain.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Deposit: %v", err)
			}
			u := balance(t, s)
			if !u.CashBalance.Equal(dec(tt.amount)) || !u.TotalDeposits.Equal(dec(tt.amount)) {
				t.Errorf("cash = %s, deposits = %s, want %s", u.CashBalance, u.TotalDeposits, tt.amount)
			}
		})
	}
}

func TestLedger_Withdraw(t *testing.T) {
	l, s := newTestLedger(t, "100")
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := l.Withdraw(ctx, tx, "u1", dec("40"))
		return err
	})
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	u := balance(t, s)
	if !u.CashBalance.Equal(dec("60")) || !u.TotalWithdrawals.Equal(dec("40")) {
		t.Errorf("cash = %s, withdrawals = %s", u.CashBalance, u.TotalWithdrawals)
	}

	err = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := l.Withdraw(ctx, tx, "u1", dec("60.01"))
		return err
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	err = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := l.Withdraw(ctx, tx, "u1", decimal.Zero)
		return err
	})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for zero withdrawal, got %v", err)
	}
}

func TestLedger_UnknownUser(t *testing.T) {
	l, s := newTestLedger(t, "100")
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := l.Release(ctx, tx, "ghost", dec("1"))
		return err
	})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
