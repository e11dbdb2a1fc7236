// Package ledger owns every mutation of a user's cash balance.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/shopspring/decimal"
)

// DefaultMaxDeposit caps a single deposit.
var DefaultMaxDeposit = decimal.NewFromInt(1_000_000_000)

// Ledger applies cash movements inside the caller's unit of work. Each
// method loads the user row (locking it where the backend supports row
// locks), mutates it and writes it back.
type Ledger struct {
	maxDeposit decimal.Decimal
	now        func() time.Time
}

// New creates a Ledger. A non-positive maxDeposit selects DefaultMaxDeposit.
func New(maxDeposit decimal.Decimal) *Ledger {
	if !maxDeposit.IsPositive() {
		maxDeposit = DefaultMaxDeposit
	}
	return &Ledger{maxDeposit: maxDeposit, now: time.Now}
}

// WithClock overrides the timestamp source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Reserve debits amount from the spendable balance. It is used both to
// hold cash for a pending buy limit order and to settle a market buy.
func (l *Ledger) Reserve(ctx context.Context, tx store.Tx, userID string, amount decimal.Decimal) (*domain.User, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("reserve negative amount %s", amount)
	}
	u, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.CashBalance.LessThan(amount) {
		return nil, domain.ErrInsufficientFunds
	}
	u.CashBalance = domain.RoundCurrency(u.CashBalance.Sub(amount))
	return l.save(ctx, tx, u)
}

// Release credits amount back to the spendable balance: refunds of
// reservations and sale proceeds.
func (l *Ledger) Release(ctx context.Context, tx store.Tx, userID string, amount decimal.Decimal) (*domain.User, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("release negative amount %s", amount)
	}
	u, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.CashBalance = domain.RoundCurrency(u.CashBalance.Add(amount))
	return l.save(ctx, tx, u)
}

// Deposit credits external cash and the lifetime deposit total.
func (l *Ledger) Deposit(ctx context.Context, tx store.Tx, userID string, amount decimal.Decimal) (*domain.User, error) {
	if err := domain.CheckPositive("amount", amount, domain.CurrencyScale); err != nil {
		return nil, err
	}
	if amount.GreaterThan(l.maxDeposit) {
		return nil, domain.Invalid("amount must not exceed %s", l.maxDeposit.String())
	}
	u, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.CashBalance = u.CashBalance.Add(amount)
	u.TotalDeposits = u.TotalDeposits.Add(amount)
	return l.save(ctx, tx, u)
}

// Withdraw debits cash leaving the system and credits the lifetime
// withdrawal total. Reserved cash cannot be withdrawn.
func (l *Ledger) Withdraw(ctx context.Context, tx store.Tx, userID string, amount decimal.Decimal) (*domain.User, error) {
	if err := domain.CheckPositive("amount", amount, domain.CurrencyScale); err != nil {
		return nil, err
	}
	u, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(u.CashBalance) {
		return nil, domain.ErrInsufficientFunds
	}
	u.CashBalance = u.CashBalance.Sub(amount)
	u.TotalWithdrawals = u.TotalWithdrawals.Add(amount)
	return l.save(ctx, tx, u)
}

func (l *Ledger) save(ctx context.Context, tx store.Tx, u *domain.User) (*domain.User, error) {
	u.UpdatedAt = l.now()
	if err := tx.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("update user %s: %w", u.UserID, err)
	}
	return u, nil
}
