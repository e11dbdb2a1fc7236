package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an account holder. CashBalance is the spendable balance; cash
// reserved by pending buy limit orders has already been debited from it.
type User struct {
	UserID           string
	Username         string
	Email            string
	CashBalance      decimal.Decimal
	TotalDeposits    decimal.Decimal
	TotalWithdrawals decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Account is a user together with the cash currently held by pending
// buy limit orders.
type Account struct {
	User         *User
	ReservedCash decimal.Decimal
}

// TotalCash returns spendable plus reserved cash.
func (a *Account) TotalCash() decimal.Decimal {
	return a.User.CashBalance.Add(a.ReservedCash)
}

// Portfolio groups holdings and orders owned by one user.
type Portfolio struct {
	PortfolioID string
	UserID      string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnedBy reports whether the portfolio belongs to userID.
func (p *Portfolio) OwnedBy(userID string) bool {
	return p.UserID == userID
}
