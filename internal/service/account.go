package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/journal"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/ledger"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// CreateUserRequest represents the input for user registration.
type CreateUserRequest struct {
	Username string
	Email    string
}

// AccountService handles users and their cash movements.
type AccountService struct {
	store   store.Store
	ledger  *ledger.Ledger
	journal *journal.Journal
	logger  *slog.Logger
	now     func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(s store.Store, l *ledger.Ledger, j *journal.Journal, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		store:   s,
		ledger:  l,
		journal: j,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateUser validates the request and creates a user with no cash.
func (s *AccountService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if !usernameRegex.MatchString(req.Username) {
		return nil, &domain.ValidationError{
			Message: "username must match ^[a-zA-Z0-9_.-]{3,32}$",
		}
	}
	if req.Email != "" && !emailRegex.MatchString(req.Email) {
		return nil, &domain.ValidationError{
			Message: "email is not a valid address",
		}
	}

	now := s.now()
	u := &domain.User{
		UserID:           uuid.New().String(),
		Username:         req.Username,
		Email:            req.Email,
		CashBalance:      decimal.Zero,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user_id", u.UserID, "username", u.Username)
	return u, nil
}

// GetAccount returns the user together with the cash reserved by their
// pending buy limit orders.
func (s *AccountService) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	var acct *domain.Account
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		reserved, err := tx.ReservedCash(ctx, userID)
		if err != nil {
			return err
		}
		acct = &domain.Account{User: u, ReservedCash: reserved}
		return nil
	})
	return acct, err
}

// Deposit credits amount, a decimal string, and journals it.
func (s *AccountService) Deposit(ctx context.Context, userID, amount string) (*domain.User, error) {
	amt, err := domain.ParseAmount("amount", amount)
	if err != nil {
		return nil, err
	}
	var u *domain.User
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if u, err = s.ledger.Deposit(ctx, tx, userID, amt); err != nil {
			return err
		}
		_, err = s.journal.RecordCash(ctx, tx, userID, domain.RecordTypeDeposit, amt)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("cash deposited", "user_id", userID, "amount", amt.String())
	return u, nil
}

// Withdraw debits amount, a decimal string, and journals it.
func (s *AccountService) Withdraw(ctx context.Context, userID, amount string) (*domain.User, error) {
	amt, err := domain.ParseAmount("amount", amount)
	if err != nil {
		return nil, err
	}
	var u *domain.User
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if u, err = s.ledger.Withdraw(ctx, tx, userID, amt); err != nil {
			return err
		}
		_, err = s.journal.RecordCash(ctx, tx, userID, domain.RecordTypeWithdraw, amt)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("cash withdrawn", "user_id", userID, "amount", amt.String())
	return u, nil
}
