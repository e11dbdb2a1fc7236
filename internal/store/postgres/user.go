package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/jackc/pgx/v5"
)

const userSelect = `
SELECT user_id, username, email,
       cash_balance::text, total_deposits::text, total_withdrawals::text,
       created_at, updated_at
FROM users`

func (t *pgTx) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO users (user_id, username, email, cash_balance, total_deposits, total_withdrawals, created_at, updated_at)
VALUES (@user_id, @username, @email, @cash_balance, @total_deposits, @total_withdrawals, @created_at, @updated_at)`,
		pgx.NamedArgs{
			"user_id":           u.UserID,
			"username":          u.Username,
			"email":             u.Email,
			"cash_balance":      numeric(u.CashBalance),
			"total_deposits":    numeric(u.TotalDeposits),
			"total_withdrawals": numeric(u.TotalWithdrawals),
			"created_at":        u.CreatedAt,
			"updated_at":        u.UpdatedAt,
		})
	if isUniqueViolation(err) {
		return domain.ErrUserAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser reads the user row and locks it for the rest of the transaction.
func (t *pgTx) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := t.tx.QueryRow(ctx, userSelect+` WHERE user_id = $1 FOR UPDATE`, userID)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (t *pgTx) UpdateUser(ctx context.Context, u *domain.User) error {
	err := t.execOne(ctx, domain.ErrUserNotFound, `
UPDATE users
SET email = @email,
    cash_balance = @cash_balance,
    total_deposits = @total_deposits,
    total_withdrawals = @total_withdrawals,
    updated_at = @updated_at
WHERE user_id = @user_id`,
		pgx.NamedArgs{
			"user_id":           u.UserID,
			"email":             u.Email,
			"cash_balance":      numeric(u.CashBalance),
			"total_deposits":    numeric(u.TotalDeposits),
			"total_withdrawals": numeric(u.TotalWithdrawals),
			"updated_at":        u.UpdatedAt,
		})
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("update user: %w", err)
	}
	return err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.UserID,
		&u.Username,
		&u.Email,
		&u.CashBalance,
		&u.TotalDeposits,
		&u.TotalWithdrawals,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

const portfolioSelect = `
SELECT portfolio_id, user_id, name, description, created_at, updated_at
FROM portfolios`

func (t *pgTx) CreatePortfolio(ctx context.Context, p *domain.Portfolio) error {
	ok, err := t.exists(ctx, `SELECT 1 FROM users WHERE user_id = $1`, p.UserID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	if _, err := t.tx.Exec(ctx, `
INSERT INTO portfolios (portfolio_id, user_id, name, description, created_at, updated_at)
VALUES (@portfolio_id, @user_id, @name, @description, @created_at, @updated_at)`,
		pgx.NamedArgs{
			"portfolio_id": p.PortfolioID,
			"user_id":      p.UserID,
			"name":         p.Name,
			"description":  p.Description,
			"created_at":   p.CreatedAt,
			"updated_at":   p.UpdatedAt,
		}); err != nil {
		return fmt.Errorf("insert portfolio: %w", err)
	}
	return nil
}

func (t *pgTx) GetPortfolio(ctx context.Context, portfolioID string) (*domain.Portfolio, error) {
	p, err := scanPortfolio(t.tx.QueryRow(ctx, portfolioSelect+` WHERE portfolio_id = $1`, portfolioID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select portfolio: %w", err)
	}
	return p, nil
}

// ListPortfolios returns the user's portfolios oldest first.
func (t *pgTx) ListPortfolios(ctx context.Context, userID string) ([]*domain.Portfolio, error) {
	rows, err := t.tx.Query(ctx, portfolioSelect+` WHERE user_id = $1 ORDER BY created_at, portfolio_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Portfolio, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("scan portfolio: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// DeletePortfolio removes the portfolio row only. Callers delete dependent
// holdings and orders first.
func (t *pgTx) DeletePortfolio(ctx context.Context, portfolioID string) error {
	err := t.execOne(ctx, domain.ErrPortfolioNotFound, `DELETE FROM portfolios WHERE portfolio_id = $1`, portfolioID)
	if err != nil && !errors.Is(err, domain.ErrPortfolioNotFound) {
		return fmt.Errorf("delete portfolio: %w", err)
	}
	return err
}

func scanPortfolio(row pgx.Row) (*domain.Portfolio, error) {
	var p domain.Portfolio
	if err := row.Scan(&p.PortfolioID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
