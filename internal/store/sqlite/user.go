package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

const userColumns = `user_id, username, email, cash_balance, total_deposits, total_withdrawals, created_at, updated_at`

func (t *liteTx) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UserID, u.Username, u.Email,
		u.CashBalance.String(), u.TotalDeposits.String(), u.TotalWithdrawals.String(),
		micros(u.CreatedAt), micros(u.UpdatedAt))
	if isUniqueViolation(err) {
		return domain.ErrUserAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (t *liteTx) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (t *liteTx) UpdateUser(ctx context.Context, u *domain.User) error {
	err := t.execOne(ctx, domain.ErrUserNotFound,
		`UPDATE users SET email = ?, cash_balance = ?, total_deposits = ?, total_withdrawals = ?, updated_at = ?
		 WHERE user_id = ?`,
		u.Email, u.CashBalance.String(), u.TotalDeposits.String(), u.TotalWithdrawals.String(),
		micros(u.UpdatedAt), u.UserID)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("update user: %w", err)
	}
	return err
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u                domain.User
		created, updated int64
	)
	if err := row.Scan(&u.UserID, &u.Username, &u.Email,
		&u.CashBalance, &u.TotalDeposits, &u.TotalWithdrawals, &created, &updated); err != nil {
		return nil, err
	}
	u.CreatedAt = fromMicros(created)
	u.UpdatedAt = fromMicros(updated)
	return &u, nil
}

const portfolioColumns = `portfolio_id, user_id, name, description, created_at, updated_at`

func (t *liteTx) CreatePortfolio(ctx context.Context, p *domain.Portfolio) error {
	ok, err := t.exists(ctx, `SELECT 1 FROM users WHERE user_id = ?`, p.UserID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO portfolios (`+portfolioColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.PortfolioID, p.UserID, p.Name, p.Description, micros(p.CreatedAt), micros(p.UpdatedAt)); err != nil {
		return fmt.Errorf("insert portfolio: %w", err)
	}
	return nil
}

func (t *liteTx) GetPortfolio(ctx context.Context, portfolioID string) (*domain.Portfolio, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE portfolio_id = ?`, portfolioID)
	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select portfolio: %w", err)
	}
	return p, nil
}

// ListPortfolios returns the user's portfolios oldest first.
func (t *liteTx) ListPortfolios(ctx context.Context, userID string) ([]*domain.Portfolio, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+portfolioColumns+` FROM portfolios WHERE user_id = ? ORDER BY created_at, portfolio_id`, userID)
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
func (t *liteTx) DeletePortfolio(ctx context.Context, portfolioID string) error {
	err := t.execOne(ctx, domain.ErrPortfolioNotFound, `DELETE FROM portfolios WHERE portfolio_id = ?`, portfolioID)
	if err != nil && !errors.Is(err, domain.ErrPortfolioNotFound) {
		return fmt.Errorf("delete portfolio: %w", err)
	}
	return err
}

func scanPortfolio(row rowScanner) (*domain.Portfolio, error) {
	var (
		p                domain.Portfolio
		created, updated int64
	)
	if err := row.Scan(&p.PortfolioID, &p.UserID, &p.Name, &p.Description, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMicros(created)
	p.UpdatedAt = fromMicros(updated)
	return &p, nil
}
