package store

import (
	"context"
	"sort"
	"strings"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

// CreateUser adds a user. It returns domain.ErrUserAlreadyExists if the
// username is taken (case-insensitive).
func (tx *memTx) CreateUser(_ context.Context, u *domain.User) error {
	key := strings.ToLower(u.Username)
	if _, exists := tx.s.usernames[key]; exists {
		return domain.ErrUserAlreadyExists
	}
	if _, exists := tx.s.users[u.UserID]; exists {
		return domain.ErrUserAlreadyExists
	}
	cp := *u
	mapSet(tx, tx.s.users, u.UserID, &cp)
	mapSet(tx, tx.s.usernames, key, u.UserID)
	return nil
}

func (tx *memTx) GetUser(_ context.Context, userID string) (*domain.User, error) {
	u, ok := tx.s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (tx *memTx) UpdateUser(_ context.Context, u *domain.User) error {
	if _, ok := tx.s.users[u.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *u
	mapSet(tx, tx.s.users, u.UserID, &cp)
	return nil
}

func (tx *memTx) CreatePortfolio(_ context.Context, p *domain.Portfolio) error {
	if _, ok := tx.s.users[p.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *p
	mapSet(tx, tx.s.portfolios, p.PortfolioID, &cp)
	return nil
}

func (tx *memTx) GetPortfolio(_ context.Context, portfolioID string) (*domain.Portfolio, error) {
	p, ok := tx.s.portfolios[portfolioID]
	if !ok {
		return nil, domain.ErrPortfolioNotFound
	}
	cp := *p
	return &cp, nil
}

// ListPortfolios returns the user's portfolios oldest first.
func (tx *memTx) ListPortfolios(_ context.Context, userID string) ([]*domain.Portfolio, error) {
	result := make([]*domain.Portfolio, 0)
	for _, p := range tx.s.portfolios {
		if p.UserID != userID {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return createdBefore(result[i].CreatedAt, result[i].PortfolioID, result[j].CreatedAt, result[j].PortfolioID)
	})
	return result, nil
}

// DeletePortfolio removes the portfolio row only. Callers delete dependent
// holdings and orders first.
func (tx *memTx) DeletePortfolio(_ context.Context, portfolioID string) error {
	if _, ok := tx.s.portfolios[portfolioID]; !ok {
		return domain.ErrPortfolioNotFound
	}
	mapDelete(tx, tx.s.portfolios, portfolioID)
	return nil
}
