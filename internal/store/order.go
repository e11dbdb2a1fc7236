package store

import (
	"context"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
)

// AppendOrder writes a journal entry. Entries are never updated.
func (tx *memTx) AppendOrder(_ context.Context, r *domain.OrderRecord) error {
	if _, ok := tx.s.users[r.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *r
	treeSet(tx, tx.s.journal, &cp)
	return nil
}

// ListOrders walks the journal newest first.
func (tx *memTx) ListOrders(_ context.Context, q OrderQuery) ([]*domain.OrderRecord, error) {
	result := make([]*domain.OrderRecord, 0)
	tx.s.journal.Descend(func(r *domain.OrderRecord) bool {
		if !q.Match(r) {
			return true
		}
		cp := *r
		result = append(result, &cp)
		return q.Limit <= 0 || len(result) < q.Limit
	})
	return result, nil
}

func (tx *memTx) DeleteOrders(_ context.Context, portfolioID string) error {
	var doomed []*domain.OrderRecord
	tx.s.journal.Ascend(func(r *domain.OrderRecord) bool {
		if r.PortfolioID == portfolioID {
			doomed = append(doomed, r)
		}
		return true
	})
	for _, r := range doomed {
		treeDelete(tx, tx.s.journal, r)
	}
	return nil
}
