package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/google/btree"
)

// MemoryStore is an in-memory Store. A unit of work holds the store-wide
// lock for its whole duration and records an undo action for every write,
// so a failed unit leaves no trace.
type MemoryStore struct {
	mu sync.Mutex

	users      map[string]*domain.User
	usernames  map[string]string // lower(username) → user_id
	portfolios map[string]*domain.Portfolio
	assets     map[string]*domain.Asset
	symbols    map[string]string // symbol → asset_id
	holdings   map[holdingKey]*domain.Holding
	watchlist  map[watchKey]*domain.WatchlistItem

	journal     *btree.BTreeG[*domain.OrderRecord]
	limitOrders map[string]*domain.LimitOrder
	limitIndex  *btree.BTreeG[*domain.LimitOrder]
	stopOrders  map[string]*domain.StopOrder
	stopIndex   *btree.BTreeG[*domain.StopOrder]
}

type holdingKey struct {
	portfolioID string
	assetID     string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*domain.User),
		usernames:  make(map[string]string),
		portfolios: make(map[string]*domain.Portfolio),
		assets:     make(map[string]*domain.Asset),
		symbols:    make(map[string]string),
		holdings:   make(map[holdingKey]*domain.Holding),
		watchlist:  make(map[watchKey]*domain.WatchlistItem),
		journal: btree.NewG(32, func(a, b *domain.OrderRecord) bool {
			return createdBefore(a.CreatedAt, a.OrderID, b.CreatedAt, b.OrderID)
		}),
		limitOrders: make(map[string]*domain.LimitOrder),
		limitIndex: btree.NewG(32, func(a, b *domain.LimitOrder) bool {
			return createdBefore(a.CreatedAt, a.OrderID, b.CreatedAt, b.OrderID)
		}),
		stopOrders: make(map[string]*domain.StopOrder),
		stopIndex: btree.NewG(32, func(a, b *domain.StopOrder) bool {
			return createdBefore(a.CreatedAt, a.OrderID, b.CreatedAt, b.OrderID)
		}),
	}
}

// createdBefore orders by creation time, breaking ties by ID.
func createdBefore(at time.Time, aID string, bt time.Time, bID string) bool {
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return strings.Compare(aID, bID) < 0
}

// WithTx runs fn while holding the store lock. If fn returns an error or
// panics, every write it made is undone in reverse order.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// memTx implements Tx on top of the store maps. All methods assume the
// store lock is held.
type memTx struct {
	s    *MemoryStore
	undo []func()
}

func (tx *memTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func mapSet[K comparable, V any](tx *memTx, m map[K]V, k K, v V) {
	prev, had := m[k]
	tx.undo = append(tx.undo, func() {
		if had {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
	m[k] = v
}

func mapDelete[K comparable, V any](tx *memTx, m map[K]V, k K) {
	prev, had := m[k]
	if !had {
		return
	}
	tx.undo = append(tx.undo, func() { m[k] = prev })
	delete(m, k)
}

func treeSet[T any](tx *memTx, t *btree.BTreeG[T], v T) {
	prev, had := t.ReplaceOrInsert(v)
	tx.undo = append(tx.undo, func() {
		if had {
			t.ReplaceOrInsert(prev)
		} else {
			t.Delete(v)
		}
	})
}

func treeDelete[T any](tx *memTx, t *btree.BTreeG[T], v T) {
	prev, had := t.Delete(v)
	if !had {
		return
	}
	tx.undo = append(tx.undo, func() { t.ReplaceOrInsert(prev) })
}
