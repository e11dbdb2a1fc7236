// Package journal appends settled transactions to the order journal and
// exports it.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Journal writes immutable OrderRecords inside the caller's unit of work.
type Journal struct {
	now func() time.Time
}

// New creates a Journal.
func New() *Journal {
	return &Journal{now: time.Now}
}

// WithClock overrides the timestamp source.
func (j *Journal) WithClock(now func() time.Time) *Journal {
	j.now = now
	return j
}

// Fill describes an executed trade to be journaled.
type Fill struct {
	UserID        string
	PortfolioID   string
	Asset         *domain.Asset
	Direction     domain.Direction
	Source        domain.RecordSource
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	TotalAmount   decimal.Decimal
	ParentOrderID string
}

// RecordFill appends a buy or sell entry.
func (j *Journal) RecordFill(ctx context.Context, tx store.Tx, f Fill) (*domain.OrderRecord, error) {
	return j.append(ctx, tx, &domain.OrderRecord{
		UserID:        f.UserID,
		PortfolioID:   f.PortfolioID,
		AssetID:       f.Asset.AssetID,
		Symbol:        f.Asset.Symbol,
		Type:          domain.RecordTypeFor(f.Direction),
		Source:        f.Source,
		Quantity:      f.Quantity,
		UnitPrice:     f.UnitPrice,
		TotalAmount:   f.TotalAmount,
		ParentOrderID: f.ParentOrderID,
	})
}

// RecordCash appends a deposit or withdrawal entry. Cash entries carry
// the CASH symbol, unit price 1 and quantity equal to the amount.
func (j *Journal) RecordCash(ctx context.Context, tx store.Tx, userID string, typ domain.RecordType, amount decimal.Decimal) (*domain.OrderRecord, error) {
	if typ != domain.RecordTypeDeposit && typ != domain.RecordTypeWithdraw {
		return nil, fmt.Errorf("record cash: unexpected type %q", typ)
	}
	return j.append(ctx, tx, &domain.OrderRecord{
		UserID:      userID,
		Symbol:      domain.CashSymbol,
		Type:        typ,
		Source:      domain.SourceCash,
		Quantity:    amount,
		UnitPrice:   decimal.NewFromInt(1),
		TotalAmount: amount,
	})
}

func (j *Journal) append(ctx context.Context, tx store.Tx, r *domain.OrderRecord) (*domain.OrderRecord, error) {
	r.OrderID = uuid.New().String()
	r.Status = domain.RecordStatusCompleted
	r.CreatedAt = j.now()
	if err := tx.AppendOrder(ctx, r); err != nil {
		return nil, fmt.Errorf("append journal entry: %w", err)
	}
	return r, nil
}

// List returns journal entries matching q, newest first.
func List(ctx context.Context, s store.Store, q store.OrderQuery) ([]*domain.OrderRecord, error) {
	var out []*domain.OrderRecord
	err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListOrders(ctx, q)
		return err
	})
	return out, err
}
