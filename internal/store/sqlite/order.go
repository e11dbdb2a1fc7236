package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
)

const orderColumns = `order_id, user_id, COALESCE(portfolio_id, ''), COALESCE(asset_id, ''), symbol, type, source, status,
	quantity, unit_price, total_amount, COALESCE(parent_order_id, ''), created_at`

// AppendOrder writes a journal entry. Empty portfolio, asset and parent
// references are stored as NULL.
func (t *liteTx) AppendOrder(ctx context.Context, r *domain.OrderRecord) error {
	ok, err := t.exists(ctx, `SELECT 1 FROM users WHERE user_id = ?`, r.UserID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO orders (order_id, user_id, portfolio_id, asset_id, symbol, type, source, status,
		     quantity, unit_price, total_amount, parent_order_id, created_at)
		 VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?)`,
		r.OrderID, r.UserID, r.PortfolioID, r.AssetID, r.Symbol, string(r.Type), string(r.Source), r.Status,
		r.Quantity.String(), r.UnitPrice.String(), r.TotalAmount.String(), r.ParentOrderID,
		micros(r.CreatedAt)); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// ListOrders returns matching journal entries newest first.
func (t *liteTx) ListOrders(ctx context.Context, q store.OrderQuery) ([]*domain.OrderRecord, error) {
	var (
		where []string
		args  []any
	)
	if q.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, q.UserID)
	}
	if q.PortfolioID != "" {
		where = append(where, "portfolio_id = ?")
		args = append(args, q.PortfolioID)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + orderColumns + ` FROM orders`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, order_id DESC")
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := t.tx.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.OrderRecord, 0)
	for rows.Next() {
		var (
			r        domain.OrderRecord
			typ, src string
			created  int64
		)
		if err := rows.Scan(&r.OrderID, &r.UserID, &r.PortfolioID, &r.AssetID, &r.Symbol, &typ, &src, &r.Status,
			&r.Quantity, &r.UnitPrice, &r.TotalAmount, &r.ParentOrderID, &created); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		r.Type = domain.RecordType(typ)
		r.Source = domain.RecordSource(src)
		r.CreatedAt = fromMicros(created)
		result = append(result, &r)
	}
	return result, rows.Err()
}

func (t *liteTx) DeleteOrders(ctx context.Context, portfolioID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM orders WHERE portfolio_id = ?`, portfolioID); err != nil {
		return fmt.Errorf("delete orders: %w", err)
	}
	return nil
}
