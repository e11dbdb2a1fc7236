package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/jackc/pgx/v5"
)

const orderSelect = `
SELECT order_id, user_id, COALESCE(portfolio_id, ''), COALESCE(asset_id, ''), symbol, type, source, status,
       quantity::text, unit_price::text, total_amount::text, COALESCE(parent_order_id, ''), created_at
FROM orders`

// AppendOrder writes a journal entry. Empty portfolio, asset and parent
// references are stored as NULL.
func (t *pgTx) AppendOrder(ctx context.Context, r *domain.OrderRecord) error {
	ok, err := t.exists(ctx, `SELECT 1 FROM users WHERE user_id = $1`, r.UserID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	if _, err := t.tx.Exec(ctx, `
INSERT INTO orders (
    order_id, user_id, portfolio_id, asset_id, symbol, type, source, status,
    quantity, unit_price, total_amount, parent_order_id, created_at
)
VALUES (
    @order_id, @user_id, NULLIF(@portfolio_id, ''), NULLIF(@asset_id, ''), @symbol, @type, @source, @status,
    @quantity, @unit_price, @total_amount, NULLIF(@parent_order_id, ''), @created_at
)`,
		pgx.NamedArgs{
			"order_id":        r.OrderID,
			"user_id":         r.UserID,
			"portfolio_id":    r.PortfolioID,
			"asset_id":        r.AssetID,
			"symbol":          r.Symbol,
			"type":            string(r.Type),
			"source":          string(r.Source),
			"status":          r.Status,
			"quantity":        numeric(r.Quantity),
			"unit_price":      numeric(r.UnitPrice),
			"total_amount":    numeric(r.TotalAmount),
			"parent_order_id": r.ParentOrderID,
			"created_at":      r.CreatedAt,
		}); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// ListOrders returns matching journal entries newest first.
func (t *pgTx) ListOrders(ctx context.Context, q store.OrderQuery) ([]*domain.OrderRecord, error) {
	builder := strings.Builder{}
	builder.WriteString(orderSelect)
	builder.WriteString(" WHERE 1=1")

	args := make([]any, 0, 3)
	argPos := 1
	if q.UserID != "" {
		fmt.Fprintf(&builder, " AND user_id = $%d", argPos)
		args = append(args, q.UserID)
		argPos++
	}
	if q.PortfolioID != "" {
		fmt.Fprintf(&builder, " AND portfolio_id = $%d", argPos)
		args = append(args, q.PortfolioID)
		argPos++
	}
	builder.WriteString(" ORDER BY created_at DESC, order_id DESC")
	if q.Limit > 0 {
		fmt.Fprintf(&builder, " LIMIT $%d", argPos)
		args = append(args, q.Limit)
	}

	rows, err := t.tx.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.OrderRecord, 0)
	for rows.Next() {
		var (
			r        domain.OrderRecord
			typ, src string
		)
		if err := rows.Scan(
			&r.OrderID,
			&r.UserID,
			&r.PortfolioID,
			&r.AssetID,
			&r.Symbol,
			&typ,
			&src,
			&r.Status,
			&r.Quantity,
			&r.UnitPrice,
			&r.TotalAmount,
			&r.ParentOrderID,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		r.Type = domain.RecordType(typ)
		r.Source = domain.RecordSource(src)
		result = append(result, &r)
	}
	return result, rows.Err()
}

func (t *pgTx) DeleteOrders(ctx context.Context, portfolioID string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE portfolio_id = $1`, portfolioID); err != nil {
		return fmt.Errorf("delete orders: %w", err)
	}
	return nil
}
