package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const limitSelect = `
SELECT order_id, user_id, portfolio_id, asset_id, symbol, class, direction,
       target_price::text, quantity::text, reserved_amount::text, status, filled_price::text,
       filled_at, cancelled_at, cancel_reason, created_at, updated_at
FROM limit_orders`

const stopSelect = `
SELECT order_id, user_id, portfolio_id, asset_id, symbol, class, direction,
       stop_price::text, quantity::text, status, filled_price::text,
       triggered_at, filled_at, cancelled_at, cancel_reason, created_at, updated_at
FROM stop_orders`

func deferredFilter(q store.DeferredQuery) (string, []any) {
	builder := strings.Builder{}
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
	if q.Status != "" {
		fmt.Fprintf(&builder, " AND status = $%d", argPos)
		args = append(args, string(q.Status))
	}
	return builder.String(), args
}

func (t *pgTx) checkPortfolio(ctx context.Context, portfolioID string) error {
	ok, err := t.exists(ctx, `SELECT 1 FROM portfolios WHERE portfolio_id = $1`, portfolioID)
	if err != nil {
		return fmt.Errorf("check portfolio: %w", err)
	}
	if !ok {
		return domain.ErrPortfolioNotFound
	}
	return nil
}

// conditionalResult turns a zero-row conditional update into not-found
// or a concurrency conflict.
func (t *pgTx) conditionalResult(ctx context.Context, tag pgconn.CommandTag, table, orderID string, notFound error) error {
	if tag.RowsAffected() == 1 {
		return nil
	}
	ok, err := t.exists(ctx, `SELECT 1 FROM `+table+` WHERE order_id = $1`, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return domain.ErrConcurrencyConflict
}

func (t *pgTx) CreateLimitOrder(ctx context.Context, o *domain.LimitOrder) error {
	if err := t.checkPortfolio(ctx, o.PortfolioID); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `
INSERT INTO limit_orders (
    order_id, user_id, portfolio_id, asset_id, symbol, class, direction,
    target_price, quantity, reserved_amount, status, filled_price,
    filled_at, cancelled_at, cancel_reason, created_at, updated_at
)
VALUES (
    @order_id, @user_id, @portfolio_id, @asset_id, @symbol, @class, @direction,
    @target_price, @quantity, @reserved_amount, @status, @filled_price,
    @filled_at, @cancelled_at, @cancel_reason, @created_at, @updated_at
)`,
		pgx.NamedArgs{
			"order_id":        o.OrderID,
			"user_id":         o.UserID,
			"portfolio_id":    o.PortfolioID,
			"asset_id":        o.AssetID,
			"symbol":          o.Symbol,
			"class":           string(o.Class),
			"direction":       string(o.Direction),
			"target_price":    numeric(o.TargetPrice),
			"quantity":        numeric(o.Quantity),
			"reserved_amount": numeric(o.ReservedAmount),
			"status":          string(o.Status),
			"filled_price":    numeric(o.FilledPrice),
			"filled_at":       o.FilledAt,
			"cancelled_at":    o.CancelledAt,
			"cancel_reason":   string(o.CancelReason),
			"created_at":      o.CreatedAt,
			"updated_at":      o.UpdatedAt,
		}); err != nil {
		return fmt.Errorf("insert limit order: %w", err)
	}
	return nil
}

// GetLimitOrder reads the order and locks it for the rest of the
// transaction.
func (t *pgTx) GetLimitOrder(ctx context.Context, orderID string) (*domain.LimitOrder, error) {
	o, err := scanLimitOrder(t.tx.QueryRow(ctx, limitSelect+` WHERE order_id = $1 FOR UPDATE`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLimitOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select limit order: %w", err)
	}
	return o, nil
}

// UpdateLimitOrder persists a transition out of pending.
func (t *pgTx) UpdateLimitOrder(ctx context.Context, o *domain.LimitOrder) error {
	tag, err := t.tx.Exec(ctx, `
UPDATE limit_orders
SET status = @status,
    filled_price = @filled_price,
    filled_at = @filled_at,
    cancelled_at = @cancelled_at,
    cancel_reason = @cancel_reason,
    updated_at = @updated_at
WHERE order_id = @order_id AND status = @pending`,
		pgx.NamedArgs{
			"order_id":      o.OrderID,
			"status":        string(o.Status),
			"filled_price":  numeric(o.FilledPrice),
			"filled_at":     o.FilledAt,
			"cancelled_at":  o.CancelledAt,
			"cancel_reason": string(o.CancelReason),
			"updated_at":    o.UpdatedAt,
			"pending":       string(domain.OrderStatusPending),
		})
	if err != nil {
		return fmt.Errorf("update limit order: %w", err)
	}
	return t.conditionalResult(ctx, tag, "limit_orders", o.OrderID, domain.ErrLimitOrderNotFound)
}

// ListLimitOrders returns matching orders oldest first.
func (t *pgTx) ListLimitOrders(ctx context.Context, q store.DeferredQuery) ([]*domain.LimitOrder, error) {
	where, args := deferredFilter(q)
	rows, err := t.tx.Query(ctx, limitSelect+where+` ORDER BY created_at, order_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list limit orders: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.LimitOrder, 0)
	for rows.Next() {
		o, err := scanLimitOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan limit order: %w", err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (t *pgTx) DeleteLimitOrders(ctx context.Context, portfolioID string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM limit_orders WHERE portfolio_id = $1`, portfolioID); err != nil {
		return fmt.Errorf("delete limit orders: %w", err)
	}
	return nil
}

// ReservedCash sums the reservations of the user's pending buy orders.
func (t *pgTx) ReservedCash(ctx context.Context, userID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.tx.QueryRow(ctx, `
SELECT COALESCE(SUM(reserved_amount), 0)::text
FROM limit_orders
WHERE user_id = $1 AND status = $2 AND direction = $3`,
		userID, string(domain.OrderStatusPending), string(domain.DirectionBuy)).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum reservations: %w", err)
	}
	return total, nil
}

func scanLimitOrder(row pgx.Row) (*domain.LimitOrder, error) {
	var (
		o                      domain.LimitOrder
		class, dir, status, cr string
	)
	if err := row.Scan(
		&o.OrderID,
		&o.UserID,
		&o.PortfolioID,
		&o.AssetID,
		&o.Symbol,
		&class,
		&dir,
		&o.TargetPrice,
		&o.Quantity,
		&o.ReservedAmount,
		&status,
		&o.FilledPrice,
		&o.FilledAt,
		&o.CancelledAt,
		&cr,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Class = domain.AssetClass(class)
	o.Direction = domain.Direction(dir)
	o.Status = domain.OrderStatus(status)
	o.CancelReason = domain.CancelReason(cr)
	return &o, nil
}

func (t *pgTx) CreateStopOrder(ctx context.Context, o *domain.StopOrder) error {
	if err := t.checkPortfolio(ctx, o.PortfolioID); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `
INSERT INTO stop_orders (
    order_id, user_id, portfolio_id, asset_id, symbol, class, direction,
    stop_price, quantity, status, filled_price,
    triggered_at, filled_at, cancelled_at, cancel_reason, created_at, updated_at
)
VALUES (
    @order_id, @user_id, @portfolio_id, @asset_id, @symbol, @class, @direction,
    @stop_price, @quantity, @status, @filled_price,
    @triggered_at, @filled_at, @cancelled_at, @cancel_reason, @created_at, @updated_at
)`,
		pgx.NamedArgs{
			"order_id":      o.OrderID,
			"user_id":       o.UserID,
			"portfolio_id":  o.PortfolioID,
			"asset_id":      o.AssetID,
			"symbol":        o.Symbol,
			"class":         string(o.Class),
			"direction":     string(o.Direction),
			"stop_price":    numeric(o.StopPrice),
			"quantity":      numeric(o.Quantity),
			"status":        string(o.Status),
			"filled_price":  numeric(o.FilledPrice),
			"triggered_at":  o.TriggeredAt,
			"filled_at":     o.FilledAt,
			"cancelled_at":  o.CancelledAt,
			"cancel_reason": string(o.CancelReason),
			"created_at":    o.CreatedAt,
			"updated_at":    o.UpdatedAt,
		}); err != nil {
		return fmt.Errorf("insert stop order: %w", err)
	}
	return nil
}

// GetStopOrder reads the order and locks it for the rest of the
// transaction.
func (t *pgTx) GetStopOrder(ctx context.Context, orderID string) (*domain.StopOrder, error) {
	o, err := scanStopOrder(t.tx.QueryRow(ctx, stopSelect+` WHERE order_id = $1 FOR UPDATE`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStopOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select stop order: %w", err)
	}
	return o, nil
}

// UpdateStopOrder persists a transition out of pending.
func (t *pgTx) UpdateStopOrder(ctx context.Context, o *domain.StopOrder) error {
	tag, err := t.tx.Exec(ctx, `
UPDATE stop_orders
SET status = @status,
    filled_price = @filled_price,
    triggered_at = @triggered_at,
    filled_at = @filled_at,
    cancelled_at = @cancelled_at,
    cancel_reason = @cancel_reason,
    updated_at = @updated_at
WHERE order_id = @order_id AND status = @pending`,
		pgx.NamedArgs{
			"order_id":      o.OrderID,
			"status":        string(o.Status),
			"filled_price":  numeric(o.FilledPrice),
			"triggered_at":  o.TriggeredAt,
			"filled_at":     o.FilledAt,
			"cancelled_at":  o.CancelledAt,
			"cancel_reason": string(o.CancelReason),
			"updated_at":    o.UpdatedAt,
			"pending":       string(domain.OrderStatusPending),
		})
	if err != nil {
		return fmt.Errorf("update stop order: %w", err)
	}
	return t.conditionalResult(ctx, tag, "stop_orders", o.OrderID, domain.ErrStopOrderNotFound)
}

// ListStopOrders returns matching orders oldest first.
func (t *pgTx) ListStopOrders(ctx context.Context, q store.DeferredQuery) ([]*domain.StopOrder, error) {
	where, args := deferredFilter(q)
	rows, err := t.tx.Query(ctx, stopSelect+where+` ORDER BY created_at, order_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list stop orders: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.StopOrder, 0)
	for rows.Next() {
		o, err := scanStopOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stop order: %w", err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (t *pgTx) DeleteStopOrders(ctx context.Context, portfolioID string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM stop_orders WHERE portfolio_id = $1`, portfolioID); err != nil {
		return fmt.Errorf("delete stop orders: %w", err)
	}
	return nil
}

func scanStopOrder(row pgx.Row) (*domain.StopOrder, error) {
	var (
		o                      domain.StopOrder
		class, dir, status, cr string
	)
	if err := row.Scan(
		&o.OrderID,
		&o.UserID,
		&o.PortfolioID,
		&o.AssetID,
		&o.Symbol,
		&class,
		&dir,
		&o.StopPrice,
		&o.Quantity,
		&status,
		&o.FilledPrice,
		&o.TriggeredAt,
		&o.FilledAt,
		&o.CancelledAt,
		&cr,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Class = domain.AssetClass(class)
	o.Direction = domain.Direction(dir)
	o.Status = domain.OrderStatus(status)
	o.CancelReason = domain.CancelReason(cr)
	return &o, nil
}
