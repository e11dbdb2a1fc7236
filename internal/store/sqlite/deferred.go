package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/shopspring/decimal"
)

const limitColumns = `order_id, user_id, portfolio_id, asset_id, symbol, class, direction, target_price, quantity,
	reserved_amount, status, filled_price, filled_at, cancelled_at, cancel_reason, created_at, updated_at`

const stopColumns = `order_id, user_id, portfolio_id, asset_id, symbol, class, direction, stop_price, quantity,
	status, filled_price, triggered_at, filled_at, cancelled_at, cancel_reason, created_at, updated_at`

func deferredFilter(q store.DeferredQuery) (string, []any) {
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
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (t *liteTx) checkPortfolio(ctx context.Context, portfolioID string) error {
	ok, err := t.exists(ctx, `SELECT 1 FROM portfolios WHERE portfolio_id = ?`, portfolioID)
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
func (t *liteTx) conditionalResult(ctx context.Context, res sql.Result, table, orderID string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	ok, err := t.exists(ctx, `SELECT 1 FROM `+table+` WHERE order_id = ?`, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return domain.ErrConcurrencyConflict
}

func (t *liteTx) CreateLimitOrder(ctx context.Context, o *domain.LimitOrder) error {
	if err := t.checkPortfolio(ctx, o.PortfolioID); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO limit_orders (`+limitColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.UserID, o.PortfolioID, o.AssetID, o.Symbol, string(o.Class), string(o.Direction),
		o.TargetPrice.String(), o.Quantity.String(), o.ReservedAmount.String(), string(o.Status),
		o.FilledPrice.String(), nullMicros(o.FilledAt), nullMicros(o.CancelledAt), string(o.CancelReason),
		micros(o.CreatedAt), micros(o.UpdatedAt)); err != nil {
		return fmt.Errorf("insert limit order: %w", err)
	}
	return nil
}

func (t *liteTx) GetLimitOrder(ctx context.Context, orderID string) (*domain.LimitOrder, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+limitColumns+` FROM limit_orders WHERE order_id = ?`, orderID)
	o, err := scanLimitOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLimitOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select limit order: %w", err)
	}
	return o, nil
}

// UpdateLimitOrder persists a transition out of pending.
func (t *liteTx) UpdateLimitOrder(ctx context.Context, o *domain.LimitOrder) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE limit_orders
		 SET status = ?, filled_price = ?, filled_at = ?, cancelled_at = ?, cancel_reason = ?, updated_at = ?
		 WHERE order_id = ? AND status = ?`,
		string(o.Status), o.FilledPrice.String(), nullMicros(o.FilledAt), nullMicros(o.CancelledAt),
		string(o.CancelReason), micros(o.UpdatedAt), o.OrderID, string(domain.OrderStatusPending))
	if err != nil {
		return fmt.Errorf("update limit order: %w", err)
	}
	return t.conditionalResult(ctx, res, "limit_orders", o.OrderID, domain.ErrLimitOrderNotFound)
}

// ListLimitOrders returns matching orders oldest first.
func (t *liteTx) ListLimitOrders(ctx context.Context, q store.DeferredQuery) ([]*domain.LimitOrder, error) {
	where, args := deferredFilter(q)
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+limitColumns+` FROM limit_orders`+where+` ORDER BY created_at, order_id`, args...)
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

func (t *liteTx) DeleteLimitOrders(ctx context.Context, portfolioID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM limit_orders WHERE portfolio_id = ?`, portfolioID); err != nil {
		return fmt.Errorf("delete limit orders: %w", err)
	}
	return nil
}

// ReservedCash sums the reservations of the user's pending buy orders.
// Amounts are TEXT, so the sum happens here rather than in SQL.
func (t *liteTx) ReservedCash(ctx context.Context, userID string) (decimal.Decimal, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT reserved_amount FROM limit_orders WHERE user_id = ? AND status = ? AND direction = ?`,
		userID, string(domain.OrderStatusPending), string(domain.DirectionBuy))
	if err != nil {
		return decimal.Zero, fmt.Errorf("select reservations: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan reservation: %w", err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

func scanLimitOrder(row rowScanner) (*domain.LimitOrder, error) {
	var (
		o                      domain.LimitOrder
		class, dir, status, cr string
		filledAt, cancelledAt  sql.NullInt64
		created, updated       int64
	)
	if err := row.Scan(&o.OrderID, &o.UserID, &o.PortfolioID, &o.AssetID, &o.Symbol, &class, &dir,
		&o.TargetPrice, &o.Quantity, &o.ReservedAmount, &status, &o.FilledPrice,
		&filledAt, &cancelledAt, &cr, &created, &updated); err != nil {
		return nil, err
	}
	o.Class = domain.AssetClass(class)
	o.Direction = domain.Direction(dir)
	o.Status = domain.OrderStatus(status)
	o.CancelReason = domain.CancelReason(cr)
	o.FilledAt = timePtr(filledAt)
	o.CancelledAt = timePtr(cancelledAt)
	o.CreatedAt = fromMicros(created)
	o.UpdatedAt = fromMicros(updated)
	return &o, nil
}

func (t *liteTx) CreateStopOrder(ctx context.Context, o *domain.StopOrder) error {
	if err := t.checkPortfolio(ctx, o.PortfolioID); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO stop_orders (`+stopColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.UserID, o.PortfolioID, o.AssetID, o.Symbol, string(o.Class), string(o.Direction),
		o.StopPrice.String(), o.Quantity.String(), string(o.Status), o.FilledPrice.String(),
		nullMicros(o.TriggeredAt), nullMicros(o.FilledAt), nullMicros(o.CancelledAt), string(o.CancelReason),
		micros(o.CreatedAt), micros(o.UpdatedAt)); err != nil {
		return fmt.Errorf("insert stop order: %w", err)
	}
	return nil
}

func (t *liteTx) GetStopOrder(ctx context.Context, orderID string) (*domain.StopOrder, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+stopColumns+` FROM stop_orders WHERE order_id = ?`, orderID)
	o, err := scanStopOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStopOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select stop order: %w", err)
	}
	return o, nil
}

// UpdateStopOrder persists a transition out of pending.
func (t *liteTx) UpdateStopOrder(ctx context.Context, o *domain.StopOrder) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE stop_orders
		 SET status = ?, filled_price = ?, triggered_at = ?, filled_at = ?, cancelled_at = ?, cancel_reason = ?, updated_at = ?
		 WHERE order_id = ? AND status = ?`,
		string(o.Status), o.FilledPrice.String(), nullMicros(o.TriggeredAt), nullMicros(o.FilledAt),
		nullMicros(o.CancelledAt), string(o.CancelReason), micros(o.UpdatedAt),
		o.OrderID, string(domain.OrderStatusPending))
	if err != nil {
		return fmt.Errorf("update stop order: %w", err)
	}
	return t.conditionalResult(ctx, res, "stop_orders", o.OrderID, domain.ErrStopOrderNotFound)
}

// ListStopOrders returns matching orders oldest first.
func (t *liteTx) ListStopOrders(ctx context.Context, q store.DeferredQuery) ([]*domain.StopOrder, error) {
	where, args := deferredFilter(q)
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+stopColumns+` FROM stop_orders`+where+` ORDER BY created_at, order_id`, args...)
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

func (t *liteTx) DeleteStopOrders(ctx context.Context, portfolioID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM stop_orders WHERE portfolio_id = ?`, portfolioID); err != nil {
		return fmt.Errorf("delete stop orders: %w", err)
	}
	return nil
}

func scanStopOrder(row rowScanner) (*domain.StopOrder, error) {
	var (
		o                                  domain.StopOrder
		class, dir, status, cr             string
		triggeredAt, filledAt, cancelledAt sql.NullInt64
		created, updated                   int64
	)
	if err := row.Scan(&o.OrderID, &o.UserID, &o.PortfolioID, &o.AssetID, &o.Symbol, &class, &dir,
		&o.StopPrice, &o.Quantity, &status, &o.FilledPrice,
		&triggeredAt, &filledAt, &cancelledAt, &cr, &created, &updated); err != nil {
		return nil, err
	}
	o.Class = domain.AssetClass(class)
	o.Direction = domain.Direction(dir)
	o.Status = domain.OrderStatus(status)
	o.CancelReason = domain.CancelReason(cr)
	o.TriggeredAt = timePtr(triggeredAt)
	o.FilledAt = timePtr(filledAt)
	o.CancelledAt = timePtr(cancelledAt)
	o.CreatedAt = fromMicros(created)
	o.UpdatedAt = fromMicros(updated)
	return &o, nil
}
