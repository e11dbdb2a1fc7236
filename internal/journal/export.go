package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
)

// Row is the columnar form of a journal entry. Amounts are kept as
// decimal strings so no precision is lost.
type Row struct {
	OrderID       string `parquet:"order_id"`
	UserID        string `parquet:"user_id"`
	PortfolioID   string `parquet:"portfolio_id,optional"`
	AssetID       string `parquet:"asset_id,optional"`
	Symbol        string `parquet:"symbol"`
	Type          string `parquet:"type"`
	Source        string `parquet:"source"`
	Status        string `parquet:"status"`
	Quantity      string `parquet:"quantity"`
	UnitPrice     string `parquet:"unit_price"`
	TotalAmount   string `parquet:"total_amount"`
	ParentOrderID string `parquet:"parent_order_id,optional"`
	CreatedAt     int64  `parquet:"created_at,timestamp(microsecond)"` // Unix µs
}

// ToRow converts a journal entry to its columnar form.
func ToRow(r *domain.OrderRecord) Row {
	return Row{
		OrderID:       r.OrderID,
		UserID:        r.UserID,
		PortfolioID:   r.PortfolioID,
		AssetID:       r.AssetID,
		Symbol:        r.Symbol,
		Type:          string(r.Type),
		Source:        string(r.Source),
		Status:        r.Status,
		Quantity:      r.Quantity.String(),
		UnitPrice:     r.UnitPrice.String(),
		TotalAmount:   r.TotalAmount.String(),
		ParentOrderID: r.ParentOrderID,
		CreatedAt:     r.CreatedAt.UnixMicro(),
	}
}

// FromRow converts a columnar row back to a journal entry.
func FromRow(row Row) (*domain.OrderRecord, error) {
	qty, err := decimal.NewFromString(row.Quantity)
	if err != nil {
		return nil, fmt.Errorf("row %s quantity: %w", row.OrderID, err)
	}
	price, err := decimal.NewFromString(row.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("row %s unit_price: %w", row.OrderID, err)
	}
	total, err := decimal.NewFromString(row.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("row %s total_amount: %w", row.OrderID, err)
	}
	return &domain.OrderRecord{
		OrderID:       row.OrderID,
		UserID:        row.UserID,
		PortfolioID:   row.PortfolioID,
		AssetID:       row.AssetID,
		Symbol:        row.Symbol,
		Type:          domain.RecordType(row.Type),
		Source:        domain.RecordSource(row.Source),
		Status:        row.Status,
		Quantity:      qty,
		UnitPrice:     price,
		TotalAmount:   total,
		ParentOrderID: row.ParentOrderID,
		CreatedAt:     time.UnixMicro(row.CreatedAt).UTC(),
	}, nil
}

// WriteParquet writes records to a parquet file at path, creating parent
// directories as needed.
func WriteParquet(path string, records []*domain.OrderRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = ToRow(r)
	}
	return parquet.WriteFile(path, rows)
}

// ReadParquet loads journal entries written by WriteParquet.
func ReadParquet(path string) ([]*domain.OrderRecord, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.OrderRecord, 0, len(rows))
	for _, row := range rows {
		r, err := FromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
