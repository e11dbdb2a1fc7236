package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a trade instruction.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Valid reports whether d is buy or sell.
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// RecordType is the kind of settled transaction stored in the journal.
type RecordType string

const (
	RecordTypeBuy      RecordType = "buy"
	RecordTypeSell     RecordType = "sell"
	RecordTypeDeposit  RecordType = "deposit"
	RecordTypeWithdraw RecordType = "withdraw"
)

// RecordSource identifies which path produced a journal entry.
type RecordSource string

const (
	SourceMarket RecordSource = "market"
	SourceLimit  RecordSource = "limit"
	SourceStop   RecordSource = "stop"
	SourceCash   RecordSource = "cash"
)

// RecordStatusCompleted is the only status a journal entry can have;
// entries are written once the transaction has settled.
const RecordStatusCompleted = "completed"

// OrderRecord is an immutable journal entry for a settled transaction.
// PortfolioID and AssetID are empty for cash movements. ParentOrderID
// references the limit or stop order that produced a deferred fill.
type OrderRecord struct {
	OrderID       string
	UserID        string
	PortfolioID   string
	AssetID       string
	Symbol        string
	Type          RecordType
	Source        RecordSource
	Status        string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	TotalAmount   decimal.Decimal
	ParentOrderID string
	CreatedAt     time.Time
}

// RecordTypeFor maps a trade direction to its journal record type.
func RecordTypeFor(d Direction) RecordType {
	if d == DirectionSell {
		return RecordTypeSell
	}
	return RecordTypeBuy
}
