package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a price observation for one symbol. Historical candles use the
// same shape with Price set to the close.
type Quote struct {
	Symbol        string
	Class         AssetClass
	Price         decimal.Decimal
	Open          decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	PreviousClose decimal.Decimal
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
	Volume        int64
	Timestamp     time.Time
}

// WithChange fills Change and ChangePercent relative to base.
func (q Quote) WithChange(base decimal.Decimal) Quote {
	if base.IsZero() {
		return q
	}
	q.Change = q.Price.Sub(base)
	q.ChangePercent = Percent(q.Change, base)
	return q
}
