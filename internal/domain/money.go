package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fixed scales for persisted amounts. Currency values carry 4 fractional
// digits and quantities carry 8. All rounding is half away from zero,
// which is half-up for the non-negative values the engine produces.
const (
	CurrencyScale int32 = 4
	QuantityScale int32 = 8
)

var hundred = decimal.NewFromInt(100)

// RoundCurrency rounds d to CurrencyScale digits.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyScale)
}

// RoundQuantity rounds d to QuantityScale digits.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityScale)
}

// Notional returns price × quantity rounded to currency scale.
func Notional(price, quantity decimal.Decimal) decimal.Decimal {
	return RoundCurrency(price.Mul(quantity))
}

// WeightedAverage returns the average cost after adding addQty units at
// price to a position of oldQty units held at oldAvg.
func WeightedAverage(oldQty, oldAvg, addQty, price decimal.Decimal) decimal.Decimal {
	total := oldQty.Add(addQty)
	if !total.IsPositive() {
		return decimal.Zero
	}
	cost := oldQty.Mul(oldAvg).Add(addQty.Mul(price))
	return cost.DivRound(total, CurrencyScale)
}

// Places returns the number of significant fractional digits of d,
// ignoring trailing zeros.
func Places(d decimal.Decimal) int32 {
	var p int32
	for !d.Truncate(p).Equal(d) {
		p++
	}
	return p
}

// AffordableQuantity returns floor(cash / price) truncated to the given
// number of fractional digits.
func AffordableQuantity(cash, price decimal.Decimal, places int32) decimal.Decimal {
	if !price.IsPositive() || !cash.IsPositive() {
		return decimal.Zero
	}
	q, _ := cash.QuoRem(price, places)
	return q
}

// Percent returns part / base as a percentage, with the ratio rounded to
// 4 digits before scaling. A zero base yields zero.
func Percent(part, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return part.DivRound(base, 4).Mul(hundred)
}

// ParseAmount parses a strictly positive currency amount with at most
// CurrencyScale fractional digits.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	return parsePositive(field, s, CurrencyScale)
}

// ParseQuantity parses a strictly positive quantity with at most
// QuantityScale fractional digits.
func ParseQuantity(field, s string) (decimal.Decimal, error) {
	return parsePositive(field, s, QuantityScale)
}

func parsePositive(field, s string, scale int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Invalid("%s must be a decimal number", field)
	}
	if err := CheckPositive(field, d, scale); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CheckPositive validates that d is greater than zero and carries at most
// scale fractional digits.
func CheckPositive(field string, d decimal.Decimal, scale int32) error {
	if !d.IsPositive() {
		return Invalid("%s must be greater than 0", field)
	}
	if Places(d) > scale {
		return &ValidationError{Message: fmt.Sprintf("%s must have at most %d decimal places", field, scale)}
	}
	return nil
}
