package domain

import (
	"regexp"
	"time"
)

// AssetClass selects the price source for an asset.
type AssetClass string

const (
	AssetClassEquity AssetClass = "equity"
	AssetClassCrypto AssetClass = "crypto"
)

// Valid reports whether c is a known asset class.
func (c AssetClass) Valid() bool {
	return c == AssetClassEquity || c == AssetClassCrypto
}

// CashSymbol is the pseudo-symbol recorded on deposit and withdrawal
// journal entries.
const CashSymbol = "CASH"

var symbolRegex = regexp.MustCompile(`^[A-Z][A-Z0-9.]{0,14}$`)

// ValidSymbol reports whether s is a well-formed ticker symbol.
func ValidSymbol(s string) bool {
	return symbolRegex.MatchString(s)
}

// Asset is immutable reference data for a tradable instrument.
type Asset struct {
	AssetID   string
	Symbol    string
	Name      string
	Class     AssetClass
	Active    bool
	CreatedAt time.Time
}
