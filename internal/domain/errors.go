package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every "missing entity" error so callers can
// match the whole family with errors.Is.
var ErrNotFound = errors.New("not_found")

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrUserNotFound       = fmt.Errorf("user_%w", ErrNotFound)
	ErrPortfolioNotFound  = fmt.Errorf("portfolio_%w", ErrNotFound)
	ErrAssetNotFound      = fmt.Errorf("asset_%w", ErrNotFound)
	ErrHoldingNotFound    = fmt.Errorf("holding_%w", ErrNotFound)
	ErrOrderNotFound      = fmt.Errorf("order_%w", ErrNotFound)
	ErrLimitOrderNotFound = fmt.Errorf("limit_order_%w", ErrNotFound)
	ErrStopOrderNotFound  = fmt.Errorf("stop_order_%w", ErrNotFound)

	ErrWatchlistItemNotFound = fmt.Errorf("watchlist_item_%w", ErrNotFound)

	ErrUserAlreadyExists    = errors.New("user_already_exists")
	ErrAssetAlreadyExists   = errors.New("asset_already_exists")
	ErrWatchlistItemExists  = errors.New("watchlist_item_already_exists")
	ErrInsufficientFunds    = errors.New("insufficient_funds")
	ErrInsufficientHoldings = errors.New("insufficient_holdings")
	ErrOracleUnavailable    = errors.New("oracle_unavailable")
	ErrConcurrencyConflict  = errors.New("concurrency_conflict")
	ErrAssetInactive        = errors.New("asset_inactive")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid builds a ValidationError with a formatted message.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
