package domain

import "time"

// WatchlistItem marks an asset as watched by a user. A user watches an
// asset at most once.
type WatchlistItem struct {
	UserID    string
	AssetID   string
	CreatedAt time.Time
}
