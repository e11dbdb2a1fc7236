package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// alpacaAPI is the subset of the Alpaca market data client used here.
type alpacaAPI interface {
	GetSnapshot(symbol string, req marketdata.GetSnapshotRequest) (*marketdata.Snapshot, error)
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// AlpacaSource serves equity quotes from Alpaca market data.
type AlpacaSource struct {
	client alpacaAPI
	feed   marketdata.Feed
}

// NewAlpacaSource creates an AlpacaSource. An empty dataURL keeps the
// client's default endpoint.
func NewAlpacaSource(apiKey, apiSecret, dataURL string) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaSource{client: marketdata.NewClient(opts), feed: "iex"}
}

// Quote implements Source.
func (s *AlpacaSource) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, err
	}
	snap, err := s.client.GetSnapshot(symbol, marketdata.GetSnapshotRequest{Feed: s.feed})
	if err != nil {
		return domain.Quote{}, fmt.Errorf("alpaca snapshot %s: %w", symbol, err)
	}
	return quoteFromSnapshot(symbol, snap)
}

// History implements Source.
func (s *AlpacaSource) History(ctx context.Context, symbol, resolution string, from, to time.Time) ([]domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := s.client.GetMultiBars([]string{symbol}, marketdata.GetBarsRequest{
		TimeFrame: alpacaTimeFrame(resolution),
		Start:     from,
		End:       to,
		Feed:      s.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}
	return quotesFromBars(symbol, bars[symbol]), nil
}

func quoteFromSnapshot(symbol string, snap *marketdata.Snapshot) (domain.Quote, error) {
	if snap == nil {
		return domain.Quote{}, fmt.Errorf("alpaca snapshot %s: empty", symbol)
	}
	var q domain.Quote
	q.Symbol = symbol
	switch {
	case snap.LatestTrade != nil && snap.LatestTrade.Price > 0:
		q.Price = decimal.NewFromFloat(snap.LatestTrade.Price)
		q.Timestamp = snap.LatestTrade.Timestamp.UTC()
	case snap.DailyBar != nil && snap.DailyBar.Close > 0:
		q.Price = decimal.NewFromFloat(snap.DailyBar.Close)
		q.Timestamp = snap.DailyBar.Timestamp.UTC()
	default:
		return domain.Quote{}, fmt.Errorf("alpaca snapshot %s: no price", symbol)
	}
	q.Open = q.Price
	if bar := snap.DailyBar; bar != nil {
		q.Open = decimal.NewFromFloat(bar.Open)
		q.High = decimal.NewFromFloat(bar.High)
		q.Low = decimal.NewFromFloat(bar.Low)
		q.Volume = int64(bar.Volume)
	}
	q.PreviousClose = q.Open
	if prev := snap.PrevDailyBar; prev != nil && prev.Close > 0 {
		q.PreviousClose = decimal.NewFromFloat(prev.Close)
	}
	return q.WithChange(q.PreviousClose), nil
}

func quotesFromBars(symbol string, bars []marketdata.Bar) []domain.Quote {
	out := make([]domain.Quote, 0, len(bars))
	for _, b := range bars {
		open := decimal.NewFromFloat(b.Open)
		q := domain.Quote{
			Symbol:        symbol,
			Price:         decimal.NewFromFloat(b.Close),
			Open:          open,
			High:          decimal.NewFromFloat(b.High),
			Low:           decimal.NewFromFloat(b.Low),
			PreviousClose: open,
			Volume:        int64(b.Volume),
			Timestamp:     b.Timestamp.UTC(),
		}
		out = append(out, q.WithChange(open))
	}
	return out
}

func alpacaTimeFrame(r string) marketdata.TimeFrame {
	switch strings.ToUpper(strings.TrimSpace(r)) {
	case "1", "1MIN", "1M":
		return marketdata.OneMin
	case "5", "5MIN":
		return marketdata.NewTimeFrame(5, marketdata.Min)
	case "15", "15MIN":
		return marketdata.NewTimeFrame(15, marketdata.Min)
	case "30", "30MIN":
		return marketdata.NewTimeFrame(30, marketdata.Min)
	case "60", "1H", "1HOUR", "1HR":
		return marketdata.OneHour
	case "W", "1W", "WEEK", "WEEKLY":
		return marketdata.NewTimeFrame(1, marketdata.Week)
	case "MO", "1MO", "MONTH", "MONTHLY":
		return marketdata.NewTimeFrame(1, marketdata.Month)
	default:
		return marketdata.OneDay
	}
}
