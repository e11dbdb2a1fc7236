package oracle

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultFinnhubURL is the public Finnhub REST endpoint.
const DefaultFinnhubURL = "https://finnhub.io/api/v1"

// FinnhubSource serves equity quotes from Finnhub.
type FinnhubSource struct {
	client *jsonClient
	apiKey string
	now    func() time.Time
}

// NewFinnhubSource creates a FinnhubSource. An empty baseURL selects
// DefaultFinnhubURL.
func NewFinnhubSource(baseURL, apiKey string, timeout time.Duration, ratePerMinute int) *FinnhubSource {
	if baseURL == "" {
		baseURL = DefaultFinnhubURL
	}
	return &FinnhubSource{
		client: newJSONClient(strings.TrimRight(baseURL, "/"), timeout, ratePerMinute),
		apiKey: apiKey,
		now:    time.Now,
	}
}

type finnhubQuote struct {
	Current       decimal.Decimal  `json:"c"`
	Open          decimal.Decimal  `json:"o"`
	High          decimal.Decimal  `json:"h"`
	Low           decimal.Decimal  `json:"l"`
	PreviousClose decimal.Decimal  `json:"pc"`
	Volume        *decimal.Decimal `json:"v"`
	Timestamp     int64            `json:"t"`
}

type finnhubCandles struct {
	Status string            `json:"s"`
	Time   []int64           `json:"t"`
	Open   []decimal.Decimal `json:"o"`
	High   []decimal.Decimal `json:"h"`
	Low    []decimal.Decimal `json:"l"`
	Close  []decimal.Decimal `json:"c"`
	Volume []decimal.Decimal `json:"v"`
}

// Quote implements Source.
func (s *FinnhubSource) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	var raw finnhubQuote
	q := url.Values{"symbol": {symbol}, "token": {s.apiKey}}
	if err := s.client.getJSON(ctx, "/quote", q, &raw); err != nil {
		return domain.Quote{}, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}
	if !raw.Current.IsPositive() {
		return domain.Quote{}, fmt.Errorf("finnhub quote %s: no price", symbol)
	}

	open := raw.Open
	if open.IsZero() {
		open = raw.Current
	}
	prev := raw.PreviousClose
	if prev.IsZero() {
		prev = open
	}
	quote := domain.Quote{
		Symbol:        symbol,
		Price:         raw.Current,
		Open:          open,
		High:          raw.High,
		Low:           raw.Low,
		PreviousClose: prev,
		Timestamp:     s.now().UTC(),
	}
	if raw.Volume != nil {
		quote.Volume = raw.Volume.IntPart()
	}
	if raw.Timestamp > 0 {
		quote.Timestamp = time.Unix(raw.Timestamp, 0).UTC()
	}
	return quote.WithChange(prev), nil
}

// History implements Source. A "no_data" response yields an empty slice.
func (s *FinnhubSource) History(ctx context.Context, symbol, resolution string, from, to time.Time) ([]domain.Quote, error) {
	var raw finnhubCandles
	q := url.Values{
		"symbol":     {symbol},
		"resolution": {finnhubResolution(resolution)},
		"from":       {strconv.FormatInt(from.Unix(), 10)},
		"to":         {strconv.FormatInt(to.Unix(), 10)},
		"token":      {s.apiKey},
	}
	if err := s.client.getJSON(ctx, "/stock/candle", q, &raw); err != nil {
		return nil, fmt.Errorf("finnhub candles %s: %w", symbol, err)
	}
	if raw.Status == "no_data" {
		return []domain.Quote{}, nil
	}
	if raw.Status != "ok" {
		return nil, fmt.Errorf("finnhub candles %s: status %q", symbol, raw.Status)
	}

	n := len(raw.Time)
	if len(raw.Open) < n || len(raw.High) < n || len(raw.Low) < n || len(raw.Close) < n {
		return nil, fmt.Errorf("finnhub candles %s: ragged arrays", symbol)
	}
	out := make([]domain.Quote, 0, n)
	for i := 0; i < n; i++ {
		c := domain.Quote{
			Symbol:        symbol,
			Price:         raw.Close[i],
			Open:          raw.Open[i],
			High:          raw.High[i],
			Low:           raw.Low[i],
			PreviousClose: raw.Open[i],
			Timestamp:     time.Unix(raw.Time[i], 0).UTC(),
		}
		if i < len(raw.Volume) {
			c.Volume = raw.Volume[i].IntPart()
		}
		out = append(out, c.WithChange(raw.Open[i]))
	}
	return out, nil
}

// finnhubResolution maps a user-facing resolution onto Finnhub's codes.
// Unknown values fall back to daily.
func finnhubResolution(r string) string {
	switch strings.ToUpper(strings.TrimSpace(r)) {
	case "1", "1MIN", "1M":
		return "1"
	case "5", "5MIN":
		return "5"
	case "15", "15MIN":
		return "15"
	case "30", "30MIN":
		return "30"
	case "60", "1H", "1HOUR", "1HR":
		return "60"
	case "W", "1W", "WEEK", "WEEKLY":
		return "W"
	case "MO", "1MO", "MONTH", "MONTHLY":
		return "M"
	default:
		return "D"
	}
}
