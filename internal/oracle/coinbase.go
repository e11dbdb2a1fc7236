package oracle

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultCoinbaseURL is the public Coinbase Exchange REST endpoint.
const DefaultCoinbaseURL = "https://api.exchange.coinbase.com"

// CoinbaseSource serves crypto quotes from Coinbase Exchange public
// market data. Symbols are priced against USD.
type CoinbaseSource struct {
	client *jsonClient
	now    func() time.Time
}

// NewCoinbaseSource creates a CoinbaseSource. An empty baseURL selects
// DefaultCoinbaseURL.
func NewCoinbaseSource(baseURL string, timeout time.Duration, ratePerMinute int) *CoinbaseSource {
	if baseURL == "" {
		baseURL = DefaultCoinbaseURL
	}
	return &CoinbaseSource{
		client: newJSONClient(strings.TrimRight(baseURL, "/"), timeout, ratePerMinute),
		now:    time.Now,
	}
}

type coinbaseStats struct {
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Last   decimal.Decimal `json:"last"`
	Volume decimal.Decimal `json:"volume"`
}

// productID maps BTC to BTC-USD. Symbols that already name a pair pass
// through.
func productID(symbol string) string {
	s := strings.ToUpper(symbol)
	if strings.Contains(s, "-") {
		return s
	}
	return s + "-USD"
}

// Quote implements Source.
func (s *CoinbaseSource) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	var raw coinbaseStats
	path := "/products/" + url.PathEscape(productID(symbol)) + "/stats"
	if err := s.client.getJSON(ctx, path, nil, &raw); err != nil {
		return domain.Quote{}, fmt.Errorf("coinbase stats %s: %w", symbol, err)
	}
	if !raw.Last.IsPositive() {
		return domain.Quote{}, fmt.Errorf("coinbase stats %s: no price", symbol)
	}
	open := raw.Open
	if open.IsZero() {
		open = raw.Last
	}
	q := domain.Quote{
		Symbol:        symbol,
		Price:         raw.Last,
		Open:          open,
		High:          raw.High,
		Low:           raw.Low,
		PreviousClose: open,
		Volume:        raw.Volume.IntPart(),
		Timestamp:     s.now().UTC(),
	}
	return q.WithChange(open), nil
}

// History implements Source. Coinbase returns candles newest first as
// [time, low, high, open, close, volume]; the result is oldest first.
func (s *CoinbaseSource) History(ctx context.Context, symbol, resolution string, from, to time.Time) ([]domain.Quote, error) {
	var raw [][]decimal.Decimal
	path := "/products/" + url.PathEscape(productID(symbol)) + "/candles"
	q := url.Values{
		"granularity": {strconv.Itoa(coinbaseGranularity(resolution))},
		"start":       {from.UTC().Format(time.RFC3339)},
		"end":         {to.UTC().Format(time.RFC3339)},
	}
	if err := s.client.getJSON(ctx, path, q, &raw); err != nil {
		return nil, fmt.Errorf("coinbase candles %s: %w", symbol, err)
	}

	out := make([]domain.Quote, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		open := row[3]
		c := domain.Quote{
			Symbol:        symbol,
			Price:         row[4],
			Open:          open,
			High:          row[2],
			Low:           row[1],
			PreviousClose: open,
			Volume:        row[5].IntPart(),
			Timestamp:     time.Unix(row[0].IntPart(), 0).UTC(),
		}
		out = append(out, c.WithChange(open))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// coinbaseGranularity maps a resolution onto candle width in seconds.
// Unknown values fall back to one hour.
func coinbaseGranularity(r string) int {
	switch strings.ToUpper(strings.TrimSpace(r)) {
	case "1", "1MIN", "1M":
		return 60
	case "5", "5MIN":
		return 300
	case "15", "15MIN":
		return 900
	case "60", "1H", "1HOUR", "1HR":
		return 3600
	case "240", "4H":
		return 14400
	case "D", "1D", "DAY", "DAILY":
		return 86400
	default:
		return 3600
	}
}
