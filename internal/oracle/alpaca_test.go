package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

type fakeAlpaca struct {
	snap *marketdata.Snapshot
	bars map[string][]marketdata.Bar
	req  marketdata.GetBarsRequest
}

func (f *fakeAlpaca) GetSnapshot(string, marketdata.GetSnapshotRequest) (*marketdata.Snapshot, error) {
	return f.snap, nil
}

func (f *fakeAlpaca) GetMultiBars(_ []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error) {
	f.req = req
	return f.bars, nil
}

func TestAlpacaQuote_FromSnapshot(t *testing.T) {
	ts := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	fake := &fakeAlpaca{snap: &marketdata.Snapshot{
		LatestTrade:  &marketdata.Trade{Price: 210, Timestamp: ts},
		DailyBar:     &marketdata.Bar{Open: 202, High: 212, Low: 199, Close: 209, Volume: 5000},
		PrevDailyBar: &marketdata.Bar{Close: 200},
	}}
	src := &AlpacaSource{client: fake, feed: "iex"}

	q, err := src.Quote(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !q.Price.Equal(dec("210")) || !q.PreviousClose.Equal(dec("200")) {
		t.Errorf("price/prev = %s/%s", q.Price, q.PreviousClose)
	}
	if !q.ChangePercent.Equal(dec("5")) {
		t.Errorf("change percent = %s, want 5", q.ChangePercent)
	}
	if q.Volume != 5000 || !q.Timestamp.Equal(ts) {
		t.Errorf("volume/ts = %d/%v", q.Volume, q.Timestamp)
	}
}

func TestAlpacaQuote_NoPrice(t *testing.T) {
	src := &AlpacaSource{client: &fakeAlpaca{snap: &marketdata.Snapshot{}}}
	if _, err := src.Quote(context.Background(), "MSFT"); err == nil {
		t.Fatal("expected error for empty snapshot")
	}
}

func TestAlpacaHistory(t *testing.T) {
	ts := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	fake := &fakeAlpaca{bars: map[string][]marketdata.Bar{
		"MSFT": {{Timestamp: ts, Open: 100, High: 110, Low: 95, Close: 105, Volume: 42}},
	}}
	src := &AlpacaSource{client: fake, feed: "iex"}

	qs, err := src.History(context.Background(), "MSFT", "D", ts, ts.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if fake.req.TimeFrame != marketdata.OneDay {
		t.Errorf("timeframe = %v, want OneDay", fake.req.TimeFrame)
	}
	if len(qs) != 1 || !qs[0].Change.Equal(dec("5")) || qs[0].Volume != 42 {
		t.Fatalf("history = %+v", qs)
	}
}

func TestAlpacaQuote_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &AlpacaSource{client: &fakeAlpaca{}}
	if _, err := src.Quote(ctx, "MSFT"); err == nil {
		t.Fatal("expected context error")
	}
}
