package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFinnhubQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("path = %s, want /quote", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Errorf("symbol = %q, want AAPL", got)
		}
		if got := r.URL.Query().Get("token"); got != "secret" {
			t.Errorf("token = %q, want secret", got)
		}
		w.Write([]byte(`{"c":110,"o":102,"h":111.5,"l":99.25,"pc":100,"t":1700000000}`))
	}))
	defer srv.Close()

	src := NewFinnhubSource(srv.URL, "secret", time.Second, 0)
	q, err := src.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !q.Price.Equal(dec("110")) {
		t.Errorf("price = %s, want 110", q.Price)
	}
	if !q.Change.Equal(dec("10")) {
		t.Errorf("change = %s, want 10", q.Change)
	}
	if !q.ChangePercent.Equal(dec("10")) {
		t.Errorf("change percent = %s, want 10", q.ChangePercent)
	}
	if !q.Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("timestamp = %v", q.Timestamp)
	}
}

func TestFinnhubQuote_DefaultsOpenAndPreviousClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":50,"o":0,"h":0,"l":0,"pc":0}`))
	}))
	defer srv.Close()

	q, err := NewFinnhubSource(srv.URL, "k", time.Second, 0).Quote(context.Background(), "X")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !q.Open.Equal(dec("50")) || !q.PreviousClose.Equal(dec("50")) {
		t.Errorf("open = %s, previous close = %s, want 50/50", q.Open, q.PreviousClose)
	}
	if !q.Change.IsZero() {
		t.Errorf("change = %s, want 0", q.Change)
	}
}

func TestFinnhubQuote_ZeroPriceFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":0,"o":0,"h":0,"l":0,"pc":0}`))
	}))
	defer srv.Close()

	if _, err := NewFinnhubSource(srv.URL, "k", time.Second, 0).Quote(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected error for zero price")
	}
}

func TestFinnhubQuote_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"c":10,"o":10,"h":10,"l":10,"pc":10}`))
	}))
	defer srv.Close()

	if _, err := NewFinnhubSource(srv.URL, "k", time.Second, 0).Quote(context.Background(), "X"); err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("hits = %d, want 2", got)
	}
}

func TestFinnhubQuote_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewFinnhubSource(srv.URL, "bad", time.Second, 0).Quote(context.Background(), "X")
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 status error", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("hits = %d, want 1", got)
	}
}

func TestFinnhubHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stock/candle" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("resolution"); got != "60" {
			t.Errorf("resolution = %q, want 60", got)
		}
		w.Write([]byte(`{"s":"ok","t":[1700000000,1700003600],"o":[100,105],"h":[106,108],"l":[99,104],"c":[105,104],"v":[1000,2000]}`))
	}))
	defer srv.Close()

	from := time.Unix(1699990000, 0)
	qs, err := NewFinnhubSource(srv.URL, "k", time.Second, 0).History(context.Background(), "AAPL", "1h", from, from.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("len = %d, want 2", len(qs))
	}
	if !qs[0].Price.Equal(dec("105")) || !qs[0].Change.Equal(dec("5")) || !qs[0].ChangePercent.Equal(dec("5")) {
		t.Errorf("candle 0 = %+v", qs[0])
	}
	if qs[1].Volume != 2000 {
		t.Errorf("volume = %d, want 2000", qs[1].Volume)
	}
}

func TestFinnhubHistory_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"s":"no_data"}`))
	}))
	defer srv.Close()

	qs, err := NewFinnhubSource(srv.URL, "k", time.Second, 0).History(context.Background(), "AAPL", "D", time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(qs) != 0 {
		t.Errorf("len = %d, want 0", len(qs))
	}
}

func TestFinnhubResolution(t *testing.T) {
	tests := map[string]string{
		"1": "1", "1min": "1", "5": "5", "15": "15", "30": "30",
		"60": "60", "1H": "60", "1hour": "60",
		"D": "D", "daily": "D", "W": "W", "weekly": "W",
		"MO": "M", "month": "M", "": "D", "bogus": "D",
	}
	for in, want := range tests {
		if got := finnhubResolution(in); got != want {
			t.Errorf("finnhubResolution(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRouter_WrapsSourceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := NewRouter(NewFinnhubSource(srv.URL, "k", time.Second, 0), nil)
	_, err := r.CurrentQuote(context.Background(), "AAPL", domain.AssetClassEquity)
	if !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Fatalf("err = %v, want ErrOracleUnavailable", err)
	}
	_, err = r.CurrentQuote(context.Background(), "BTC", domain.AssetClassCrypto)
	if !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Fatalf("missing source err = %v, want ErrOracleUnavailable", err)
	}
}
