// Package app assembles the process-level collaborators shared by the
// papertrade binaries from a loaded configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/config"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/oracle"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/service"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store/postgres"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store/sqlite"
)

// NewLogger returns a JSON logger writing to w at the named level.
// Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// OpenStore opens the backend selected by cfg.StoreDriver. SQL backends
// are migrated before use.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory, "":
		return store.NewMemoryStore(), nil
	case config.StoreSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.StorePostgres:
		return postgres.Open(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// NewOracle builds the class router over the configured quote sources and
// wraps it in the quote cache. Static sources serve the catalog prices.
func NewOracle(cfg *config.Config, catalog *config.Catalog) (oracle.Oracle, error) {
	var static *oracle.StaticSource
	staticSource := func() *oracle.StaticSource {
		if static == nil {
			static = oracle.NewStaticSource(catalog.Prices())
		}
		return static
	}

	var equity oracle.Source
	switch cfg.EquityQuoteSource {
	case config.SourceStatic, "":
		equity = staticSource()
	case config.SourceFinnhub:
		equity = oracle.NewFinnhubSource(cfg.FinnhubBaseURL, cfg.FinnhubAPIKey, cfg.OracleTimeout, cfg.OracleRatePerMinute)
	case config.SourceAlpaca:
		equity = oracle.NewAlpacaSource(cfg.AlpacaAPIKey, cfg.AlpacaAPISecret, cfg.AlpacaDataURL)
	default:
		return nil, fmt.Errorf("unknown equity quote source %q", cfg.EquityQuoteSource)
	}

	var crypto oracle.Source
	switch cfg.CryptoQuoteSource {
	case config.SourceStatic, "":
		crypto = staticSource()
	case config.SourceCoinbase:
		crypto = oracle.NewCoinbaseSource(cfg.CoinbaseBaseURL, cfg.OracleTimeout, cfg.OracleRatePerMinute)
	default:
		return nil, fmt.Errorf("unknown crypto quote source %q", cfg.CryptoQuoteSource)
	}

	return oracle.NewCachedOracle(oracle.NewRouter(equity, crypto), cfg.QuoteCacheTTL), nil
}

// SeedRequests converts catalog entries into asset creation requests.
func SeedRequests(catalog *config.Catalog) []service.CreateAssetRequest {
	reqs := make([]service.CreateAssetRequest, 0, len(catalog.Assets))
	for _, a := range catalog.Assets {
		reqs = append(reqs, service.CreateAssetRequest{
			Symbol: a.Symbol,
			Name:   a.Name,
			Class:  a.Class,
		})
	}
	return reqs
}
