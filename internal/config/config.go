package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Quote sources accepted by EQUITY_QUOTE_SOURCE and CRYPTO_QUOTE_SOURCE.
const (
	SourceStatic   = "static"
	SourceFinnhub  = "finnhub"
	SourceAlpaca   = "alpaca"
	SourceCoinbase = "coinbase"
)

// Config holds all runtime configuration for papertrade.
type Config struct {
	Port            int
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	StoreDriver string
	SQLitePath  string
	DatabaseURL string

	EvaluationInterval time.Duration
	EvaluationWorkers  int
	MaxDeposit         decimal.Decimal

	QuoteCacheTTL       time.Duration
	OracleTimeout       time.Duration
	OracleRatePerMinute int
	EquityQuoteSource   string
	CryptoQuoteSource   string
	FinnhubAPIKey       string
	FinnhubBaseURL      string
	CoinbaseBaseURL     string
	AlpacaAPIKey        string
	AlpacaAPISecret     string
	AlpacaDataURL       string

	OTLPEndpoint   string
	MetricInterval time.Duration
	CatalogFile    string
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:          getStr("LOG_LEVEL", "info"),
		StoreDriver:       getStr("STORE_DRIVER", StoreMemory),
		SQLitePath:        getStr("SQLITE_PATH", "papertrade.db"),
		DatabaseURL:       getStr("DATABASE_URL", ""),
		EquityQuoteSource: getStr("EQUITY_QUOTE_SOURCE", SourceStatic),
		CryptoQuoteSource: getStr("CRYPTO_QUOTE_SOURCE", SourceStatic),
		FinnhubAPIKey:     getStr("FINNHUB_API_KEY", ""),
		FinnhubBaseURL:    getStr("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		CoinbaseBaseURL:   getStr("COINBASE_BASE_URL", "https://api.exchange.coinbase.com"),
		AlpacaAPIKey:      getStr("ALPACA_API_KEY", ""),
		AlpacaAPISecret:   getStr("ALPACA_API_SECRET", ""),
		AlpacaDataURL:     getStr("ALPACA_DATA_URL", ""),
		OTLPEndpoint:      getStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		CatalogFile:       getStr("CATALOG_FILE", ""),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel)
	}

	durations := []struct {
		key string
		dst *time.Duration
		def time.Duration
	}{
		{"READ_TIMEOUT", &cfg.ReadTimeout, 5 * time.Second},
		{"WRITE_TIMEOUT", &cfg.WriteTimeout, 10 * time.Second},
		{"IDLE_TIMEOUT", &cfg.IdleTimeout, 60 * time.Second},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout, 10 * time.Second},
		{"EVALUATION_INTERVAL", &cfg.EvaluationInterval, 30 * time.Second},
		{"QUOTE_CACHE_TTL", &cfg.QuoteCacheTTL, 15 * time.Second},
		{"ORACLE_TIMEOUT", &cfg.OracleTimeout, 10 * time.Second},
		{"OTEL_METRIC_INTERVAL", &cfg.MetricInterval, 15 * time.Second},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.key, d.def); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}
	if cfg.EvaluationInterval <= 0 {
		return nil, fmt.Errorf("invalid EVALUATION_INTERVAL: must be positive")
	}

	if cfg.EvaluationWorkers, err = getInt("EVALUATION_WORKERS", 4); err != nil {
		return nil, fmt.Errorf("invalid EVALUATION_WORKERS: %w", err)
	}
	if cfg.EvaluationWorkers < 1 {
		return nil, fmt.Errorf("invalid EVALUATION_WORKERS: must be at least 1")
	}
	if cfg.OracleRatePerMinute, err = getInt("ORACLE_RATE_PER_MINUTE", 60); err != nil {
		return nil, fmt.Errorf("invalid ORACLE_RATE_PER_MINUTE: %w", err)
	}
	if cfg.MaxDeposit, err = decimal.NewFromString(getStr("MAX_DEPOSIT", "1000000000")); err != nil {
		return nil, fmt.Errorf("invalid MAX_DEPOSIT: %w", err)
	}
	if !cfg.MaxDeposit.IsPositive() {
		return nil, fmt.Errorf("invalid MAX_DEPOSIT: must be positive")
	}

	if err := cfg.validateSources(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validateSources() error {
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER: %q, must be one of: memory, sqlite, postgres", c.StoreDriver)
	}

	switch c.EquityQuoteSource {
	case SourceStatic:
	case SourceFinnhub:
		if c.FinnhubAPIKey == "" {
			return fmt.Errorf("FINNHUB_API_KEY is required when EQUITY_QUOTE_SOURCE=finnhub")
		}
	case SourceAlpaca:
		if c.AlpacaAPIKey == "" || c.AlpacaAPISecret == "" {
			return fmt.Errorf("ALPACA_API_KEY and ALPACA_API_SECRET are required when EQUITY_QUOTE_SOURCE=alpaca")
		}
	default:
		return fmt.Errorf("invalid EQUITY_QUOTE_SOURCE: %q, must be one of: static, finnhub, alpaca", c.EquityQuoteSource)
	}

	switch c.CryptoQuoteSource {
	case SourceStatic, SourceCoinbase:
	default:
		return fmt.Errorf("invalid CRYPTO_QUOTE_SOURCE: %q, must be one of: static, coinbase", c.CryptoQuoteSource)
	}
	return nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
