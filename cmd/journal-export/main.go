// Command journal-export writes journal entries from a persistent store to
// a Parquet file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/app"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/config"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/journal"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
)

func main() {
	userID := flag.String("user", "", "Export only this user's entries")
	portfolioID := flag.String("portfolio", "", "Export only this portfolio's entries")
	limit := flag.Int("limit", 0, "Maximum number of entries, newest first (0 = all)")
	out := flag.String("out", "journal.parquet", "Output Parquet file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := app.NewLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q := store.OrderQuery{UserID: *userID, PortfolioID: *portfolioID, Limit: *limit}
	n, err := export(ctx, cfg, q, *out)
	if err != nil {
		logger.Error("journal export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("journal exported", slog.String("path", *out), slog.Int("entries", n))
}

func export(ctx context.Context, cfg *config.Config, q store.OrderQuery, path string) (int, error) {
	if cfg.StoreDriver == config.StoreMemory {
		return 0, fmt.Errorf("STORE_DRIVER=memory has no persisted journal to export")
	}
	st, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer st.Close()

	records, err := journal.List(ctx, st, q)
	if err != nil {
		return 0, err
	}
	if err := journal.WriteParquet(path, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
