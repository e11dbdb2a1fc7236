package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/app"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/config"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/engine"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/handler"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/holdings"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/journal"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/ledger"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/service"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/telemetry"
	"github.com/sourcegraph/conc"
)

var version = "dev"

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := app.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("papertrade exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		OTLPEndpoint:   cfg.OTLPEndpoint,
		MetricInterval: cfg.MetricInterval,
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}

	st, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer st.Close()
	logger.Info("store ready", slog.String("driver", cfg.StoreDriver))

	quotes, err := app.NewOracle(cfg, catalog)
	if err != nil {
		return err
	}

	// Engine.
	led := ledger.New(cfg.MaxDeposit)
	jnl := journal.New()
	deps := engine.Deps{
		Store:    st,
		Oracle:   quotes,
		Ledger:   led,
		Holdings: holdings.NewBook(),
		Journal:  jnl,
		Metrics:  engine.NewMetrics(),
		Logger:   logger,
	}
	market := engine.NewMarketExecutor(deps)
	limitEngine := engine.NewLimitEngine(deps, cfg.EvaluationWorkers)
	stopEngine := engine.NewStopEngine(deps, cfg.EvaluationWorkers)
	scheduler := engine.NewScheduler(cfg.EvaluationInterval, limitEngine, stopEngine, logger)

	// Services.
	assetSvc := service.NewAssetService(st, quotes, logger)
	if _, err := assetSvc.Seed(ctx, app.SeedRequests(catalog)); err != nil {
		return fmt.Errorf("seed assets: %w", err)
	}
	router := handler.NewRouter(handler.Services{
		Accounts:   service.NewAccountService(st, led, jnl, logger),
		Portfolios: service.NewPortfolioService(st, quotes, led, logger),
		Orders:     service.NewOrderService(st, market, limitEngine, stopEngine),
		Assets:     assetSvc,
		Watchlist:  service.NewWatchlistService(st, quotes, logger),
	}, logger)

	scheduler.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	var wg conc.WaitGroup
	wg.Go(func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case runErr = <-serveErr:
		logger.Error("server error", slog.String("error", runErr.Error()))
	}

	// Graceful shutdown: stop HTTP server, then the evaluation scheduler.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	wg.Wait()

	cancel()
	select {
	case <-scheduler.Done():
	case <-shutdownCtx.Done():
		logger.Warn("evaluation pass still running at shutdown deadline")
	}

	logger.Info("server stopped")
	return runErr
}
