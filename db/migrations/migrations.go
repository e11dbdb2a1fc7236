// Package migrations embeds the SQL schema for each store backend and
// applies it with golang-migrate.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Backend directories under Files.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// Files holds the migrations, one directory per backend.
//
//go:embed postgres/*.sql sqlite/*.sql
var Files embed.FS

var (
	migrationsCounter     metric.Int64Counter
	migrationsCounterOnce sync.Once
)

// Up applies every pending migration for backend through driver. An
// up-to-date schema is not an error. Up closes driver before returning.
func Up(ctx context.Context, backend string, driver database.Driver) error {
	src, err := iofs.New(Files, backend)
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("open %s migrations: %w", backend, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, backend, driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return fmt.Errorf("initialise migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			recordMigration(ctx, backend, "noop")
			return nil
		}
		recordMigration(ctx, backend, "failed")
		return fmt.Errorf("apply %s migrations: %w", backend, err)
	}
	recordMigration(ctx, backend, "applied")
	return nil
}

func recordMigration(ctx context.Context, backend, result string) {
	migrationsCounterOnce.Do(func() {
		counter, err := otel.Meter("papertrade/store").Int64Counter("papertrade_db_migrations_total",
			metric.WithDescription("Schema migration runs by backend and result"),
			metric.WithUnit("{run}"))
		if err == nil {
			migrationsCounter = counter
		}
	})
	if migrationsCounter == nil {
		return
	}
	migrationsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("result", result),
	))
}
