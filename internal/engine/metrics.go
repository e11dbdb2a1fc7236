package engine

import (
	"context"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the engine's OpenTelemetry instruments. A nil *Metrics
// records nothing.
type Metrics struct {
	fills         metric.Int64Counter
	cancels       metric.Int64Counter
	failures      metric.Int64Counter
	passDuration  metric.Float64Histogram
	ordersScanned metric.Int64Counter
}

// NewMetrics registers instruments on the global meter provider.
func NewMetrics() *Metrics {
	meter := otel.Meter("papertrade.engine")
	m := &Metrics{}
	m.fills, _ = meter.Int64Counter("papertrade_engine_fills",
		metric.WithDescription("Orders settled by the engine"),
		metric.WithUnit("{order}"))
	m.cancels, _ = meter.Int64Counter("papertrade_engine_cancels",
		metric.WithDescription("Deferred orders cancelled"),
		metric.WithUnit("{order}"))
	m.failures, _ = meter.Int64Counter("papertrade_engine_evaluation_failures",
		metric.WithDescription("Per-order evaluation failures left pending for the next pass"),
		metric.WithUnit("{order}"))
	m.ordersScanned, _ = meter.Int64Counter("papertrade_engine_orders_scanned",
		metric.WithDescription("Pending orders examined by evaluation passes"),
		metric.WithUnit("{order}"))
	m.passDuration, _ = meter.Float64Histogram("papertrade_engine_pass_duration",
		metric.WithDescription("Wall time of one evaluation pass"),
		metric.WithUnit("ms"))
	return m
}

func (m *Metrics) recordFill(ctx context.Context, source domain.RecordSource, dir domain.Direction) {
	if m == nil || m.fills == nil {
		return
	}
	m.fills.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", string(source)),
		attribute.String("direction", string(dir)),
	))
}

func (m *Metrics) recordCancel(ctx context.Context, kind string, reason domain.CancelReason) {
	if m == nil || m.cancels == nil {
		return
	}
	m.cancels.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("reason", string(reason)),
	))
}

func (m *Metrics) recordPass(ctx context.Context, kind string, r EvaluationReport, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	if m.ordersScanned != nil {
		m.ordersScanned.Add(ctx, int64(r.Scanned), attrs)
	}
	if m.failures != nil && r.Failed > 0 {
		m.failures.Add(ctx, int64(r.Failed), attrs)
	}
	if m.passDuration != nil {
		m.passDuration.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
	}
}
