package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the evaluation period used when none is configured.
const DefaultInterval = 30 * time.Second

// Evaluator runs one evaluation pass over pending orders.
type Evaluator interface {
	Evaluate(ctx context.Context) (EvaluationReport, error)
}

// Scheduler periodically runs the limit pass followed by the stop pass.
// Passes never overlap.
type Scheduler struct {
	interval time.Duration
	limit    Evaluator
	stop     Evaluator
	logger   *slog.Logger

	passMu sync.Mutex
	once   sync.Once
	done   chan struct{}
}

// NewScheduler creates a Scheduler. A non-positive interval selects
// DefaultInterval.
func NewScheduler(interval time.Duration, limit, stop Evaluator, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval: interval,
		limit:    limit,
		stop:     stop,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches a background goroutine that ticks at the configured
// interval and runs both passes. It stops when ctx is cancelled; Done is
// closed once the in-flight pass has finished. Calling Start more than
// once has no effect.
func (s *Scheduler) Start(ctx context.Context) {
	s.once.Do(func() {
		go func() {
			defer close(s.done)
			ticker := time.NewTicker(s.interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.RunOnce(ctx)
				}
			}
		}()
	})
}

// Done is closed after a started scheduler has stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// RunOnce runs the limit pass then the stop pass and returns their
// reports. A pass that cannot list its pending orders is logged and
// reported as empty.
func (s *Scheduler) RunOnce(ctx context.Context) (limit, stop EvaluationReport) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	if s.limit != nil {
		r, err := s.limit.Evaluate(ctx)
		if err != nil {
			s.logger.Error("limit evaluation pass failed", "error", err)
		}
		limit = r
	}
	if s.stop != nil {
		r, err := s.stop.Evaluate(ctx)
		if err != nil {
			s.logger.Error("stop evaluation pass failed", "error", err)
		}
		stop = r
	}
	return limit, stop
}
