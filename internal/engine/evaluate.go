package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkers bounds the number of (portfolio, asset) groups evaluated
// concurrently.
const DefaultWorkers = 4

// EvaluationReport summarises one evaluation pass.
type EvaluationReport struct {
	Scanned   int
	Filled    int
	Cancelled int
	Skipped   int
	Failed    int
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeFilled
	outcomeCancelled
	outcomeFailed
)

// candidate is a pending order seen at the start of a pass.
type candidate struct {
	orderID     string
	portfolioID string
	assetID     string
	symbol      string
	class       domain.AssetClass
}

type groupKey struct {
	portfolioID string
	assetID     string
}

// settleFunc evaluates one pending order against price.
type settleFunc func(ctx context.Context, c candidate, price decimal.Decimal) (outcome, error)

// pass runs settle over candidates. Orders sharing a (portfolio, asset)
// pair run sequentially in creation order; distinct pairs run on a
// bounded pool. Prices are fetched once per symbol per pass. Errors and
// panics are logged per order and never abort the pass.
type pass struct {
	kind    string
	deps    Deps
	workers int
	settle  settleFunc

	mu     sync.Mutex
	prices map[string]priceResult
	report EvaluationReport
}

type priceResult struct {
	price decimal.Decimal
	err   error
}

func runPass(ctx context.Context, kind string, d Deps, workers int, candidates []candidate, settle settleFunc) EvaluationReport {
	start := time.Now()
	p := &pass{
		kind:    kind,
		deps:    d,
		workers: workers,
		settle:  settle,
		prices:  make(map[string]priceResult),
	}
	p.report.Scanned = len(candidates)

	var order []groupKey
	groups := make(map[groupKey][]candidate)
	for _, c := range candidates {
		k := groupKey{portfolioID: c.portfolioID, assetID: c.assetID}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c)
	}

	limit := workers
	if limit <= 0 {
		limit = DefaultWorkers
	}
	if limit > len(order) {
		limit = len(order)
	}
	if limit > 0 {
		wp := pool.New().WithMaxGoroutines(limit)
		for _, k := range order {
			group := groups[k]
			wp.Go(func() {
				for _, c := range group {
					p.evaluate(ctx, c)
				}
			})
		}
		wp.Wait()
	}

	d.Metrics.recordPass(ctx, kind, p.report, time.Since(start))
	d.Logger.Info("evaluation pass complete",
		"kind", kind,
		"scanned", p.report.Scanned,
		"filled", p.report.Filled,
		"cancelled", p.report.Cancelled,
		"skipped", p.report.Skipped,
		"failed", p.report.Failed,
	)
	return p.report
}

func (p *pass) evaluate(ctx context.Context, c candidate) {
	res, err := p.evaluateSafely(ctx, c)
	if err != nil {
		res = outcomeFailed
		p.deps.Logger.Warn("order evaluation failed",
			"kind", p.kind,
			"order_id", c.orderID,
			"symbol", c.symbol,
			"error", err,
		)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch res {
	case outcomeFilled:
		p.report.Filled++
	case outcomeCancelled:
		p.report.Cancelled++
	case outcomeFailed:
		p.report.Failed++
	default:
		p.report.Skipped++
	}
}

func (p *pass) evaluateSafely(ctx context.Context, c candidate) (res outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return outcomeFailed, err
	}
	price, err := p.price(ctx, c)
	if err != nil {
		return outcomeFailed, err
	}
	return p.settle(ctx, c, price)
}

func (p *pass) price(ctx context.Context, c candidate) (decimal.Decimal, error) {
	p.mu.Lock()
	cached, ok := p.prices[c.symbol]
	p.mu.Unlock()
	if ok {
		return cached.price, cached.err
	}

	q, err := p.deps.price(ctx, &domain.Asset{Symbol: c.symbol, Class: c.class})
	p.mu.Lock()
	p.prices[c.symbol] = priceResult{price: q.Price, err: err}
	p.mu.Unlock()
	return q.Price, err
}
