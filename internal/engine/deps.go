// Package engine settles market orders and drives the limit and stop
// order state machines. Every mutation runs in a single store unit of
// work; oracle calls always happen outside one.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/holdings"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/journal"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/ledger"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/oracle"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
)

// Deps are the collaborators shared by the executors and engines.
type Deps struct {
	Store    store.Store
	Oracle   oracle.Oracle
	Ledger   *ledger.Ledger
	Holdings *holdings.Book
	Journal  *journal.Journal
	Metrics  *Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Ledger == nil {
		d.Ledger = ledger.New(ledger.DefaultMaxDeposit)
	}
	if d.Holdings == nil {
		d.Holdings = holdings.NewBook()
	}
	if d.Journal == nil {
		d.Journal = journal.New()
	}
	return d
}

// target is a resolved (portfolio, asset) pair for an incoming order.
type target struct {
	portfolio *domain.Portfolio
	asset     *domain.Asset
}

// resolve loads the portfolio, checking ownership, and the asset by
// symbol, checking it is active. A portfolio owned by someone else is
// reported as missing.
func (d Deps) resolve(ctx context.Context, userID, portfolioID, symbol string) (target, error) {
	var t target
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return t, domain.Invalid("symbol is required")
	}
	err := d.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetPortfolio(ctx, portfolioID)
		if err != nil {
			return err
		}
		if !p.OwnedBy(userID) {
			return domain.ErrPortfolioNotFound
		}
		a, err := tx.GetAssetBySymbol(ctx, symbol)
		if err != nil {
			return err
		}
		if !a.Active {
			return domain.ErrAssetInactive
		}
		t = target{portfolio: p, asset: a}
		return nil
	})
	return t, err
}

// price fetches the current price for asset. Zero or negative prices are
// treated as an outage.
func (d Deps) price(ctx context.Context, asset *domain.Asset) (domain.Quote, error) {
	q, err := d.Oracle.CurrentQuote(ctx, asset.Symbol, asset.Class)
	if err != nil {
		return domain.Quote{}, err
	}
	if !q.Price.IsPositive() {
		return domain.Quote{}, domain.ErrOracleUnavailable
	}
	return q, nil
}
