// Package storetest is a behavioural test suite shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Run executes the suite against stores produced by open. Each subtest
// gets its own fixture rows, so open may return a shared store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"UserLifecycle", testUserLifecycle},
		{"DuplicateUsername", testDuplicateUsername},
		{"Portfolios", testPortfolios},
		{"Assets", testAssets},
		{"Holdings", testHoldings},
		{"Journal", testJournal},
		{"LimitOrders", testLimitOrders},
		{"LimitOrderConditionalUpdate", testLimitOrderConditionalUpdate},
		{"StopOrders", testStopOrders},
		{"RollbackOnError", testRollbackOnError},
		{"OrderedPortfolioDeletion", testOrderedPortfolioDeletion},
		{"Watchlist", testWatchlist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// now returns a timestamp every backend round-trips exactly.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

type fixture struct {
	user      *domain.User
	portfolio *domain.Portfolio
	asset     *domain.Asset
}

func mustTx(t *testing.T, s store.Store, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	if err := s.WithTx(context.Background(), fn); err != nil {
		t.Fatalf("tx failed: %v", err)
	}
}

func newUser(cash string) *domain.User {
	ts := now()
	id := uuid.New().String()
	return &domain.User{
		UserID:           id,
		Username:         "user-" + id[:8],
		Email:            id[:8] + "@example.com",
		CashBalance:      dec(cash),
		TotalDeposits:    dec(cash),
		TotalWithdrawals: decimal.Zero,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
}

func seed(t *testing.T, s store.Store) fixture {
	t.Helper()
	ts := now()
	f := fixture{user: newUser("1000")}
	f.portfolio = &domain.Portfolio{
		PortfolioID: uuid.New().String(),
		UserID:      f.user.UserID,
		Name:        "Main",
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	f.asset = &domain.Asset{
		AssetID:   uuid.New().String(),
		Symbol:    "T" + uuid.New().String()[:6],
		Name:      "Test Asset",
		Class:     domain.AssetClassEquity,
		Active:    true,
		CreatedAt: ts,
	}
	f.asset.Symbol = strings.ToUpper(f.asset.Symbol)
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateUser(ctx, f.user); err != nil {
			return err
		}
		if err := tx.CreatePortfolio(ctx, f.portfolio); err != nil {
			return err
		}
		return tx.CreateAsset(ctx, f.asset)
	})
	return f
}

func testUserLifecycle(t *testing.T, s store.Store) {
	u := newUser("250.5")
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateUser(ctx, u)
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.GetUser(ctx, u.UserID)
		if err != nil {
			return err
		}
		if got.Username != u.Username || !got.CashBalance.Equal(dec("250.5")) {
			t.Errorf("GetUser = %+v", got)
		}
		got.CashBalance = dec("100.1234")
		got.TotalWithdrawals = dec("150.3766")
		return tx.UpdateUser(ctx, got)
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.GetUser(ctx, u.UserID)
		if err != nil {
			return err
		}
		if !got.CashBalance.Equal(dec("100.1234")) {
			t.Errorf("CashBalance = %s, want 100.1234", got.CashBalance)
		}
		if !got.TotalWithdrawals.Equal(dec("150.3766")) {
			t.Errorf("TotalWithdrawals = %s, want 150.3766", got.TotalWithdrawals)
		}
		if _, err := tx.GetUser(ctx, uuid.New().String()); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("GetUser(missing) = %v, want ErrUserNotFound", err)
		}
		return nil
	})
}

func testDuplicateUsername(t *testing.T, s store.Store) {
	u := newUser("0")
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateUser(ctx, u)
	})
	dup := newUser("0")
	dup.Username = u.Username
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.CreateUser(ctx, dup)
	})
	if !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func testPortfolios(t *testing.T, s store.Store) {
	f := seed(t, s)
	second := &domain.Portfolio{
		PortfolioID: uuid.New().String(),
		UserID:      f.user.UserID,
		Name:        "Crypto",
		Description: "coins",
		CreatedAt:   f.portfolio.CreatedAt.Add(time.Second),
		UpdatedAt:   f.portfolio.CreatedAt.Add(time.Second),
	}
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.CreatePortfolio(ctx, second)
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		list, err := tx.ListPortfolios(ctx, f.user.UserID)
		if err != nil {
			return err
		}
		if len(list) != 2 {
			t.Fatalf("ListPortfolios len = %d, want 2", len(list))
		}
		if list[0].PortfolioID != f.portfolio.PortfolioID || list[1].Description != "coins" {
			t.Errorf("ListPortfolios order = %s, %s", list[0].Name, list[1].Name)
		}
		return tx.DeletePortfolio(ctx, second.PortfolioID)
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetPortfolio(ctx, second.PortfolioID); !errors.Is(err, domain.ErrPortfolioNotFound) {
			t.Errorf("GetPortfolio(deleted) = %v, want ErrPortfolioNotFound", err)
		}
		return nil
	})
}

func testAssets(t *testing.T, s store.Store) {
	f := seed(t, s)
	dup := *f.asset
	dup.AssetID = uuid.New().String()
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.CreateAsset(ctx, &dup)
	})
	if !errors.Is(err, domain.ErrAssetAlreadyExists) {
		t.Fatalf("duplicate symbol: got %v, want ErrAssetAlreadyExists", err)
	}

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		a, err := tx.GetAssetBySymbol(ctx, f.asset.Symbol)
		if err != nil {
			return err
		}
		if a.AssetID != f.asset.AssetID || a.Class != domain.AssetClassEquity || !a.Active {
			t.Errorf("GetAssetBySymbol = %+v", a)
		}
		all, err := tx.ListAssets(ctx)
		if err != nil {
			return err
		}
		found := false
		for _, x := range all {
			if x.AssetID == f.asset.AssetID {
				found = true
			}
		}
		if !found {
			t.Error("ListAssets does not include seeded asset")
		}
		if _, err := tx.GetAssetBySymbol(ctx, "NOPE"+strings.ToUpper(uuid.New().String()[:4])); !errors.Is(err, domain.ErrAssetNotFound) {
			t.Errorf("GetAssetBySymbol(missing) = %v", err)
		}
		return nil
	})
}

func testHoldings(t *testing.T, s store.Store) {
	f := seed(t, s)
	ts := now()
	h := &domain.Holding{
		PortfolioID:  f.portfolio.PortfolioID,
		AssetID:      f.asset.AssetID,
		Quantity:     dec("1.23456789"),
		AveragePrice: dec("101.5"),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveHolding(ctx, h)
	})
	h.Quantity = dec("2.5")
	h.AveragePrice = dec("99.1234")
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveHolding(ctx, h)
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.GetHolding(ctx, f.portfolio.PortfolioID, f.asset.AssetID)
		if err != nil {
			return err
		}
		if !got.Quantity.Equal(dec("2.5")) || !got.AveragePrice.Equal(dec("99.1234")) {
			t.Errorf("GetHolding = %s @ %s", got.Quantity, got.AveragePrice)
		}
		list, err := tx.ListHoldings(ctx, f.portfolio.PortfolioID)
		if err != nil {
			return err
		}
		if len(list) != 1 {
			t.Errorf("ListHoldings len = %d, want 1", len(list))
		}
		return tx.DeleteHolding(ctx, f.portfolio.PortfolioID, f.asset.AssetID)
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetHolding(ctx, f.portfolio.PortfolioID, f.asset.AssetID); !errors.Is(err, domain.ErrHoldingNotFound) {
			t.Errorf("GetHolding after delete = %v, want ErrHoldingNotFound", err)
		}
		return nil
	})
}

func testJournal(t *testing.T, s store.Store) {
	f := seed(t, s)
	base := now()
	var ids []string
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		for i := 0; i < 3; i++ {
			r := &domain.OrderRecord{
				OrderID:     uuid.New().String(),
				UserID:      f.user.UserID,
				PortfolioID: f.portfolio.PortfolioID,
				AssetID:     f.asset.AssetID,
				Symbol:      f.asset.Symbol,
				Type:        domain.RecordTypeBuy,
				Source:      domain.SourceMarket,
				Status:      domain.RecordStatusCompleted,
				Quantity:    dec("1"),
				UnitPrice:   dec("10"),
				TotalAmount: dec("10"),
				CreatedAt:   base.Add(time.Duration(i) * time.Second),
			}
			ids = append(ids, r.OrderID)
			if err := tx.AppendOrder(ctx, r); err != nil {
				return err
			}
		}
		return tx.AppendOrder(ctx, &domain.OrderRecord{
			OrderID:     uuid.New().String(),
			UserID:      f.user.UserID,
			Symbol:      domain.CashSymbol,
			Type:        domain.RecordTypeDeposit,
			Source:      domain.SourceCash,
			Status:      domain.RecordStatusCompleted,
			Quantity:    dec("500"),
			UnitPrice:   decimal.NewFromInt(1),
			TotalAmount: dec("500"),
			CreatedAt:   base.Add(10 * time.Second),
		})
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		all, err := tx.ListOrders(ctx, store.OrderQuery{UserID: f.user.UserID})
		if err != nil {
			return err
		}
		if len(all) != 4 {
			t.Fatalf("ListOrders len = %d, want 4", len(all))
		}
		if all[0].Type != domain.RecordTypeDeposit || all[0].PortfolioID != "" {
			t.Errorf("newest entry = %+v, want cash deposit", all[0])
		}
		if all[3].OrderID != ids[0] {
			t.Errorf("oldest entry = %s, want %s", all[3].OrderID, ids[0])
		}

		limited, err := tx.ListOrders(ctx, store.OrderQuery{UserID: f.user.UserID, PortfolioID: f.portfolio.PortfolioID, Limit: 2})
		if err != nil {
			return err
		}
		if len(limited) != 2 || limited[0].OrderID != ids[2] {
			t.Errorf("limited listing = %d entries", len(limited))
		}
		return nil
	})
}

func newLimitOrder(f fixture, dir domain.Direction, createdAt time.Time) *domain.LimitOrder {
	o := &domain.LimitOrder{
		OrderID:     uuid.New().String(),
		UserID:      f.user.UserID,
		PortfolioID: f.portfolio.PortfolioID,
		AssetID:     f.asset.AssetID,
		Symbol:      f.asset.Symbol,
		Class:       f.asset.Class,
		Direction:   dir,
		TargetPrice: dec("90"),
		Quantity:    dec("10"),
		Status:      domain.OrderStatusPending,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if dir == domain.DirectionBuy {
		o.ReservedAmount = dec("900")
	}
	return o
}

func testLimitOrders(t *testing.T, s store.Store) {
	f := seed(t, s)
	base := now()
	first := newLimitOrder(f, domain.DirectionBuy, base)
	second := newLimitOrder(f, domain.DirectionSell, base.Add(time.Second))
	third := newLimitOrder(f, domain.DirectionBuy, base.Add(2*time.Second))
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		for _, o := range []*domain.LimitOrder{first, second, third} {
			if err := tx.CreateLimitOrder(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.GetLimitOrder(ctx, first.OrderID)
		if err != nil {
			return err
		}
		if got.Symbol != f.asset.Symbol || got.Class != domain.AssetClassEquity {
			t.Errorf("GetLimitOrder asset = %s/%s", got.Symbol, got.Class)
		}
		if !got.ReservedAmount.Equal(dec("900")) || got.FilledAt != nil {
			t.Errorf("GetLimitOrder = %+v", got)
		}

		reserved, err := tx.ReservedCash(ctx, f.user.UserID)
		if err != nil {
			return err
		}
		if !reserved.Equal(dec("1800")) {
			t.Errorf("ReservedCash = %s, want 1800", reserved)
		}

		ts := now()
		if err := got.Fill(dec("85"), ts); err != nil {
			return err
		}
		return tx.UpdateLimitOrder(ctx, got)
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		pending, err := tx.ListLimitOrders(ctx, store.DeferredQuery{UserID: f.user.UserID, Status: domain.OrderStatusPending})
		if err != nil {
			return err
		}
		if len(pending) != 2 || pending[0].OrderID != second.OrderID || pending[1].OrderID != third.OrderID {
			t.Errorf("pending listing = %d entries", len(pending))
		}
		filled, err := tx.GetLimitOrder(ctx, first.OrderID)
		if err != nil {
			return err
		}
		if filled.Status != domain.OrderStatusFilled || filled.FilledAt == nil || !filled.FilledPrice.Equal(dec("85")) {
			t.Errorf("filled order = %+v", filled)
		}
		reserved, err := tx.ReservedCash(ctx, f.user.UserID)
		if err != nil {
			return err
		}
		if !reserved.Equal(dec("900")) {
			t.Errorf("ReservedCash after fill = %s, want 900", reserved)
		}
		all, err := tx.ListLimitOrders(ctx, store.DeferredQuery{PortfolioID: f.portfolio.PortfolioID})
		if err != nil {
			return err
		}
		if len(all) != 3 {
			t.Errorf("all orders = %d, want 3", len(all))
		}
		return nil
	})
}

func testLimitOrderConditionalUpdate(t *testing.T, s store.Store) {
	f := seed(t, s)
	o := newLimitOrder(f, domain.DirectionBuy, now())
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateLimitOrder(ctx, o)
	})

	// Two copies read before either transition.
	var a, b *domain.LimitOrder
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		var err error
		if a, err = tx.GetLimitOrder(ctx, o.OrderID); err != nil {
			return err
		}
		b, err = tx.GetLimitOrder(ctx, o.OrderID)
		return err
	})

	ts := now()
	if err := a.Cancel(domain.CancelReasonUser, ts); err != nil {
		t.Fatal(err)
	}
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateLimitOrder(ctx, a)
	})

	if err := b.Fill(dec("80"), ts); err != nil {
		t.Fatal(err)
	}
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateLimitOrder(ctx, b)
	})
	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("stale update = %v, want ErrConcurrencyConflict", err)
	}

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.GetLimitOrder(ctx, o.OrderID)
		if err != nil {
			return err
		}
		if got.Status != domain.OrderStatusCancelled || got.CancelReason != domain.CancelReasonUser {
			t.Errorf("order = %s/%s, want cancelled/user", got.Status, got.CancelReason)
		}
		return nil
	})
}

func testStopOrders(t *testing.T, s store.Store) {
	f := seed(t, s)
	ts := now()
	o := &domain.StopOrder{
		OrderID:     uuid.New().String(),
		UserID:      f.user.UserID,
		PortfolioID: f.portfolio.PortfolioID,
		AssetID:     f.asset.AssetID,
		Symbol:      f.asset.Symbol,
		Class:       f.asset.Class,
		Direction:   domain.DirectionSell,
		StopPrice:   dec("50000"),
		Quantity:    dec("0.5"),
		Status:      domain.OrderStatusPending,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateStopOrder(ctx, o)
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.GetStopOrder(ctx, o.OrderID)
		if err != nil {
			return err
		}
		if !got.StopPrice.Equal(dec("50000")) || got.Direction != domain.DirectionSell {
			t.Errorf("GetStopOrder = %+v", got)
		}
		fired := now()
		if err := got.Fill(dec("49000"), fired, fired); err != nil {
			return err
		}
		return tx.UpdateStopOrder(ctx, got)
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.GetStopOrder(ctx, o.OrderID)
		if err != nil {
			return err
		}
		if got.Status != domain.OrderStatusFilled || got.TriggeredAt == nil || got.FilledAt == nil {
			t.Errorf("stop order after fill = %+v", got)
		}
		if err := tx.UpdateStopOrder(ctx, got); !errors.Is(err, domain.ErrConcurrencyConflict) {
			t.Errorf("update of filled stop = %v, want ErrConcurrencyConflict", err)
		}
		pending, err := tx.ListStopOrders(ctx, store.DeferredQuery{UserID: f.user.UserID, Status: domain.OrderStatusPending})
		if err != nil {
			return err
		}
		if len(pending) != 0 {
			t.Errorf("pending stops = %d, want 0", len(pending))
		}
		if _, err := tx.GetStopOrder(ctx, uuid.New().String()); !errors.Is(err, domain.ErrStopOrderNotFound) {
			t.Errorf("GetStopOrder(missing) = %v", err)
		}
		return nil
	})
}

func testRollbackOnError(t *testing.T, s store.Store) {
	f := seed(t, s)
	boom := errors.New("boom")
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		u, err := tx.GetUser(ctx, f.user.UserID)
		if err != nil {
			return err
		}
		u.CashBalance = decimal.Zero
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		ts := now()
		if err := tx.SaveHolding(ctx, &domain.Holding{
			PortfolioID:  f.portfolio.PortfolioID,
			AssetID:      f.asset.AssetID,
			Quantity:     dec("1"),
			AveragePrice: dec("1"),
			CreatedAt:    ts,
			UpdatedAt:    ts,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx = %v, want boom", err)
	}

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		u, err := tx.GetUser(ctx, f.user.UserID)
		if err != nil {
			return err
		}
		if !u.CashBalance.Equal(dec("1000")) {
			t.Errorf("CashBalance = %s after rollback, want 1000", u.CashBalance)
		}
		if _, err := tx.GetHolding(ctx, f.portfolio.PortfolioID, f.asset.AssetID); !errors.Is(err, domain.ErrHoldingNotFound) {
			t.Errorf("holding survived rollback: %v", err)
		}
		return nil
	})
}

func testOrderedPortfolioDeletion(t *testing.T, s store.Store) {
	f := seed(t, s)
	ts := now()
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		if err := tx.SaveHolding(ctx, &domain.Holding{
			PortfolioID: f.portfolio.PortfolioID, AssetID: f.asset.AssetID,
			Quantity: dec("3"), AveragePrice: dec("10"), CreatedAt: ts, UpdatedAt: ts,
		}); err != nil {
			return err
		}
		if err := tx.CreateLimitOrder(ctx, newLimitOrder(f, domain.DirectionSell, ts)); err != nil {
			return err
		}
		return tx.AppendOrder(ctx, &domain.OrderRecord{
			OrderID: uuid.New().String(), UserID: f.user.UserID, PortfolioID: f.portfolio.PortfolioID,
			AssetID: f.asset.AssetID, Symbol: f.asset.Symbol, Type: domain.RecordTypeBuy,
			Source: domain.SourceMarket, Status: domain.RecordStatusCompleted,
			Quantity: dec("3"), UnitPrice: dec("10"), TotalAmount: dec("30"), CreatedAt: ts,
		})
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		id := f.portfolio.PortfolioID
		if err := tx.DeleteHoldings(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteLimitOrders(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteStopOrders(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteOrders(ctx, id); err != nil {
			return err
		}
		return tx.DeletePortfolio(ctx, id)
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		list, err := tx.ListOrders(ctx, store.OrderQuery{PortfolioID: f.portfolio.PortfolioID})
		if err != nil {
			return err
		}
		if len(list) != 0 {
			t.Errorf("journal entries left = %d", len(list))
		}
		limits, err := tx.ListLimitOrders(ctx, store.DeferredQuery{PortfolioID: f.portfolio.PortfolioID})
		if err != nil {
			return err
		}
		if len(limits) != 0 {
			t.Errorf("limit orders left = %d", len(limits))
		}
		return nil
	})
}

func testWatchlist(t *testing.T, s store.Store) {
	f := seed(t, s)
	base := now()
	second := &domain.Asset{
		AssetID:   uuid.New().String(),
		Symbol:    "W" + strings.ToUpper(uuid.New().String()[:6]),
		Name:      "Watched Asset",
		Class:     domain.AssetClassCrypto,
		Active:    true,
		CreatedAt: base,
	}
	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateAsset(ctx, second); err != nil {
			return err
		}
		if err := tx.AddWatchlistItem(ctx, &domain.WatchlistItem{
			UserID: f.user.UserID, AssetID: f.asset.AssetID, CreatedAt: base,
		}); err != nil {
			return err
		}
		return tx.AddWatchlistItem(ctx, &domain.WatchlistItem{
			UserID: f.user.UserID, AssetID: second.AssetID, CreatedAt: base.Add(time.Second),
		})
	})

	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.AddWatchlistItem(ctx, &domain.WatchlistItem{
			UserID: f.user.UserID, AssetID: f.asset.AssetID, CreatedAt: base,
		})
	})
	if !errors.Is(err, domain.ErrWatchlistItemExists) {
		t.Fatalf("duplicate item: got %v, want ErrWatchlistItemExists", err)
	}
	err = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.AddWatchlistItem(ctx, &domain.WatchlistItem{
			UserID: uuid.New().String(), AssetID: f.asset.AssetID, CreatedAt: base,
		})
	})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("unknown user: got %v, want ErrUserNotFound", err)
	}
	err = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.AddWatchlistItem(ctx, &domain.WatchlistItem{
			UserID: f.user.UserID, AssetID: uuid.New().String(), CreatedAt: base,
		})
	})
	if !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("unknown asset: got %v, want ErrAssetNotFound", err)
	}

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		list, err := tx.ListWatchlist(ctx, f.user.UserID)
		if err != nil {
			return err
		}
		if len(list) != 2 || list[0].AssetID != second.AssetID || list[1].AssetID != f.asset.AssetID {
			t.Errorf("ListWatchlist order = %+v, want newest first", list)
			return nil
		}
		if !list[1].CreatedAt.Equal(base) {
			t.Errorf("created_at = %v, want %v", list[1].CreatedAt, base)
		}
		got, err := tx.GetWatchlistItem(ctx, f.user.UserID, second.AssetID)
		if err != nil {
			return err
		}
		if got.UserID != f.user.UserID {
			t.Errorf("GetWatchlistItem = %+v", got)
		}
		return tx.RemoveWatchlistItem(ctx, f.user.UserID, second.AssetID)
	})

	mustTx(t, s, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetWatchlistItem(ctx, f.user.UserID, second.AssetID); !errors.Is(err, domain.ErrWatchlistItemNotFound) {
			t.Errorf("GetWatchlistItem after remove = %v", err)
		}
		if err := tx.RemoveWatchlistItem(ctx, f.user.UserID, second.AssetID); !errors.Is(err, domain.ErrWatchlistItemNotFound) {
			t.Errorf("second remove = %v", err)
		}
		list, err := tx.ListWatchlist(ctx, f.user.UserID)
		if err != nil {
			return err
		}
		if len(list) != 1 {
			t.Errorf("ListWatchlist len = %d after remove, want 1", len(list))
		}
		return nil
	})
}
