package domain

import (
	"errors"
	"testing"
	"time"
)

func TestLimitOrder_Triggered(t *testing.T) {
	buy := &LimitOrder{Direction: DirectionBuy, TargetPrice: dec("90")}
	sell := &LimitOrder{Direction: DirectionSell, TargetPrice: dec("90")}

	tests := []struct {
		name  string
		order *LimitOrder
		price string
		want  bool
	}{
		{"buy below target", buy, "85", true},
		{"buy at target", buy, "90", true},
		{"buy above target", buy, "90.0001", false},
		{"sell above target", sell, "95", true},
		{"sell at target", sell, "90", true},
		{"sell below target", sell, "89.9999", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.order.Triggered(dec(tt.price)); got != tt.want {
				t.Errorf("Triggered(%s) = %v, want %v", tt.price, got, tt.want)
			}
		})
	}
}

func TestLimitOrder_TransitionsOnce(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	o := &LimitOrder{Status: OrderStatusPending}

	if err := o.Fill(dec("85"), now); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if o.Status != OrderStatusFilled || o.FilledAt == nil || !o.FilledAt.Equal(now) {
		t.Fatalf("unexpected state after fill: %+v", o)
	}
	if err := o.Cancel(CancelReasonUser, now); !errors.Is(err, ErrConcurrencyConflict) {
		t.Errorf("Cancel after fill: got %v, want ErrConcurrencyConflict", err)
	}
	if err := o.Fill(dec("80"), now); !errors.Is(err, ErrConcurrencyConflict) {
		t.Errorf("second Fill: got %v, want ErrConcurrencyConflict", err)
	}
	if !o.FilledPrice.Equal(dec("85")) {
		t.Errorf("FilledPrice = %s, want 85", o.FilledPrice)
	}
}

func TestLimitOrder_Cancel(t *testing.T) {
	now := time.Now()
	o := &LimitOrder{Status: OrderStatusPending}
	if err := o.Cancel(CancelReasonInsufficientHoldings, now); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if o.Status != OrderStatusCancelled || o.CancelReason != CancelReasonInsufficientHoldings {
		t.Errorf("unexpected state after cancel: %+v", o)
	}
	if o.CancelledAt == nil {
		t.Error("CancelledAt should be set")
	}
}

func TestStopOrder_TriggeredAtOrBelow(t *testing.T) {
	o := &StopOrder{StopPrice: dec("50000")}
	if !o.Triggered(dec("49000")) {
		t.Error("expected trigger below stop")
	}
	if !o.Triggered(dec("50000")) {
		t.Error("expected trigger at stop")
	}
	if o.Triggered(dec("50000.01")) {
		t.Error("unexpected trigger above stop")
	}
}

func TestStopOrder_FillRecordsTrigger(t *testing.T) {
	trig := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	now := trig.Add(time.Millisecond)
	o := &StopOrder{Status: OrderStatusPending}
	if err := o.Fill(dec("49000"), trig, now); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if !o.TriggeredAt.Equal(trig) || !o.FilledAt.Equal(now) {
		t.Errorf("TriggeredAt = %v, FilledAt = %v", o.TriggeredAt, o.FilledAt)
	}
	if err := o.Cancel(CancelReasonUser, nil, now); !errors.Is(err, ErrConcurrencyConflict) {
		t.Errorf("Cancel after fill: got %v, want ErrConcurrencyConflict", err)
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	if OrderStatusPending.Terminal() {
		t.Error("pending should not be terminal")
	}
	if !OrderStatusFilled.Terminal() || !OrderStatusCancelled.Terminal() {
		t.Error("filled and cancelled should be terminal")
	}
	if OrderStatus("expired").Valid() {
		t.Error("expired is not a valid status")
	}
}
