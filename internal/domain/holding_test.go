package domain

import (
	"errors"
	"testing"
	"time"
)

func TestHolding_BuyFromEmpty(t *testing.T) {
	h := &Holding{}
	h.Buy(dec("10"), dec("85"), time.Now())

	if !h.Quantity.Equal(dec("10")) {
		t.Errorf("Quantity = %s, want 10", h.Quantity)
	}
	if !h.AveragePrice.Equal(dec("85")) {
		t.Errorf("AveragePrice = %s, want 85", h.AveragePrice)
	}
}

func TestHolding_BuyAveragesCost(t *testing.T) {
	h := &Holding{Quantity: dec("10"), AveragePrice: dec("100")}
	h.Buy(dec("30"), dec("120"), time.Now())

	if !h.Quantity.Equal(dec("40")) {
		t.Errorf("Quantity = %s, want 40", h.Quantity)
	}
	if !h.AveragePrice.Equal(dec("115")) {
		t.Errorf("AveragePrice = %s, want 115", h.AveragePrice)
	}
}

func TestHolding_SellKeepsAverage(t *testing.T) {
	h := &Holding{Quantity: dec("5"), AveragePrice: dec("42.5")}
	if err := h.Sell(dec("2"), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Quantity.Equal(dec("3")) {
		t.Errorf("Quantity = %s, want 3", h.Quantity)
	}
	if !h.AveragePrice.Equal(dec("42.5")) {
		t.Errorf("AveragePrice = %s, want 42.5", h.AveragePrice)
	}
	if h.Empty() {
		t.Error("holding should not be empty")
	}
}

func TestHolding_SellAllIsEmpty(t *testing.T) {
	h := &Holding{Quantity: dec("0.5"), AveragePrice: dec("50000")}
	if err := h.Sell(dec("0.50"), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Empty() {
		t.Errorf("expected empty holding, quantity = %s", h.Quantity)
	}
}

func TestHolding_SellTooMuch(t *testing.T) {
	h := &Holding{Quantity: dec("3"), AveragePrice: dec("10")}
	err := h.Sell(dec("3.00000001"), time.Now())
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}
	if !h.Quantity.Equal(dec("3")) {
		t.Errorf("Quantity changed to %s after failed sell", h.Quantity)
	}
}

func TestHolding_CostBasis(t *testing.T) {
	h := &Holding{Quantity: dec("3"), AveragePrice: dec("10.3333")}
	if got := h.CostBasis(); !got.Equal(dec("30.9999")) {
		t.Errorf("CostBasis = %s, want 30.9999", got)
	}
}
