package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/goccy/go-json"
)

func TestWriteJSON(t *testing.T) {
	t.Run("sets content type and status code", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusCreated, map[string]string{"status": "ok"})

		if got := w.Header().Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want %q", got, "application/json")
		}
		if w.Code != http.StatusCreated {
			t.Errorf("status code = %d, want %d", w.Code, http.StatusCreated)
		}
		var result map[string]string
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if result["status"] != "ok" {
			t.Errorf("body status = %q, want %q", result["status"], "ok")
		}
	})

	t.Run("encodes null pointers", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusOK, limitOrderResponse{OrderID: "o1"})

		var raw map[string]any
		if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		for _, k := range []string{"filled_price", "filled_at", "cancelled_at", "cancel_reason"} {
			v, ok := raw[k]
			if !ok || v != nil {
				t.Errorf("%s = %v (present %v), want null", k, v, ok)
			}
		}
	})
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", domain.Invalid("quantity must be greater than 0"), http.StatusBadRequest, "validation_error"},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
		{"wrapped order not found", fmt.Errorf("load: %w", domain.ErrLimitOrderNotFound), http.StatusNotFound, "limit_order_not_found"},
		{"duplicate user", domain.ErrUserAlreadyExists, http.StatusConflict, "user_already_exists"},
		{"not pending", domain.ErrConcurrencyConflict, http.StatusConflict, "concurrency_conflict"},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
		{"insufficient holdings", domain.ErrInsufficientHoldings, http.StatusUnprocessableEntity, "insufficient_holdings"},
		{"inactive asset", domain.ErrAssetInactive, http.StatusUnprocessableEntity, "asset_inactive"},
		{"oracle down", fmt.Errorf("%w: timeout", domain.ErrOracleUnavailable), http.StatusServiceUnavailable, "oracle_unavailable"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteDomainError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status code = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp errorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if resp.Error != tt.wantCode {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantCode)
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(resp.Message, "disk") {
				t.Errorf("internal error leaked: %q", resp.Message)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     bool
	}{
		{"valid", "application/json", `{"name":"test"}`, false},
		{"charset suffix", "application/json; charset=utf-8", `{"name":"test"}`, false},
		{"missing content type", "", `{"name":"test"}`, true},
		{"wrong content type", "text/plain", `{"name":"test"}`, true},
		{"malformed", "application/json", `{invalid json}`, true},
		{"unknown field", "application/json", `{"name":"test","extra":1}`, true},
		{"empty body", "application/json", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			var got payload
			err := ParseJSON(r, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), "Content-Type") {
					t.Errorf("error = %q, should mention Content-Type", err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != "test" {
				t.Errorf("name = %q, want %q", got.Name, "test")
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 30, 5, 999, time.FixedZone("EST", -5*3600))
	if got := formatTime(ts); got != "2024-03-09T19:30:05Z" {
		t.Errorf("formatTime = %q", got)
	}
	if formatTimePtr(nil) != nil {
		t.Error("formatTimePtr(nil) should be nil")
	}
}
