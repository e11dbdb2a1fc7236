package handler

import (
	"net/http"
	"strconv"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderHandler handles HTTP requests for market, limit and stop order
// endpoints and the order journal.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// marketOrderRequest is the JSON request body for POST /users/{user_id}/orders.
type marketOrderRequest struct {
	PortfolioID string `json:"portfolio_id"`
	Symbol      string `json:"symbol"`
	Direction   string `json:"direction"`
	Quantity    string `json:"quantity"`
}

// limitOrderRequest is the JSON request body for
// POST /users/{user_id}/limit-orders.
type limitOrderRequest struct {
	PortfolioID string `json:"portfolio_id"`
	Symbol      string `json:"symbol"`
	Direction   string `json:"direction"`
	TargetPrice string `json:"target_price"`
	Quantity    string `json:"quantity"`
}

// stopOrderRequest is the JSON request body for
// POST /users/{user_id}/stop-orders. Direction may be omitted.
type stopOrderRequest struct {
	PortfolioID string `json:"portfolio_id"`
	Symbol      string `json:"symbol"`
	Direction   string `json:"direction"`
	StopPrice   string `json:"stop_price"`
	Quantity    string `json:"quantity"`
}

// orderRecordResponse is a single journal entry. portfolio_id and
// parent_order_id are null for entries that have none.
type orderRecordResponse struct {
	OrderID       string  `json:"order_id"`
	UserID        string  `json:"user_id"`
	PortfolioID   *string `json:"portfolio_id"`
	Symbol        string  `json:"symbol"`
	Type          string  `json:"type"`
	Source        string  `json:"source"`
	Status        string  `json:"status"`
	Quantity      string  `json:"quantity"`
	UnitPrice     string  `json:"unit_price"`
	TotalAmount   string  `json:"total_amount"`
	ParentOrderID *string `json:"parent_order_id"`
	CreatedAt     string  `json:"created_at"`
}

// limitOrderResponse is the JSON response for a limit order.
// All fields are always present; nullable fields use pointers.
type limitOrderResponse struct {
	OrderID        string  `json:"order_id"`
	UserID         string  `json:"user_id"`
	PortfolioID    string  `json:"portfolio_id"`
	Symbol         string  `json:"symbol"`
	Direction      string  `json:"direction"`
	TargetPrice    string  `json:"target_price"`
	Quantity       string  `json:"quantity"`
	ReservedAmount string  `json:"reserved_amount"`
	Status         string  `json:"status"`
	FilledPrice    *string `json:"filled_price"`
	FilledAt       *string `json:"filled_at"`
	CancelledAt    *string `json:"cancelled_at"`
	CancelReason   *string `json:"cancel_reason"`
	CreatedAt      string  `json:"created_at"`
}

// stopOrderResponse is the JSON response for a stop order.
type stopOrderResponse struct {
	OrderID      string  `json:"order_id"`
	UserID       string  `json:"user_id"`
	PortfolioID  string  `json:"portfolio_id"`
	Symbol       string  `json:"symbol"`
	Direction    string  `json:"direction"`
	StopPrice    string  `json:"stop_price"`
	Quantity     string  `json:"quantity"`
	Status       string  `json:"status"`
	FilledPrice  *string `json:"filled_price"`
	TriggeredAt  *string `json:"triggered_at"`
	FilledAt     *string `json:"filled_at"`
	CancelledAt  *string `json:"cancelled_at"`
	CancelReason *string `json:"cancel_reason"`
	CreatedAt    string  `json:"created_at"`
}

// PlaceMarketOrder handles POST /users/{user_id}/orders. A buy that the
// cash balance cannot cover is filled at the largest affordable quantity
// with as many fractional digits as the requested quantity carries, so
// "10" fills whole units and "10.5" may fill in tenths.
func (h *OrderHandler) PlaceMarketOrder(w http.ResponseWriter, r *http.Request) {
	var req marketOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	rec, err := h.orderSvc.PlaceMarketOrder(r.Context(), service.MarketOrderRequest{
		UserID:      chi.URLParam(r, "user_id"),
		PortfolioID: req.PortfolioID,
		Symbol:      req.Symbol,
		Direction:   req.Direction,
		Quantity:    req.Quantity,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderRecordResponse(rec))
}

// ListOrders handles GET /users/{user_id}/orders. Supports the
// portfolio_id and limit query parameters.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be an integer")
			return
		}
		limit = n
	}

	recs, err := h.orderSvc.ListOrders(r.Context(),
		chi.URLParam(r, "user_id"),
		r.URL.Query().Get("portfolio_id"),
		limit,
	)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	resp := make([]orderRecordResponse, len(recs))
	for i, rec := range recs {
		resp[i] = buildOrderRecordResponse(rec)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// CreateLimitOrder handles POST /users/{user_id}/limit-orders.
func (h *OrderHandler) CreateLimitOrder(w http.ResponseWriter, r *http.Request) {
	var req limitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	o, err := h.orderSvc.CreateLimitOrder(r.Context(), service.LimitOrderRequest{
		UserID:      chi.URLParam(r, "user_id"),
		PortfolioID: req.PortfolioID,
		Symbol:      req.Symbol,
		Direction:   req.Direction,
		TargetPrice: req.TargetPrice,
		Quantity:    req.Quantity,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildLimitOrderResponse(o))
}

// ListLimitOrders handles GET /users/{user_id}/limit-orders. Supports the
// portfolio_id and status query parameters.
func (h *OrderHandler) ListLimitOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := h.orderSvc.ListLimitOrders(r.Context(), chi.URLParam(r, "user_id"), q.Get("portfolio_id"), q.Get("status"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	resp := make([]limitOrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = buildLimitOrderResponse(o)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetLimitOrder handles GET /users/{user_id}/limit-orders/{order_id}.
func (h *OrderHandler) GetLimitOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderSvc.GetLimitOrder(r.Context(), chi.URLParam(r, "user_id"), chi.URLParam(r, "order_id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildLimitOrderResponse(o))
}

// CancelLimitOrder handles DELETE /users/{user_id}/limit-orders/{order_id}.
func (h *OrderHandler) CancelLimitOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderSvc.CancelLimitOrder(r.Context(), chi.URLParam(r, "user_id"), chi.URLParam(r, "order_id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildLimitOrderResponse(o))
}

// CreateStopOrder handles POST /users/{user_id}/stop-orders.
func (h *OrderHandler) CreateStopOrder(w http.ResponseWriter, r *http.Request) {
	var req stopOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	o, err := h.orderSvc.CreateStopOrder(r.Context(), service.StopOrderRequest{
		UserID:      chi.URLParam(r, "user_id"),
		PortfolioID: req.PortfolioID,
		Symbol:      req.Symbol,
		Direction:   req.Direction,
		StopPrice:   req.StopPrice,
		Quantity:    req.Quantity,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildStopOrderResponse(o))
}

// ListStopOrders handles GET /users/{user_id}/stop-orders.
func (h *OrderHandler) ListStopOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := h.orderSvc.ListStopOrders(r.Context(), chi.URLParam(r, "user_id"), q.Get("portfolio_id"), q.Get("status"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	resp := make([]stopOrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = buildStopOrderResponse(o)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetStopOrder handles GET /users/{user_id}/stop-orders/{order_id}.
func (h *OrderHandler) GetStopOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderSvc.GetStopOrder(r.Context(), chi.URLParam(r, "user_id"), chi.URLParam(r, "order_id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildStopOrderResponse(o))
}

// CancelStopOrder handles DELETE /users/{user_id}/stop-orders/{order_id}.
func (h *OrderHandler) CancelStopOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderSvc.CancelStopOrder(r.Context(), chi.URLParam(r, "user_id"), chi.URLParam(r, "order_id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildStopOrderResponse(o))
}

func buildOrderRecordResponse(rec *domain.OrderRecord) orderRecordResponse {
	return orderRecordResponse{
		OrderID:       rec.OrderID,
		UserID:        rec.UserID,
		PortfolioID:   optional(rec.PortfolioID),
		Symbol:        rec.Symbol,
		Type:          string(rec.Type),
		Source:        string(rec.Source),
		Status:        rec.Status,
		Quantity:      rec.Quantity.String(),
		UnitPrice:     rec.UnitPrice.String(),
		TotalAmount:   rec.TotalAmount.String(),
		ParentOrderID: optional(rec.ParentOrderID),
		CreatedAt:     formatTime(rec.CreatedAt),
	}
}

func buildLimitOrderResponse(o *domain.LimitOrder) limitOrderResponse {
	resp := limitOrderResponse{
		OrderID:        o.OrderID,
		UserID:         o.UserID,
		PortfolioID:    o.PortfolioID,
		Symbol:         o.Symbol,
		Direction:      string(o.Direction),
		TargetPrice:    o.TargetPrice.String(),
		Quantity:       o.Quantity.String(),
		ReservedAmount: o.ReservedAmount.String(),
		Status:         string(o.Status),
		FilledAt:       formatTimePtr(o.FilledAt),
		CancelledAt:    formatTimePtr(o.CancelledAt),
		CancelReason:   optional(string(o.CancelReason)),
		CreatedAt:      formatTime(o.CreatedAt),
	}
	if o.Status == domain.OrderStatusFilled {
		resp.FilledPrice = optional(o.FilledPrice.String())
	}
	return resp
}

func buildStopOrderResponse(o *domain.StopOrder) stopOrderResponse {
	resp := stopOrderResponse{
		OrderID:      o.OrderID,
		UserID:       o.UserID,
		PortfolioID:  o.PortfolioID,
		Symbol:       o.Symbol,
		Direction:    string(o.Direction),
		StopPrice:    o.StopPrice.String(),
		Quantity:     o.Quantity.String(),
		Status:       string(o.Status),
		TriggeredAt:  formatTimePtr(o.TriggeredAt),
		FilledAt:     formatTimePtr(o.FilledAt),
		CancelledAt:  formatTimePtr(o.CancelledAt),
		CancelReason: optional(string(o.CancelReason)),
		CreatedAt:    formatTime(o.CreatedAt),
	}
	if o.Status == domain.OrderStatusFilled {
		resp.FilledPrice = optional(o.FilledPrice.String())
	}
	return resp
}

// optional returns nil for an empty string.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
