package handler

import (
	"net/http"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/service"
	"github.com/go-chi/chi/v5"
)

// PortfolioHandler handles HTTP requests for portfolio endpoints.
type PortfolioHandler struct {
	portfolioSvc *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioSvc *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioSvc: portfolioSvc}
}

// createPortfolioRequest is the JSON request body for
// POST /users/{user_id}/portfolios.
type createPortfolioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// portfolioResponse is the JSON response for a portfolio without holdings.
type portfolioResponse struct {
	PortfolioID string `json:"portfolio_id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// holdingResponse is a single valued position in the portfolio response.
// Priced is false when the current price could not be fetched and the
// average cost was used instead.
type holdingResponse struct {
	AssetID           string `json:"asset_id"`
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	Class             string `json:"class"`
	Quantity          string `json:"quantity"`
	AveragePrice      string `json:"average_price"`
	CurrentPrice      string `json:"current_price"`
	MarketValue       string `json:"market_value"`
	CostBasis         string `json:"cost_basis"`
	ProfitLoss        string `json:"profit_loss"`
	ProfitLossPercent string `json:"profit_loss_percent"`
	Priced            bool   `json:"priced"`
}

// portfolioDetailResponse is the JSON response for
// GET /users/{user_id}/portfolios/{portfolio_id}.
type portfolioDetailResponse struct {
	portfolioResponse
	Holdings          []holdingResponse `json:"holdings"`
	TotalValue        string            `json:"total_value"`
	TotalCost         string            `json:"total_cost"`
	ProfitLoss        string            `json:"profit_loss"`
	ProfitLossPercent string            `json:"profit_loss_percent"`
	ValuedAt          string            `json:"valued_at"`
}

// Create handles POST /users/{user_id}/portfolios.
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	p, err := h.portfolioSvc.Create(r.Context(), chi.URLParam(r, "user_id"), service.CreatePortfolioRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildPortfolioResponse(p))
}

// List handles GET /users/{user_id}/portfolios.
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	ps, err := h.portfolioSvc.List(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	resp := make([]portfolioResponse, len(ps))
	for i, p := range ps {
		resp[i] = buildPortfolioResponse(p)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /users/{user_id}/portfolios/{portfolio_id}.
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.portfolioSvc.Get(r.Context(), chi.URLParam(r, "user_id"), chi.URLParam(r, "portfolio_id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	resp := portfolioDetailResponse{
		portfolioResponse: buildPortfolioResponse(v.Portfolio),
		Holdings:          make([]holdingResponse, len(v.Holdings)),
		TotalValue:        v.TotalValue.String(),
		TotalCost:         v.TotalCost.String(),
		ProfitLoss:        v.ProfitLoss.String(),
		ProfitLossPercent: v.ProfitLossPercent.String(),
		ValuedAt:          formatTime(v.ValuedAt),
	}
	for i, hv := range v.Holdings {
		resp.Holdings[i] = holdingResponse{
			AssetID:           hv.Asset.AssetID,
			Symbol:            hv.Asset.Symbol,
			Name:              hv.Asset.Name,
			Class:             string(hv.Asset.Class),
			Quantity:          hv.Holding.Quantity.String(),
			AveragePrice:      hv.Holding.AveragePrice.String(),
			CurrentPrice:      hv.CurrentPrice.String(),
			MarketValue:       hv.MarketValue.String(),
			CostBasis:         hv.CostBasis.String(),
			ProfitLoss:        hv.ProfitLoss.String(),
			ProfitLossPercent: hv.ProfitLossPercent.String(),
			Priced:            hv.Priced,
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /users/{user_id}/portfolios/{portfolio_id}.
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.portfolioSvc.Delete(r.Context(), chi.URLParam(r, "user_id"), chi.URLParam(r, "portfolio_id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func buildPortfolioResponse(p *domain.Portfolio) portfolioResponse {
	return portfolioResponse{
		PortfolioID: p.PortfolioID,
		UserID:      p.UserID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}
