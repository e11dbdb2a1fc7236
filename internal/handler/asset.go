package handler

import (
	"net/http"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/service"
	"github.com/go-chi/chi/v5"
)

// AssetHandler handles HTTP requests for the asset catalog and prices.
type AssetHandler struct {
	assetSvc *service.AssetService
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assetSvc *service.AssetService) *AssetHandler {
	return &AssetHandler{assetSvc: assetSvc}
}

// createAssetRequest is the JSON request body for POST /assets.
type createAssetRequest struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Class  string `json:"class"`
}

// assetResponse is the JSON response for an asset.
type assetResponse struct {
	AssetID   string `json:"asset_id"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Class     string `json:"class"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// quoteResponse is the JSON response for GET /assets/{symbol}/quote and a
// single candle in the history response.
type quoteResponse struct {
	Symbol        string `json:"symbol"`
	Class         string `json:"class"`
	Price         string `json:"price"`
	Open          string `json:"open"`
	High          string `json:"high"`
	Low           string `json:"low"`
	PreviousClose string `json:"previous_close"`
	Change        string `json:"change"`
	ChangePercent string `json:"change_percent"`
	Volume        int64  `json:"volume"`
	Timestamp     string `json:"timestamp"`
}

// historyResponse is the JSON response for GET /assets/{symbol}/history.
type historyResponse struct {
	Symbol     string          `json:"symbol"`
	Resolution string          `json:"resolution"`
	Quotes     []quoteResponse `json:"quotes"`
}

// List handles GET /assets.
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assetSvc.List(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	resp := make([]assetResponse, len(assets))
	for i, a := range assets {
		resp[i] = buildAssetResponse(a)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Create handles POST /assets.
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	a, err := h.assetSvc.Create(r.Context(), service.CreateAssetRequest{
		Symbol: req.Symbol,
		Name:   req.Name,
		Class:  req.Class,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildAssetResponse(a))
}

// GetQuote handles GET /assets/{symbol}/quote.
func (h *AssetHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	a, q, err := h.assetSvc.GetQuote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildQuoteResponse(a, q))
}

// GetHistory handles GET /assets/{symbol}/history. Supports the
// resolution, from and to query parameters; from and to are RFC 3339.
func (h *AssetHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := service.HistoryRequest{
		Symbol:     chi.URLParam(r, "symbol"),
		Resolution: q.Get("resolution"),
	}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{
		{"from", &req.From},
		{"to", &req.To},
	} {
		s := q.Get(p.name)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", p.name+" must be a valid RFC 3339 timestamp")
			return
		}
		*p.dst = t
	}

	a, quotes, err := h.assetSvc.GetHistory(r.Context(), req)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	resp := historyResponse{
		Symbol:     a.Symbol,
		Resolution: req.Resolution,
		Quotes:     make([]quoteResponse, len(quotes)),
	}
	if resp.Resolution == "" {
		resp.Resolution = "D"
	}
	for i, qt := range quotes {
		resp.Quotes[i] = buildQuoteResponse(a, qt)
	}
	WriteJSON(w, http.StatusOK, resp)
}

func buildAssetResponse(a *domain.Asset) assetResponse {
	return assetResponse{
		AssetID:   a.AssetID,
		Symbol:    a.Symbol,
		Name:      a.Name,
		Class:     string(a.Class),
		Active:    a.Active,
		CreatedAt: formatTime(a.CreatedAt),
	}
}

func buildQuoteResponse(a *domain.Asset, q domain.Quote) quoteResponse {
	return quoteResponse{
		Symbol:        a.Symbol,
		Class:         string(a.Class),
		Price:         q.Price.String(),
		Open:          q.Open.String(),
		High:          q.High.String(),
		Low:           q.Low.String(),
		PreviousClose: q.PreviousClose.String(),
		Change:        q.Change.String(),
		ChangePercent: q.ChangePercent.String(),
		Volume:        q.Volume,
		Timestamp:     formatTime(q.Timestamp),
	}
}
