package handler

import (
	"net/http"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/service"
	"github.com/go-chi/chi/v5"
)

// WatchlistHandler handles HTTP requests for a user's watchlist.
type WatchlistHandler struct {
	watchlistSvc *service.WatchlistService
}

// NewWatchlistHandler creates a new WatchlistHandler.
func NewWatchlistHandler(watchlistSvc *service.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{watchlistSvc: watchlistSvc}
}

// watchRequest is the JSON request body for POST /users/{user_id}/watchlist.
type watchRequest struct {
	Symbol string `json:"symbol"`
}

// watchedAssetResponse is one watchlist entry. Price fields are null when
// the quote could not be fetched.
type watchedAssetResponse struct {
	AssetID       string  `json:"asset_id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Class         string  `json:"class"`
	CurrentPrice  *string `json:"current_price"`
	Change        *string `json:"change"`
	ChangePercent *string `json:"change_percent"`
	AddedAt       string  `json:"added_at"`
}

// watchStatusResponse is the JSON response for
// GET /users/{user_id}/watchlist/{symbol}.
type watchStatusResponse struct {
	Symbol   string `json:"symbol"`
	Watching bool   `json:"watching"`
}

// List handles GET /users/{user_id}/watchlist.
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.watchlistSvc.Get(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	resp := make([]watchedAssetResponse, len(items))
	for i, item := range items {
		resp[i] = buildWatchedAssetResponse(item)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Add handles POST /users/{user_id}/watchlist.
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	item, err := h.watchlistSvc.Add(r.Context(), chi.URLParam(r, "user_id"), req.Symbol)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildWatchedAssetResponse(item))
}

// Check handles GET /users/{user_id}/watchlist/{symbol}.
func (h *WatchlistHandler) Check(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	watching, err := h.watchlistSvc.IsWatching(r.Context(), chi.URLParam(r, "user_id"), symbol)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, watchStatusResponse{Symbol: symbol, Watching: watching})
}

// Remove handles DELETE /users/{user_id}/watchlist/{symbol}.
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	err := h.watchlistSvc.Remove(r.Context(), chi.URLParam(r, "user_id"), chi.URLParam(r, "symbol"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func buildWatchedAssetResponse(item service.WatchedAsset) watchedAssetResponse {
	resp := watchedAssetResponse{
		AssetID: item.Asset.AssetID,
		Symbol:  item.Asset.Symbol,
		Name:    item.Asset.Name,
		Class:   string(item.Asset.Class),
		AddedAt: formatTime(item.Item.CreatedAt),
	}
	if item.Priced {
		price := item.Quote.Price.String()
		change := item.Quote.Change.String()
		pct := item.Quote.ChangePercent.String()
		resp.CurrentPrice = &price
		resp.Change = &change
		resp.ChangePercent = &pct
	}
	return resp
}
