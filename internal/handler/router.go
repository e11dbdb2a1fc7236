package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/service"
	"github.com/go-chi/chi/v5"
)

// Services are the application services exposed over HTTP.
type Services struct {
	Accounts   *service.AccountService
	Portfolios *service.PortfolioService
	Orders     *service.OrderService
	Assets     *service.AssetService
	Watchlist  *service.WatchlistService
}

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware.
func NewRouter(svc Services, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	accountH := NewAccountHandler(svc.Accounts)
	portfolioH := NewPortfolioHandler(svc.Portfolios)
	orderH := NewOrderHandler(svc.Orders)
	assetH := NewAssetHandler(svc.Assets)
	watchlistH := NewWatchlistHandler(svc.Watchlist)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// User and cash routes.
	r.Post("/users", accountH.Register)
	r.Route("/users/{user_id}", func(r chi.Router) {
		r.Get("/", accountH.GetAccount)
		r.Post("/deposit", accountH.Deposit)
		r.Post("/withdraw", accountH.Withdraw)

		// Portfolio routes.
		r.Post("/portfolios", portfolioH.Create)
		r.Get("/portfolios", portfolioH.List)
		r.Get("/portfolios/{portfolio_id}", portfolioH.Get)
		r.Delete("/portfolios/{portfolio_id}", portfolioH.Delete)

		// Market orders and the journal.
		r.Post("/orders", orderH.PlaceMarketOrder)
		r.Get("/orders", orderH.ListOrders)

		// Limit order routes.
		r.Post("/limit-orders", orderH.CreateLimitOrder)
		r.Get("/limit-orders", orderH.ListLimitOrders)
		r.Get("/limit-orders/{order_id}", orderH.GetLimitOrder)
		r.Delete("/limit-orders/{order_id}", orderH.CancelLimitOrder)

		// Stop order routes.
		r.Post("/stop-orders", orderH.CreateStopOrder)
		r.Get("/stop-orders", orderH.ListStopOrders)
		r.Get("/stop-orders/{order_id}", orderH.GetStopOrder)
		r.Delete("/stop-orders/{order_id}", orderH.CancelStopOrder)

		// Watchlist routes.
		r.Get("/watchlist", watchlistH.List)
		r.Post("/watchlist", watchlistH.Add)
		r.Get("/watchlist/{symbol}", watchlistH.Check)
		r.Delete("/watchlist/{symbol}", watchlistH.Remove)
	})

	// Asset routes.
	r.Get("/assets", assetH.List)
	r.Post("/assets", assetH.Create)
	r.Get("/assets/{symbol}/quote", assetH.GetQuote)
	r.Get("/assets/{symbol}/history", assetH.GetHistory)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			level := slog.LevelInfo
			if ww.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
