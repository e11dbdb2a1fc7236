package handler

import (
	"context"
	"net/http"

	"github.com/HamedDawoudzai/hybrid-exchange/internal/domain"
	"github.com/HamedDawoudzai/hybrid-exchange/internal/service"
	"github.com/go-chi/chi/v5"
)

// AccountHandler handles HTTP requests for user and cash endpoints.
type AccountHandler struct {
	accountSvc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// createUserRequest is the JSON request body for POST /users.
type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// cashRequest is the JSON request body for deposits and withdrawals.
// Amounts are decimal strings so no precision is lost in transit.
type cashRequest struct {
	Amount string `json:"amount"`
}

// userResponse is the JSON response for a user.
type userResponse struct {
	UserID           string `json:"user_id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	CashBalance      string `json:"cash_balance"`
	TotalDeposits    string `json:"total_deposits"`
	TotalWithdrawals string `json:"total_withdrawals"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// accountResponse is the JSON response for GET /users/{user_id}.
type accountResponse struct {
	userResponse
	ReservedCash string `json:"reserved_cash"`
	TotalCash    string `json:"total_cash"`
}

// Register handles POST /users.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	u, err := h.accountSvc.CreateUser(r.Context(), service.CreateUserRequest{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildUserResponse(u))
}

// GetAccount handles GET /users/{user_id}.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.accountSvc.GetAccount(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, accountResponse{
		userResponse: buildUserResponse(acct.User),
		ReservedCash: acct.ReservedCash.String(),
		TotalCash:    acct.TotalCash().String(),
	})
}

// Deposit handles POST /users/{user_id}/deposit.
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.moveCash(w, r, h.accountSvc.Deposit)
}

// Withdraw handles POST /users/{user_id}/withdraw.
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.moveCash(w, r, h.accountSvc.Withdraw)
}

func (h *AccountHandler) moveCash(
	w http.ResponseWriter,
	r *http.Request,
	move func(ctx context.Context, userID, amount string) (*domain.User, error),
) {
	var req cashRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	u, err := move(r.Context(), chi.URLParam(r, "user_id"), req.Amount)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildUserResponse(u))
}

func buildUserResponse(u *domain.User) userResponse {
	return userResponse{
		UserID:           u.UserID,
		Username:         u.Username,
		Email:            u.Email,
		CashBalance:      u.CashBalance.String(),
		TotalDeposits:    u.TotalDeposits.String(),
		TotalWithdrawals: u.TotalWithdrawals.String(),
		CreatedAt:        formatTime(u.CreatedAt),
		UpdatedAt:        formatTime(u.UpdatedAt),
	}
}
