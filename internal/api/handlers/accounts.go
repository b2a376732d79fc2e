package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zaryo/zaryo-backend/internal/api/httpx"
	"github.com/zaryo/zaryo-backend/internal/middleware"
	"github.com/zaryo/zaryo-backend/internal/services"
)

type AccountsHandler struct {
	Ledger *services.LedgerService
}

func NewAccountsHandler(ls *services.LedgerService) *AccountsHandler {
	return &AccountsHandler{Ledger: ls}
}

// Get returns balance and totals. Users can read their own account; admins
// can read any.
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !canAccess(r, id) {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "not your account", nil)
		return
	}
	a, err := h.Ledger.Account(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *AccountsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !canAccess(r, id) {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "not your account", nil)
		return
	}
	limit, offset := pageParams(r)
	txs, err := h.Ledger.History(r.Context(), id, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txs)
}

func (h *AccountsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Ledger.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

func canAccess(r *http.Request, accountID string) bool {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		return false
	}
	return claims.UserID == accountID || claims.Role == "admin"
}

func pageParams(r *http.Request) (limit, offset int) {
	limit, offset = 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
