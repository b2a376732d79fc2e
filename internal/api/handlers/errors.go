package handlers

import (
	"errors"
	"net/http"

	"github.com/zaryo/zaryo-backend/internal/api/httpx"
	repo "github.com/zaryo/zaryo-backend/internal/repository"
)

// writeDomainError maps ledger/workflow errors onto HTTP statuses.
// Validation errors carry their message; transient failures come back 503 so
// clients know a retry can succeed.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrInvalidAmount):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_amount", "amount must be a positive integer", nil)
	case errors.Is(err, repo.ErrInsufficientBalance):
		httpx.WriteError(w, http.StatusPaymentRequired, "insufficient_balance", "insufficient token balance", nil)
	case errors.Is(err, repo.ErrOutOfStock):
		httpx.WriteError(w, http.StatusConflict, "out_of_stock", "not enough stock", nil)
	case errors.Is(err, repo.ErrDuplicateOperation):
		httpx.WriteError(w, http.StatusConflict, "duplicate_operation", "operation already applied", nil)
	case errors.Is(err, repo.ErrInvalidTransition):
		httpx.WriteError(w, http.StatusConflict, "invalid_transition", "request is not in a valid state for this action", nil)
	case errors.Is(err, repo.ErrAccountNotFound),
		errors.Is(err, repo.ErrProductNotFound),
		errors.Is(err, repo.ErrRequestNotFound),
		errors.Is(err, repo.ErrOrderNotFound),
		errors.Is(err, repo.ErrTransactionMissing):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, repo.ErrLedgerUnavailable):
		httpx.WriteError(w, http.StatusServiceUnavailable, "ledger_unavailable", "temporary failure, try again", nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
