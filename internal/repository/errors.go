package repository

import "errors"

// Ledger error taxonomy. Validation errors are deterministic and surfaced to
// the caller as-is; ErrLedgerUnavailable marks transient persistence failures
// that callers may retry.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateOperation  = errors.New("duplicate operation")
	ErrLedgerUnavailable   = errors.New("ledger unavailable")

	ErrProductNotFound    = errors.New("product not found")
	ErrOutOfStock         = errors.New("out of stock")
	ErrRequestNotFound    = errors.New("redemption request not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrTransactionMissing = errors.New("transaction not found")
	ErrOrderNotFound      = errors.New("purchase order not found")
)
