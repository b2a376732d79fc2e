package models

import "time"

type TransactionKind string

const (
	KindPurchase        TransactionKind = "purchase"
	KindProductPurchase TransactionKind = "product_purchase"
	KindIssuance        TransactionKind = "issuance"
	KindRedemption      TransactionKind = "redemption"
	KindBidAccepted     TransactionKind = "bid_accepted"
	KindBidPayment      TransactionKind = "bid_payment"
	KindRefund          TransactionKind = "refund"
)

type TransactionStatus string

const (
	TxnPending   TransactionStatus = "pending"
	TxnCompleted TransactionStatus = "completed"
	TxnFailed    TransactionStatus = "failed"
)

// LedgerTransaction is the immutable audit record of one balance movement.
// FromAccount is nil for issuance (credit-only); ToAccount is nil for
// redemption (debit-only). Completed rows are never edited; corrections are
// new compensating transactions.
type LedgerTransaction struct {
	ID             string            `json:"id"`
	FromAccount    *string           `json:"from_account,omitempty"`
	ToAccount      *string           `json:"to_account,omitempty"`
	Amount         int64             `json:"amount"`
	Kind           TransactionKind   `json:"kind"`
	Status         TransactionStatus `json:"status"`
	Reference      *string           `json:"reference,omitempty"`
	IdempotencyKey *string           `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
}

// TransferSpec describes one balance movement for the ledger to apply.
// At least one of From/To must be set.
type TransferSpec struct {
	From           *string
	To             *string
	Amount         int64
	Kind           TransactionKind
	Reference      *string
	IdempotencyKey *string
}
