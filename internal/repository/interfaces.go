package repository

import (
	"context"

	"github.com/zaryo/zaryo-backend/internal/models"
)

type Users interface {
	Create(ctx context.Context, username, email, passwordHash, role string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type Accounts interface {
	GetOrCreate(ctx context.Context, userID string) (models.Account, error)
	Get(ctx context.Context, userID string) (models.Account, error)
}

// Ledger owns every balance mutation. Apply executes the whole movement
// (row locks, balance check, account updates, transaction insert) as one
// serializable database transaction; on any failure nothing is visible.
// A replayed idempotency key returns the original transaction together with
// ErrDuplicateOperation and mutates nothing.
type Ledger interface {
	Apply(ctx context.Context, spec models.TransferSpec) (models.LedgerTransaction, error)
	GetByID(ctx context.Context, id string) (models.LedgerTransaction, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerTransaction, error)
}

type Products interface {
	Create(ctx context.Context, p models.Product) (models.Product, error)
	GetByID(ctx context.Context, id string) (models.Product, error)
}

// PurchaseOrders settles checkouts. Checkout runs stock validation, the
// buyer->seller transfer, the stock decrement and the order insert under one
// transaction holding the product row lock, so concurrent checkouts of the
// same item serialize. Domain failures still record a failed order.
type PurchaseOrders interface {
	Checkout(ctx context.Context, buyerID, productID string, quantity int) (models.PurchaseOrder, error)
	GetByID(ctx context.Context, id string) (models.PurchaseOrder, error)
}

// Redemptions drives the pending->approved->completed|rejected state machine.
// Complete flips approved->completed and debits in the same transaction;
// a second completion returns ErrDuplicateOperation without a second debit.
type Redemptions interface {
	Create(ctx context.Context, r models.RedemptionRequest) (models.RedemptionRequest, error)
	GetByID(ctx context.Context, id string) (models.RedemptionRequest, error)
	List(ctx context.Context, status models.RedemptionStatus, limit, offset int) ([]models.RedemptionRequest, error)
	Approve(ctx context.Context, id, notes string) (models.RedemptionRequest, error)
	Reject(ctx context.Context, id, notes string) (models.RedemptionRequest, error)
	Complete(ctx context.Context, id, notes string) (models.RedemptionRequest, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
