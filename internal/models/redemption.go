package models

import "time"

type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionApproved  RedemptionStatus = "approved"
	RedemptionRejected  RedemptionStatus = "rejected"
	RedemptionCompleted RedemptionStatus = "completed"
)

// RedemptionRequest is a user's request to convert balance to off-platform
// cash. Allowed transitions: pending->approved->completed, pending->rejected.
// Completion debits exactly once; the request id is the idempotency key.
type RedemptionRequest struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	TokenCount    int64            `json:"token_count"`
	PaymentMethod string           `json:"payment_method"`
	Destination   string           `json:"destination"`
	Status        RedemptionStatus `json:"status"`
	Notes         *string          `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}
