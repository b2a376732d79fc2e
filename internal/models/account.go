package models

import "time"

// Account is one user's spendable Zaryo balance plus its append-only audit
// counters. TotalEarned and TotalSpent only ever grow; the ledger updates
// them in the same transaction as the balance itself.
type Account struct {
	UserID        string    `json:"user_id"`
	Balance       int64     `json:"balance"`
	TotalEarned   int64     `json:"total_earned"`
	TotalSpent    int64     `json:"total_spent"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}
