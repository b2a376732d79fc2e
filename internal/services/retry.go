package services

import (
	"context"
	"errors"
	"time"

	repo "github.com/zaryo/zaryo-backend/internal/repository"
)

const maxAttempts = 3

// withRetry re-runs fn on transient ledger failures only. Validation errors
// are deterministic and returned immediately. The ledger commits all-or-
// nothing, so retrying an unavailable transfer can never double-apply.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if !errors.Is(err, repo.ErrLedgerUnavailable) || attempt >= maxAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
}
