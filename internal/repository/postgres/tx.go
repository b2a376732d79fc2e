package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaryo/zaryo-backend/internal/models"
	repo "github.com/zaryo/zaryo-backend/internal/repository"
)

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// withTx runs fn inside one serializable transaction. Rollback on any error,
// so a failed transfer leaves no partial state behind.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("%w: begin: %v", repo.ErrLedgerUnavailable, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps driver errors onto the ledger taxonomy. Serialization and
// deadlock failures are transient and retryable, as are connection problems.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		repo.ErrInvalidAmount, repo.ErrAccountNotFound, repo.ErrInsufficientBalance,
		repo.ErrDuplicateOperation, repo.ErrLedgerUnavailable, repo.ErrProductNotFound,
		repo.ErrOutOfStock, repo.ErrRequestNotFound, repo.ErrInvalidTransition,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", repo.ErrLedgerUnavailable, pgErr.Code)
		case "23505":
			return repo.ErrDuplicateOperation
		}
	}
	return fmt.Errorf("%w: %v", repo.ErrLedgerUnavailable, err)
}

// applyTransfer is the single choke point for balance mutations. Every code
// path that moves tokens (direct transfers, checkout settlement, redemption
// debits) funnels through here inside its own transaction.
//
// Locks the involved account rows in a stable order, enforces the
// non-negative balance invariant under the lock, updates balances and the
// append-only totals, and inserts exactly one completed transaction row.
func applyTransfer(ctx context.Context, tx pgx.Tx, spec models.TransferSpec) (models.LedgerTransaction, error) {
	var out models.LedgerTransaction
	if spec.Amount <= 0 {
		return out, repo.ErrInvalidAmount
	}
	if spec.From == nil && spec.To == nil {
		return out, repo.ErrInvalidAmount
	}

	if spec.IdempotencyKey != nil && *spec.IdempotencyKey != "" {
		existing, err := findByIdempotencyKey(ctx, tx, *spec.IdempotencyKey)
		if err == nil {
			return existing, repo.ErrDuplicateOperation
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return out, classify(err)
		}
	}

	var fromBalance int64
	for _, id := range lockOrder(spec.From, spec.To) {
		var bal int64
		err := tx.QueryRow(ctx,
			`SELECT balance FROM accounts WHERE user_id=$1 FOR UPDATE`, id,
		).Scan(&bal)
		if errors.Is(err, pgx.ErrNoRows) {
			return out, fmt.Errorf("%w: %s", repo.ErrAccountNotFound, id)
		}
		if err != nil {
			return out, classify(err)
		}
		if spec.From != nil && id == *spec.From {
			fromBalance = bal
		}
	}

	if spec.From != nil && fromBalance < spec.Amount {
		return out, repo.ErrInsufficientBalance
	}

	if spec.From != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE accounts
			    SET balance = balance - $2,
			        total_spent = total_spent + $2,
			        last_updated_at = now()
			  WHERE user_id = $1`,
			*spec.From, spec.Amount,
		); err != nil {
			return out, classify(err)
		}
	}
	if spec.To != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE accounts
			    SET balance = balance + $2,
			        total_earned = total_earned + $2,
			        last_updated_at = now()
			  WHERE user_id = $1`,
			*spec.To, spec.Amount,
		); err != nil {
			return out, classify(err)
		}
	}

	out = models.LedgerTransaction{
		ID:             uuid.NewString(),
		FromAccount:    spec.From,
		ToAccount:      spec.To,
		Amount:         spec.Amount,
		Kind:           spec.Kind,
		Status:         models.TxnCompleted,
		Reference:      spec.Reference,
		IdempotencyKey: spec.IdempotencyKey,
	}
	err := tx.QueryRow(ctx,
		`INSERT INTO ledger_transactions
		   (id, from_account, to_account, amount, kind, status, reference, idempotency_key)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING created_at`,
		out.ID, out.FromAccount, out.ToAccount, out.Amount, out.Kind, out.Status,
		out.Reference, out.IdempotencyKey,
	).Scan(&out.CreatedAt)
	if err != nil {
		// Unique violation on idempotency_key: a concurrent call already
		// committed this operation. Signal duplicate; Apply refetches the
		// winning row after rollback.
		return models.LedgerTransaction{}, classify(err)
	}
	return out, nil
}

// lockOrder returns the distinct account ids sorted, so two transfers
// touching the same pair always lock in the same order.
func lockOrder(from, to *string) []string {
	ids := make([]string, 0, 2)
	if from != nil {
		ids = append(ids, *from)
	}
	if to != nil && (from == nil || *to != *from) {
		ids = append(ids, *to)
	}
	sort.Strings(ids)
	return ids
}

func findByIdempotencyKey(ctx context.Context, q querier, key string) (models.LedgerTransaction, error) {
	var tx models.LedgerTransaction
	err := q.QueryRow(ctx,
		`SELECT id, from_account, to_account, amount, kind, status, reference, idempotency_key, created_at
		   FROM ledger_transactions
		  WHERE idempotency_key = $1`,
		key,
	).Scan(&tx.ID, &tx.FromAccount, &tx.ToAccount, &tx.Amount, &tx.Kind, &tx.Status,
		&tx.Reference, &tx.IdempotencyKey, &tx.CreatedAt)
	return tx, err
}
