package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaryo/zaryo-backend/internal/models"
	repo "github.com/zaryo/zaryo-backend/internal/repository"
)

type ledgerRepo struct{ pool *pgxpool.Pool }

func (r *ledgerRepo) Apply(ctx context.Context, spec models.TransferSpec) (models.LedgerTransaction, error) {
	var out models.LedgerTransaction
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		out, err = applyTransfer(ctx, tx, spec)
		return err
	})
	if errors.Is(err, repo.ErrDuplicateOperation) && spec.IdempotencyKey != nil {
		// Lost an insert race: the pre-check saw nothing but another call
		// committed the same key first. Return the committed row.
		if out.ID == "" {
			if existing, ferr := findByIdempotencyKey(ctx, r.pool, *spec.IdempotencyKey); ferr == nil {
				out = existing
			}
		}
		return out, repo.ErrDuplicateOperation
	}
	return out, err
}

func (r *ledgerRepo) GetByID(ctx context.Context, id string) (models.LedgerTransaction, error) {
	var tx models.LedgerTransaction
	err := r.pool.QueryRow(ctx,
		`SELECT id, from_account, to_account, amount, kind, status, reference, idempotency_key, created_at
		   FROM ledger_transactions
		  WHERE id = $1`,
		id,
	).Scan(&tx.ID, &tx.FromAccount, &tx.ToAccount, &tx.Amount, &tx.Kind, &tx.Status,
		&tx.Reference, &tx.IdempotencyKey, &tx.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return tx, repo.ErrTransactionMissing
	}
	return tx, err
}

func (r *ledgerRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, from_account, to_account, amount, kind, status, reference, idempotency_key, created_at
		   FROM ledger_transactions
		  WHERE from_account = $1 OR to_account = $1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LedgerTransaction
	for rows.Next() {
		var tx models.LedgerTransaction
		if err := rows.Scan(&tx.ID, &tx.FromAccount, &tx.ToAccount, &tx.Amount, &tx.Kind,
			&tx.Status, &tx.Reference, &tx.IdempotencyKey, &tx.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
