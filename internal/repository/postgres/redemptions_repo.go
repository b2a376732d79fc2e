package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaryo/zaryo-backend/internal/models"
	repo "github.com/zaryo/zaryo-backend/internal/repository"
)

type redemptionsRepo struct{ pool *pgxpool.Pool }

const redemptionColumns = `id, user_id, token_count, payment_method, destination, status, notes, created_at, completed_at`

func scanRedemption(row pgx.Row) (models.RedemptionRequest, error) {
	var r models.RedemptionRequest
	err := row.Scan(&r.ID, &r.UserID, &r.TokenCount, &r.PaymentMethod, &r.Destination,
		&r.Status, &r.Notes, &r.CreatedAt, &r.CompletedAt)
	return r, err
}

func (r *redemptionsRepo) Create(ctx context.Context, req models.RedemptionRequest) (models.RedemptionRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = models.RedemptionPending
	row := r.pool.QueryRow(ctx,
		`INSERT INTO redemption_requests
		   (id, user_id, token_count, payment_method, destination, status)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING `+redemptionColumns,
		req.ID, req.UserID, req.TokenCount, req.PaymentMethod, req.Destination, req.Status,
	)
	out, err := scanRedemption(row)
	if err != nil {
		return out, classify(err)
	}
	return out, nil
}

func (r *redemptionsRepo) GetByID(ctx context.Context, id string) (models.RedemptionRequest, error) {
	out, err := scanRedemption(r.pool.QueryRow(ctx,
		`SELECT `+redemptionColumns+` FROM redemption_requests WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return out, repo.ErrRequestNotFound
	}
	return out, err
}

func (r *redemptionsRepo) List(ctx context.Context, status models.RedemptionStatus, limit, offset int) ([]models.RedemptionRequest, error) {
	q := `SELECT ` + redemptionColumns + ` FROM redemption_requests`
	args := []any{limit, offset}
	if status != "" {
		q += ` WHERE status=$3`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RedemptionRequest
	for rows.Next() {
		var req models.RedemptionRequest
		if err := rows.Scan(&req.ID, &req.UserID, &req.TokenCount, &req.PaymentMethod,
			&req.Destination, &req.Status, &req.Notes, &req.CreatedAt, &req.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// lockRequest fetches a request row FOR UPDATE so concurrent admin actions on
// the same request serialize.
func lockRequest(ctx context.Context, tx pgx.Tx, id string) (models.RedemptionRequest, error) {
	out, err := scanRedemption(tx.QueryRow(ctx,
		`SELECT `+redemptionColumns+` FROM redemption_requests WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return out, repo.ErrRequestNotFound
	}
	if err != nil {
		return out, classify(err)
	}
	return out, nil
}

// Approve moves pending->approved, validating the user still holds at least
// token_count at approval time. The balance may shrink again before
// completion; Complete re-validates inside the debit transaction.
func (r *redemptionsRepo) Approve(ctx context.Context, id, notes string) (models.RedemptionRequest, error) {
	var out models.RedemptionRequest
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		req, err := lockRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != models.RedemptionPending {
			return repo.ErrInvalidTransition
		}
		var balance int64
		err = tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE user_id=$1`, req.UserID).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrAccountNotFound
		}
		if err != nil {
			return classify(err)
		}
		if balance < req.TokenCount {
			return repo.ErrInsufficientBalance
		}
		out, err = r.setStatus(ctx, tx, id, models.RedemptionApproved, notes, nil)
		return err
	})
	return out, err
}

func (r *redemptionsRepo) Reject(ctx context.Context, id, notes string) (models.RedemptionRequest, error) {
	var out models.RedemptionRequest
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		req, err := lockRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != models.RedemptionPending {
			return repo.ErrInvalidTransition
		}
		out, err = r.setStatus(ctx, tx, id, models.RedemptionRejected, notes, nil)
		return err
	})
	return out, err
}

// Complete flips approved->completed and applies the debit in the same
// transaction. Re-completing an already-completed request is
// ErrDuplicateOperation, never a second debit; the debit itself is also keyed
// on the request id as a second line of defense.
func (r *redemptionsRepo) Complete(ctx context.Context, id, notes string) (models.RedemptionRequest, error) {
	var out models.RedemptionRequest
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		req, err := lockRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		switch req.Status {
		case models.RedemptionCompleted:
			return repo.ErrDuplicateOperation
		case models.RedemptionApproved:
		default:
			return repo.ErrInvalidTransition
		}

		ref := req.ID
		key := "redemption:" + req.ID
		if _, err := applyTransfer(ctx, tx, models.TransferSpec{
			From:           &req.UserID,
			Amount:         req.TokenCount,
			Kind:           models.KindRedemption,
			Reference:      &ref,
			IdempotencyKey: &key,
		}); err != nil {
			return err
		}

		now := time.Now()
		out, err = r.setStatus(ctx, tx, id, models.RedemptionCompleted, notes, &now)
		return err
	})
	return out, err
}

func (r *redemptionsRepo) setStatus(ctx context.Context, tx pgx.Tx, id string, status models.RedemptionStatus, notes string, completedAt *time.Time) (models.RedemptionRequest, error) {
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}
	out, err := scanRedemption(tx.QueryRow(ctx,
		`UPDATE redemption_requests
		    SET status=$2, notes=COALESCE($3, notes), completed_at=$4
		  WHERE id=$1
		  RETURNING `+redemptionColumns,
		id, status, notesPtr, completedAt,
	))
	if err != nil {
		return out, classify(err)
	}
	return out, nil
}
