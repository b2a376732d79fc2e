package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaryo/zaryo-backend/internal/models"
	repo "github.com/zaryo/zaryo-backend/internal/repository"
)

type accountsRepo struct{ pool *pgxpool.Pool }

func (r *accountsRepo) GetOrCreate(ctx context.Context, userID string) (models.Account, error) {
	if a, err := r.Get(ctx, userID); err == nil {
		return a, nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts(user_id, balance, total_earned, total_spent, last_updated_at)
		 VALUES($1, 0, 0, 0, now())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return models.Account{}, classify(err)
	}
	return r.Get(ctx, userID)
}

func (r *accountsRepo) Get(ctx context.Context, userID string) (models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, balance, total_earned, total_spent, last_updated_at
		   FROM accounts
		  WHERE user_id = $1`,
		userID,
	).Scan(&a.UserID, &a.Balance, &a.TotalEarned, &a.TotalSpent, &a.LastUpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, repo.ErrAccountNotFound
	}
	return a, err
}
