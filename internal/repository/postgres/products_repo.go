package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaryo/zaryo-backend/internal/models"
	repo "github.com/zaryo/zaryo-backend/internal/repository"
)

type productsRepo struct{ pool *pgxpool.Pool }

func (r *productsRepo) Create(ctx context.Context, p models.Product) (models.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products(id, seller_id, title, price, stock, active)
		 VALUES($1,$2,$3,$4,$5,$6)
		 RETURNING created_at`,
		p.ID, p.SellerID, p.Title, p.Price, p.Stock, p.Active,
	).Scan(&p.CreatedAt)
	if err != nil {
		return models.Product{}, classify(err)
	}
	return p, nil
}

func (r *productsRepo) GetByID(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := r.pool.QueryRow(ctx,
		`SELECT id, seller_id, title, price, stock, active, created_at
		   FROM products
		  WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.SellerID, &p.Title, &p.Price, &p.Stock, &p.Active, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, repo.ErrProductNotFound
	}
	return p, err
}
