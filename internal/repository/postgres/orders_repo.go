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

type ordersRepo struct{ pool *pgxpool.Pool }

// Checkout settles one purchase atomically: the product row lock guards the
// stock check and decrement, and the buyer->seller transfer runs in the same
// transaction, so a second checkout for the last unit waits on the lock and
// then fails cleanly. On InsufficientBalance/OutOfStock the transaction rolls
// back (stock and balances untouched) and a failed order is recorded so the
// attempt stays visible.
func (r *ordersRepo) Checkout(ctx context.Context, buyerID, productID string, quantity int) (models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if quantity <= 0 {
		return order, repo.ErrInvalidAmount
	}

	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var p models.Product
		err := tx.QueryRow(ctx,
			`SELECT id, seller_id, price, stock, active FROM products WHERE id=$1 FOR UPDATE`,
			productID,
		).Scan(&p.ID, &p.SellerID, &p.Price, &p.Stock, &p.Active)
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrProductNotFound
		}
		if err != nil {
			return classify(err)
		}

		order = models.PurchaseOrder{
			ID:        uuid.NewString(),
			BuyerID:   buyerID,
			SellerID:  p.SellerID,
			ProductID: p.ID,
			Quantity:  quantity,
			UnitPrice: p.Price,
			TotalCost: p.Price * int64(quantity),
			Status:    models.OrderCompleted,
		}

		if !p.Active || p.Stock < quantity {
			return repo.ErrOutOfStock
		}

		ref := order.ID
		ltx, err := applyTransfer(ctx, tx, models.TransferSpec{
			From:      &buyerID,
			To:        &p.SellerID,
			Amount:    order.TotalCost,
			Kind:      models.KindProductPurchase,
			Reference: &ref,
		})
		if err != nil {
			return err
		}
		order.TransactionID = &ltx.ID

		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2 WHERE id = $1`,
			p.ID, quantity,
		); err != nil {
			return classify(err)
		}
		return r.insert(ctx, tx, &order)
	})
	if err != nil {
		if order.ID != "" && (errors.Is(err, repo.ErrInsufficientBalance) || errors.Is(err, repo.ErrOutOfStock)) {
			order.Status = models.OrderFailed
			order.TransactionID = nil
			// Best effort: losing the failed-order record must not mask the
			// original checkout error.
			_ = r.insert(ctx, r.pool, &order)
		}
		return order, err
	}
	return order, nil
}

func (r *ordersRepo) insert(ctx context.Context, q querier, o *models.PurchaseOrder) error {
	err := q.QueryRow(ctx,
		`INSERT INTO purchase_orders
		   (id, buyer_id, seller_id, product_id, quantity, unit_price, total_cost, status, transaction_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING created_at`,
		o.ID, o.BuyerID, o.SellerID, o.ProductID, o.Quantity, o.UnitPrice, o.TotalCost,
		o.Status, o.TransactionID,
	).Scan(&o.CreatedAt)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (r *ordersRepo) GetByID(ctx context.Context, id string) (models.PurchaseOrder, error) {
	var o models.PurchaseOrder
	err := r.pool.QueryRow(ctx,
		`SELECT id, buyer_id, seller_id, product_id, quantity, unit_price, total_cost, status, transaction_id, created_at
		   FROM purchase_orders
		  WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.ProductID, &o.Quantity, &o.UnitPrice,
		&o.TotalCost, &o.Status, &o.TransactionID, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return o, repo.ErrOrderNotFound
	}
	return o, err
}
