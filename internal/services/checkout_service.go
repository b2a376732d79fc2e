package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zaryo/zaryo-backend/internal/metrics"
	"github.com/zaryo/zaryo-backend/internal/models"
	repo "github.com/zaryo/zaryo-backend/internal/repository"
	"github.com/zaryo/zaryo-backend/internal/worker"
)

// CheckoutService runs the marketplace purchase workflow: resolve the
// product, settle buyer->seller through the ledger, decrement stock and
// record the order, all inside one atomic repository call.
type CheckoutService struct {
	orders   repo.PurchaseOrders
	products repo.Products
	logs     repo.AuditLogs
	wp       *worker.Pool
	log      *slog.Logger
}

func NewCheckoutService(o repo.PurchaseOrders, p repo.Products, l repo.AuditLogs, wp *worker.Pool, log *slog.Logger) *CheckoutService {
	return &CheckoutService{orders: o, products: p, logs: l, wp: wp, log: log.With("service", "checkout")}
}

func (s *CheckoutService) Purchase(ctx context.Context, buyerID, productID string, quantity int) (models.PurchaseOrder, error) {
	if quantity <= 0 {
		return models.PurchaseOrder{}, repo.ErrInvalidAmount
	}

	var order models.PurchaseOrder
	err := withRetry(ctx, func() error {
		var err error
		order, err = s.orders.Checkout(ctx, buyerID, productID, quantity)
		return err
	})
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues(checkoutOutcome(err)).Inc()
		s.log.Warn("checkout failed", "buyer", buyerID, "product", productID, "err", err)
		if order.ID != "" {
			s.audit(order.ID, "order_failed", err.Error())
		}
		return order, err
	}

	metrics.CheckoutsTotal.WithLabelValues("completed").Inc()
	s.log.Info("checkout completed", "order", order.ID, "tokens_paid", order.TotalCost)
	s.audit(order.ID, "order_completed", "settled via ledger")
	return order, nil
}

func (s *CheckoutService) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if err := p.Validate(); err != nil {
		return models.Product{}, err
	}
	p.Active = true
	return s.products.Create(ctx, p)
}

func (s *CheckoutService) GetProduct(ctx context.Context, id string) (models.Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *CheckoutService) GetOrder(ctx context.Context, id string) (models.PurchaseOrder, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *CheckoutService) audit(entityID, action, details string) {
	id := entityID
	s.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.logs.Create(ctx, models.AuditLog{
			EntityType: "purchase_order",
			EntityID:   &id,
			Action:     action,
			Details:    map[string]any{"message": details},
		})
	})
}

func checkoutOutcome(err error) string {
	switch {
	case errors.Is(err, repo.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, repo.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, repo.ErrProductNotFound):
		return "not_found"
	default:
		return "error"
	}
}
