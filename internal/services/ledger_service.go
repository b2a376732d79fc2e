package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zaryo/zaryo-backend/internal/metrics"
	"github.com/zaryo/zaryo-backend/internal/models"
	repo "github.com/zaryo/zaryo-backend/internal/repository"
)

// LedgerService is the sole authority for balance mutations. Workflows hold
// the movement semantics (what moves and why); the repository guarantees the
// atomicity (how it lands). Nothing outside this service and the checkout/
// redemption repositories touches Account.Balance.
type LedgerService struct {
	ledger   repo.Ledger
	accounts repo.Accounts
	log      *slog.Logger
}

func NewLedgerService(l repo.Ledger, a repo.Accounts, log *slog.Logger) *LedgerService {
	return &LedgerService{ledger: l, accounts: a, log: log.With("service", "ledger")}
}

// Transfer applies one balance movement. At least one endpoint must be set,
// the amount must be positive, and a present From must cover the amount.
// Transient failures are retried; a replayed idempotency key surfaces as
// ErrDuplicateOperation carrying the original transaction.
func (s *LedgerService) Transfer(ctx context.Context, spec models.TransferSpec) (models.LedgerTransaction, error) {
	if spec.Amount <= 0 {
		metrics.TransfersFailed.WithLabelValues("invalid_amount").Inc()
		return models.LedgerTransaction{}, repo.ErrInvalidAmount
	}
	if spec.From == nil && spec.To == nil {
		metrics.TransfersFailed.WithLabelValues("invalid_amount").Inc()
		return models.LedgerTransaction{}, repo.ErrInvalidAmount
	}
	if spec.From != nil && spec.To != nil && *spec.From == *spec.To {
		metrics.TransfersFailed.WithLabelValues("invalid_amount").Inc()
		return models.LedgerTransaction{}, repo.ErrInvalidAmount
	}

	var out models.LedgerTransaction
	err := withRetry(ctx, func() error {
		var err error
		out, err = s.ledger.Apply(ctx, spec)
		return err
	})
	if err != nil && !errors.Is(err, repo.ErrDuplicateOperation) {
		metrics.TransfersFailed.WithLabelValues(failReason(err)).Inc()
		s.log.Warn("transfer failed", "kind", spec.Kind, "amount", spec.Amount, "err", err)
		return out, err
	}
	if err == nil {
		metrics.TransfersTotal.WithLabelValues(string(spec.Kind)).Inc()
		s.log.Info("transfer applied", "id", out.ID, "kind", out.Kind, "amount", out.Amount)
	}
	return out, err
}

// CreditIssuance credits tokens backed by an external payment. Replays of
// the same event key are no-ops returning the original transaction.
func (s *LedgerService) CreditIssuance(ctx context.Context, to string, amount int64, reference, idemKey string) (models.LedgerTransaction, error) {
	out, err := s.Transfer(ctx, models.TransferSpec{
		To:             &to,
		Amount:         amount,
		Kind:           models.KindIssuance,
		Reference:      strPtr(reference),
		IdempotencyKey: strPtr(idemKey),
	})
	if errors.Is(err, repo.ErrDuplicateOperation) {
		return out, nil
	}
	return out, err
}

// DebitRedemption converts balance back to off-platform payment. The balance
// is re-checked inside the transaction; an under-balance request fails with
// ErrInsufficientBalance instead of clamping.
func (s *LedgerService) DebitRedemption(ctx context.Context, user string, amount int64, reference, idemKey string) (models.LedgerTransaction, error) {
	return s.Transfer(ctx, models.TransferSpec{
		From:           &user,
		Amount:         amount,
		Kind:           models.KindRedemption,
		Reference:      strPtr(reference),
		IdempotencyKey: strPtr(idemKey),
	})
}

// SettlePurchase moves tokens buyer->seller for a purchase order.
func (s *LedgerService) SettlePurchase(ctx context.Context, buyer, seller string, amount int64, orderRef, idemKey string) (models.LedgerTransaction, error) {
	return s.Transfer(ctx, models.TransferSpec{
		From:           &buyer,
		To:             &seller,
		Amount:         amount,
		Kind:           models.KindPurchase,
		Reference:      strPtr(orderRef),
		IdempotencyKey: strPtr(idemKey),
	})
}

// Account returns the user's balance, provisioning an empty account on first
// read.
func (s *LedgerService) Account(ctx context.Context, userID string) (models.Account, error) {
	return s.accounts.GetOrCreate(ctx, userID)
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (models.LedgerTransaction, error) {
	return s.ledger.GetByID(ctx, id)
}

func (s *LedgerService) History(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.ListByAccount(ctx, accountID, limit, offset)
}

func failReason(err error) string {
	switch {
	case errors.Is(err, repo.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, repo.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, repo.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, repo.ErrLedgerUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
