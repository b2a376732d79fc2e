package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/zaryo/zaryo-backend/internal/models"
	repo "github.com/zaryo/zaryo-backend/internal/repository"
	"github.com/zaryo/zaryo-backend/internal/worker"
)

// RedemptionService drives redemption requests through
// pending->approved->completed (or pending->rejected). Completion debits the
// user exactly once; the request id keys the debit so retries after a
// transient failure are safe.
type RedemptionService struct {
	requests repo.Redemptions
	accounts repo.Accounts
	logs     repo.AuditLogs
	wp       *worker.Pool
	log      *slog.Logger
}

func NewRedemptionService(r repo.Redemptions, a repo.Accounts, l repo.AuditLogs, wp *worker.Pool, log *slog.Logger) *RedemptionService {
	return &RedemptionService{requests: r, accounts: a, logs: l, wp: wp, log: log.With("service", "redemption")}
}

func (s *RedemptionService) Request(ctx context.Context, userID string, tokenCount int64, method, destination string) (models.RedemptionRequest, error) {
	if tokenCount <= 0 {
		return models.RedemptionRequest{}, repo.ErrInvalidAmount
	}
	// Early feedback only; the binding balance check happens at approval and
	// again inside the completion debit.
	acct, err := s.accounts.GetOrCreate(ctx, userID)
	if err != nil {
		return models.RedemptionRequest{}, err
	}
	if acct.Balance < tokenCount {
		return models.RedemptionRequest{}, repo.ErrInsufficientBalance
	}

	req, err := s.requests.Create(ctx, models.RedemptionRequest{
		UserID:        userID,
		TokenCount:    tokenCount,
		PaymentMethod: method,
		Destination:   destination,
	})
	if err != nil {
		return req, err
	}
	s.audit(req.ID, "created", "redemption requested")
	return req, nil
}

func (s *RedemptionService) Get(ctx context.Context, id string) (models.RedemptionRequest, error) {
	return s.requests.GetByID(ctx, id)
}

func (s *RedemptionService) List(ctx context.Context, status models.RedemptionStatus, limit, offset int) ([]models.RedemptionRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.requests.List(ctx, status, limit, offset)
}

func (s *RedemptionService) Approve(ctx context.Context, id, notes string) (models.RedemptionRequest, error) {
	req, err := s.requests.Approve(ctx, id, notes)
	if err != nil {
		return req, err
	}
	s.audit(id, "approved", notes)
	return req, nil
}

func (s *RedemptionService) Reject(ctx context.Context, id, notes string) (models.RedemptionRequest, error) {
	req, err := s.requests.Reject(ctx, id, notes)
	if err != nil {
		return req, err
	}
	s.audit(id, "rejected", notes)
	return req, nil
}

// Complete settles an approved request. A failed attempt leaves the request
// approved so the admin can retry; a duplicate completion is reported, not
// re-debited.
func (s *RedemptionService) Complete(ctx context.Context, id, notes string) (models.RedemptionRequest, error) {
	var req models.RedemptionRequest
	err := withRetry(ctx, func() error {
		var err error
		req, err = s.requests.Complete(ctx, id, notes)
		return err
	})
	if err != nil {
		s.log.Warn("redemption completion failed", "request", id, "err", err)
		return req, err
	}
	s.log.Info("redemption completed", "request", id, "tokens", req.TokenCount)
	s.audit(id, "completed", notes)
	return req, nil
}

func (s *RedemptionService) audit(entityID, action, details string) {
	id := entityID
	s.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var det map[string]any
		if details != "" {
			det = map[string]any{"message": details}
		}
		_ = s.logs.Create(ctx, models.AuditLog{
			EntityType: "redemption_request",
			EntityID:   &id,
			Action:     action,
			Details:    det,
		})
	})
}
