package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zaryo/zaryo-backend/internal/models"
	repo "github.com/zaryo/zaryo-backend/internal/repository"
)

// fakeStore is an in-memory stand-in for the postgres repositories. It keeps
// the same contract: transfers are all-or-nothing under one lock, balances
// never go negative, idempotency keys replay the original transaction, and
// injected failures leave state untouched.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	txs      map[string]models.LedgerTransaction
	txOrder  []string
	byKey    map[string]string

	products map[string]*models.Product
	orders   map[string]models.PurchaseOrder
	requests map[string]*models.RedemptionRequest

	failErr   error
	failCount int
}

func newFakeStore(balances map[string]int64) *fakeStore {
	s := &fakeStore{
		accounts: map[string]*models.Account{},
		txs:      map[string]models.LedgerTransaction{},
		byKey:    map[string]string{},
		products: map[string]*models.Product{},
		orders:   map[string]models.PurchaseOrder{},
		requests: map[string]*models.RedemptionRequest{},
	}
	for id, bal := range balances {
		s.accounts[id] = &models.Account{UserID: id, Balance: bal, LastUpdatedAt: time.Now()}
	}
	return s
}

// failNext makes the next n ledger applications fail with err.
func (s *fakeStore) failNext(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCount = n
	s.failErr = err
}

// apply mirrors the postgres applyTransfer. Caller must hold s.mu.
func (s *fakeStore) apply(spec models.TransferSpec) (models.LedgerTransaction, error) {
	if s.failCount > 0 {
		s.failCount--
		return models.LedgerTransaction{}, s.failErr
	}
	if spec.Amount <= 0 || (spec.From == nil && spec.To == nil) {
		return models.LedgerTransaction{}, repo.ErrInvalidAmount
	}
	if spec.IdempotencyKey != nil && *spec.IdempotencyKey != "" {
		if id, ok := s.byKey[*spec.IdempotencyKey]; ok {
			return s.txs[id], repo.ErrDuplicateOperation
		}
	}

	var from, to *models.Account
	if spec.From != nil {
		a, ok := s.accounts[*spec.From]
		if !ok {
			return models.LedgerTransaction{}, repo.ErrAccountNotFound
		}
		from = a
	}
	if spec.To != nil {
		a, ok := s.accounts[*spec.To]
		if !ok {
			return models.LedgerTransaction{}, repo.ErrAccountNotFound
		}
		to = a
	}
	if from != nil && from.Balance < spec.Amount {
		return models.LedgerTransaction{}, repo.ErrInsufficientBalance
	}

	if from != nil {
		from.Balance -= spec.Amount
		from.TotalSpent += spec.Amount
		from.LastUpdatedAt = time.Now()
	}
	if to != nil {
		to.Balance += spec.Amount
		to.TotalEarned += spec.Amount
		to.LastUpdatedAt = time.Now()
	}

	tx := models.LedgerTransaction{
		ID:             uuid.NewString(),
		FromAccount:    spec.From,
		ToAccount:      spec.To,
		Amount:         spec.Amount,
		Kind:           spec.Kind,
		Status:         models.TxnCompleted,
		Reference:      spec.Reference,
		IdempotencyKey: spec.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
	s.txs[tx.ID] = tx
	s.txOrder = append(s.txOrder, tx.ID)
	if spec.IdempotencyKey != nil && *spec.IdempotencyKey != "" {
		s.byKey[*spec.IdempotencyKey] = tx.ID
	}
	return tx, nil
}

// --- repo.Ledger ---

func (s *fakeStore) Apply(_ context.Context, spec models.TransferSpec) (models.LedgerTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(spec)
}

func (s *fakeStore) GetByID(_ context.Context, id string) (models.LedgerTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return tx, repo.ErrTransactionMissing
	}
	return tx, nil
}

func (s *fakeStore) ListByAccount(_ context.Context, accountID string, limit, offset int) ([]models.LedgerTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerTransaction
	for i := len(s.txOrder) - 1; i >= 0; i-- {
		tx := s.txs[s.txOrder[i]]
		if (tx.FromAccount != nil && *tx.FromAccount == accountID) ||
			(tx.ToAccount != nil && *tx.ToAccount == accountID) {
			out = append(out, tx)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- repo.Accounts ---

func (s *fakeStore) GetOrCreate(_ context.Context, userID string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[userID]; ok {
		return *a, nil
	}
	a := &models.Account{UserID: userID, LastUpdatedAt: time.Now()}
	s.accounts[userID] = a
	return *a, nil
}

func (s *fakeStore) Get(_ context.Context, userID string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return models.Account{}, repo.ErrAccountNotFound
	}
	return *a, nil
}

// --- repo.Products ---

func (s *fakeStore) Create(_ context.Context, p models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now()
	s.products[p.ID] = &p
	return p, nil
}

func (s *fakeStore) GetProductByID(_ context.Context, id string) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return models.Product{}, repo.ErrProductNotFound
	}
	return *p, nil
}

// balance returns the current balance, for assertions.
func (s *fakeStore) balance(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[userID]; ok {
		return a.Balance
	}
	return 0
}

func (s *fakeStore) txCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txs)
}

// fakeProducts adapts fakeStore to repo.Products (Create/GetByID name clash
// with repo.Users-style methods is avoided by this thin wrapper).
type fakeProducts struct{ s *fakeStore }

func (f fakeProducts) Create(ctx context.Context, p models.Product) (models.Product, error) {
	return f.s.Create(ctx, p)
}

func (f fakeProducts) GetByID(ctx context.Context, id string) (models.Product, error) {
	return f.s.GetProductByID(ctx, id)
}

// fakeOrders implements repo.PurchaseOrders over the shared fakeStore,
// mirroring the atomic checkout: the single mutex plays the product row lock.
type fakeOrders struct{ s *fakeStore }

func (f fakeOrders) Checkout(_ context.Context, buyerID, productID string, quantity int) (models.PurchaseOrder, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return models.PurchaseOrder{}, repo.ErrInvalidAmount
	}
	p, ok := s.products[productID]
	if !ok {
		return models.PurchaseOrder{}, repo.ErrProductNotFound
	}

	order := models.PurchaseOrder{
		ID:        uuid.NewString(),
		BuyerID:   buyerID,
		SellerID:  p.SellerID,
		ProductID: p.ID,
		Quantity:  quantity,
		UnitPrice: p.Price,
		TotalCost: p.Price * int64(quantity),
		Status:    models.OrderCompleted,
		CreatedAt: time.Now(),
	}

	fail := func(err error) (models.PurchaseOrder, error) {
		order.Status = models.OrderFailed
		order.TransactionID = nil
		s.orders[order.ID] = order
		return order, err
	}

	if !p.Active || p.Stock < quantity {
		return fail(repo.ErrOutOfStock)
	}
	ref := order.ID
	tx, err := s.apply(models.TransferSpec{
		From:      &buyerID,
		To:        &p.SellerID,
		Amount:    order.TotalCost,
		Kind:      models.KindProductPurchase,
		Reference: &ref,
	})
	if err != nil {
		return fail(err)
	}
	order.TransactionID = &tx.ID
	p.Stock -= quantity
	s.orders[order.ID] = order
	return order, nil
}

func (f fakeOrders) GetByID(_ context.Context, id string) (models.PurchaseOrder, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	o, ok := f.s.orders[id]
	if !ok {
		return o, repo.ErrOrderNotFound
	}
	return o, nil
}

// fakeRedemptions implements repo.Redemptions with the postgres semantics:
// completion and its debit happen under one lock, keyed on the request id.
type fakeRedemptions struct{ s *fakeStore }

func (f fakeRedemptions) Create(_ context.Context, r models.RedemptionRequest) (models.RedemptionRequest, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Status = models.RedemptionPending
	r.CreatedAt = time.Now()
	s.requests[r.ID] = &r
	return r, nil
}

func (f fakeRedemptions) GetByID(_ context.Context, id string) (models.RedemptionRequest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.requests[id]
	if !ok {
		return models.RedemptionRequest{}, repo.ErrRequestNotFound
	}
	return *r, nil
}

func (f fakeRedemptions) List(_ context.Context, status models.RedemptionStatus, limit, offset int) ([]models.RedemptionRequest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.RedemptionRequest
	for _, r := range f.s.requests {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeRedemptions) Approve(_ context.Context, id, notes string) (models.RedemptionRequest, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return models.RedemptionRequest{}, repo.ErrRequestNotFound
	}
	if r.Status != models.RedemptionPending {
		return *r, repo.ErrInvalidTransition
	}
	a, ok := s.accounts[r.UserID]
	if !ok {
		return *r, repo.ErrAccountNotFound
	}
	if a.Balance < r.TokenCount {
		return *r, repo.ErrInsufficientBalance
	}
	r.Status = models.RedemptionApproved
	if notes != "" {
		r.Notes = &notes
	}
	return *r, nil
}

func (f fakeRedemptions) Reject(_ context.Context, id, notes string) (models.RedemptionRequest, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return models.RedemptionRequest{}, repo.ErrRequestNotFound
	}
	if r.Status != models.RedemptionPending {
		return *r, repo.ErrInvalidTransition
	}
	r.Status = models.RedemptionRejected
	if notes != "" {
		r.Notes = &notes
	}
	return *r, nil
}

func (f fakeRedemptions) Complete(_ context.Context, id, notes string) (models.RedemptionRequest, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return models.RedemptionRequest{}, repo.ErrRequestNotFound
	}
	switch r.Status {
	case models.RedemptionCompleted:
		return *r, repo.ErrDuplicateOperation
	case models.RedemptionApproved:
	default:
		return *r, repo.ErrInvalidTransition
	}
	ref := r.ID
	key := "redemption:" + r.ID
	if _, err := s.apply(models.TransferSpec{
		From:           &r.UserID,
		Amount:         r.TokenCount,
		Kind:           models.KindRedemption,
		Reference:      &ref,
		IdempotencyKey: &key,
	}); err != nil {
		return *r, err
	}
	now := time.Now()
	r.Status = models.RedemptionCompleted
	r.CompletedAt = &now
	if notes != "" {
		r.Notes = &notes
	}
	return *r, nil
}

// fakeAudit records audit entries.
type fakeAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAudit) Create(_ context.Context, l models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, l)
	return nil
}

var (
	_ repo.Ledger         = (*fakeStore)(nil)
	_ repo.Accounts       = (*fakeStore)(nil)
	_ repo.Products       = fakeProducts{}
	_ repo.PurchaseOrders = fakeOrders{}
	_ repo.Redemptions    = fakeRedemptions{}
	_ repo.AuditLogs      = (*fakeAudit)(nil)
)
