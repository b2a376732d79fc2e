package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/zaryo/zaryo-backend/internal/models"
	repo "github.com/zaryo/zaryo-backend/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLedgerService(store *fakeStore) *LedgerService {
	return NewLedgerService(store, store, testLogger())
}

func TestSettlePurchase(t *testing.T) {
	store := newFakeStore(map[string]int64{"alice": 500, "bob": 0})
	svc := newLedgerService(store)
	ctx := context.Background()

	tx, err := svc.SettlePurchase(ctx, "alice", "bob", 200, "order-1", "")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if tx.Kind != models.KindPurchase || tx.Amount != 200 {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if got := store.balance("alice"); got != 300 {
		t.Errorf("alice balance = %d, want 300", got)
	}
	if got := store.balance("bob"); got != 200 {
		t.Errorf("bob balance = %d, want 200", got)
	}

	// Overdraft rejected without movement.
	if _, err := svc.SettlePurchase(ctx, "alice", "bob", 400, "order-2", ""); !errors.Is(err, repo.ErrInsufficientBalance) {
		t.Fatalf("overdraft err = %v, want ErrInsufficientBalance", err)
	}
	if store.balance("alice") != 300 || store.balance("bob") != 200 {
		t.Errorf("balances changed after rejected transfer: alice=%d bob=%d",
			store.balance("alice"), store.balance("bob"))
	}
	if n := store.txCount(); n != 1 {
		t.Errorf("transaction count = %d, want 1", n)
	}
}

func TestTransferValidation(t *testing.T) {
	store := newFakeStore(map[string]int64{"alice": 100})
	svc := newLedgerService(store)
	alice := "alice"

	cases := []struct {
		name string
		spec models.TransferSpec
		want error
	}{
		{"zero amount", models.TransferSpec{From: &alice, Amount: 0}, repo.ErrInvalidAmount},
		{"negative amount", models.TransferSpec{From: &alice, Amount: -50}, repo.ErrInvalidAmount},
		{"no endpoints", models.TransferSpec{Amount: 10}, repo.ErrInvalidAmount},
		{"self transfer", models.TransferSpec{From: &alice, To: &alice, Amount: 10}, repo.ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Transfer(context.Background(), tc.spec); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if store.balance("alice") != 100 {
		t.Errorf("balance moved on rejected input")
	}
}

func TestTransferAccountNotFound(t *testing.T) {
	store := newFakeStore(map[string]int64{"alice": 100})
	svc := newLedgerService(store)
	alice, ghost := "alice", "ghost"

	_, err := svc.Transfer(context.Background(), models.TransferSpec{
		From: &alice, To: &ghost, Amount: 10, Kind: models.KindPurchase,
	})
	if !errors.Is(err, repo.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
	if store.balance("alice") != 100 {
		t.Errorf("debit leaked on failed transfer")
	}
}

func TestCreditIssuanceIdempotent(t *testing.T) {
	store := newFakeStore(map[string]int64{"alice": 0})
	svc := newLedgerService(store)
	ctx := context.Background()

	first, err := svc.CreditIssuance(ctx, "alice", 1000, "payment:evt-1", "issuance:evt-1")
	if err != nil {
		t.Fatalf("issuance: %v", err)
	}
	replay, err := svc.CreditIssuance(ctx, "alice", 1000, "payment:evt-1", "issuance:evt-1")
	if err != nil {
		t.Fatalf("replay should be a silent no-op, got %v", err)
	}
	if replay.ID != first.ID {
		t.Errorf("replay returned transaction %q, want original %q", replay.ID, first.ID)
	}
	if got := store.balance("alice"); got != 1000 {
		t.Errorf("balance = %d after replay, want 1000", got)
	}
	if n := store.txCount(); n != 1 {
		t.Errorf("transaction count = %d, want 1", n)
	}
}

func TestDebitRedemptionNoClamp(t *testing.T) {
	store := newFakeStore(map[string]int64{"alice": 100})
	svc := newLedgerService(store)

	_, err := svc.DebitRedemption(context.Background(), "alice", 150, "req-1", "redemption:req-1")
	if !errors.Is(err, repo.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if got := store.balance("alice"); got != 100 {
		t.Errorf("balance = %d, want 100 untouched", got)
	}
}

// Total supply only changes through issuance and redemption; internal
// transfers conserve the sum of balances.
func TestConservation(t *testing.T) {
	store := newFakeStore(map[string]int64{"a": 0, "b": 0, "c": 0})
	svc := newLedgerService(store)
	ctx := context.Background()

	var issued, redeemed int64
	mustCredit := func(user string, amount int64, key string) {
		t.Helper()
		if _, err := svc.CreditIssuance(ctx, user, amount, "", key); err != nil {
			t.Fatalf("credit %s: %v", user, err)
		}
		issued += amount
	}
	mustCredit("a", 1000, "i1")
	mustCredit("b", 250, "i2")

	transfers := []struct {
		from, to string
		amount   int64
	}{
		{"a", "b", 300},
		{"b", "c", 550},
		{"c", "a", 125},
		{"a", "c", 75},
	}
	for _, tr := range transfers {
		if _, err := svc.SettlePurchase(ctx, tr.from, tr.to, tr.amount, "", ""); err != nil {
			t.Fatalf("transfer %s->%s: %v", tr.from, tr.to, err)
		}
	}

	if _, err := svc.DebitRedemption(ctx, "c", 200, "", "r1"); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	redeemed += 200

	total := store.balance("a") + store.balance("b") + store.balance("c")
	if want := issued - redeemed; total != want {
		t.Errorf("total supply = %d, want %d", total, want)
	}
}

func TestTransferRetriesTransientFailure(t *testing.T) {
	store := newFakeStore(map[string]int64{"alice": 500, "bob": 0})
	svc := newLedgerService(store)

	// Two injected serialization failures, third attempt lands.
	store.failNext(2, repo.ErrLedgerUnavailable)
	if _, err := svc.SettlePurchase(context.Background(), "alice", "bob", 100, "", ""); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if store.balance("alice") != 400 || store.balance("bob") != 100 {
		t.Errorf("balances after retried transfer: alice=%d bob=%d",
			store.balance("alice"), store.balance("bob"))
	}
}

func TestTransferRetriesBounded(t *testing.T) {
	store := newFakeStore(map[string]int64{"alice": 500, "bob": 0})
	svc := newLedgerService(store)

	store.failNext(maxAttempts+2, repo.ErrLedgerUnavailable)
	_, err := svc.SettlePurchase(context.Background(), "alice", "bob", 100, "", "")
	if !errors.Is(err, repo.ErrLedgerUnavailable) {
		t.Fatalf("err = %v, want ErrLedgerUnavailable", err)
	}
	if store.balance("alice") != 500 || store.balance("bob") != 0 {
		t.Errorf("failed transfer left partial state: alice=%d bob=%d",
			store.balance("alice"), store.balance("bob"))
	}
	if n := store.txCount(); n != 0 {
		t.Errorf("transaction count = %d, want 0", n)
	}
}

func TestTransferNoRetryOnDomainError(t *testing.T) {
	store := newFakeStore(map[string]int64{"alice": 50, "bob": 0})

	// A domain rejection must not be retried.
	calls := 0
	probe := &countingLedger{inner: store, calls: &calls}
	svc := NewLedgerService(probe, store, testLogger())

	_, err := svc.SettlePurchase(context.Background(), "alice", "bob", 100, "", "")
	if !errors.Is(err, repo.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if calls != 1 {
		t.Errorf("Apply called %d times, want 1", calls)
	}
}

type countingLedger struct {
	inner repo.Ledger
	calls *int
}

func (c *countingLedger) Apply(ctx context.Context, spec models.TransferSpec) (models.LedgerTransaction, error) {
	*c.calls++
	return c.inner.Apply(ctx, spec)
}

func (c *countingLedger) GetByID(ctx context.Context, id string) (models.LedgerTransaction, error) {
	return c.inner.GetByID(ctx, id)
}

func (c *countingLedger) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerTransaction, error) {
	return c.inner.ListByAccount(ctx, accountID, limit, offset)
}

// Racing debits against a balance that covers only one of them: exactly one
// wins, the balance never dips below zero.
func TestConcurrentDebitsNonNegative(t *testing.T) {
	const workers = 10
	store := newFakeStore(map[string]int64{"alice": 100, "sink": 0})
	svc := newLedgerService(store)

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SettlePurchase(context.Background(), "alice", "sink", 100, "", "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repo.ErrInsufficientBalance):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || rejected != workers-1 {
		t.Errorf("got %d successes and %d rejections, want 1 and %d", ok, rejected, workers-1)
	}
	if got := store.balance("alice"); got != 0 {
		t.Errorf("alice balance = %d, want 0", got)
	}
	if got := store.balance("sink"); got != 100 {
		t.Errorf("sink balance = %d, want 100", got)
	}
}

// Replaying the full transaction history from zero reproduces every balance.
func TestHistoryReconstructsBalances(t *testing.T) {
	store := newFakeStore(map[string]int64{"a": 0, "b": 0})
	svc := newLedgerService(store)
	ctx := context.Background()

	steps := []func() error{
		func() error { _, err := svc.CreditIssuance(ctx, "a", 800, "", "i1"); return err },
		func() error { _, err := svc.SettlePurchase(ctx, "a", "b", 300, "", ""); return err },
		func() error { _, err := svc.SettlePurchase(ctx, "b", "a", 50, "", ""); return err },
		func() error { _, err := svc.DebitRedemption(ctx, "a", 100, "", "r1"); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	replayed := map[string]int64{}
	for _, user := range []string{"a", "b"} {
		history, err := svc.History(ctx, user, 200, 0)
		if err != nil {
			t.Fatalf("history %s: %v", user, err)
		}
		for _, tx := range history {
			if tx.FromAccount != nil && *tx.FromAccount == user {
				replayed[user] -= tx.Amount
			}
			if tx.ToAccount != nil && *tx.ToAccount == user {
				replayed[user] += tx.Amount
			}
		}
	}
	for _, user := range []string{"a", "b"} {
		if replayed[user] != store.balance(user) {
			t.Errorf("%s: replayed %d, stored %d", user, replayed[user], store.balance(user))
		}
	}
}

func TestGetTransaction(t *testing.T) {
	store := newFakeStore(map[string]int64{"a": 100, "b": 0})
	svc := newLedgerService(store)
	ctx := context.Background()

	tx, err := svc.SettlePurchase(ctx, "a", "b", 40, "order-9", "")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	got, err := svc.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount != 40 || got.Status != models.TxnCompleted {
		t.Errorf("unexpected transaction %+v", got)
	}
	if _, err := svc.GetTransaction(ctx, "nope"); !errors.Is(err, repo.ErrTransactionMissing) {
		t.Errorf("missing id err = %v, want ErrTransactionMissing", err)
	}
}
