// Package portstest provides a behavioural test suite for ports.Store
// implementations.
package portstest

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"budget/internal/core"
	"budget/internal/ports"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) ports.Store

func money(cents int64) *core.Money { return &core.Money{Cents: cents} }

func str(s string) *string { return &s }

// RunStoreContract runs the shared contract against stores built by newStore.
func RunStoreContract(t *testing.T, newStore Factory) {
	t.Run("CreateAndGetEnvelope", func(t *testing.T) { testCreateAndGetEnvelope(t, newStore(t)) })
	t.Run("CreateEnvelopeValidation", func(t *testing.T) { testCreateEnvelopeValidation(t, newStore(t)) })
	t.Run("UpdateEnvelopeCoalesce", func(t *testing.T) { testUpdateEnvelopeCoalesce(t, newStore(t)) })
	t.Run("DeleteEnvelope", func(t *testing.T) { testDeleteEnvelope(t, newStore(t)) })
	t.Run("Withdraw", func(t *testing.T) { testWithdraw(t, newStore(t)) })
	t.Run("Transfer", func(t *testing.T) { testTransfer(t, newStore(t)) })
	t.Run("PostTransaction", func(t *testing.T) { testPostTransaction(t, newStore(t)) })
	t.Run("CreditOverflow", func(t *testing.T) { testCreditOverflow(t, newStore(t)) })
	t.Run("TransactionUpdateDeleteKeepBalance", func(t *testing.T) { testTransactionUpdateDelete(t, newStore(t)) })
	t.Run("ListByEnvelope", func(t *testing.T) { testListByEnvelope(t, newStore(t)) })
	t.Run("ConcurrentWithdrawals", func(t *testing.T) { testConcurrentWithdrawals(t, newStore(t)) })
	t.Run("ConcurrentTransfers", func(t *testing.T) { testConcurrentTransfers(t, newStore(t)) })
}

func mustCreate(t *testing.T, s ports.Store, title string, cents int64) core.Envelope {
	t.Helper()
	e, err := s.CreateEnvelope(context.Background(), core.NewEnvelope{Title: title, Budget: money(cents)})
	if err != nil {
		t.Fatalf("create envelope %q: %v", title, err)
	}
	return e
}

func mustBudget(t *testing.T, s ports.Store, id int64) int64 {
	t.Helper()
	e, err := s.GetEnvelope(context.Background(), id)
	if err != nil {
		t.Fatalf("get envelope %d: %v", id, err)
	}
	return e.Budget.Cents
}

func testCreateAndGetEnvelope(t *testing.T, s ports.Store) {
	ctx := context.Background()
	e := mustCreate(t, s, "Groceries", 10000)
	if e.ID <= 0 || e.Title != "Groceries" || e.Budget.Cents != 10000 {
		t.Fatalf("unexpected envelope: %+v", e)
	}
	other := mustCreate(t, s, "Rent", 0)
	if other.ID == e.ID {
		t.Fatalf("ids must be unique, both %d", e.ID)
	}

	got, err := s.GetEnvelope(ctx, e.ID)
	if err != nil || got != e {
		t.Fatalf("get: got %+v err=%v, want %+v", got, err, e)
	}
	again, _ := s.GetEnvelope(ctx, e.ID)
	if again != got {
		t.Fatalf("repeated reads differ: %+v vs %+v", again, got)
	}

	list, err := s.ListEnvelopes(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v err=%v", list, err)
	}
	if list[0].ID != e.ID || list[1].ID != other.ID {
		t.Fatalf("list not ordered by id: %+v", list)
	}

	if _, err := s.GetEnvelope(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testCreateEnvelopeValidation(t *testing.T, s ports.Store) {
	ctx := context.Background()
	bads := []core.NewEnvelope{
		{Title: "", Budget: money(1)},
		{Title: "No budget"},
		{Title: "Negative", Budget: money(-1)},
	}
	for i, n := range bads {
		if _, err := s.CreateEnvelope(ctx, n); !errors.Is(err, core.ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
	list, _ := s.ListEnvelopes(ctx)
	if len(list) != 0 {
		t.Fatalf("failed creates must not persist: %+v", list)
	}
}

func testUpdateEnvelopeCoalesce(t *testing.T, s ports.Store) {
	ctx := context.Background()
	e := mustCreate(t, s, "Fun", 5000)

	got, err := s.UpdateEnvelope(ctx, e.ID, core.EnvelopePatch{Title: str("Leisure")})
	if err != nil {
		t.Fatalf("update title: %v", err)
	}
	if got.Title != "Leisure" || got.Budget.Cents != 5000 {
		t.Fatalf("title update touched budget: %+v", got)
	}

	got, err = s.UpdateEnvelope(ctx, e.ID, core.EnvelopePatch{Budget: money(1234)})
	if err != nil {
		t.Fatalf("update budget: %v", err)
	}
	if got.Title != "Leisure" || got.Budget.Cents != 1234 {
		t.Fatalf("budget update touched title: %+v", got)
	}

	if _, err := s.UpdateEnvelope(ctx, e.ID, core.EnvelopePatch{Budget: money(-1)}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if b := mustBudget(t, s, e.ID); b != 1234 {
		t.Fatalf("rejected update changed budget to %d", b)
	}
	if _, err := s.UpdateEnvelope(ctx, 9999, core.EnvelopePatch{Title: str("x")}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testDeleteEnvelope(t *testing.T, s ports.Store) {
	ctx := context.Background()
	e := mustCreate(t, s, "Travel", 3000)
	tx, err := s.CreateTransaction(ctx, core.NewTransaction{EnvelopeID: e.ID, Amount: money(-100), Description: "bus"})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if err := s.DeleteEnvelope(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetEnvelope(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.GetTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("transactions of a deleted envelope should be gone, got %v", err)
	}
	if err := s.DeleteEnvelope(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete expected ErrNotFound, got %v", err)
	}
}

func testWithdraw(t *testing.T, s ports.Store) {
	ctx := context.Background()
	e := mustCreate(t, s, "Groceries", 10000)

	got, err := s.Withdraw(ctx, e.ID, core.Money{Cents: 3000})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got.Budget.Cents != 7000 {
		t.Fatalf("expected balance 7000, got %d", got.Budget.Cents)
	}

	if _, err := s.Withdraw(ctx, e.ID, core.Money{Cents: 100000}); !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if b := mustBudget(t, s, e.ID); b != 7000 {
		t.Fatalf("failed withdraw changed balance to %d", b)
	}

	for _, bad := range []int64{0, -100} {
		if _, err := s.Withdraw(ctx, e.ID, core.Money{Cents: bad}); !errors.Is(err, core.ErrValidation) {
			t.Fatalf("amount %d expected validation error, got %v", bad, err)
		}
	}
	if _, err := s.Withdraw(ctx, 9999, core.Money{Cents: 1}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err = s.Withdraw(ctx, e.ID, core.Money{Cents: 7000})
	if err != nil || got.Budget.Cents != 0 {
		t.Fatalf("withdrawing the full balance should leave 0, got %+v err=%v", got, err)
	}
}

func testTransfer(t *testing.T, s ports.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "A", 5000)
	b := mustCreate(t, s, "B", 1000)

	res, err := s.Transfer(ctx, a.ID, b.ID, core.Money{Cents: 2000})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.From.Budget.Cents != 3000 || res.To.Budget.Cents != 3000 {
		t.Fatalf("unexpected transfer result: %+v", res)
	}
	if mustBudget(t, s, a.ID) != 3000 || mustBudget(t, s, b.ID) != 3000 {
		t.Fatalf("stored balances do not match result")
	}

	if _, err := s.Transfer(ctx, a.ID, b.ID, core.Money{Cents: 100000}); !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := s.Transfer(ctx, a.ID, 9999, core.Money{Cents: 100}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for destination, got %v", err)
	}
	if _, err := s.Transfer(ctx, 9999, a.ID, core.Money{Cents: 100}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for source, got %v", err)
	}
	if _, err := s.Transfer(ctx, a.ID, b.ID, core.Money{Cents: 0}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := s.Transfer(ctx, a.ID, a.ID, core.Money{Cents: 100}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for same envelope, got %v", err)
	}
	if mustBudget(t, s, a.ID) != 3000 || mustBudget(t, s, b.ID) != 3000 {
		t.Fatalf("failed transfers changed balances")
	}
}

// nearMax is the largest whole-unit balance a request can set.
const nearMax = math.MaxInt64 / 100 * 100

func testCreditOverflow(t *testing.T, s ports.Store) {
	ctx := context.Background()
	full := mustCreate(t, s, "Full", nearMax)
	src := mustCreate(t, s, "Source", 10000)

	if _, err := s.Transfer(ctx, src.ID, full.ID, core.Money{Cents: 100}); !errors.Is(err, core.ErrBudgetOverflow) {
		t.Fatalf("transfer: expected ErrBudgetOverflow, got %v", err)
	}
	if _, err := s.CreateTransaction(ctx, core.NewTransaction{EnvelopeID: full.ID, Amount: money(100)}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("posting: expected validation error, got %v", err)
	}
	if got := mustBudget(t, s, full.ID); got != nearMax {
		t.Fatalf("full budget = %d, want %d", got, nearMax)
	}
	if got := mustBudget(t, s, src.ID); got != 10000 {
		t.Fatalf("source budget = %d, want 10000", got)
	}
	txs, err := s.ListTransactionsByEnvelope(ctx, full.ID)
	if err != nil || len(txs) != 0 {
		t.Fatalf("rejected posting was stored: %v err=%v", txs, err)
	}

	// Credits that still fit are accepted.
	if _, err := s.CreateTransaction(ctx, core.NewTransaction{EnvelopeID: full.ID, Amount: money(7)}); err != nil {
		t.Fatalf("posting within range: %v", err)
	}
	if got := mustBudget(t, s, full.ID); got != math.MaxInt64 {
		t.Fatalf("budget = %d, want %d", got, int64(math.MaxInt64))
	}
}

func testPostTransaction(t *testing.T, s ports.Store) {
	ctx := context.Background()
	e := mustCreate(t, s, "Groceries", 3000)

	tx, err := s.CreateTransaction(ctx, core.NewTransaction{EnvelopeID: e.ID, Amount: money(-1500), Description: "market"})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if tx.ID <= 0 || tx.Amount.Cents != -1500 || tx.EnvelopeID != e.ID || tx.Description != "market" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.CreatedAt.IsZero() {
		t.Fatalf("createdAt should be set")
	}
	if b := mustBudget(t, s, e.ID); b != 1500 {
		t.Fatalf("expected balance 1500, got %d", b)
	}

	if _, err := s.CreateTransaction(ctx, core.NewTransaction{EnvelopeID: e.ID, Amount: money(-100000)}); !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if b := mustBudget(t, s, e.ID); b != 1500 {
		t.Fatalf("rejected posting changed balance to %d", b)
	}

	credit, err := s.CreateTransaction(ctx, core.NewTransaction{EnvelopeID: e.ID, Amount: money(500), Description: "refund"})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if b := mustBudget(t, s, e.ID); b != 2000 {
		t.Fatalf("expected balance 2000 after credit, got %d", b)
	}

	if _, err := s.CreateTransaction(ctx, core.NewTransaction{EnvelopeID: 9999, Amount: money(1)}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.CreateTransaction(ctx, core.NewTransaction{EnvelopeID: e.ID}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	all, err := s.ListTransactions(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 persisted transactions, got %v err=%v", all, err)
	}
	got, err := s.GetTransaction(ctx, credit.ID)
	if err != nil || got.Amount.Cents != 500 || got.Description != "refund" {
		t.Fatalf("get transaction: %+v err=%v", got, err)
	}
	if _, err := s.GetTransaction(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testTransactionUpdateDelete(t *testing.T, s ports.Store) {
	ctx := context.Background()
	e := mustCreate(t, s, "Bills", 10000)
	tx, err := s.CreateTransaction(ctx, core.NewTransaction{EnvelopeID: e.ID, Amount: money(-2500), Description: "power"})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	got, err := s.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{Description: str("electricity")})
	if err != nil {
		t.Fatalf("update description: %v", err)
	}
	if got.Description != "electricity" || got.Amount.Cents != -2500 {
		t.Fatalf("unexpected update: %+v", got)
	}
	got, err = s.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{Amount: money(-4000)})
	if err != nil {
		t.Fatalf("update amount: %v", err)
	}
	if got.Amount.Cents != -4000 || got.Description != "electricity" {
		t.Fatalf("unexpected update: %+v", got)
	}
	if b := mustBudget(t, s, e.ID); b != 7500 {
		t.Fatalf("transaction update must not touch balance, got %d", b)
	}

	if err := s.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if b := mustBudget(t, s, e.ID); b != 7500 {
		t.Fatalf("transaction delete must not touch balance, got %d", b)
	}
	if err := s.DeleteTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{Description: str("x")}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testListByEnvelope(t *testing.T, s ports.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "A", 1000)
	b := mustCreate(t, s, "B", 1000)

	empty, err := s.ListTransactionsByEnvelope(ctx, a.ID)
	if err != nil {
		t.Fatalf("empty list should not error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}

	for _, amt := range []int64{-100, 200} {
		if _, err := s.CreateTransaction(ctx, core.NewTransaction{EnvelopeID: a.ID, Amount: money(amt)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := s.CreateTransaction(ctx, core.NewTransaction{EnvelopeID: b.ID, Amount: money(-1)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := s.ListTransactionsByEnvelope(ctx, a.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("expected 2 transactions for A, got %v err=%v", list, err)
	}
	for _, tx := range list {
		if tx.EnvelopeID != a.ID {
			t.Fatalf("foreign transaction in list: %+v", tx)
		}
	}
	if _, err := s.ListTransactionsByEnvelope(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown envelope expected ErrNotFound, got %v", err)
	}
}

func testConcurrentWithdrawals(t *testing.T, s ports.Store) {
	ctx := context.Background()
	e := mustCreate(t, s, "Shared", 1000)

	const workers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Withdraw(ctx, e.ID, core.Money{Cents: 100})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, core.ErrInsufficientFunds) {
				t.Errorf("unexpected withdraw error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("expected exactly 10 successful withdrawals, got %d", succeeded)
	}
	if b := mustBudget(t, s, e.ID); b != 0 {
		t.Fatalf("expected balance 0, got %d", b)
	}
}

func testConcurrentTransfers(t *testing.T, s ports.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "A", 2000)
	b := mustCreate(t, s, "B", 2000)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := a.ID, b.ID
			if i%2 == 1 {
				from, to = to, from
			}
			_, err := s.Transfer(ctx, from, to, core.Money{Cents: 300})
			if err != nil && !errors.Is(err, core.ErrInsufficientFunds) {
				t.Errorf("unexpected transfer error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	ab, bb := mustBudget(t, s, a.ID), mustBudget(t, s, b.ID)
	if ab < 0 || bb < 0 {
		t.Fatalf("negative balance after concurrent transfers: %d %d", ab, bb)
	}
	if ab+bb != 4000 {
		t.Fatalf("transfers must conserve the total, got %d", ab+bb)
	}
}
