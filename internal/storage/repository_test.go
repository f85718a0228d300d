package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/ports"
	"budget/internal/ports/portstest"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteStoreContract(t *testing.T) {
	portstest.RunStoreContract(t, func(t *testing.T) ports.Store { return newTestRepo(t) })
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "budget.db")
	first, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	e, err := first.CreateEnvelope(context.Background(), core.NewEnvelope{Title: "Kept", Budget: &core.Money{Cents: 4200}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	first.Close()

	second, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.GetEnvelope(context.Background(), e.ID)
	if err != nil || got.Budget.Cents != 4200 {
		t.Fatalf("data lost across reopen: %+v err=%v", got, err)
	}
}

func TestCreatedAtRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	fixed := time.Date(2025, 6, 30, 8, 15, 0, 123000000, time.UTC)
	repo.now = func() time.Time { return fixed }

	ctx := context.Background()
	e, _ := repo.CreateEnvelope(ctx, core.NewEnvelope{Title: "A", Budget: &core.Money{Cents: 100}})
	tx, err := repo.CreateTransaction(ctx, core.NewTransaction{EnvelopeID: e.ID, Amount: &core.Money{Cents: -50}})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	got, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.CreatedAt.Equal(fixed) {
		t.Fatalf("createdAt = %v, want %v", got.CreatedAt, fixed)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.queries.CreateTransaction(context.Background(), CreateTransactionParams{
		EnvelopeID:  12345,
		AmountCents: 1,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err == nil {
		t.Fatal("expected foreign key violation for unknown envelope")
	}
}

func TestWithTxRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	e, _ := repo.CreateEnvelope(ctx, core.NewEnvelope{Title: "A", Budget: &core.Money{Cents: 1000}})

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(q *Queries) error {
		if _, err := q.DebitEnvelope(ctx, DebitEnvelopeParams{ID: e.ID, AmountCents: 600}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	got, _ := repo.GetEnvelope(ctx, e.ID)
	if got.Budget.Cents != 1000 {
		t.Fatalf("rolled back debit still applied: %d", got.Budget.Cents)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = repo.WithTx(ctx, func(q *Queries) error {
			if _, err := q.DebitEnvelope(ctx, DebitEnvelopeParams{ID: e.ID, AmountCents: 600}); err != nil {
				return err
			}
			panic("mid-transaction")
		})
	}()
	got, _ = repo.GetEnvelope(ctx, e.ID)
	if got.Budget.Cents != 1000 {
		t.Fatalf("panicking transaction leaked a debit: %d", got.Budget.Cents)
	}
}

func TestDebitEnvelopeIsConditional(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	e, _ := repo.CreateEnvelope(ctx, core.NewEnvelope{Title: "A", Budget: &core.Money{Cents: 100}})

	if _, err := repo.queries.DebitEnvelope(ctx, DebitEnvelopeParams{ID: e.ID, AmountCents: 101}); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected no rows for an overdraft, got %v", err)
	}
	row, err := repo.queries.DebitEnvelope(ctx, DebitEnvelopeParams{ID: e.ID, AmountCents: 100})
	if err != nil || row.BudgetCents != 0 {
		t.Fatalf("exact debit: %+v err=%v", row, err)
	}
}

func TestPingAndStorageErrors(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	repo.Close()

	err := repo.Ping(context.Background())
	var se *core.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError after close, got %v", err)
	}
	if _, err := repo.ListEnvelopes(context.Background()); !errors.As(err, &se) {
		t.Fatalf("expected StorageError from list after close, got %v", err)
	}
}
