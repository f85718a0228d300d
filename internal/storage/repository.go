package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budget/internal/core"
	"budget/internal/ports"

	_ "modernc.org/sqlite"
)

// dsnOptions make every connection enforce foreign keys and wait for locks.
// _txlock=immediate takes the write lock at BEGIN, so concurrent balance
// mutations serialize instead of failing on lock upgrade.
const dsnOptions = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var (
	_ ports.Store  = (*SQLiteRepository)(nil)
	_ ports.Pinger = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one pooled connection keeps writers
	// queued in the pool rather than contending on the file lock.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + dsnOptions
	}
	return path + "?" + dsnOptions
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &core.StorageError{Op: "ping", Err: err}
	}
	return nil
}

// WithTx runs fn inside a database transaction. The transaction commits when
// fn returns nil and rolls back on error or panic.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StorageError{Op: "begin transaction", Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr)
			}
		}
	}()

	if err = fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return &core.StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

func (r *SQLiteRepository) CreateEnvelope(ctx context.Context, n core.NewEnvelope) (core.Envelope, error) {
	if err := n.Validate(); err != nil {
		return core.Envelope{}, err
	}
	row, err := r.queries.CreateEnvelope(ctx, CreateEnvelopeParams{
		Title:       strings.TrimSpace(n.Title),
		BudgetCents: n.Budget.Cents,
	})
	if err != nil {
		return core.Envelope{}, &core.StorageError{Op: "create envelope", Err: err}
	}
	return toEnvelope(row), nil
}

func (r *SQLiteRepository) GetEnvelope(ctx context.Context, id int64) (core.Envelope, error) {
	row, err := r.queries.GetEnvelope(ctx, id)
	if err != nil {
		return core.Envelope{}, envelopeError("get envelope", id, err)
	}
	return toEnvelope(row), nil
}

func (r *SQLiteRepository) ListEnvelopes(ctx context.Context) ([]core.Envelope, error) {
	rows, err := r.queries.ListEnvelopes(ctx)
	if err != nil {
		return nil, &core.StorageError{Op: "list envelopes", Err: err}
	}
	out := make([]core.Envelope, len(rows))
	for i, row := range rows {
		out[i] = toEnvelope(row)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateEnvelope(ctx context.Context, id int64, p core.EnvelopePatch) (core.Envelope, error) {
	if err := p.Validate(); err != nil {
		return core.Envelope{}, err
	}
	arg := UpdateEnvelopeParams{ID: id}
	if p.Title != nil {
		arg.Title = sql.NullString{String: strings.TrimSpace(*p.Title), Valid: true}
	}
	if p.Budget != nil {
		arg.BudgetCents = sql.NullInt64{Int64: p.Budget.Cents, Valid: true}
	}
	row, err := r.queries.UpdateEnvelope(ctx, arg)
	if err != nil {
		return core.Envelope{}, envelopeError("update envelope", id, err)
	}
	return toEnvelope(row), nil
}

// DeleteEnvelope removes the envelope; its transactions go with it through
// the ON DELETE CASCADE foreign key.
func (r *SQLiteRepository) DeleteEnvelope(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteEnvelope(ctx, id)
	if err != nil {
		return &core.StorageError{Op: "delete envelope", Err: err}
	}
	if n == 0 {
		return core.EnvelopeNotFound(id)
	}
	return nil
}

func (r *SQLiteRepository) Withdraw(ctx context.Context, id int64, amount core.Money) (core.Envelope, error) {
	if err := amount.Validate(); err != nil {
		return core.Envelope{}, err
	}
	var updated Envelope
	err := r.WithTx(ctx, func(q *Queries) error {
		var err error
		updated, err = debit(ctx, q, id, amount)
		return err
	})
	if err != nil {
		return core.Envelope{}, err
	}
	return toEnvelope(updated), nil
}

func (r *SQLiteRepository) Transfer(ctx context.Context, fromID, toID int64, amount core.Money) (core.TransferResult, error) {
	if err := core.ValidateTransfer(fromID, toID, amount); err != nil {
		return core.TransferResult{}, err
	}
	var from, to Envelope
	err := r.WithTx(ctx, func(q *Queries) error {
		// Existence of both sides is checked before any write.
		if _, err := q.GetEnvelope(ctx, fromID); err != nil {
			return envelopeError("get source envelope", fromID, err)
		}
		if _, err := q.GetEnvelope(ctx, toID); err != nil {
			return envelopeError("get destination envelope", toID, err)
		}
		var err error
		if from, err = debit(ctx, q, fromID, amount); err != nil {
			return err
		}
		to, err = credit(ctx, q, toID, amount)
		return err
	})
	if err != nil {
		return core.TransferResult{}, err
	}
	return core.TransferResult{From: toEnvelope(from), To: toEnvelope(to), Amount: amount}, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var row Transaction
	err := r.WithTx(ctx, func(q *Queries) error {
		if n.Amount.IsNegative() {
			if _, err := debit(ctx, q, n.EnvelopeID, core.Money{Cents: -n.Amount.Cents}); err != nil {
				return err
			}
		} else {
			if _, err := credit(ctx, q, n.EnvelopeID, *n.Amount); err != nil {
				return err
			}
		}
		var err error
		row, err = q.CreateTransaction(ctx, CreateTransactionParams{
			EnvelopeID:  n.EnvelopeID,
			AmountCents: n.Amount.Cents,
			Description: n.Description,
			CreatedAt:   r.now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return &core.StorageError{Op: "create transaction", Err: err}
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return toTransaction(row)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, transactionError("get transaction", id, err)
	}
	return toTransaction(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, &core.StorageError{Op: "list transactions", Err: err}
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) ListTransactionsByEnvelope(ctx context.Context, envelopeID int64) ([]core.Transaction, error) {
	var rows []Transaction
	err := r.WithTx(ctx, func(q *Queries) error {
		if _, err := q.GetEnvelope(ctx, envelopeID); err != nil {
			return envelopeError("get envelope", envelopeID, err)
		}
		var err error
		if rows, err = q.ListTransactionsByEnvelope(ctx, envelopeID); err != nil {
			return &core.StorageError{Op: "list transactions by envelope", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toTransactions(rows)
}

// UpdateTransaction rewrites stored fields only; the envelope balance is not
// adjusted.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, p core.TransactionPatch) (core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}
	arg := UpdateTransactionParams{ID: id}
	if p.Amount != nil {
		arg.AmountCents = sql.NullInt64{Int64: p.Amount.Cents, Valid: true}
	}
	if p.Description != nil {
		arg.Description = sql.NullString{String: *p.Description, Valid: true}
	}
	row, err := r.queries.UpdateTransaction(ctx, arg)
	if err != nil {
		return core.Transaction{}, transactionError("update transaction", id, err)
	}
	return toTransaction(row)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return &core.StorageError{Op: "delete transaction", Err: err}
	}
	if n == 0 {
		return core.TransactionNotFound(id)
	}
	return nil
}

// debit subtracts amount from the envelope. When the conditional update
// matches nothing it tells a missing envelope apart from a short balance.
func debit(ctx context.Context, q *Queries, id int64, amount core.Money) (Envelope, error) {
	row, err := q.DebitEnvelope(ctx, DebitEnvelopeParams{ID: id, AmountCents: amount.Cents})
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Envelope{}, &core.StorageError{Op: "debit envelope", Err: err}
	}
	current, err := q.GetEnvelope(ctx, id)
	if err != nil {
		return Envelope{}, envelopeError("get envelope", id, err)
	}
	return Envelope{}, core.InsufficientFunds(toEnvelope(current), amount)
}

// credit checks the resulting balance in Go before the UPDATE, since SQLite
// promotes an overflowing integer sum to REAL.
func credit(ctx context.Context, q *Queries, id int64, amount core.Money) (Envelope, error) {
	current, err := q.GetEnvelope(ctx, id)
	if err != nil {
		return Envelope{}, envelopeError("get envelope", id, err)
	}
	if err := toEnvelope(current).CanCredit(amount); err != nil {
		return Envelope{}, err
	}
	row, err := q.CreditEnvelope(ctx, CreditEnvelopeParams{ID: id, AmountCents: amount.Cents})
	if err != nil {
		return Envelope{}, envelopeError("credit envelope", id, err)
	}
	return row, nil
}

func envelopeError(op string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.EnvelopeNotFound(id)
	}
	var se *core.StorageError
	if errors.As(err, &se) || errors.Is(err, core.ErrNotFound) {
		return err
	}
	return &core.StorageError{Op: op, Err: err}
}

func transactionError(op string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.TransactionNotFound(id)
	}
	return &core.StorageError{Op: op, Err: err}
}

func toEnvelope(e Envelope) core.Envelope {
	return core.Envelope{
		ID:     e.ID,
		Title:  e.Title,
		Budget: core.Money{Cents: e.BudgetCents},
	}
}

func toTransaction(t Transaction) (core.Transaction, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, t.CreatedAt)
	if err != nil {
		return core.Transaction{}, &core.StorageError{Op: "parse created_at", Err: err}
	}
	return core.Transaction{
		ID:          t.ID,
		EnvelopeID:  t.EnvelopeID,
		Amount:      core.Money{Cents: t.AmountCents},
		Description: t.Description,
		CreatedAt:   createdAt,
	}, nil
}

func toTransactions(rows []Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		t, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
