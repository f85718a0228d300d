package storage

import (
	"context"
	"database/sql"
)

const createEnvelope = `INSERT INTO envelopes (title, budget_cents)
VALUES (?, ?)
RETURNING id, title, budget_cents`

type CreateEnvelopeParams struct {
	Title       string
	BudgetCents int64
}

func (q *Queries) CreateEnvelope(ctx context.Context, arg CreateEnvelopeParams) (Envelope, error) {
	row := q.db.QueryRowContext(ctx, createEnvelope, arg.Title, arg.BudgetCents)
	var i Envelope
	err := row.Scan(&i.ID, &i.Title, &i.BudgetCents)
	return i, err
}

const getEnvelope = `SELECT id, title, budget_cents FROM envelopes WHERE id = ?`

func (q *Queries) GetEnvelope(ctx context.Context, id int64) (Envelope, error) {
	row := q.db.QueryRowContext(ctx, getEnvelope, id)
	var i Envelope
	err := row.Scan(&i.ID, &i.Title, &i.BudgetCents)
	return i, err
}

const listEnvelopes = `SELECT id, title, budget_cents FROM envelopes ORDER BY id`

func (q *Queries) ListEnvelopes(ctx context.Context) ([]Envelope, error) {
	rows, err := q.db.QueryContext(ctx, listEnvelopes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Envelope{}
	for rows.Next() {
		var i Envelope
		if err := rows.Scan(&i.ID, &i.Title, &i.BudgetCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateEnvelope = `UPDATE envelopes
SET title = COALESCE(?, title),
    budget_cents = COALESCE(?, budget_cents)
WHERE id = ?
RETURNING id, title, budget_cents`

type UpdateEnvelopeParams struct {
	Title       sql.NullString
	BudgetCents sql.NullInt64
	ID          int64
}

func (q *Queries) UpdateEnvelope(ctx context.Context, arg UpdateEnvelopeParams) (Envelope, error) {
	row := q.db.QueryRowContext(ctx, updateEnvelope, arg.Title, arg.BudgetCents, arg.ID)
	var i Envelope
	err := row.Scan(&i.ID, &i.Title, &i.BudgetCents)
	return i, err
}

const deleteEnvelope = `DELETE FROM envelopes WHERE id = ?`

func (q *Queries) DeleteEnvelope(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteEnvelope, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// debitEnvelope only matches when the balance covers the amount, so a
// debit can never leave a negative budget.
const debitEnvelope = `UPDATE envelopes
SET budget_cents = budget_cents - ?
WHERE id = ? AND budget_cents >= ?
RETURNING id, title, budget_cents`

type DebitEnvelopeParams struct {
	ID          int64
	AmountCents int64
}

func (q *Queries) DebitEnvelope(ctx context.Context, arg DebitEnvelopeParams) (Envelope, error) {
	row := q.db.QueryRowContext(ctx, debitEnvelope, arg.AmountCents, arg.ID, arg.AmountCents)
	var i Envelope
	err := row.Scan(&i.ID, &i.Title, &i.BudgetCents)
	return i, err
}

const creditEnvelope = `UPDATE envelopes
SET budget_cents = budget_cents + ?
WHERE id = ?
RETURNING id, title, budget_cents`

type CreditEnvelopeParams struct {
	ID          int64
	AmountCents int64
}

func (q *Queries) CreditEnvelope(ctx context.Context, arg CreditEnvelopeParams) (Envelope, error) {
	row := q.db.QueryRowContext(ctx, creditEnvelope, arg.AmountCents, arg.ID)
	var i Envelope
	err := row.Scan(&i.ID, &i.Title, &i.BudgetCents)
	return i, err
}

const createTransaction = `INSERT INTO transactions (envelope_id, amount_cents, description, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, envelope_id, amount_cents, description, created_at`

type CreateTransactionParams struct {
	EnvelopeID  int64
	AmountCents int64
	Description string
	CreatedAt   string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.EnvelopeID,
		arg.AmountCents,
		arg.Description,
		arg.CreatedAt,
	)
	var i Transaction
	err := row.Scan(&i.ID, &i.EnvelopeID, &i.AmountCents, &i.Description, &i.CreatedAt)
	return i, err
}

const getTransaction = `SELECT id, envelope_id, amount_cents, description, created_at
FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i Transaction
	err := row.Scan(&i.ID, &i.EnvelopeID, &i.AmountCents, &i.Description, &i.CreatedAt)
	return i, err
}

const listTransactions = `SELECT id, envelope_id, amount_cents, description, created_at
FROM transactions ORDER BY id`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactions)
}

const listTransactionsByEnvelope = `SELECT id, envelope_id, amount_cents, description, created_at
FROM transactions WHERE envelope_id = ? ORDER BY id`

func (q *Queries) ListTransactionsByEnvelope(ctx context.Context, envelopeID int64) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactionsByEnvelope, envelopeID)
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.EnvelopeID, &i.AmountCents, &i.Description, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateTransaction = `UPDATE transactions
SET amount_cents = COALESCE(?, amount_cents),
    description = COALESCE(?, description)
WHERE id = ?
RETURNING id, envelope_id, amount_cents, description, created_at`

type UpdateTransactionParams struct {
	AmountCents sql.NullInt64
	Description sql.NullString
	ID          int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction, arg.AmountCents, arg.Description, arg.ID)
	var i Transaction
	err := row.Scan(&i.ID, &i.EnvelopeID, &i.AmountCents, &i.Description, &i.CreatedAt)
	return i, err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
