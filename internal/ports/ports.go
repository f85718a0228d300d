// Package ports declares the store capabilities the HTTP layer and services
// depend on. Implementations live in internal/storage (SQLite) and
// internal/memory.
package ports

import (
	"context"

	"budget/internal/core"
)

type (
	// EnvelopeStore manages envelopes. Withdraw and Transfer are atomic:
	// they either apply completely or leave every balance untouched.
	EnvelopeStore interface {
		CreateEnvelope(ctx context.Context, n core.NewEnvelope) (core.Envelope, error)
		GetEnvelope(ctx context.Context, id int64) (core.Envelope, error)
		ListEnvelopes(ctx context.Context) ([]core.Envelope, error)
		UpdateEnvelope(ctx context.Context, id int64, p core.EnvelopePatch) (core.Envelope, error)
		DeleteEnvelope(ctx context.Context, id int64) error
		Withdraw(ctx context.Context, id int64, amount core.Money) (core.Envelope, error)
		Transfer(ctx context.Context, fromID, toID int64, amount core.Money) (core.TransferResult, error)
	}

	// TransactionStore manages transactions. CreateTransaction inserts the
	// record and adjusts the envelope balance as one unit.
	TransactionStore interface {
		CreateTransaction(ctx context.Context, n core.NewTransaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		// ListTransactionsByEnvelope returns an empty slice when the envelope
		// exists but has no transactions.
		ListTransactionsByEnvelope(ctx context.Context, envelopeID int64) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, id int64, p core.TransactionPatch) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	// Pinger is implemented by stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	Store interface {
		EnvelopeStore
		TransactionStore
	}
)
