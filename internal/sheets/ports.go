package sheets

import (
	"context"
	"time"

	"budget/internal/core"
)

// Movement is one exported ledger row.
type Movement struct {
	EventID       string
	OccurredAt    time.Time
	Type          string
	EnvelopeID    int64
	ToEnvelopeID  int64
	TransactionID int64
	Amount        core.Money
	BalanceAfter  *core.Money
	Description   string
}

// Header names the exported columns in order.
var Header = []any{"Event ID", "Occurred At", "Type", "Envelope", "To Envelope", "Transaction", "Amount", "Balance After", "Description"}

// Row renders m in Header column order. Absent optional values are empty
// cells.
func (m Movement) Row() []any {
	optionalID := func(id int64) any {
		if id <= 0 {
			return ""
		}
		return id
	}
	balance := ""
	if m.BalanceAfter != nil {
		balance = m.BalanceAfter.String()
	}
	return []any{
		m.EventID,
		m.OccurredAt.UTC().Format(time.RFC3339),
		m.Type,
		m.EnvelopeID,
		optionalID(m.ToEnvelopeID),
		optionalID(m.TransactionID),
		m.Amount.String(),
		balance,
		m.Description,
	}
}

// MovementWriter appends movements to an external ledger.
type MovementWriter interface {
	AppendMovement(ctx context.Context, m Movement) (rowRef string, err error)
}
