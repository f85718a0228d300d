package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
)

// EventType names a balance-changing operation.
type EventType string

const (
	EventWithdrawal        EventType = "withdrawal"
	EventTransfer          EventType = "transfer"
	EventTransactionPosted EventType = "transaction_posted"
)

var ErrInvalidEvent = errors.New("invalid ledger event")

// LedgerEvent describes one committed balance mutation. Amount is always the
// magnitude moved for withdrawals and transfers and the signed posted amount
// for transactions.
type LedgerEvent struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	EnvelopeID    int64       `json:"envelopeId"`
	ToEnvelopeID  int64       `json:"toEnvelopeId,omitempty"`
	TransactionID int64       `json:"transactionId,omitempty"`
	Amount        core.Money  `json:"amount"`
	BalanceAfter  *core.Money `json:"balanceAfter,omitempty"`
	Description   string      `json:"description,omitempty"`
	OccurredAt    time.Time   `json:"occurredAt"`
}

func newEvent(t EventType, envelopeID int64, amount core.Money) LedgerEvent {
	return LedgerEvent{
		ID:         uuid.NewString(),
		Type:       t,
		EnvelopeID: envelopeID,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
}

func NewWithdrawalEvent(after core.Envelope, amount core.Money) LedgerEvent {
	ev := newEvent(EventWithdrawal, after.ID, amount)
	balance := after.Budget
	ev.BalanceAfter = &balance
	ev.Description = after.Title
	return ev
}

func NewTransferEvent(res core.TransferResult) LedgerEvent {
	ev := newEvent(EventTransfer, res.From.ID, res.Amount)
	ev.ToEnvelopeID = res.To.ID
	balance := res.From.Budget
	ev.BalanceAfter = &balance
	ev.Description = fmt.Sprintf("%s -> %s", res.From.Title, res.To.Title)
	return ev
}

func NewTransactionPostedEvent(tx core.Transaction) LedgerEvent {
	ev := newEvent(EventTransactionPosted, tx.EnvelopeID, tx.Amount)
	ev.TransactionID = tx.ID
	ev.Description = tx.Description
	ev.OccurredAt = tx.CreatedAt.UTC()
	return ev
}

// Validate reports structurally unusable events; they are never retried.
func (e LedgerEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if e.EnvelopeID <= 0 {
		return fmt.Errorf("%w: missing envelope id", ErrInvalidEvent)
	}
	switch e.Type {
	case EventWithdrawal:
	case EventTransfer:
		if e.ToEnvelopeID <= 0 {
			return fmt.Errorf("%w: transfer without destination", ErrInvalidEvent)
		}
	case EventTransactionPosted:
		if e.TransactionID <= 0 {
			return fmt.Errorf("%w: posting without transaction id", ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event body.
func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return LedgerEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return LedgerEvent{}, err
	}
	return ev, nil
}
