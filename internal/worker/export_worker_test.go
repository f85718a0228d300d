package worker

import (
	"context"
	"errors"
	"testing"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/sheets"
	"budget/internal/sheets/memory"
)

type failingWriter struct{ calls int }

func (f *failingWriter) AppendMovement(context.Context, sheets.Movement) (string, error) {
	f.calls++
	return "", errors.New("quota exceeded")
}

func TestHandleEventExports(t *testing.T) {
	sink := memory.New()
	w := NewExportWorker(sink, nil, 0)

	ev := amqp.NewWithdrawalEvent(core.Envelope{ID: 4, Title: "Groceries", Budget: core.Money{Cents: 7000}}, core.Money{Cents: 3000})
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	got := sink.Movements()
	if len(got) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(got))
	}
	m := got[0]
	if m.EventID != ev.ID || m.Type != "withdrawal" || m.EnvelopeID != 4 || m.Amount.Cents != 3000 || m.BalanceAfter.Cents != 7000 {
		t.Fatalf("unexpected movement: %+v", m)
	}
	if w.Exported() != 1 {
		t.Fatalf("Exported() = %d", w.Exported())
	}
}

func TestHandleEventSkipsRedelivery(t *testing.T) {
	sink := memory.New()
	w := NewExportWorker(sink, nil, 0)
	ev := amqp.NewTransferEvent(core.TransferResult{
		From:   core.Envelope{ID: 1},
		To:     core.Envelope{ID: 2},
		Amount: core.Money{Cents: 100},
	})

	for i := 0; i < 3; i++ {
		if err := w.HandleEvent(context.Background(), ev); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}
	if n := len(sink.Movements()); n != 1 {
		t.Fatalf("redelivered event exported %d times", n)
	}
}

func TestHandleEventDedupeWindow(t *testing.T) {
	sink := memory.New()
	w := NewExportWorker(sink, nil, 1)
	first := amqp.NewWithdrawalEvent(core.Envelope{ID: 1}, core.Money{Cents: 1})
	second := amqp.NewWithdrawalEvent(core.Envelope{ID: 1}, core.Money{Cents: 2})

	for _, ev := range []amqp.LedgerEvent{first, second, first} {
		if err := w.HandleEvent(context.Background(), ev); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}
	if n := len(sink.Movements()); n != 3 {
		t.Fatalf("events outside the window are exported again, got %d rows", n)
	}
}

func TestHandleEventWriterFailureIsRetryable(t *testing.T) {
	fw := &failingWriter{}
	w := NewExportWorker(fw, nil, 0)
	ev := amqp.NewWithdrawalEvent(core.Envelope{ID: 1}, core.Money{Cents: 1})

	err := w.HandleEvent(context.Background(), ev)
	if err == nil {
		t.Fatal("expected error")
	}
	if amqp.IsPermanent(err) {
		t.Fatal("writer failures should be retried")
	}
	if err := w.HandleEvent(context.Background(), ev); err == nil || fw.calls != 2 {
		t.Fatalf("failed events must not be remembered as exported (calls=%d)", fw.calls)
	}
}
