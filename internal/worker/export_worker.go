package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"budget/internal/amqp"
	"budget/internal/cache"
	applog "budget/internal/log"
	"budget/internal/sheets"
)

const (
	defaultDedupeWindow = 1024
	dedupeTTL           = 24 * time.Hour
)

// ExportWorker appends every ledger event it receives to a movement sheet.
// Recently exported event ids are remembered and redeliveries of them are
// skipped.
type ExportWorker struct {
	writer   sheets.MovementWriter
	logger   *applog.Logger
	refs     *cache.LRU[string, string]
	exported atomic.Int64
}

func NewExportWorker(writer sheets.MovementWriter, logger *applog.Logger, dedupeWindow int) *ExportWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if dedupeWindow <= 0 {
		dedupeWindow = defaultDedupeWindow
	}
	return &ExportWorker{
		writer: writer,
		logger: logger.WithComponent(applog.ComponentWorker),
		refs:   cache.NewLRU[string, string](dedupeWindow, dedupeTTL),
	}
}

// HandleEvent exports ev. It satisfies amqp.Handler; a returned error makes
// the broker redeliver the event.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev amqp.LedgerEvent) error {
	if ref, ok := w.refs.Get(ev.ID); ok {
		w.logger.DebugContext(ctx, "Skipping already exported event",
			applog.FieldEventID, ev.ID,
			"row_ref", ref)
		return nil
	}

	ref, err := w.writer.AppendMovement(ctx, toMovement(ev))
	if err != nil {
		return fmt.Errorf("export %s event %s: %w", ev.Type, ev.ID, err)
	}
	w.refs.Set(ev.ID, ref)
	w.exported.Add(1)

	w.logger.InfoContext(ctx, "Exported ledger event",
		applog.FieldOperation, applog.OpExport,
		applog.FieldEventID, ev.ID,
		applog.FieldEventType, string(ev.Type),
		applog.FieldEnvelopeID, ev.EnvelopeID,
		applog.FieldAmountCents, ev.Amount.Cents,
		"row_ref", ref)
	return nil
}

// Exported returns how many events were written since start.
func (w *ExportWorker) Exported() int64 {
	return w.exported.Load()
}

func toMovement(ev amqp.LedgerEvent) sheets.Movement {
	return sheets.Movement{
		EventID:       ev.ID,
		OccurredAt:    ev.OccurredAt,
		Type:          string(ev.Type),
		EnvelopeID:    ev.EnvelopeID,
		ToEnvelopeID:  ev.ToEnvelopeID,
		TransactionID: ev.TransactionID,
		Amount:        ev.Amount,
		BalanceAfter:  ev.BalanceAfter,
		Description:   ev.Description,
	}
}
