package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"budget/internal/amqp"
	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/ports"
)

// Publisher sends ledger events to the export pipeline.
type Publisher interface {
	Publish(ctx context.Context, ev amqp.LedgerEvent) error
}

// BudgetService fronts a store and announces committed balance changes.
// Publishing happens after the store call returns and never turns a
// successful operation into a failure.
type BudgetService struct {
	store     ports.Store
	publisher Publisher
	logger    *applog.Logger
}

var _ ports.Store = (*BudgetService)(nil)

// NewBudgetService wires store and an optional publisher (nil disables events).
func NewBudgetService(store ports.Store, publisher Publisher, logger *applog.Logger) *BudgetService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &BudgetService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentBudget),
	}
}

func (s *BudgetService) CreateEnvelope(ctx context.Context, n core.NewEnvelope) (core.Envelope, error) {
	e, err := s.store.CreateEnvelope(ctx, n)
	if err != nil {
		return core.Envelope{}, err
	}
	s.logger.LogFields(ctx, slog.LevelInfo, "Envelope created",
		applog.NewFields().WithOperation(applog.OpCreate).WithEnvelope(e.ID, e.Budget.Cents))
	return e, nil
}

func (s *BudgetService) GetEnvelope(ctx context.Context, id int64) (core.Envelope, error) {
	return s.store.GetEnvelope(ctx, id)
}

func (s *BudgetService) ListEnvelopes(ctx context.Context) ([]core.Envelope, error) {
	return s.store.ListEnvelopes(ctx)
}

func (s *BudgetService) UpdateEnvelope(ctx context.Context, id int64, p core.EnvelopePatch) (core.Envelope, error) {
	e, err := s.store.UpdateEnvelope(ctx, id, p)
	if err != nil {
		return core.Envelope{}, err
	}
	s.logger.LogFields(ctx, slog.LevelInfo, "Envelope updated",
		applog.NewFields().WithOperation(applog.OpUpdate).WithEnvelope(e.ID, e.Budget.Cents))
	return e, nil
}

func (s *BudgetService) DeleteEnvelope(ctx context.Context, id int64) error {
	if err := s.store.DeleteEnvelope(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Envelope deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldEnvelopeID, id)
	return nil
}

func (s *BudgetService) Withdraw(ctx context.Context, id int64, amount core.Money) (core.Envelope, error) {
	e, err := s.store.Withdraw(ctx, id, amount)
	if err != nil {
		return core.Envelope{}, err
	}
	s.logger.LogFields(ctx, slog.LevelInfo, "Withdrawal committed",
		applog.NewFields().WithOperation(applog.OpWithdraw).WithEnvelope(e.ID, e.Budget.Cents).WithAmount(amount.Cents))
	s.publish(ctx, amqp.NewWithdrawalEvent(e, amount))
	return e, nil
}

func (s *BudgetService) Transfer(ctx context.Context, fromID, toID int64, amount core.Money) (core.TransferResult, error) {
	res, err := s.store.Transfer(ctx, fromID, toID, amount)
	if err != nil {
		return core.TransferResult{}, err
	}
	s.logger.LogFields(ctx, slog.LevelInfo, "Transfer committed",
		applog.NewFields().WithOperation(applog.OpTransfer).WithTransfer(fromID, toID, amount.Cents))
	s.publish(ctx, amqp.NewTransferEvent(res))
	return res, nil
}

func (s *BudgetService) CreateTransaction(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	tx, err := s.store.CreateTransaction(ctx, n)
	if err != nil {
		return core.Transaction{}, err
	}
	fields := applog.NewFields().WithOperation(applog.OpPost).WithAmount(tx.Amount.Cents)
	fields[applog.FieldTransactionID] = tx.ID
	fields[applog.FieldEnvelopeID] = tx.EnvelopeID
	s.logger.LogFields(ctx, slog.LevelInfo, "Transaction posted", fields)
	s.publish(ctx, amqp.NewTransactionPostedEvent(tx))
	return tx, nil
}

func (s *BudgetService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *BudgetService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

func (s *BudgetService) ListTransactionsByEnvelope(ctx context.Context, envelopeID int64) ([]core.Transaction, error) {
	return s.store.ListTransactionsByEnvelope(ctx, envelopeID)
}

func (s *BudgetService) UpdateTransaction(ctx context.Context, id int64, p core.TransactionPatch) (core.Transaction, error) {
	return s.store.UpdateTransaction(ctx, id, p)
}

func (s *BudgetService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldTransactionID, id)
	return nil
}

// Ping reports store readiness. Stores without a health check are always
// ready.
func (s *BudgetService) Ping(ctx context.Context) error {
	if p, ok := s.store.(ports.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *BudgetService) publish(ctx context.Context, ev amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		fields := applog.NewFields().WithOperation(applog.OpPublish).WithError(err)
		fields[applog.FieldEventID] = ev.ID
		fields[applog.FieldEventType] = string(ev.Type)
		s.logger.LogFields(ctx, slog.LevelWarn, "Failed to publish ledger event", fields)
	}
}

// Close releases the store and the publisher when they hold resources.
func (s *BudgetService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
