package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 500
)

type (
	// Envelope is a named budget bucket with its current available balance.
	Envelope struct {
		ID     int64  `json:"id"`
		Title  string `json:"title"`
		Budget Money  `json:"budget"`
	}

	// NewEnvelope holds the caller-supplied fields of an envelope to create.
	// Budget is a pointer so that a missing value can be told apart from zero.
	NewEnvelope struct {
		Title  string `json:"title"`
		Budget *Money `json:"budget"`
	}

	// EnvelopePatch is a partial update; nil fields are left unchanged.
	EnvelopePatch struct {
		Title  *string `json:"title"`
		Budget *Money  `json:"budget"`
	}

	// Transaction is a signed amount posted against an envelope.
	// Positive amounts credit the envelope, negative amounts debit it.
	Transaction struct {
		ID          int64     `json:"id"`
		EnvelopeID  int64     `json:"envelopeId"`
		Amount      Money     `json:"amount"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	NewTransaction struct {
		EnvelopeID  int64  `json:"envelopeId"`
		Amount      *Money `json:"amount"`
		Description string `json:"description"`
	}

	// TransactionPatch is a partial update of the stored transaction fields.
	// It never affects the envelope balance.
	TransactionPatch struct {
		Amount      *Money  `json:"amount"`
		Description *string `json:"description"`
	}

	// TransferResult carries both envelopes as they are after a transfer.
	TransferResult struct {
		From   Envelope `json:"from"`
		To     Envelope `json:"to"`
		Amount Money    `json:"amount"`
	}
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrEmptyTitle          = fmt.Errorf("%w: title is required", ErrValidation)
	ErrTitleTooLong        = fmt.Errorf("%w: title too long (max %d characters)", ErrValidation, MaxTitleLength)
	ErrMissingBudget       = fmt.Errorf("%w: budget is required", ErrValidation)
	ErrNegativeBudget      = fmt.Errorf("%w: budget must be a non-negative number", ErrValidation)
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be a positive number", ErrValidation)
	ErrMissingAmount       = fmt.Errorf("%w: amount is required", ErrValidation)
	ErrInvalidNumber       = fmt.Errorf("%w: amount must be a number", ErrValidation)
	ErrMissingEnvelope     = fmt.Errorf("%w: envelopeId is required", ErrValidation)
	ErrSameEnvelope        = fmt.Errorf("%w: source and destination envelopes must differ", ErrValidation)
	ErrDescriptionTooLong  = fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, MaxDescriptionLength)
	ErrInvalidID           = fmt.Errorf("%w: id must be a positive integer", ErrValidation)
	ErrBudgetOverflow      = fmt.Errorf("%w: resulting budget exceeds the largest supported amount", ErrValidation)
	ErrEnvelopeNotFound    = fmt.Errorf("envelope %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
)

// EnvelopeNotFound reports a missing envelope id.
func EnvelopeNotFound(id int64) error {
	return fmt.Errorf("%w: id %d", ErrEnvelopeNotFound, id)
}

// TransactionNotFound reports a missing transaction id.
func TransactionNotFound(id int64) error {
	return fmt.Errorf("%w: id %d", ErrTransactionNotFound, id)
}

// InsufficientFunds reports a debit larger than the available balance.
func InsufficientFunds(e Envelope, amount Money) error {
	return fmt.Errorf("%w: envelope %d has %s, requested %s", ErrInsufficientFunds, e.ID, e.Budget, amount)
}

// StorageError wraps a persistence failure. Callers see an opaque failure;
// the wrapped cause is only meant for logs.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func ValidateID(id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if len(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func (n NewEnvelope) Validate() error {
	if err := validateTitle(n.Title); err != nil {
		return err
	}
	if n.Budget == nil {
		return ErrMissingBudget
	}
	if n.Budget.IsNegative() {
		return ErrNegativeBudget
	}
	return nil
}

func (p EnvelopePatch) Validate() error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Budget != nil && p.Budget.IsNegative() {
		return ErrNegativeBudget
	}
	return nil
}

// Apply returns e with the patch's non-nil fields written over it.
func (p EnvelopePatch) Apply(e Envelope) Envelope {
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Budget != nil {
		e.Budget = *p.Budget
	}
	return e
}

func (n NewTransaction) Validate() error {
	if n.EnvelopeID == 0 {
		return ErrMissingEnvelope
	}
	if err := ValidateID(n.EnvelopeID); err != nil {
		return err
	}
	if n.Amount == nil {
		return ErrMissingAmount
	}
	if len(n.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func (p TransactionPatch) Validate() error {
	if p.Description != nil && len(*p.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	return t
}

// ValidateTransfer checks the arguments of a transfer before any storage access.
func ValidateTransfer(fromID, toID int64, amount Money) error {
	if err := ValidateID(fromID); err != nil {
		return err
	}
	if err := ValidateID(toID); err != nil {
		return err
	}
	if err := amount.Validate(); err != nil {
		return err
	}
	if fromID == toID {
		return ErrSameEnvelope
	}
	return nil
}

// CanPost reports whether posting a debit keeps the envelope non-negative.
// Credits always pass; CanCredit bounds them.
func (e Envelope) CanPost(amount Money) bool {
	if amount.Cents >= 0 {
		return true
	}
	return e.Budget.Cents >= -amount.Cents
}

// CanCredit rejects a credit whose resulting balance does not fit in int64 cents.
func (e Envelope) CanCredit(amount Money) error {
	if amount.Cents > 0 && e.Budget.Cents > math.MaxInt64-amount.Cents {
		return fmt.Errorf("%w: envelope %d has %s, credit %s", ErrBudgetOverflow, e.ID, e.Budget, amount)
	}
	return nil
}
