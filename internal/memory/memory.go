package memory

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/ports"
)

// Store keeps envelopes and transactions in process memory. A single mutex
// guards all state, so every operation is one critical section.
type Store struct {
	mu           sync.Mutex
	envelopes    map[int64]core.Envelope
	transactions map[int64]core.Transaction
	nextEnvID    int64
	nextTxID     int64
	now          func() time.Time
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		envelopes:    make(map[int64]core.Envelope),
		transactions: make(map[int64]core.Transaction),
		nextEnvID:    1,
		nextTxID:     1,
		now:          time.Now,
	}
}

// NewFromFiles seeds envelopes from base/seed_envelopes.txt. Each line is
// "Title;budget"; blank lines and lines starting with # are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	for _, line := range readLines(filepath.Join(base, "seed_envelopes.txt")) {
		title, amount, ok := strings.Cut(line, ";")
		if !ok {
			slog.Warn("Skipping malformed seed line", "line", line)
			continue
		}
		budget, err := core.ParseMoney(amount)
		if err != nil {
			slog.Warn("Skipping seed line with invalid budget", "line", line, "error", err)
			continue
		}
		if _, err := s.CreateEnvelope(context.Background(), core.NewEnvelope{Title: title, Budget: &budget}); err != nil {
			slog.Warn("Skipping invalid seed envelope", "line", line, "error", err)
		}
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateEnvelope(_ context.Context, n core.NewEnvelope) (core.Envelope, error) {
	if err := n.Validate(); err != nil {
		return core.Envelope{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := core.Envelope{ID: s.nextEnvID, Title: strings.TrimSpace(n.Title), Budget: *n.Budget}
	s.envelopes[e.ID] = e
	s.nextEnvID++
	return e, nil
}

func (s *Store) GetEnvelope(_ context.Context, id int64) (core.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.envelopes[id]
	if !ok {
		return core.Envelope{}, core.EnvelopeNotFound(id)
	}
	return e, nil
}

func (s *Store) ListEnvelopes(context.Context) ([]core.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Envelope, 0, len(s.envelopes))
	for _, e := range s.envelopes {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateEnvelope(_ context.Context, id int64, p core.EnvelopePatch) (core.Envelope, error) {
	if err := p.Validate(); err != nil {
		return core.Envelope{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.envelopes[id]
	if !ok {
		return core.Envelope{}, core.EnvelopeNotFound(id)
	}
	e = p.Apply(e)
	s.envelopes[id] = e
	return e, nil
}

// DeleteEnvelope removes the envelope and its transactions.
func (s *Store) DeleteEnvelope(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.envelopes[id]; !ok {
		return core.EnvelopeNotFound(id)
	}
	delete(s.envelopes, id)
	for txID, tx := range s.transactions {
		if tx.EnvelopeID == id {
			delete(s.transactions, txID)
		}
	}
	return nil
}

func (s *Store) Withdraw(_ context.Context, id int64, amount core.Money) (core.Envelope, error) {
	if err := amount.Validate(); err != nil {
		return core.Envelope{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.envelopes[id]
	if !ok {
		return core.Envelope{}, core.EnvelopeNotFound(id)
	}
	if e.Budget.Cents < amount.Cents {
		return core.Envelope{}, core.InsufficientFunds(e, amount)
	}
	e.Budget.Cents -= amount.Cents
	s.envelopes[id] = e
	return e, nil
}

func (s *Store) Transfer(_ context.Context, fromID, toID int64, amount core.Money) (core.TransferResult, error) {
	if err := core.ValidateTransfer(fromID, toID, amount); err != nil {
		return core.TransferResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.envelopes[fromID]
	if !ok {
		return core.TransferResult{}, core.EnvelopeNotFound(fromID)
	}
	to, ok := s.envelopes[toID]
	if !ok {
		return core.TransferResult{}, core.EnvelopeNotFound(toID)
	}
	if from.Budget.Cents < amount.Cents {
		return core.TransferResult{}, core.InsufficientFunds(from, amount)
	}
	if err := to.CanCredit(amount); err != nil {
		return core.TransferResult{}, err
	}
	from.Budget.Cents -= amount.Cents
	to.Budget.Cents += amount.Cents
	s.envelopes[fromID] = from
	s.envelopes[toID] = to
	return core.TransferResult{From: from, To: to, Amount: amount}, nil
}

func (s *Store) CreateTransaction(_ context.Context, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.envelopes[n.EnvelopeID]
	if !ok {
		return core.Transaction{}, core.EnvelopeNotFound(n.EnvelopeID)
	}
	if !e.CanPost(*n.Amount) {
		return core.Transaction{}, core.InsufficientFunds(e, core.Money{Cents: -n.Amount.Cents})
	}
	if err := e.CanCredit(*n.Amount); err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:          s.nextTxID,
		EnvelopeID:  n.EnvelopeID,
		Amount:      *n.Amount,
		Description: n.Description,
		CreatedAt:   s.now().UTC(),
	}
	e.Budget.Cents += n.Amount.Cents
	s.envelopes[e.ID] = e
	s.transactions[tx.ID] = tx
	s.nextTxID++
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.TransactionNotFound(id)
	}
	return tx, nil
}

func (s *Store) ListTransactions(context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(core.Transaction) bool { return true }), nil
}

func (s *Store) ListTransactionsByEnvelope(_ context.Context, envelopeID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.envelopes[envelopeID]; !ok {
		return nil, core.EnvelopeNotFound(envelopeID)
	}
	return s.collect(func(tx core.Transaction) bool { return tx.EnvelopeID == envelopeID }), nil
}

func (s *Store) UpdateTransaction(_ context.Context, id int64, p core.TransactionPatch) (core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.TransactionNotFound(id)
	}
	tx = p.Apply(tx)
	s.transactions[id] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return core.TransactionNotFound(id)
	}
	delete(s.transactions, id)
	return nil
}

// collect must be called with s.mu held.
func (s *Store) collect(keep func(core.Transaction) bool) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, tx := range s.transactions {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
