// Package memory keeps exported movements in process memory. The export
// worker uses it for dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budget/internal/sheets"
)

type Writer struct {
	mu   sync.Mutex
	rows []sheets.Movement
}

var _ sheets.MovementWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

// AppendMovement stores m and returns a synthetic row reference.
func (w *Writer) AppendMovement(_ context.Context, m sheets.Movement) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, m)
	return fmt.Sprintf("mem:%d", len(w.rows)), nil
}

// Movements returns a copy of everything written so far.
func (w *Writer) Movements() []sheets.Movement {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]sheets.Movement(nil), w.rows...)
}
