package memory

import (
	"context"
	"testing"

	"budget/internal/sheets"
)

func TestWriterAppend(t *testing.T) {
	w := New()
	ref, err := w.AppendMovement(context.Background(), sheets.Movement{EventID: "a"})
	if err != nil || ref != "mem:1" {
		t.Fatalf("first append: %q %v", ref, err)
	}
	ref, _ = w.AppendMovement(context.Background(), sheets.Movement{EventID: "b"})
	if ref != "mem:2" {
		t.Fatalf("second ref = %q", ref)
	}

	got := w.Movements()
	if len(got) != 2 || got[0].EventID != "a" || got[1].EventID != "b" {
		t.Fatalf("unexpected movements: %+v", got)
	}
	got[0].EventID = "changed"
	if w.Movements()[0].EventID != "a" {
		t.Fatal("Movements must return a copy")
	}
}
