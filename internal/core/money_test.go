package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-15", -1500, true},
		{"-0.005", -1, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"999999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%q expected validation error, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{7000, "70"},
		{1250, "12.5"},
		{-1500, "-15"},
		{1, "0.01"},
		{0, "0"},
	}
	for _, tc := range cases {
		b, err := json.Marshal(Money{Cents: tc.cents})
		if err != nil {
			t.Fatalf("marshal %d: %v", tc.cents, err)
		}
		if string(b) != tc.want {
			t.Errorf("marshal %d = %s, want %s", tc.cents, b, tc.want)
		}
	}
}

func TestMoneyUnmarshalRejectsNonNumbers(t *testing.T) {
	for _, in := range []string{`"30"`, `true`, `{}`, `[1]`} {
		var m Money
		err := json.Unmarshal([]byte(in), &m)
		if err == nil {
			t.Fatalf("%s: expected error", in)
		}
	}

	var req struct {
		Amount *Money `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount": 30.456}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Amount == nil || req.Amount.Cents != 3046 {
		t.Fatalf("expected 3046 cents, got %+v", req.Amount)
	}

	req.Amount = nil
	if err := json.Unmarshal([]byte(`{"amount": null}`), &req); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if req.Amount != nil {
		t.Fatalf("null amount should stay nil")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, c := range []int64{0, -1} {
		if err := (Money{Cents: c}).Validate(); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%d: expected ErrInvalidAmount, got %v", c, err)
		}
	}
}

func TestMoneyString(t *testing.T) {
	if got := (Money{Cents: 7000}).String(); got != "70.00" {
		t.Fatalf("got %q", got)
	}
	if got := (Money{Cents: -5}).String(); got != "-0.05" {
		t.Fatalf("got %q", got)
	}
}
