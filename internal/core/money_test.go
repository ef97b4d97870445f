package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0", "0.00", true},
		{" 2.50 ", "2.50", true},
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"NaN", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Fixed(2) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got.Fixed(2), err)
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

func TestAmountJSON(t *testing.T) {
	var a Amount
	if err := json.Unmarshal([]byte(`50.5`), &a); err != nil {
		t.Fatalf("number: %v", err)
	}
	if a.Fixed(2) != "50.50" {
		t.Fatalf("expected 50.50, got %s", a.Fixed(2))
	}
	if err := json.Unmarshal([]byte(`"12.25"`), &a); err != nil {
		t.Fatalf("string: %v", err)
	}
	if a.Fixed(2) != "12.25" {
		t.Fatalf("expected 12.25, got %s", a.Fixed(2))
	}
	out, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "12.25" {
		t.Fatalf("expected bare number, got %s", out)
	}
	if err := json.Unmarshal([]byte(`"twelve"`), &a); err == nil {
		t.Fatalf("expected error for non numeric string")
	}
}

func TestAmountDisplay(t *testing.T) {
	got := MustAmount("1800").Display("USD")
	if got != "$1,800.00" {
		t.Fatalf("expected $1,800.00, got %s", got)
	}
	if c := MustAmount("10.005").Cents(); c != 1001 {
		t.Fatalf("expected half-up 1001 cents, got %d", c)
	}
}
