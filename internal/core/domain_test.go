package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-03-01", true},
		{"2024-12-31", true},
		{"", false},
		{"2024-13-01", false},
		{"01/03/2024", false},
	}
	for i, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && (err != nil || d.String() != tc.in) {
			t.Fatalf("case %d expected ok, got %v (%s)", i, err, d)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("east", 10*3600)
	// 2024-03-01 20:00 UTC is already March 2nd at UTC+10.
	ts := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC).In(loc)
	if got := DateOf(ts).String(); got != "2024-03-02" {
		t.Fatalf("expected 2024-03-02, got %s", got)
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, time.March, 5)
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2024-03-05"` {
		t.Fatalf("unexpected json %s", out)
	}
	var back Date
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("expected %s, got %s", d, back)
	}
}

func TestDraftExpense(t *testing.T) {
	good := Draft{Amount: "50", Category: "Food", Date: "2024-03-01", Description: "  lunch \x00"}
	e, err := good.Expense()
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if e.Category != Food || e.Description != "lunch" || e.Amount.Fixed(2) != "50.00" {
		t.Fatalf("unexpected expense %+v", e)
	}
	if e.ID != "" {
		t.Fatalf("draft conversion must not assign ids")
	}

	bads := []Draft{
		{Amount: "", Category: "food", Date: "2024-03-01"},
		{Amount: "abc", Category: "food", Date: "2024-03-01"},
		{Amount: "-3", Category: "food", Date: "2024-03-01"},
		{Amount: "3", Category: "groceries", Date: "2024-03-01"},
		{Amount: "3", Category: "food", Date: ""},
		{Amount: "3", Category: "food", Date: "2024-03-01", Description: strings.Repeat("x", 201)},
	}
	for i, d := range bads {
		if _, err := d.Expense(); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{ID: "x", Amount: MustAmount("1"), Category: Bills, Date: NewDate(2025, 1, 1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	noID := good
	noID.ID = ""
	if err := noID.Validate(); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	noDate := good
	noDate.Date = Date{}
	if err := noDate.Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
}

func TestProfileValidate(t *testing.T) {
	if err := (Profile{Name: "", MonthlySalary: Amount{}}).Validate(); err != nil {
		t.Fatalf("empty profile should be valid: %v", err)
	}
	neg := Profile{MonthlySalary: NewAmount(MustAmount("1").Decimal().Neg())}
	if err := neg.Validate(); !errors.Is(err, ErrInvalidSalary) {
		t.Fatalf("expected ErrInvalidSalary, got %v", err)
	}
}
