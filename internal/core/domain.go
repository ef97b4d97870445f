package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the ISO calendar date layout used in storage and on the wire.
const DateFormat = "2006-01-02"

const (
	Food          Category = "food"
	Transport     Category = "transport"
	Entertainment Category = "entertainment"
	Bills         Category = "bills"
	Shopping      Category = "shopping"
	Health        Category = "health"
	Other         Category = "other"
)

const maxDescriptionLen = 200

type (
	Category string

	// Date is a calendar day. The wrapped time is always midnight UTC.
	Date struct {
		time.Time
	}

	Expense struct {
		ID          string   `json:"id"`
		Amount      Amount   `json:"amount"`
		Category    Category `json:"category"`
		Date        Date     `json:"date"`
		Description string   `json:"description"`
	}

	// Draft is expense input as collected by a form, before validation.
	Draft struct {
		Amount      string `json:"amount"`
		Category    string `json:"category"`
		Date        string `json:"date"`
		Description string `json:"description"`
	}

	Profile struct {
		Name          string `json:"name"`
		MonthlySalary Amount `json:"monthlySalary"`
	}
)

// ErrValidation is matched by every input validation error of this package.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidDate     = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrMissingDate     = fmt.Errorf("%w: date is required", ErrValidation)
	ErrInvalidAmount   = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrNegativeAmount  = fmt.Errorf("%w: amount cannot be negative", ErrValidation)
	ErrInvalidCategory = fmt.Errorf("%w: unknown category", ErrValidation)
	ErrDescriptionLong = fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, maxDescriptionLen)
	ErrMissingID       = fmt.Errorf("%w: expense id is required", ErrValidation)
	ErrInvalidSalary   = fmt.Errorf("%w: monthly salary cannot be negative", ErrValidation)
	ErrProfileNameLong = fmt.Errorf("%w: name too long (max 100 characters)", ErrValidation)
)

var categories = []Category{Food, Transport, Entertainment, Bills, Shopping, Health, Other}

// Categories returns the enumerated expense categories in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory normalizes s and checks it against the enumeration.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// SameMonth reports whether both dates fall in the same calendar month and year.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateFormat)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrMissingID
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w %q", ErrInvalidCategory, e.Category)
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(e.Description) > maxDescriptionLen {
		return ErrDescriptionLong
	}
	return nil
}

// Expense validates the draft and converts it into an Expense without an id.
func (d Draft) Expense() (Expense, error) {
	amount, err := ParseAmount(d.Amount)
	if err != nil {
		return Expense{}, err
	}
	category, err := ParseCategory(d.Category)
	if err != nil {
		return Expense{}, err
	}
	date, err := ParseDate(d.Date)
	if err != nil {
		return Expense{}, err
	}
	desc := sanitize(d.Description)
	if len(desc) > maxDescriptionLen {
		return Expense{}, ErrDescriptionLong
	}
	return Expense{
		Amount:      amount,
		Category:    category,
		Date:        date,
		Description: desc,
	}, nil
}

func (p Profile) Validate() error {
	if p.MonthlySalary.IsNegative() {
		return ErrInvalidSalary
	}
	if len(p.Name) > 100 {
		return ErrProfileNameLong
	}
	return nil
}

// sanitize drops control characters other than tab and newlines and trims whitespace.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
