// Package views derives everything a tab displays from its ledger, filter and
// profile. All functions are pure; "now" is always passed in.
package views

import (
	"fmt"
	"strings"
	"time"

	"spendsync/internal/core"
	"spendsync/internal/ledger"
)

type Period string

const (
	PeriodAll    Period = "all"
	PeriodToday  Period = "today"
	PeriodWeek   Period = "week"
	PeriodMonth  Period = "month"
	PeriodCustom Period = "custom"
)

// CategoryAll disables the category constraint of a Filter.
const CategoryAll = "all"

var (
	ErrInvalidPeriod = fmt.Errorf("%w: unknown period", core.ErrValidation)
	ErrInvalidRange  = fmt.Errorf("%w: start date is after end date", core.ErrValidation)
)

// Filter selects the expenses shown in the list and charts of one tab. It is
// never persisted or broadcast.
type Filter struct {
	Period    Period    `json:"period"`
	Category  string    `json:"category"`
	StartDate core.Date `json:"startDate"`
	EndDate   core.Date `json:"endDate"`
}

func DefaultFilter() Filter {
	return Filter{Period: PeriodAll, Category: CategoryAll}
}

// ParseFilter builds a Filter from form values. Empty values fall back to the
// defaults; dates are only read for the custom period.
func ParseFilter(period, category, start, end string) (Filter, error) {
	f := DefaultFilter()
	if v := strings.ToLower(strings.TrimSpace(period)); v != "" {
		f.Period = Period(v)
	}
	if v := strings.ToLower(strings.TrimSpace(category)); v != "" {
		f.Category = v
	}
	if f.Period == PeriodCustom {
		var err error
		if strings.TrimSpace(start) != "" {
			if f.StartDate, err = core.ParseDate(start); err != nil {
				return Filter{}, err
			}
		}
		if strings.TrimSpace(end) != "" {
			if f.EndDate, err = core.ParseDate(end); err != nil {
				return Filter{}, err
			}
		}
	}
	return f, f.Validate()
}

func (f Filter) Validate() error {
	switch f.Period {
	case PeriodAll, PeriodToday, PeriodWeek, PeriodMonth, PeriodCustom:
	default:
		return fmt.Errorf("%w %q", ErrInvalidPeriod, f.Period)
	}
	if f.Category != CategoryAll && !core.Category(f.Category).Valid() {
		return fmt.Errorf("%w %q", core.ErrInvalidCategory, f.Category)
	}
	if f.Period == PeriodCustom && !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.StartDate.After(f.EndDate.Time) {
		return ErrInvalidRange
	}
	return nil
}

// Key identifies the filter in snapshot caches.
func (f Filter) Key() string {
	if f.Period != PeriodCustom {
		return string(f.Period) + "|" + f.Category
	}
	return strings.Join([]string{string(f.Period), f.Category, f.StartDate.String(), f.EndDate.String()}, "|")
}

// Calendar holds the day boundaries derived from "now".
type Calendar struct {
	Today      core.Date
	WeekStart  core.Date
	MonthStart core.Date
}

// NewCalendar computes the boundaries for now in now's location. Weeks start
// on firstDay, inclusive.
func NewCalendar(now time.Time, firstDay time.Weekday) Calendar {
	today := core.DateOf(now)
	back := (int(today.Weekday()) - int(firstDay) + 7) % 7
	return Calendar{
		Today:      today,
		WeekStart:  today.AddDays(-back),
		MonthStart: core.NewDate(today.Year(), today.Month(), 1),
	}
}

// Matches is the conjunction of the period and category predicates.
func (f Filter) Matches(e core.Expense, cal Calendar) bool {
	return f.periodMatches(e.Date, cal) && (f.Category == CategoryAll || string(e.Category) == f.Category)
}

func (f Filter) periodMatches(d core.Date, cal Calendar) bool {
	switch f.Period {
	case PeriodToday:
		return d.Equal(cal.Today.Time)
	case PeriodWeek:
		return !d.Before(cal.WeekStart.Time)
	case PeriodMonth:
		return !d.Before(cal.MonthStart.Time)
	case PeriodCustom:
		// Dates carry no time of day, so an inclusive end date covers the whole day.
		if !f.StartDate.IsZero() && d.Before(f.StartDate.Time) {
			return false
		}
		if !f.EndDate.IsZero() && d.After(f.EndDate.Time) {
			return false
		}
		return true
	default:
		return true
	}
}

// Apply returns the expenses of l matching f, in ledger order.
func Apply(l ledger.Ledger, f Filter, cal Calendar) ledger.Ledger {
	out := make(ledger.Ledger, 0, len(l))
	for _, e := range l {
		if f.Matches(e, cal) {
			out = append(out, e)
		}
	}
	return out
}
