package views

import (
	"sort"

	"github.com/shopspring/decimal"

	"spendsync/internal/core"
	"spendsync/internal/ledger"
)

var hundred = decimal.NewFromInt(100)

// Totals are the headline figures. They are computed over the whole ledger,
// whatever filter the tab has selected.
type Totals struct {
	Total core.Amount `json:"total"`
	Week  core.Amount `json:"week"`
	Today core.Amount `json:"today"`
}

func Headline(l ledger.Ledger, cal Calendar) Totals {
	var t Totals
	week := Filter{Period: PeriodWeek, Category: CategoryAll}
	for _, e := range l {
		t.Total = t.Total.Add(e.Amount)
		if week.periodMatches(e.Date, cal) {
			t.Week = t.Week.Add(e.Amount)
		}
		if e.Date.Equal(cal.Today.Time) {
			t.Today = t.Today.Add(e.Amount)
		}
	}
	return t
}

// Sum adds up the amounts of l.
func Sum(l ledger.Ledger) core.Amount {
	var s core.Amount
	for _, e := range l {
		s = s.Add(e.Amount)
	}
	return s
}

// Finance compares the current calendar month's spending with the salary.
type Finance struct {
	Salary     core.Amount `json:"salary"`
	MonthSpent core.Amount `json:"monthSpent"`
	// Remaining is negative when the month's spending exceeds the salary.
	Remaining      core.Amount     `json:"remaining"`
	SavingsPercent decimal.Decimal `json:"savingsPercent"`
}

// FinancialSummary ignores the tab filter: it always covers the real current month.
func FinancialSummary(l ledger.Ledger, p core.Profile, cal Calendar) Finance {
	f := Finance{Salary: p.MonthlySalary}
	for _, e := range l {
		if e.Date.SameMonth(cal.Today) {
			f.MonthSpent = f.MonthSpent.Add(e.Amount)
		}
	}
	f.Remaining = f.Salary.Sub(f.MonthSpent)
	if !f.Salary.IsZero() {
		f.SavingsPercent = f.Remaining.Decimal().Div(f.Salary.Decimal()).Mul(hundred)
	}
	return f
}

// RemainingText formats the remaining balance with two decimals.
func (f Finance) RemainingText() string { return f.Remaining.Fixed(2) }

// SavingsText formats the savings percentage with one decimal.
func (f Finance) SavingsText() string { return f.SavingsPercent.StringFixed(1) }

// Categories sums amounts per category. Categories appear in the order they
// are first met in l; categories without expenses are left out.
func Categories(l ledger.Ledger) []core.CategoryAmount {
	index := make(map[core.Category]int)
	out := []core.CategoryAmount{}
	for _, e := range l {
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, core.CategoryAmount{Category: e.Category})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	return out
}

// Trend sums amounts per date, oldest first. Dates without expenses are gaps.
func Trend(l ledger.Ledger) []core.TrendPoint {
	sums := make(map[string]core.Amount)
	dates := make(map[string]core.Date)
	for _, e := range l {
		k := e.Date.String()
		sums[k] = sums[k].Add(e.Amount)
		dates[k] = e.Date
	}
	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	// ISO dates sort chronologically as strings.
	sort.Strings(keys)

	out := make([]core.TrendPoint, len(keys))
	for i, k := range keys {
		out[i] = core.TrendPoint{Date: dates[k], Amount: sums[k]}
	}
	return out
}

// List orders expenses for display, newest date first. Expenses on the same
// date keep their ledger order.
func List(l ledger.Ledger) []core.Expense {
	out := make([]core.Expense, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}
