package views

import (
	"time"

	"spendsync/internal/core"
	"spendsync/internal/ledger"
)

// Input is everything a Snapshot is derived from.
type Input struct {
	Ledger     ledger.Ledger
	Filter     Filter
	Profile    core.Profile
	HasProfile bool
	Now        time.Time
	WeekStart  time.Weekday
}

// Snapshot is the full derived view of one tab.
type Snapshot struct {
	Filter       Filter                `json:"filter"`
	Expenses     []core.Expense        `json:"expenses"`
	Empty        bool                  `json:"empty"`
	Totals       Totals                `json:"totals"`
	Finance      Finance               `json:"finance"`
	Profile      core.Profile          `json:"profile"`
	NeedsProfile bool                  `json:"needsProfile"`
	Categories   []core.CategoryAmount `json:"categories"`
	Trend        []core.TrendPoint     `json:"trend"`
	Today        core.Date             `json:"today"`
}

func Build(in Input) Snapshot {
	cal := NewCalendar(in.Now, in.WeekStart)
	filtered := Apply(in.Ledger, in.Filter, cal)
	return Snapshot{
		Filter:       in.Filter,
		Expenses:     List(filtered),
		Empty:        len(filtered) == 0,
		Totals:       Headline(in.Ledger, cal),
		Finance:      FinancialSummary(in.Ledger, in.Profile, cal),
		Profile:      in.Profile,
		NeedsProfile: !in.HasProfile,
		Categories:   Categories(filtered),
		Trend:        Trend(filtered),
		Today:        cal.Today,
	}
}
