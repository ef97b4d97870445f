// Package ledger holds the set of recorded expenses and its persisted form.
//
// A Ledger is a set keyed by expense id, represented as a slice. The slice
// order is insertion order and carries no meaning; display order is computed
// by the views package.
package ledger

import (
	"errors"
	"fmt"

	"spendsync/internal/core"
)

var ErrDuplicateID = errors.New("expense id already in ledger")

type Ledger []core.Expense

func (l Ledger) Len() int { return len(l) }

func (l Ledger) Find(id string) (core.Expense, bool) {
	for _, e := range l {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}

func (l Ledger) Contains(id string) bool {
	_, ok := l.Find(id)
	return ok
}

// Add returns a new ledger with e appended.
func (l Ledger) Add(e core.Expense) (Ledger, error) {
	if l.Contains(e.ID) {
		return l, fmt.Errorf("add %s: %w", e.ID, ErrDuplicateID)
	}
	out := make(Ledger, 0, len(l)+1)
	out = append(out, l...)
	return append(out, e), nil
}

// Remove returns a new ledger without any entry carrying id, and whether
// something was removed. Removing an unknown id is not an error.
func (l Ledger) Remove(id string) (Ledger, bool) {
	out := make(Ledger, 0, len(l))
	for _, e := range l {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out, len(out) != len(l)
}

func (l Ledger) Clone() Ledger {
	return append(Ledger{}, l...)
}

func (l Ledger) IDs() []string {
	ids := make([]string, len(l))
	for i, e := range l {
		ids[i] = e.ID
	}
	return ids
}
