package tab

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spendsync/internal/broadcast"
	"spendsync/internal/core"
	"spendsync/internal/ledger"
	"spendsync/internal/log"
	"spendsync/internal/storage"
)

const (
	msgAdded          = "Expense added successfully!"
	msgDeleted        = "Expense deleted successfully!"
	msgProfileUpdated = "Profile updated successfully!"
)

// change computes the next ledger from the stored one. It reports false when
// the ledger is unchanged and nothing needs to be written.
type change func(current ledger.Ledger) (ledger.Ledger, bool, error)

// AddExpense validates d, stores it under a fresh id and announces it.
func (t *Tab) AddExpense(ctx context.Context, d core.Draft) (core.Expense, error) {
	e, err := t.storeExpense(ctx, d)
	if err != nil {
		return core.Expense{}, err
	}
	t.publish(ctx, broadcast.NewAddMessage(t.id, e))
	return e, nil
}

func (t *Tab) storeExpense(ctx context.Context, d core.Draft) (core.Expense, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, err := d.Expense()
	if err != nil {
		t.fail(ctx, "Invalid expense", err)
		return core.Expense{}, err
	}
	if e.ID, err = t.newID(); err != nil {
		err = fmt.Errorf("generate expense id: %w", err)
		t.fail(ctx, "Failed to add expense", err)
		return core.Expense{}, err
	}

	err = t.mutate(ctx, log.OpAdd, func(current ledger.Ledger) (ledger.Ledger, bool, error) {
		next, err := current.Add(e)
		return next, true, err
	})
	if err != nil {
		t.fail(ctx, "Failed to add expense", err)
		return core.Expense{}, err
	}

	t.logger.InfoContext(ctx, "Expense added",
		log.NewFields().
			WithOperation(log.OpAdd).
			WithExpense(e.ID, e.Amount.Cents(), e.Category.String()).
			ToSlice()...)
	t.succeed(ctx, msgAdded)
	return e, nil
}

// DeleteExpense removes the expense with the given id. Deleting an id that
// is not stored succeeds without writing or announcing anything, so other
// tabs are not told about it.
func (t *Tab) DeleteExpense(ctx context.Context, expenseID string) error {
	expenseID = strings.TrimSpace(expenseID)
	removed, err := t.removeExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if removed {
		t.publish(ctx, broadcast.NewDeleteMessage(t.id, expenseID))
	}
	return nil
}

func (t *Tab) removeExpense(ctx context.Context, expenseID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if expenseID == "" {
		t.fail(ctx, "Invalid expense", core.ErrMissingID)
		return false, core.ErrMissingID
	}

	removed := false
	err := t.mutate(ctx, log.OpDelete, func(current ledger.Ledger) (ledger.Ledger, bool, error) {
		next, ok := current.Remove(expenseID)
		removed = ok
		return next, ok, nil
	})
	if err != nil {
		t.fail(ctx, "Failed to delete expense", err)
		return false, err
	}

	t.logger.InfoContext(ctx, "Expense deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldExpenseID, expenseID,
		"removed", removed)
	t.succeed(ctx, msgDeleted)
	return removed, nil
}

// UpdateProfile replaces the stored profile with p.
func (t *Tab) UpdateProfile(ctx context.Context, p core.Profile) error {
	p.Name = strings.TrimSpace(p.Name)
	if err := t.storeProfile(ctx, p); err != nil {
		return err
	}
	t.publish(ctx, broadcast.NewProfileMessage(t.id, p))
	return nil
}

func (t *Tab) storeProfile(ctx context.Context, p core.Profile) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := p.Validate(); err != nil {
		t.fail(ctx, "Invalid profile", err)
		return err
	}
	if err := t.repo.SaveProfile(ctx, p); err != nil {
		t.fail(ctx, "Failed to update profile", err)
		return err
	}
	t.setProfile(p, true)

	t.logger.InfoContext(ctx, "Profile updated", log.FieldOperation, log.OpProfile)
	t.succeed(ctx, msgProfileUpdated)
	return nil
}

// RecoverLedger moves a corrupt stored ledger aside and starts over with an
// empty one. It returns the key holding the corrupt data, or "" when the
// stored ledger was readable.
func (t *Tab) RecoverLedger(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	backup, err := t.repo.QuarantineExpenses(ctx)
	if err != nil {
		t.fail(ctx, "Failed to recover expenses", err)
		return backup, err
	}
	l, _, err := t.repo.LoadExpenses(ctx)
	if err != nil {
		t.fail(ctx, "Failed to recover expenses", err)
		return backup, err
	}
	t.setLedger(l)

	if backup != "" {
		t.logger.WarnContext(ctx, "Corrupt ledger quarantined",
			log.FieldOperation, log.OpRecover,
			log.FieldKey, backup)
		t.succeed(ctx, "Stored expenses were unreadable and have been reset")
	}
	return backup, nil
}

// mutate runs a read-modify-write of the stored ledger and refreshes the
// in-memory view on success. It must be called with mu held.
func (t *Tab) mutate(ctx context.Context, op string, apply change) error {
	for attempt := 1; ; attempt++ {
		current, version, err := t.repo.LoadExpenses(ctx)
		if err != nil {
			return err
		}
		next, changed, err := apply(current)
		if err != nil {
			return err
		}
		if !changed {
			t.setLedger(current)
			return nil
		}

		expect := storage.AnyVersion
		if t.policy == Versioned {
			expect = version
		}
		_, err = t.repo.SaveExpenses(ctx, next, expect)
		if err == nil {
			t.setLedger(next)
			return nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return err
		}
		if attempt > t.maxRetries {
			return fmt.Errorf("%s: %w after %d attempts", op, ErrConflict, attempt)
		}
		t.logger.DebugContext(ctx, "Ledger changed concurrently, retrying",
			log.FieldOperation, op,
			log.FieldAttempt, attempt,
			log.FieldVersion, version)
	}
}

// publish announces a stored change. It runs without mu held so a slow
// channel never stalls the tab. Failing to announce never fails the
// mutation; other tabs catch up on their next reload.
func (t *Tab) publish(ctx context.Context, msg broadcast.Message) {
	err := t.channel.Publish(ctx, msg)
	switch {
	case err == nil:
	case errors.Is(err, broadcast.ErrUnavailable):
		t.logger.DebugContext(ctx, "Broadcast unavailable, change not announced",
			log.FieldMessageType, msg.Type)
	default:
		t.logger.WarnContext(ctx, "Failed to broadcast change",
			log.FieldMessageType, msg.Type,
			log.FieldError, err)
	}
}
