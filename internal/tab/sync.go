package tab

import (
	"context"
	"errors"

	"spendsync/internal/broadcast"
	"spendsync/internal/log"
)

// Apply handles a message announced by another tab. The store is only read:
// the sender has already written the change.
func (t *Tab) Apply(ctx context.Context, msg broadcast.Message) error {
	if err := msg.Validate(); err != nil {
		t.logger.WarnContext(ctx, "Rejected broadcast message",
			log.FieldOperation, log.OpInbound,
			log.FieldMessageType, msg.Type,
			log.FieldError, err)
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch msg.Type {
	case broadcast.TypeAdd:
		t.refresh(ctx)
		if !t.ledger.Contains(msg.Expense.ID) {
			l, _ := t.ledger.Add(*msg.Expense)
			t.setLedger(l)
		}
	case broadcast.TypeDelete:
		t.refresh(ctx)
		if l, removed := t.ledger.Remove(msg.ID); removed {
			t.setLedger(l)
		}
	case broadcast.TypeProfileUpdate:
		t.setProfile(*msg.Profile, true)
	}

	t.logger.DebugContext(ctx, "Broadcast message applied",
		log.FieldOperation, log.OpInbound,
		log.FieldMessageType, msg.Type,
		log.FieldOrigin, msg.Origin)
	return nil
}

// refresh reloads the in-memory ledger. On failure the current view is kept
// and the caller applies the message payload to it.
func (t *Tab) refresh(ctx context.Context) {
	l, _, err := t.repo.LoadExpenses(ctx)
	if err != nil {
		t.logger.WarnContext(ctx, "Failed to refresh ledger, applying message only",
			log.FieldOperation, log.OpInbound,
			log.FieldError, err)
		return
	}
	t.setLedger(l)
}

// Run delivers inbound messages to Apply until ctx is done.
func (t *Tab) Run(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Listening for broadcast messages", log.FieldOperation, log.OpStartup)
	err := t.channel.Subscribe(ctx, t.Apply)
	if errors.Is(err, context.Canceled) || errors.Is(err, broadcast.ErrClosed) {
		return nil
	}
	return err
}
