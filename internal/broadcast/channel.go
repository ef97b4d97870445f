// Package broadcast propagates mutation events between tabs.
//
// Delivery is one-way and at-most-once. A tab that is closed or not yet
// joined when a message is sent never receives it, and nothing is ever
// acknowledged. Messages from one sender arrive in the order sent; there is
// no order across senders.
package broadcast

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means the tab has no broadcast channel and runs alone.
	ErrUnavailable = errors.New("broadcast channel unavailable")
	ErrClosed      = errors.New("broadcast channel closed")
)

// Handler receives inbound messages. A returned error is logged by the
// channel; the message is not redelivered.
type Handler func(ctx context.Context, msg Message) error

// Channel is one tab's connection to the shared broadcast channel. Publish
// reaches every other tab; a tab never receives its own messages.
type Channel interface {
	Publish(ctx context.Context, msg Message) error

	// Subscribe delivers inbound messages to h until ctx is done or the
	// channel is closed.
	Subscribe(ctx context.Context, h Handler) error

	Close() error
}

// Disabled is the channel of a tab running without broadcast support.
type Disabled struct{}

func (Disabled) Publish(context.Context, Message) error { return ErrUnavailable }

func (Disabled) Subscribe(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (Disabled) Close() error { return nil }
