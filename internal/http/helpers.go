package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"spendsync/internal/core"
	"spendsync/internal/ledger"
	"spendsync/internal/log"
	"spendsync/internal/notify"
	"spendsync/internal/tab"
)

// statusFor maps tab errors onto HTTP statuses and stable error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, tab.ErrConflict), errors.Is(err, ledger.ErrDuplicateID):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ledger.ErrCorrupt):
		return http.StatusConflict, "corrupt_ledger"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// errorFor builds the response for err. Internal errors are logged and
// not echoed to the client.
func (s *Server) errorFor(ctx context.Context, op string, err error) *ResponseBuilder {
	status, code := statusFor(err)
	msg := err.Error()
	switch code {
	case "internal":
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err, op, nil)
		msg = "internal error"
	case "corrupt_ledger":
		msg = "stored expenses are unreadable; POST /api/recover to reset them"
	}
	return ErrorResponse(status, code, msg)
}

// withNotification attaches the newest notification raised since start.
func (s *Server) withNotification(b *ResponseBuilder, start time.Time) *ResponseBuilder {
	if s.recorder == nil {
		return b
	}
	if n, ok := s.recorder.Last(); ok && !n.At.Before(start) {
		b.TriggerNotification(n)
	}
	return b
}

// Money is an amount with its display form.
type Money struct {
	Amount  core.Amount `json:"amount"`
	Display string      `json:"display"`
}

func (s *Server) money(a core.Amount) Money {
	return Money{Amount: a, Display: a.Display(s.currency)}
}

// notificationsFrom never returns nil so the JSON is always an array.
func notificationsFrom(ns []notify.Notification) []notify.Notification {
	if ns == nil {
		return []notify.Notification{}
	}
	return ns
}
