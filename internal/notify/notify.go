// Package notify carries the short user-facing messages a tab emits after a
// mutation. Displaying them is up to the view layer.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DisplayWindow is how long a notification stays visible.
const DisplayWindow = 3 * time.Second

type Notification struct {
	Message string    `json:"message"`
	Error   bool      `json:"error"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Log writes notifications to a structured logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if n.Error {
		logger.WarnContext(ctx, "Notification", "message", n.Message, "error", true)
		return
	}
	logger.InfoContext(ctx, "Notification", "message", n.Message)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		x.Notify(ctx, n)
	}
}

// Recorder keeps the most recent notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	limit int
	now   func() time.Time
	items []Notification
}

// NewRecorder keeps at most limit notifications (10 when limit < 1).
func NewRecorder(limit int) *Recorder {
	if limit < 1 {
		limit = 10
	}
	return &Recorder{limit: limit, now: time.Now}
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.At.IsZero() {
		n.At = r.now()
	}
	r.items = append(r.items, n)
	if extra := len(r.items) - r.limit; extra > 0 {
		r.items = append(r.items[:0:0], r.items[extra:]...)
	}
}

// All returns the recorded notifications, oldest first.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification{}, r.items...)
}

// Visible returns the notifications still inside DisplayWindow.
func (r *Recorder) Visible() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-DisplayWindow)
	out := []Notification{}
	for _, n := range r.items {
		if n.At.After(cutoff) {
			out = append(out, n)
		}
	}
	return out
}

// Last returns the newest notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}
