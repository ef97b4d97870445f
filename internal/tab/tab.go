// Package tab implements one session of the expense tracker.
//
// A Tab owns an in-memory view of the shared ledger and profile, a filter
// and a snapshot memo. Mutations go to the shared store first and are then
// announced on the broadcast channel. Inbound announcements refresh the view
// from the store; they never write to it.
package tab

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"spendsync/internal/broadcast"
	"spendsync/internal/cache"
	"spendsync/internal/core"
	"spendsync/internal/id"
	"spendsync/internal/ledger"
	"spendsync/internal/log"
	"spendsync/internal/notify"
	"spendsync/internal/views"
)

type WritePolicy string

const (
	// LastWriteWins saves the ledger unconditionally. Two tabs mutating at
	// the same time can lose one of the changes.
	LastWriteWins WritePolicy = "last-write-wins"
	// Versioned saves with compare-and-swap and retries on conflict.
	Versioned WritePolicy = "versioned"
)

// DefaultMaxRetries is the number of retries after a versioned write conflict.
const DefaultMaxRetries = 3

// ErrConflict is returned when a versioned write keeps conflicting.
var ErrConflict = errors.New("ledger changed concurrently, retries exhausted")

func ParseWritePolicy(s string) (WritePolicy, error) {
	switch WritePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", LastWriteWins:
		return LastWriteWins, nil
	case Versioned:
		return Versioned, nil
	default:
		return "", fmt.Errorf("unknown write policy %q", s)
	}
}

// Options configures a Tab. The zero value is usable.
type Options struct {
	ID         string
	Channel    broadcast.Channel
	Notifier   notify.Notifier
	Logger     *log.Logger
	Now        func() time.Time
	WeekStart  time.Weekday
	Policy     WritePolicy
	MaxRetries int
	NewID      id.Generator
	Snapshots  cache.Cache[views.Snapshot]
}

type Tab struct {
	id         string
	repo       *ledger.Repository
	channel    broadcast.Channel
	notifier   notify.Notifier
	logger     *log.Logger
	now        func() time.Time
	weekStart  time.Weekday
	policy     WritePolicy
	maxRetries int
	newID      id.Generator
	snapshots  cache.Cache[views.Snapshot]

	mu         sync.Mutex
	ledger     ledger.Ledger
	profile    core.Profile
	hasProfile bool
	filter     views.Filter
	generation uint64
}

// New creates a tab over repo. Call Reload to read the current state.
func New(repo *ledger.Repository, opts Options) (*Tab, error) {
	t := &Tab{
		id:         opts.ID,
		repo:       repo,
		channel:    opts.Channel,
		notifier:   opts.Notifier,
		now:        opts.Now,
		weekStart:  opts.WeekStart,
		policy:     opts.Policy,
		maxRetries: opts.MaxRetries,
		newID:      opts.NewID,
		snapshots:  opts.Snapshots,
		ledger:     ledger.Ledger{},
		filter:     views.DefaultFilter(),
	}
	if t.id == "" {
		tabID, err := id.Tab()
		if err != nil {
			return nil, fmt.Errorf("generate tab id: %w", err)
		}
		t.id = tabID
	}
	if t.channel == nil {
		t.channel = broadcast.Disabled{}
	}
	if t.notifier == nil {
		t.notifier = notify.Log{}
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.policy == "" {
		t.policy = LastWriteWins
	}
	if t.maxRetries <= 0 {
		t.maxRetries = DefaultMaxRetries
	}
	if t.newID == nil {
		t.newID = id.New
	}
	if t.snapshots == nil {
		t.snapshots = cache.NewLRUCache[views.Snapshot](8, 0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentTab)
	}
	t.logger = logger.With(log.FieldTab, t.id)
	return t, nil
}

// ID identifies the tab on the broadcast channel.
func (t *Tab) ID() string { return t.id }

// Reload replaces the in-memory ledger and profile with the stored ones.
// A corrupt value is reported and leaves the matching in-memory state empty.
func (t *Tab) Reload(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	l, _, err := t.repo.LoadExpenses(ctx)
	if err != nil {
		errs = append(errs, err)
		l = ledger.Ledger{}
	}
	t.setLedger(l)

	p, found, err := t.repo.LoadProfile(ctx)
	if err != nil {
		errs = append(errs, err)
		p, found = core.Profile{}, false
	}
	t.setProfile(p, found)

	if err := errors.Join(errs...); err != nil {
		t.logger.ErrorContext(ctx, "Failed to load stored state",
			log.FieldOperation, log.OpReload,
			log.FieldError, err)
		return err
	}
	t.logger.DebugContext(ctx, "Tab state loaded", "expenses", len(l), "has_profile", found)
	return nil
}

// setLedger must be called with mu held.
func (t *Tab) setLedger(l ledger.Ledger) {
	t.ledger = l
	t.generation++
}

func (t *Tab) setProfile(p core.Profile, found bool) {
	t.profile = p
	t.hasProfile = found
	t.generation++
}

// Ledger returns a copy of the in-memory ledger.
func (t *Tab) Ledger() ledger.Ledger {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Clone()
}

// Profile returns the in-memory profile and whether one was ever saved.
func (t *Tab) Profile() (core.Profile, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.profile, t.hasProfile
}

func (t *Tab) Filter() views.Filter {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filter
}

// SetFilter changes what this tab shows. Other tabs are not affected.
func (t *Tab) SetFilter(f views.Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	t.filter = f
	t.mu.Unlock()
	return nil
}

// View returns the derived view of the tab. The returned slices are shared
// with the memo and must not be modified.
func (t *Tab) View() views.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	key := strconv.FormatUint(t.generation, 10) + "|" + t.filter.Key() + "|" + core.DateOf(now).String()
	if snap, ok := t.snapshots.Get(key); ok {
		return snap
	}
	snap := views.Build(views.Input{
		Ledger:     t.ledger,
		Filter:     t.filter,
		Profile:    t.profile,
		HasProfile: t.hasProfile,
		Now:        now,
		WeekStart:  t.weekStart,
	})
	t.snapshots.Set(key, snap)
	return snap
}

func (t *Tab) Theme(ctx context.Context) (core.Theme, error) {
	return t.repo.LoadTheme(ctx)
}

// SetTheme stores the colour scheme. Themes are not broadcast.
func (t *Tab) SetTheme(ctx context.Context, theme core.Theme) error {
	return t.repo.SaveTheme(ctx, theme)
}

// Close disconnects the tab from the broadcast channel.
func (t *Tab) Close() error {
	return t.channel.Close()
}

func (t *Tab) succeed(ctx context.Context, msg string) {
	t.notifier.Notify(ctx, notify.Notification{Message: msg, At: t.now()})
}

func (t *Tab) fail(ctx context.Context, msg string, err error) {
	t.notifier.Notify(ctx, notify.Notification{Message: msg + ": " + err.Error(), Error: true, At: t.now()})
}
