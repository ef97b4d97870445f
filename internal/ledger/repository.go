package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spendsync/internal/core"
	"spendsync/internal/storage"
)

// ErrCorrupt means a stored value exists but cannot be decoded, or decodes to
// entries that break the ledger rules (valid fields, unique ids). The value is
// left untouched so the caller can decide how to recover.
var ErrCorrupt = errors.New("stored data is corrupt")

// Repository reads and writes the serialized ledger, profile and theme.
type Repository struct {
	store storage.Store
	now   func() time.Time
}

func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store, now: time.Now}
}

// LoadExpenses reads the full ledger and the version it was stored at.
// An unset key is the empty ledger at version 0.
func (r *Repository) LoadExpenses(ctx context.Context) (Ledger, int64, error) {
	rec, err := r.store.Load(ctx, storage.KeyExpenses)
	if err != nil {
		return nil, 0, fmt.Errorf("load expenses: %w", err)
	}
	if !rec.Found {
		return Ledger{}, 0, nil
	}
	l, err := decodeLedger(rec.Value)
	if err != nil {
		return nil, rec.Version, err
	}
	return l, rec.Version, nil
}

func decodeLedger(raw []byte) (Ledger, error) {
	var l Ledger
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", storage.KeyExpenses, ErrCorrupt, err)
	}
	if l == nil {
		l = Ledger{}
	}
	seen := make(map[string]int, len(l))
	for i, e := range l {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w: entry %d: %v", storage.KeyExpenses, ErrCorrupt, i, err)
		}
		if first, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("%s: %w: entry %d repeats the id of entry %d", storage.KeyExpenses, ErrCorrupt, i, first)
		}
		seen[e.ID] = i
	}
	return l, nil
}

// SaveExpenses writes the full ledger. See storage.Store.Save for expect.
func (r *Repository) SaveExpenses(ctx context.Context, l Ledger, expect int64) (int64, error) {
	if l == nil {
		l = Ledger{}
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return 0, fmt.Errorf("encode expenses: %w", err)
	}
	version, err := r.store.Save(ctx, storage.KeyExpenses, raw, expect)
	if err != nil {
		return 0, fmt.Errorf("save expenses: %w", err)
	}
	return version, nil
}

// LoadProfile returns the stored profile and whether one exists.
func (r *Repository) LoadProfile(ctx context.Context) (core.Profile, bool, error) {
	rec, err := r.store.Load(ctx, storage.KeyProfile)
	if err != nil {
		return core.Profile{}, false, fmt.Errorf("load profile: %w", err)
	}
	if !rec.Found {
		return core.Profile{}, false, nil
	}
	var p core.Profile
	if err := json.Unmarshal(rec.Value, &p); err != nil {
		return core.Profile{}, true, fmt.Errorf("%s: %w: %v", storage.KeyProfile, ErrCorrupt, err)
	}
	return p, true, nil
}

// SaveProfile overwrites the profile. There is no merge; last write wins.
func (r *Repository) SaveProfile(ctx context.Context, p core.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if _, err := r.store.Save(ctx, storage.KeyProfile, raw, storage.AnyVersion); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// LoadTheme returns the stored theme, light when unset. The theme is stored
// as a bare string, not JSON.
func (r *Repository) LoadTheme(ctx context.Context) (core.Theme, error) {
	rec, err := r.store.Load(ctx, storage.KeyTheme)
	if err != nil {
		return core.ThemeLight, fmt.Errorf("load theme: %w", err)
	}
	return core.ParseTheme(string(rec.Value)), nil
}

func (r *Repository) SaveTheme(ctx context.Context, t core.Theme) error {
	if _, err := r.store.Save(ctx, storage.KeyTheme, []byte(core.ParseTheme(string(t))), storage.AnyVersion); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// QuarantineExpenses copies an undecodable ledger to a backup key and resets
// the ledger to empty. It returns the backup key, or "" when the stored ledger
// is readable and nothing was done. The reset is conditional on the version
// that was backed up, so a ledger repaired meanwhile by another tab is kept.
func (r *Repository) QuarantineExpenses(ctx context.Context) (string, error) {
	rec, err := r.store.Load(ctx, storage.KeyExpenses)
	if err != nil {
		return "", fmt.Errorf("load expenses: %w", err)
	}
	if !rec.Found {
		return "", nil
	}
	if _, err := decodeLedger(rec.Value); err == nil {
		return "", nil
	}

	backup := fmt.Sprintf("%s.corrupt.%d", storage.KeyExpenses, r.now().UnixMilli())
	if _, err := r.store.Save(ctx, backup, bytes.Clone(rec.Value), storage.AnyVersion); err != nil {
		return "", fmt.Errorf("back up corrupt expenses: %w", err)
	}
	if _, err := r.store.Save(ctx, storage.KeyExpenses, []byte("[]"), rec.Version); err != nil {
		return backup, fmt.Errorf("reset expenses: %w", err)
	}
	return backup, nil
}
