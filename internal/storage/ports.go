package storage

import (
	"context"
	"errors"
)

// Keys of the values kept in the store.
const (
	KeyExpenses = "expenses"
	KeyProfile  = "userProfile"
	KeyTheme    = "theme"
)

// AnyVersion makes Save overwrite unconditionally.
const AnyVersion int64 = -1

// ErrVersionConflict is returned by a conditional Save when the stored version
// no longer matches the expected one.
var ErrVersionConflict = errors.New("stored version changed")

// Record is a value read from the store. Unset keys have Found false and Version 0.
type Record struct {
	Value   []byte
	Version int64
	Found   bool
}

// Store is a durable key-value store shared by every tab of one profile.
type Store interface {
	Load(ctx context.Context, key string) (Record, error)

	// Save writes value under key. When expect is not AnyVersion the write
	// only happens if the stored version equals expect (0 for an unset key).
	// It returns the version assigned to the new value.
	Save(ctx context.Context, key string, value []byte, expect int64) (int64, error)
}
