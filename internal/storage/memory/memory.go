package memory

import (
	"context"
	"fmt"
	"sync"

	"spendsync/internal/storage"
)

type entry struct {
	value   []byte
	version int64
}

// Store keeps values in process memory. Every tab sharing a Store sees the
// same values, which makes it the in-process stand-in for a shared file.
type Store struct {
	mu    sync.Mutex
	items map[string]entry
}

func New() *Store {
	return &Store{items: make(map[string]entry)}
}

// NewSeeded returns a store holding the given raw values at version 1.
func NewSeeded(values map[string]string) *Store {
	s := New()
	for k, v := range values {
		s.items[k] = entry{value: []byte(v), version: 1}
	}
	return s
}

func (s *Store) Load(_ context.Context, key string) (storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	if !ok {
		return storage.Record{}, nil
	}
	return storage.Record{
		Value:   append([]byte(nil), e.value...),
		Version: e.version,
		Found:   true,
	}, nil
}

func (s *Store) Save(_ context.Context, key string, value []byte, expect int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.items[key]
	if expect != storage.AnyVersion && expect != current.version {
		return 0, fmt.Errorf("save %s: expected version %d, have %d: %w", key, expect, current.version, storage.ErrVersionConflict)
	}
	next := entry{value: append([]byte(nil), value...), version: current.version + 1}
	s.items[key] = next
	return next.version, nil
}

// Keys returns the stored keys, used by tests to look for quarantine copies.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	return out
}
