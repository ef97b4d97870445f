package memory

import (
	"context"
	"errors"
	"testing"

	"spendsync/internal/storage"
)

func TestStoreLoadUnset(t *testing.T) {
	s := New()
	rec, err := s.Load(context.Background(), storage.KeyExpenses)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Found || rec.Version != 0 || rec.Value != nil {
		t.Fatalf("unexpected record for unset key: %+v", rec)
	}
}

func TestStoreSaveVersions(t *testing.T) {
	ctx := context.Background()
	s := New()

	v, err := s.Save(ctx, "k", []byte("a"), 0)
	if err != nil || v != 1 {
		t.Fatalf("first conditional save: v=%d err=%v", v, err)
	}
	if _, err := s.Save(ctx, "k", []byte("b"), 0); !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	v, err = s.Save(ctx, "k", []byte("c"), storage.AnyVersion)
	if err != nil || v != 2 {
		t.Fatalf("unconditional save: v=%d err=%v", v, err)
	}

	rec, _ := s.Load(ctx, "k")
	if string(rec.Value) != "c" || rec.Version != 2 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := New()
	buf := []byte("abc")
	if _, err := s.Save(ctx, "k", buf, storage.AnyVersion); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'x'
	rec, _ := s.Load(ctx, "k")
	if string(rec.Value) != "abc" {
		t.Fatalf("store must not alias caller buffers, got %q", rec.Value)
	}
}

func TestNewSeeded(t *testing.T) {
	s := NewSeeded(map[string]string{storage.KeyTheme: "dark"})
	rec, _ := s.Load(context.Background(), storage.KeyTheme)
	if !rec.Found || string(rec.Value) != "dark" || rec.Version != 1 {
		t.Fatalf("unexpected seeded record: %+v", rec)
	}
	if len(s.Keys()) != 1 {
		t.Fatalf("expected one key, got %v", s.Keys())
	}
}
