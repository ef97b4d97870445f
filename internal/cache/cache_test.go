package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %d %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Fatalf("expected 2 hits and 1 miss, got %d/%d", hits, misses)
	}
}

func TestLRUExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute)
	c.now = clock.now

	c.Set("a", "x")
	c.Set("b", "y")
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("b", "z")

	clock.t = clock.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to expire")
	}
	if v, ok := c.Get("b"); !ok || v != "z" {
		t.Fatalf("expected refreshed b=z, got %q %v", v, ok)
	}

	clock.t = clock.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 expired entry, got %d", n)
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
}

func TestLRUPurgeAndDelete(t *testing.T) {
	c := NewLRUCache[int](0, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	if c.Size() != 1 {
		t.Fatalf("size below one must be raised to one, got %d", c.Size())
	}
	c.Delete("b")
	if c.Size() != 0 {
		t.Fatalf("expected empty after delete")
	}
	c.Set("a", 1)
	c.Purge()
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected purge to drop a")
	}
}

func TestManagerCleanAll(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	a := NewLRUCache[int](5, time.Second)
	a.now = clock.now
	b := NewLRUCache[int](5, 0)

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)

	a.Set("x", 1)
	a.Set("y", 2)
	b.Set("z", 3)
	clock.t = clock.t.Add(2 * time.Second)

	if n := m.CleanAll(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if b.Size() != 1 {
		t.Fatalf("entries without ttl must stay")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx, time.Millisecond); err != nil {
		t.Fatalf("expected nil on cancelled context, got %v", err)
	}
}
