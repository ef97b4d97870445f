// Package cache memoizes derived views.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache is the interface tabs use for their snapshot memo.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Purge()
	Size() int
}

var _ Cache[int] = (*LRUCache[int])(nil)

// Cleaner is a cache that can drop its expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans the caches registered with it.
type Manager struct {
	mu     sync.Mutex
	caches []Cleaner
	logger *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	m.caches = append(m.caches, c)
	m.mu.Unlock()
}

// CleanAll runs one cleanup pass and returns the number of removed entries.
func (m *Manager) CleanAll() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Run cleans every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				m.logger.DebugContext(ctx, "Expired cache entries removed", "count", n)
			}
		}
	}
}
