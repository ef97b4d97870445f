package http

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRateLimit is the number of mutating requests a client may send per minute.
const DefaultRateLimit = 60

// rateLimiter implements a fixed one-minute window per client IP.
type rateLimiter struct {
	mu           sync.Mutex
	limit        int
	now          func() time.Time
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	windowStart time.Time
	requests    int
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	return &rateLimiter{
		limit:       limit,
		now:         time.Now,
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
}

// startCleanup drops stale client entries until stop is called.
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.windowStart.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// allow reports whether clientIP is still within its budget for the current window.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, exists := rl.clients[clientIP]
	if !exists || now.Sub(client.windowStart) >= time.Minute {
		rl.clients[clientIP] = &clientInfo{windowStart: now, requests: 1}
		return true
	}

	client.requests++
	if client.requests > rl.limit {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}
