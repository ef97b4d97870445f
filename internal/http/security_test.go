package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.7:5000", "", "203.0.113.7"},
		{"untrusted peer ignores forwarding", "203.0.113.7:5000", "198.51.100.1", "203.0.113.7"},
		{"trusted proxy", "10.0.0.2:5000", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"trusted proxy with garbage", "127.0.0.1:5000", "not-an-ip", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(req); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	m := &securityMetrics{}

	if detectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/api/view", nil), m) {
		t.Error("plain request flagged")
	}
	if !detectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/.env", nil), m) {
		t.Error("request for .env not flagged")
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "sqlmap/1.7")
	if !detectSuspiciousRequest(req, m) {
		t.Error("scanner user agent not flagged")
	}
	if m.suspiciousRequests != 2 {
		t.Errorf("suspiciousRequests = %d, want 2", m.suspiciousRequests)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2)
	rl.now = func() time.Time { return now }
	m := &securityMetrics{}

	if !rl.allow("a", m) || !rl.allow("a", m) {
		t.Fatal("first two requests must pass")
	}
	if rl.allow("a", m) {
		t.Fatal("third request in the window must be rejected")
	}
	if !rl.allow("b", m) {
		t.Fatal("other clients have their own budget")
	}

	now = now.Add(time.Minute)
	if !rl.allow("a", m) {
		t.Fatal("a new window resets the budget")
	}
	if m.rateLimitHits != 1 {
		t.Errorf("rateLimitHits = %d, want 1", m.rateLimitHits)
	}

	now = now.Add(11 * time.Minute)
	rl.cleanupStaleEntries()
	if len(rl.clients) != 0 {
		t.Errorf("stale entries not removed: %d left", len(rl.clients))
	}
}
