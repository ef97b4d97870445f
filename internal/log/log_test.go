package log

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"", slog.LevelInfo, true},
		{"DEBUG", slog.LevelDebug, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("%q: expected %v ok=%v, got %v err=%v", tc.in, tc.want, tc.ok, got, err)
		}
	}
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentTab, Output: &buf})
	l.Info("hello", FieldTab, "tab-1")

	out := buf.String()
	if !strings.Contains(out, "component=tab") || !strings.Contains(out, "tab=tab-1") {
		t.Fatalf("missing fields in %q", out)
	}
	if strings.Count(out, "component=") != 1 {
		t.Fatalf("component logged more than once: %q", out)
	}
	if l.WithComponent(ComponentHTTP).Component() != ComponentHTTP {
		t.Fatalf("expected http component")
	}
}

func TestMiddlewareLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentHTTP, Output: &buf})

	h := Middleware(l, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) != l {
			t.Errorf("logger not found in request context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/view", nil))

	out := buf.String()
	if !strings.Contains(out, "status_code=418") || !strings.Contains(out, "level=WARN") {
		t.Fatalf("unexpected log output %q", out)
	}
}
