package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"spendsync/internal/log"
	"spendsync/internal/middleware/trace"
	"spendsync/internal/notify"
	"spendsync/internal/tab"
)

// Options configures a Server. Only the tab is required.
type Options struct {
	Logger *log.Logger

	// Currency is the ISO 4217 code amounts are displayed in.
	Currency string

	// Recorder, when set, supplies the notifications returned with each
	// mutation and served by /api/notifications. It must be one of the
	// tab's notifiers.
	Recorder *notify.Recorder

	// RateLimit bounds mutating requests per client IP and minute.
	RateLimit int

	// Ready checks the backing store for /readyz. Defaults to reading the theme.
	Ready func(context.Context) error
}

type Server struct {
	http.Server
	tab         *tab.Tab
	recorder    *notify.Recorder
	currency    string
	logger      *log.Logger
	ready       func(context.Context) error
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	started     time.Time

	shutdownOnce sync.Once
}

func NewServer(addr string, t *tab.Tab, opts Options) *Server {
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Ready == nil {
		opts.Ready = func(ctx context.Context) error {
			_, err := t.Theme(ctx)
			return err
		}
	}

	s := &Server{
		tab:         t,
		recorder:    opts.Recorder,
		currency:    opts.Currency,
		logger:      opts.Logger.WithComponent(log.ComponentHTTP),
		ready:       opts.Ready,
		rateLimiter: newRateLimiter(opts.RateLimit),
		metrics:     &securityMetrics{},
		started:     time.Now(),
	}
	go s.rateLimiter.startCleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("PUT /api/filter", s.handleSetFilter)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile", s.handleUpdateProfile)
	mux.HandleFunc("GET /api/theme", s.handleGetTheme)
	mux.HandleFunc("PUT /api/theme", s.handleSetTheme)
	mux.HandleFunc("POST /api/recover", s.handleRecover)
	mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	var handler http.Handler = mux
	handler = s.guard(handler)
	handler = log.RequestIDMiddleware(trace.FromRequest)(handler)
	handler = log.Middleware(s.logger, extractClientIP)(handler)
	handler = trace.Middleware(handler)
	handler = securityHeaders(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// guard logs suspicious requests and rate limits mutations.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		if detectSuspiciousRequest(r, s.metrics) {
			log.FromContext(r.Context()).Warn("Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			ErrorResponse(http.StatusTooManyRequests, "rate_limited", "too many requests").
				Header("Retry-After", "60").
				Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isMutation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// Shutdown stops the rate limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.rateLimiter.stop)
	return s.Server.Shutdown(ctx)
}
