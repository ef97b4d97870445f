// Package cli provides common CLI initialization utilities shared by
// cmd/spendsync and cmd/spendctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendsync/internal/backend"
	"spendsync/internal/cache"
	"spendsync/internal/config"
	"spendsync/internal/id"
	"spendsync/internal/ledger"
	"spendsync/internal/log"
	"spendsync/internal/notify"
	"spendsync/internal/tab"
	"spendsync/internal/views"
)

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads the configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger creates the process logger and makes it the slog default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	if l, err := log.ParseLevel(level); err == nil {
		cfg.Level = l
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// Session is a tab bound to the configured backend.
type Session struct {
	Tab      *tab.Tab
	Recorder *notify.Recorder
	Cache    *cache.LRUCache[views.Snapshot]
	Cleanup  backend.CleanupFunc
}

// OpenTab opens the configured backend and loads a tab over it. The ledger
// may be corrupt; the returned error from the initial load is then non-nil
// along with a usable Session so the caller can offer recovery.
func OpenTab(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Session, error) {
	tabID := strings.TrimSpace(cfg.TabID)
	if tabID == "" {
		var err error
		if tabID, err = id.Tab(); err != nil {
			return nil, fmt.Errorf("generate tab id: %w", err)
		}
	}

	bcfg, err := backend.FromAppConfig(cfg, tabID)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).Open(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	policy, err := tab.ParseWritePolicy(cfg.WritePolicy)
	if err != nil {
		res.Cleanup()
		return nil, err
	}
	weekStart, err := cfg.Weekday()
	if err != nil {
		res.Cleanup()
		return nil, err
	}

	recorder := notify.NewRecorder(20)
	snapshots := cache.NewLRUCache[views.Snapshot](cfg.SnapshotCacheSize, 10*time.Minute)
	t, err := tab.New(ledger.NewRepository(res.Store), tab.Options{
		ID:         tabID,
		Channel:    res.Channel,
		Notifier:   notify.Multi{notify.Log{Logger: logger.WithComponent(log.ComponentTab).Logger}, recorder},
		Logger:     logger.WithComponent(log.ComponentTab),
		WeekStart:  weekStart,
		Policy:     policy,
		MaxRetries: cfg.WriteMaxRetries,
		Snapshots:  snapshots,
	})
	if err != nil {
		res.Cleanup()
		return nil, err
	}

	s := &Session{
		Tab:      t,
		Recorder: recorder,
		Cache:    snapshots,
		Cleanup: func() error {
			t.Close()
			return res.Cleanup()
		},
	}
	return s, t.Reload(ctx)
}

// GracefulShutdown returns a context cancelled on SIGINT, SIGTERM or when
// parent is done. cleanup runs after cancellation, bounded by timeout.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
