package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendsync/internal/cache"
	"spendsync/internal/cli"
	"spendsync/internal/config"
	apphttp "spendsync/internal/http"
	"spendsync/internal/log"
)

const cacheCleanInterval = time.Minute

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	session, err := cli.OpenTab(startCtx, cfg, logger)
	cancelStart()
	if session == nil {
		return err
	}
	if err != nil {
		// The server still starts so the ledger can be recovered through the API.
		logger.Warn("Stored data could not be loaded",
			log.FieldOperation, log.OpStartup,
			log.FieldError, err.Error())
	}

	srv := apphttp.NewServer(":"+cfg.Port, session.Tab, apphttp.Options{
		Currency: cfg.Currency,
		Logger:   logger,
		Recorder: session.Recorder,
	})

	manager := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	manager.Register(session.Cache)

	parent, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, done := cli.GracefulShutdown(parent, logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if err := session.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err.Error())
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spendsync server",
			"port", cfg.Port,
			log.FieldTab, session.Tab.ID(),
			"store", cfg.StoreBackend,
			"broadcast", cfg.BroadcastBackend,
			log.FieldPolicy, cfg.WritePolicy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error { return session.Tab.Run(gctx) })
	g.Go(func() error { return manager.Run(gctx, cacheCleanInterval) })
	g.Go(func() error {
		<-gctx.Done()
		cancel()
		return nil
	})

	err = g.Wait()
	<-done
	return err
}
