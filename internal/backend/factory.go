package backend

import (
	"context"
	"errors"
	"fmt"

	"spendsync/internal/amqp"
	"spendsync/internal/broadcast"
	"spendsync/internal/log"
	"spendsync/internal/storage"
	"spendsync/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger}
}

// Open opens the store and the broadcast channel. When the broker cannot be
// reached the tab runs without broadcast instead of failing.
func (f *DefaultFactory) Open(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store    storage.Store
		closeDB  func() error
		channel  broadcast.Channel = broadcast.Disabled{}
		closeAll []func() error
	)

	switch config.Store {
	case SQLiteStore:
		db, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		store, closeDB = db, db.Close
		f.logger.InfoContext(ctx, "Using SQLite store", "path", config.SQLiteDBPath)
	case MemoryStore:
		store = memory.New()
		f.logger.InfoContext(ctx, "Using in-memory store; data is lost on exit")
	}

	if config.Broadcast == AMQPBroadcast {
		ch, err := amqp.Dial(ctx, amqp.Config{
			URL:         config.AMQPURL,
			Exchange:    config.AMQPExchange,
			Logger:      f.logger.WithComponent(log.ComponentAMQP),
			Origin:      config.Origin,
			MaxAttempts: config.DialAttempts,
		})
		switch {
		case err == nil:
			channel = ch
			closeAll = append(closeAll, ch.Close)
		case ctx.Err() != nil:
			if closeDB != nil {
				closeDB()
			}
			return nil, err
		default:
			f.logger.WarnContext(ctx, "AMQP unavailable, running without broadcast", log.FieldError, err)
		}
	}
	if closeDB != nil {
		closeAll = append(closeAll, closeDB)
	}

	return &Result{
		Store:   store,
		Channel: channel,
		Cleanup: func() error {
			var errs []error
			for _, c := range closeAll {
				errs = append(errs, c())
			}
			return errors.Join(errs...)
		},
	}, nil
}
