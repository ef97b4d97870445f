package backend

import (
	"fmt"

	"spendsync/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config, origin string) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	c := Config{
		Store:        StoreType(appConfig.StoreBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		Broadcast:    BroadcastType(appConfig.BroadcastBackend),
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		DialAttempts: 3,
		Origin:       origin,
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if !c.Store.IsValid() {
		return fmt.Errorf("invalid store backend: %s", c.Store)
	}
	if !c.Broadcast.IsValid() {
		return fmt.Errorf("invalid broadcast backend: %s", c.Broadcast)
	}
	if c.Store == SQLiteStore && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.Broadcast == AMQPBroadcast && c.AMQPURL == "" {
		return fmt.Errorf("AMQP URL is required for amqp broadcast")
	}
	return nil
}
