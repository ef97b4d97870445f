// Package backend opens the shared store and broadcast channel a tab runs on.
package backend

import (
	"context"

	"spendsync/internal/broadcast"
	"spendsync/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the opened resources. Cleanup releases all of them.
type Result struct {
	Store   storage.Store
	Channel broadcast.Channel
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Open(ctx context.Context, config Config) (*Result, error)
}

type StoreType string

const (
	MemoryStore StoreType = "memory"
	SQLiteStore StoreType = "sqlite"
)

func (t StoreType) IsValid() bool {
	return t == MemoryStore || t == SQLiteStore
}

type BroadcastType string

const (
	NoBroadcast   BroadcastType = "none"
	AMQPBroadcast BroadcastType = "amqp"
)

func (t BroadcastType) IsValid() bool {
	return t == NoBroadcast || t == AMQPBroadcast
}

// Config holds configuration for backend creation
type Config struct {
	Store        StoreType
	SQLiteDBPath string

	Broadcast    BroadcastType
	AMQPURL      string
	AMQPExchange string
	// DialAttempts bounds broker connection attempts at startup.
	DialAttempts int

	// Origin is the id of the tab the channel belongs to.
	Origin string
}
