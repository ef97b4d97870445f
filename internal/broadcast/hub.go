package broadcast

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"spendsync/internal/log"
)

// DefaultInboxSize bounds the messages waiting for one endpoint.
const DefaultInboxSize = 64

// Hub is an in-process broadcast channel. Each tab joins with its own
// Endpoint. Messages are serialized on publish, so receivers never share
// memory with the sender.
type Hub struct {
	mu        sync.RWMutex
	endpoints map[*Endpoint]struct{}
	inboxSize int
	dropped   atomic.Int64
	logger    *log.Logger
}

// NewHub creates a hub. A nil logger falls back to the default logger.
func NewHub(inboxSize int, logger *log.Logger) *Hub {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentBroadcast)
	}
	return &Hub{
		endpoints: make(map[*Endpoint]struct{}),
		inboxSize: inboxSize,
		logger:    logger,
	}
}

// Join connects a new tab. Messages published before Join are not seen.
func (h *Hub) Join(origin string) *Endpoint {
	ep := &Endpoint{
		hub:    h,
		origin: origin,
		inbox:  make(chan []byte, h.inboxSize),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	h.endpoints[ep] = struct{}{}
	h.mu.Unlock()
	return ep
}

// Dropped counts messages discarded because an inbox was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Size returns the number of joined endpoints.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.endpoints)
}

func (h *Hub) leave(ep *Endpoint) {
	h.mu.Lock()
	delete(h.endpoints, ep)
	h.mu.Unlock()
}

func (h *Hub) fanOut(ctx context.Context, from *Endpoint, raw []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ep := range h.endpoints {
		if ep == from {
			continue
		}
		select {
		case ep.inbox <- raw:
		default:
			h.dropped.Add(1)
			h.logger.WarnContext(ctx, "Broadcast inbox full, message dropped",
				log.FieldOrigin, from.origin,
				log.FieldTab, ep.origin)
		}
	}
}

// Endpoint is a tab's handle on a Hub. It implements Channel.
type Endpoint struct {
	hub       *Hub
	origin    string
	inbox     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (e *Endpoint) Origin() string { return e.origin }

func (e *Endpoint) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	raw, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	e.hub.fanOut(ctx, e, raw)
	return nil
}

func (e *Endpoint) Subscribe(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return ErrClosed
		case raw := <-e.inbox:
			msg, err := MessageFromJSON(raw)
			if err != nil {
				e.hub.logger.ErrorContext(ctx, "Failed to decode broadcast message",
					log.FieldTab, e.origin,
					log.FieldError, err)
				continue
			}
			if err := h(ctx, msg); err != nil {
				e.hub.logger.ErrorContext(ctx, "Failed to handle broadcast message",
					log.FieldTab, e.origin,
					log.FieldMessageType, msg.Type,
					log.FieldOrigin, msg.Origin,
					log.FieldError, err)
			}
		}
	}
}

// Close leaves the hub. Messages still queued are discarded.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.hub.leave(e)
		close(e.done)
	})
	return nil
}
