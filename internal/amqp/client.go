// Package amqp carries broadcast messages between tab processes over a
// RabbitMQ fanout exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"spendsync/internal/broadcast"
	"spendsync/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	// DefaultExchange is the fanout exchange shared by every tab.
	DefaultExchange = broadcast.ChannelName

	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
	heartbeat      = 10 * time.Second
)

// dialTimeout bounds the TCP connect and the AMQP handshake.
var dialTimeout = 5 * time.Second

type Config struct {
	URL      string
	Exchange string
	Logger   *log.Logger

	// Origin is the tab id. It is sent as the AMQP app id so a tab can
	// recognise and skip its own messages.
	Origin string

	// MaxAttempts bounds the initial dial attempts. Zero retries until ctx
	// is done.
	MaxAttempts int
}

// Channel implements broadcast.Channel. Each subscriber gets an exclusive,
// auto-deleted queue bound to the exchange, so a tab that is not connected
// misses the messages sent meanwhile.
type Channel struct {
	url      string
	exchange string
	origin   string
	logger   *log.Logger

	mu   sync.Mutex
	conn *amqp091.Connection
	pub  *amqp091.Channel

	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once

	state        int32
	failureCount int64
	breakerMu    sync.Mutex
	lastFailure  time.Time
}

// Dial connects to the broker, retrying connection errors with backoff.
func Dial(ctx context.Context, cfg Config) (*Channel, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentAMQP)
	}
	c := &Channel{
		url:      cfg.URL,
		exchange: cfg.Exchange,
		origin:   cfg.Origin,
		logger:   logger.With(log.FieldTab, cfg.Origin),
		done:     make(chan struct{}),
	}
	if _, err := c.dial(ctx, cfg.MaxAttempts); err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	return c, nil
}

// dialConfig bounds the TCP connect so an unresponsive broker fails fast.
func dialConfig() amqp091.Config {
	return amqp091.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(dialTimeout),
	}
}

// connection returns the live connection, opening a new one when needed.
func (c *Channel) connection() (*amqp091.Connection, *amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.pub != nil && !c.pub.IsClosed() {
		return c.conn, c.pub, nil
	}
	c.resetLocked()

	conn, err := amqp091.DialConfig(c.url, dialConfig())
	if err != nil {
		return nil, nil, err
	}
	pub, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	err = pub.ExchangeDeclare(
		c.exchange, // name
		"fanout",   // type
		false,      // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		pub.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	c.conn, c.pub = conn, pub
	c.logger.Info("Connected to AMQP broker", "exchange", c.exchange)
	return conn, pub, nil
}

func (c *Channel) resetLocked() {
	if c.pub != nil {
		c.pub.Close()
		c.pub = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Channel) dial(ctx context.Context, maxAttempts int) (*amqp091.Connection, error) {
	for attempt := 0; ; attempt++ {
		conn, _, err := c.connection()
		if err == nil {
			return conn, nil
		}
		if !isConnectionError(err) || (maxAttempts > 0 && attempt+1 >= maxAttempts) {
			return nil, err
		}
		wait := exponentialBackoff(attempt)
		c.logger.WarnContext(ctx, "AMQP connection failed, retrying",
			log.FieldAttempt, attempt+1,
			"backoff", wait,
			log.FieldError, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, broadcast.ErrClosed
		case <-time.After(wait):
		}
	}
}

// Publish sends msg to every other subscribed tab. It does not wait for
// delivery.
func (c *Channel) Publish(ctx context.Context, msg broadcast.Message) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("%w: circuit breaker is open", broadcast.ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return broadcast.ErrClosed
	}

	p, err := publishing(msg, c.origin)
	if err != nil {
		return err
	}
	_, pub, err := c.connection()
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = pub.PublishWithContext(
		ctx,
		c.exchange, // exchange
		"",         // routing key, ignored by fanout
		false,      // mandatory
		false,      // immediate
		p,
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.resetLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.logger.DebugContext(ctx, "Published broadcast message",
		log.FieldMessageType, msg.Type,
		"exchange", c.exchange)
	return nil
}

// Subscribe consumes until ctx is done or the channel is closed. A lost
// connection is re-established; messages sent while disconnected are lost.
func (c *Channel) Subscribe(ctx context.Context, h broadcast.Handler) error {
	attempt := 0
	for {
		received, err := c.consume(ctx, h)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case c.closed.Load():
			return broadcast.ErrClosed
		case err != nil && !isConnectionError(err):
			return err
		}
		if received > 0 {
			attempt = 0
		}
		wait := exponentialBackoff(attempt)
		attempt++
		c.logger.WarnContext(ctx, "Broadcast subscription lost, reconnecting",
			"backoff", wait,
			log.FieldError, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return broadcast.ErrClosed
		case <-time.After(wait):
		}
	}
}

func (c *Channel) consume(ctx context.Context, h broadcast.Handler) (int, error) {
	conn, _, err := c.connection()
	if err != nil {
		return 0, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return 0, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return 0, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", c.exchange, false, nil); err != nil {
		return 0, fmt.Errorf("bind queue: %w", err)
	}
	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return 0, fmt.Errorf("start consuming: %w", err)
	}
	c.logger.InfoContext(ctx, "Started consuming broadcast messages", "queue", q.Name)

	received := 0
	for {
		select {
		case <-ctx.Done():
			return received, ctx.Err()
		case <-c.done:
			return received, broadcast.ErrClosed
		case d, ok := <-deliveries:
			if !ok {
				return received, amqp091.ErrClosed
			}
			received++
			msg, own, err := decodeDelivery(d, c.origin)
			if own {
				continue
			}
			if err != nil {
				c.logger.ErrorContext(ctx, "Failed to decode broadcast message", log.FieldError, err)
				continue
			}
			if err := h(ctx, msg); err != nil {
				c.logger.ErrorContext(ctx, "Failed to handle broadcast message",
					log.FieldMessageType, msg.Type,
					log.FieldOrigin, msg.Origin,
					log.FieldError, err)
			}
		}
	}
}

func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.done != nil {
			close(c.done)
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.conn != nil {
			err = c.conn.Close()
			c.conn, c.pub = nil, nil
		}
	})
	if errors.Is(err, amqp091.ErrClosed) {
		return nil
	}
	return err
}

func (c *Channel) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.breakerMu.Lock()
	since := time.Since(c.lastFailure)
	c.breakerMu.Unlock()
	if since > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Channel) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.breakerMu.Lock()
	c.lastFailure = time.Now()
	c.breakerMu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Channel) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"EOF",
		"broken pipe",
		"use of closed network connection",
		"i/o timeout",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
