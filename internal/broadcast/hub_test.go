package broadcast

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsync/internal/log"
)

type collector struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *collector) handle(_ context.Context, m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *collector) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.ID
	}
	return out
}

func subscribe(t *testing.T, ep *Endpoint) *collector {
	t.Helper()
	c := &collector{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ep.Subscribe(ctx, c.handle)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func TestHubFansOutToOthersOnly(t *testing.T) {
	hub := NewHub(0, nil)
	a, b, c := hub.Join("a"), hub.Join("b"), hub.Join("c")
	ra, rb, rc := subscribe(t, a), subscribe(t, b), subscribe(t, c)

	require.NoError(t, a.Publish(context.Background(), NewDeleteMessage("a", "x1")))

	assert.Eventually(t, func() bool { return len(rb.ids()) == 1 && len(rc.ids()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, ra.ids(), "sender must not receive its own message")
}

func TestHubPreservesPerSenderOrder(t *testing.T) {
	hub := NewHub(256, nil)
	a, b := hub.Join("a"), hub.Join("b")
	rb := subscribe(t, b)

	want := make([]string, 100)
	for i := range want {
		want[i] = string(rune('A'+i%26)) + string(rune('0'+i/26))
		require.NoError(t, a.Publish(context.Background(), NewDeleteMessage("a", want[i])))
	}

	assert.Eventually(t, func() bool { return len(rb.ids()) == len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, rb.ids())
}

func TestHubDropsWhenInboxFull(t *testing.T) {
	hub := NewHub(2, nil)
	a := hub.Join("a")
	hub.Join("b") // never drains

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Publish(context.Background(), NewDeleteMessage("a", "x")))
	}
	assert.EqualValues(t, 3, hub.Dropped())
}

func TestHubLateAndClosedEndpointsMissMessages(t *testing.T) {
	hub := NewHub(0, nil)
	a, b := hub.Join("a"), hub.Join("b")
	require.NoError(t, b.Close())
	assert.Equal(t, 1, hub.Size())

	require.NoError(t, a.Publish(context.Background(), NewDeleteMessage("a", "before")))

	late := hub.Join("late")
	rl := subscribe(t, late)
	require.NoError(t, a.Publish(context.Background(), NewDeleteMessage("a", "after")))

	assert.Eventually(t, func() bool { return len(rl.ids()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"after"}, rl.ids())

	assert.ErrorIs(t, b.Publish(context.Background(), NewDeleteMessage("b", "x")), ErrClosed)
	assert.ErrorIs(t, b.Subscribe(context.Background(), func(context.Context, Message) error { return nil }), ErrClosed)
}

func TestDisabled(t *testing.T) {
	var ch Channel = Disabled{}
	assert.ErrorIs(t, ch.Publish(context.Background(), NewDeleteMessage("a", "x")), ErrUnavailable)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, ch.Subscribe(ctx, nil), context.DeadlineExceeded)
	assert.NoError(t, ch.Close())
}

func TestHubLogsDropsThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf, Component: log.ComponentBroadcast})
	hub := NewHub(1, logger)
	a := hub.Join("a")
	hub.Join("b")

	for i := 0; i < 2; i++ {
		require.NoError(t, a.Publish(context.Background(), NewDeleteMessage("a", "x")))
	}
	out := buf.String()
	assert.Contains(t, out, "component=broadcast")
	assert.Contains(t, out, "message dropped")
	assert.Contains(t, out, "tab=b")
}
