package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan *LocalMessage) *LocalMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestPubSubDelivers(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "ai:trace")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "ai:trace", `{"unit_id":"knight"}`))
	msg := recv(t, ch)
	assert.Equal(t, "ai:trace", msg.Channel)
	assert.Equal(t, `{"unit_id":"knight"}`, msg.Payload)
}

func TestPubSubSeveralChannels(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "ai:trace", "skirmish:duel")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "skirmish:duel", "round"))
	require.NoError(t, ps.Publish(ctx, "elsewhere", "ignored"))
	require.NoError(t, ps.Publish(ctx, "ai:trace", "node"))

	assert.Equal(t, "round", recv(t, ch).Payload)
	assert.Equal(t, "node", recv(t, ch).Payload)
}

func TestPubSubCancelClosesAndDetaches(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "ai:trace")
	require.NoError(t, err)
	cancel()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")
	assert.NoError(t, ps.Publish(ctx, "ai:trace", "late"))
	ps.mu.RLock()
	assert.Empty(t, ps.subscribers)
	ps.mu.RUnlock()
}

func TestPubSubFanOut(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch1, cancel1, err := ps.Subscribe(ctx, "ai:trace")
	require.NoError(t, err)
	defer cancel1()
	ch2, cancel2, err := ps.Subscribe(ctx, "ai:trace")
	require.NoError(t, err)
	defer cancel2()

	require.NoError(t, ps.Publish(ctx, "ai:trace", "tick"))
	assert.Equal(t, "tick", recv(t, ch1).Payload)
	assert.Equal(t, "tick", recv(t, ch2).Payload)
}

func TestPubSubContextCancel(t *testing.T) {
	ps := NewPubSub(4)
	ctx, cancelCtx := context.WithCancel(context.Background())

	ch, cancel, err := ps.Subscribe(ctx, "ai:trace")
	require.NoError(t, err)
	cancelCtx()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after context cancel")
	}
	cancel() // second cancel is a no-op
}

func TestPubSubDropsWhenFull(t *testing.T) {
	ps := NewPubSub(1)
	ctx := context.Background()
	_, cancel, err := ps.Subscribe(ctx, "ai:trace")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "ai:trace", "a"))
	require.NoError(t, ps.Publish(ctx, "ai:trace", "b"))
	assert.Equal(t, int64(1), ps.Dropped())
}
