package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func TestEntitlementEvent_JSON(t *testing.T) {
	threshold := 7
	ev := &EntitlementEvent{
		Type:      EventAlert,
		GroupID:   2002,
		PlanID:    "basic",
		Threshold: &threshold,
		At:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Contains(t, raw, "group_id")
	assert.Contains(t, raw, "threshold")
	assert.NotContains(t, raw, "reason")
	assert.NotContains(t, raw, "request_id")
}

func TestNewPublisher_DefaultChannel(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	assert.Equal(t, DefaultChannel, NewPublisher(client, "").channel)
	assert.Equal(t, "custom", NewSubscriber(client, "custom").channel)
}

func TestPublishSubscribe(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *EntitlementEvent, 1)
	sub := NewSubscriber(client, "test_events")
	go func() {
		_ = sub.Subscribe(ctx, func(ev *EntitlementEvent) {
			received <- ev
		})
	}()

	pub := NewPublisher(client, "test_events")

	// 订阅建立之前发布的消息会丢失，重试直到收到
	deadline := time.After(2 * time.Second)
	for {
		err := pub.PublishEvent(ctx, &EntitlementEvent{Type: EventCancelled, GroupID: 1001, Reason: "refund"})
		require.NoError(t, err)

		select {
		case ev := <-received:
			assert.Equal(t, EventCancelled, ev.Type)
			assert.Equal(t, int64(1001), ev.GroupID)
			assert.Equal(t, "refund", ev.Reason)
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("event not received")
		}
	}
}

func TestSubscribe_StopsOnContextCancel(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- NewSubscriber(client, "").Subscribe(ctx, func(*EntitlementEvent) {})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
