package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoBetterAuth/session-store/env"
	"github.com/GoBetterAuth/session-store/events"
	"github.com/GoBetterAuth/session-store/models"
)

func newTestBus(t *testing.T, prefix string) models.EventBus {
	t.Helper()

	cfg := models.EventBusConfig{Provider: "gochannel", Prefix: prefix}
	ps, err := NewPubSub(cfg, watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewEventBus(cfg, watermill.NopLogger{}, ps)
	t.Cleanup(func() { bus.Close() })
	return bus
}

func publishUntil(t *testing.T, bus models.EventBus, event models.Event, received <-chan models.Event) models.Event {
	t.Helper()

	// The consumer subscribes asynchronously; gochannel drops messages
	// published before it is attached, so publish until one arrives.
	deadline := time.After(3 * time.Second)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		require.NoError(t, bus.Publish(context.Background(), event))
		select {
		case got := <-received:
			return got
		case <-ticker.C:
		case <-deadline:
			t.Fatal("timeout waiting for event")
		}
	}
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := newTestBus(t, "sessionstore")

	received := make(chan models.Event, 16)
	_, err := bus.Subscribe(events.EventSessionCreated, func(ctx context.Context, event models.Event) error {
		select {
		case received <- event:
		default:
		}
		return nil
	})
	require.NoError(t, err)

	payload, err := json.Marshal(models.SessionEventPayload{ID: "01ROW", Bytes: 15})
	require.NoError(t, err)

	got := publishUntil(t, bus, models.Event{Type: events.EventSessionCreated, Payload: payload}, received)
	assert.Equal(t, events.EventSessionCreated, got.Type)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())

	var decoded models.SessionEventPayload
	require.NoError(t, json.Unmarshal(got.Payload, &decoded))
	assert.Equal(t, "01ROW", decoded.ID)
	assert.Equal(t, 15, decoded.Bytes)
}

func TestEventBus_HandlerErrorsAndPanicsAreContained(t *testing.T) {
	bus := newTestBus(t, "")

	var calls atomic.Int32
	received := make(chan models.Event, 16)

	_, err := bus.Subscribe(events.EventSessionOverflow, func(ctx context.Context, event models.Event) error {
		calls.Add(1)
		panic("boom")
	})
	require.NoError(t, err)
	_, err = bus.Subscribe(events.EventSessionOverflow, func(ctx context.Context, event models.Event) error {
		calls.Add(1)
		return errors.New("handler failed")
	})
	require.NoError(t, err)
	_, err = bus.Subscribe(events.EventSessionOverflow, func(ctx context.Context, event models.Event) error {
		select {
		case received <- event:
		default:
		}
		return nil
	})
	require.NoError(t, err)

	publishUntil(t, bus, models.Event{Type: events.EventSessionOverflow}, received)
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 10*time.Millisecond)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := newTestBus(t, "")

	id, err := bus.Subscribe(events.EventSessionDestroyed, func(ctx context.Context, event models.Event) error {
		return nil
	})
	require.NoError(t, err)

	b := bus.(*eventBus)
	b.mu.RLock()
	assert.Len(t, b.consumers, 1)
	b.mu.RUnlock()

	bus.Unsubscribe(events.EventSessionDestroyed, id)
	bus.Unsubscribe(events.EventSessionDestroyed, id)

	b.mu.RLock()
	assert.Empty(t, b.consumers)
	b.mu.RUnlock()
}

func TestEventBus_Validation(t *testing.T) {
	bus := newTestBus(t, "")

	require.Error(t, bus.Publish(context.Background(), models.Event{}))

	_, err := bus.Subscribe(events.EventSessionCreated, nil)
	require.Error(t, err)
}

func TestEventBus_Close(t *testing.T) {
	cfg := models.EventBusConfig{}
	ps, err := NewPubSub(cfg, nil)
	require.NoError(t, err)
	bus := NewEventBus(cfg, nil, ps)

	_, err = bus.Subscribe(events.EventSessionUpdated, func(ctx context.Context, event models.Event) error { return nil })
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), models.Event{Type: events.EventSessionUpdated}), ErrBusClosed)
	_, err = bus.Subscribe(events.EventSessionUpdated, func(ctx context.Context, event models.Event) error { return nil })
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestNewPubSub(t *testing.T) {
	for _, key := range []string{env.EnvPostgresURL, env.EnvRedisURL, env.EnvKafkaBrokers, env.EnvNatsURL, env.EnvRabbitMQURL} {
		t.Setenv(key, "")
	}

	tests := []struct {
		name    string
		cfg     models.EventBusConfig
		wantErr bool
	}{
		{name: "default is gochannel", cfg: models.EventBusConfig{}},
		{name: "gochannel with buffer", cfg: models.EventBusConfig{Provider: "gochannel", GoChannel: &models.GoChannelConfig{BufferSize: 10}}},
		{name: "unknown provider", cfg: models.EventBusConfig{Provider: "sqs"}, wantErr: true},
		{name: "postgres without url", cfg: models.EventBusConfig{Provider: "postgres"}, wantErr: true},
		{name: "redis without url", cfg: models.EventBusConfig{Provider: "redis", Redis: &models.RedisConfig{}}, wantErr: true},
		{name: "redis with invalid url", cfg: models.EventBusConfig{Provider: "redis", Redis: &models.RedisConfig{URL: "::not a url"}}, wantErr: true},
		{name: "kafka without brokers", cfg: models.EventBusConfig{Provider: "kafka", Kafka: &models.KafkaConfig{Brokers: " , "}}, wantErr: true},
		{name: "nats without url", cfg: models.EventBusConfig{Provider: "nats"}, wantErr: true},
		{name: "rabbitmq without url", cfg: models.EventBusConfig{Provider: "rabbitmq"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, err := NewPubSub(tt.cfg, watermill.NopLogger{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, ps.Close())
			require.NoError(t, ps.Close())
		})
	}
}

func TestConsumerGroup(t *testing.T) {
	t.Setenv(env.EnvEventBusConsumerGroup, "")
	assert.Equal(t, "sessionstore", consumerGroup(""))
	assert.Equal(t, "workers", consumerGroup("workers"))

	t.Setenv(env.EnvEventBusConsumerGroup, "from-env")
	assert.Equal(t, "from-env", consumerGroup("workers"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitList(" a:9092, ,b:9092 "))
	assert.Nil(t, splitList(""))
}
