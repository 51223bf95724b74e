package util

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoBetterAuth/session-store/models"
)

func TestValidateStruct_StoreConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  models.StoreConfig
		wantErr bool
	}{
		{name: "default column", config: models.StoreConfig{DataColumn: "data"}},
		{name: "custom column and type", config: models.StoreConfig{DataColumn: "payload_v2", DataColumnType: "VARCHAR(255)"}},
		{name: "missing column", config: models.StoreConfig{}, wantErr: true},
		{name: "injection", config: models.StoreConfig{DataColumn: "data; DROP TABLE sessions"}, wantErr: true},
		{name: "leading digit", config: models.StoreConfig{DataColumn: "1data"}, wantErr: true},
		{name: "reserved column", config: models.StoreConfig{DataColumn: "session_id"}, wantErr: true},
		{name: "bad type", config: models.StoreConfig{DataColumn: "data", DataColumnType: "TEXT); --"}, wantErr: true},
		{name: "unknown codec", config: models.StoreConfig{DataColumn: "data", Codec: "gob"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDecodeConfig(t *testing.T) {
	var target struct {
		MaxAge  time.Duration `json:"max_age"`
		Brokers []string      `json:"brokers"`
		Size    int           `json:"size"`
	}

	err := DecodeConfig(map[string]any{
		"max_age": "5m",
		"brokers": "a:9092,b:9092",
		"size":    "42",
	}, &target)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, target.MaxAge)
	assert.Equal(t, []string{"a:9092", "b:9092"}, target.Brokers)
	assert.Equal(t, 42, target.Size)
}

func TestParseSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, ParseSameSite("Strict"))
	assert.Equal(t, http.SameSiteNoneMode, ParseSameSite("none"))
	assert.Equal(t, http.SameSiteLaxMode, ParseSameSite(""))
	assert.Equal(t, http.SameSiteLaxMode, ParseSameSite("bogus"))
}

func TestNewEvent(t *testing.T) {
	event, err := NewEvent("session.created", models.SessionEventPayload{ID: "01J", Bytes: 12})
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "session.created", event.Type)

	var payload models.SessionEventPayload
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, 12, payload.Bytes)
}

type stubBus struct {
	mu        sync.Mutex
	published []models.Event
	err       error
	done      chan struct{}
}

func (b *stubBus) Publish(ctx context.Context, event models.Event) error {
	b.mu.Lock()
	b.published = append(b.published, event)
	b.mu.Unlock()
	close(b.done)
	return b.err
}

func (b *stubBus) Subscribe(string, models.EventHandler) (models.SubscriptionID, error) {
	return 0, nil
}

func (b *stubBus) Unsubscribe(string, models.SubscriptionID) {}

func (b *stubBus) Close() error { return nil }

func TestPublishEventAsync(t *testing.T) {
	PublishEventAsync(nil, nil, models.Event{Type: "ignored"})

	bus := &stubBus{err: errors.New("broker down"), done: make(chan struct{})}
	PublishEventAsync(bus, NewMockLogger(), models.Event{ID: "1", Type: "session.updated"})

	select {
	case <-bus.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	require.Len(t, bus.published, 1)
	assert.Equal(t, "session.updated", bus.published[0].Type)
}
