package models

import (
	"context"
	"encoding/json"
	"time"
)

// Event represents data to be published or received via the EventBus
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
}

// SessionEventPayload is the payload of every session lifecycle event.
// The session identifier is never published; ID is the row key.
type SessionEventPayload struct {
	ID    string `json:"id,omitempty"`
	Bytes int    `json:"bytes"`
	Limit int    `json:"limit,omitempty"`
}

// Message represents a message in the pub/sub system.
type Message struct {
	UUID     string
	Payload  []byte
	Metadata map[string]string
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID identifies a specific event handler subscription for removal
type SubscriptionID uint64

type EventSubscriber interface {
	Subscribe(eventType string, handler EventHandler) (SubscriptionID, error)
	Unsubscribe(eventType string, id SubscriptionID)
	Close() error
}

// PubSub is the transport under the event bus.
type PubSub interface {
	Publish(ctx context.Context, topic string, msg *Message) error
	// Subscribe returns a channel closed when ctx ends or the transport closes.
	Subscribe(ctx context.Context, topic string) (<-chan *Message, error)
	Close() error
}

// EventBus combines publisher and subscriber functionality
type EventBus interface {
	EventPublisher
	EventSubscriber
}
