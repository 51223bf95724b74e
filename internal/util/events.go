package util

import (
	"context"
	"time"

	"github.com/GoBetterAuth/session-store/models"
)

const publishTimeout = 5 * time.Second

// NewEvent builds an event with a fresh id and the payload encoded as JSON.
func NewEvent(eventType string, payload any) (models.Event, error) {
	raw, err := MarshalJSON(payload)
	if err != nil {
		return models.Event{}, err
	}
	return models.Event{
		ID:        GenerateUUID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
		Metadata:  map[string]string{},
	}, nil
}

// PublishEventAsync publishes an event in a background goroutine.
// A nil bus is a no-op. Failures are logged and never reach the caller.
func PublishEventAsync(eventBus models.EventBus, logger models.Logger, event models.Event) {
	if eventBus == nil {
		return
	}

	go func(evt models.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := eventBus.Publish(ctx, evt); err != nil {
			if logger != nil {
				logger.Error("failed to publish event asynchronously",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"error", err,
				)
			}
		}
	}(event)
}
