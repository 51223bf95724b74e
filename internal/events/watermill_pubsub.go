package events

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/GoBetterAuth/session-store/models"
)

// watermillPubSub puts any Watermill transport behind models.PubSub.
type watermillPubSub struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	// closers run after the publisher and subscriber, e.g. a shared client.
	closers []func() error

	closeOnce sync.Once
	closeErr  error
}

func NewWatermillPubSub(publisher message.Publisher, subscriber message.Subscriber, closers ...func() error) models.PubSub {
	return &watermillPubSub{
		publisher:  publisher,
		subscriber: subscriber,
		closers:    closers,
	}
}

func (w *watermillPubSub) Publish(ctx context.Context, topic string, msg *models.Message) error {
	out := message.NewMessage(msg.UUID, msg.Payload)
	out.SetContext(ctx)
	for key, value := range msg.Metadata {
		out.Metadata.Set(key, value)
	}
	return w.publisher.Publish(topic, out)
}

func (w *watermillPubSub) Subscribe(ctx context.Context, topic string) (<-chan *models.Message, error) {
	in, err := w.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	out := make(chan *models.Message)
	go func() {
		defer close(out)
		for msg := range in {
			select {
			case out <- toModel(msg):
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close is safe to call more than once.
func (w *watermillPubSub) Close() error {
	w.closeOnce.Do(func() {
		var errs []error
		if w.publisher != nil {
			errs = append(errs, w.publisher.Close())
		}
		// gochannel uses the same value for both sides.
		if w.subscriber != nil && any(w.subscriber) != any(w.publisher) {
			errs = append(errs, w.subscriber.Close())
		}
		for _, closer := range w.closers {
			errs = append(errs, closer())
		}
		w.closeErr = errors.Join(errs...)
	})
	return w.closeErr
}

func toModel(msg *message.Message) *models.Message {
	metadata := make(map[string]string, len(msg.Metadata))
	maps.Copy(metadata, msg.Metadata)
	return &models.Message{
		UUID:     msg.UUID,
		Payload:  msg.Payload,
		Metadata: metadata,
	}
}
