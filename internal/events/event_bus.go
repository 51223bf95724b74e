package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"

	"github.com/GoBetterAuth/session-store/models"
)

const (
	defaultMaxHandlers = 100

	resubscribeBase = 500 * time.Millisecond
	resubscribeMax  = 30 * time.Second
)

var ErrBusClosed = errors.New("eventbus: closed")

type subscription struct {
	id      models.SubscriptionID
	handler models.EventHandler
}

type topicConsumer struct {
	subscriptions []subscription
	stop          context.CancelFunc
}

type eventBus struct {
	prefix string
	pubsub models.PubSub
	logger watermill.LoggerAdapter

	mu        sync.RWMutex
	consumers map[string]*topicConsumer
	closed    bool

	nextID atomic.Uint64
	slots  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEventBus multiplexes session events over ps. Topics are the event type,
// optionally prefixed with cfg.Prefix.
func NewEventBus(cfg models.EventBusConfig, logger watermill.LoggerAdapter, ps models.PubSub) models.EventBus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	maxHandlers := defaultMaxHandlers
	if cfg.MaxConcurrentHandlers > 0 {
		maxHandlers = cfg.MaxConcurrentHandlers
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &eventBus{
		prefix:    cfg.Prefix,
		pubsub:    ps,
		logger:    logger,
		consumers: make(map[string]*topicConsumer),
		slots:     make(chan struct{}, maxHandlers),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (bus *eventBus) topic(eventType string) string {
	if bus.prefix == "" {
		return eventType
	}
	return bus.prefix + "." + eventType
}

func (bus *eventBus) Publish(ctx context.Context, event models.Event) error {
	if event.Type == "" {
		return errors.New("eventbus: event type must not be empty")
	}

	bus.mu.RLock()
	closed := bus.closed
	bus.mu.RUnlock()
	if closed {
		return ErrBusClosed
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Metadata == nil {
		event.Metadata = map[string]string{}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("eventbus: failed to encode event: %w", err)
	}

	return bus.pubsub.Publish(ctx, bus.topic(event.Type), &models.Message{
		UUID:    event.ID,
		Payload: payload,
		Metadata: map[string]string{
			"event_type": event.Type,
			"timestamp":  event.Timestamp.Format(time.RFC3339Nano),
		},
	})
}

func (bus *eventBus) Subscribe(eventType string, handler models.EventHandler) (models.SubscriptionID, error) {
	if handler == nil {
		return 0, errors.New("eventbus: handler must not be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return 0, ErrBusClosed
	}

	topic := bus.topic(eventType)
	consumer, ok := bus.consumers[topic]
	if !ok {
		ctx, stop := context.WithCancel(bus.ctx)
		consumer = &topicConsumer{stop: stop}
		bus.consumers[topic] = consumer

		bus.wg.Add(1)
		go bus.consume(ctx, topic)
	}

	id := models.SubscriptionID(bus.nextID.Add(1))
	consumer.subscriptions = append(consumer.subscriptions, subscription{id: id, handler: handler})
	return id, nil
}

func (bus *eventBus) Unsubscribe(eventType string, id models.SubscriptionID) {
	topic := bus.topic(eventType)

	bus.mu.Lock()
	defer bus.mu.Unlock()

	consumer, ok := bus.consumers[topic]
	if !ok {
		return
	}

	kept := consumer.subscriptions[:0]
	for _, sub := range consumer.subscriptions {
		if sub.id != id {
			kept = append(kept, sub)
		}
	}
	consumer.subscriptions = kept

	if len(kept) == 0 {
		consumer.stop()
		delete(bus.consumers, topic)
	}
}

// consume keeps one transport subscription alive per topic, resubscribing
// with jittered exponential backoff when the transport drops it.
func (bus *eventBus) consume(ctx context.Context, topic string) {
	defer bus.wg.Done()

	backoff := resubscribeBase
	for {
		msgs, err := bus.pubsub.Subscribe(ctx, topic)
		if err != nil {
			wait := backoff + time.Duration(rand.Int64N(int64(250*time.Millisecond)))
			bus.logger.Error("failed to subscribe to topic, will retry", err,
				watermill.LogFields{"topic": topic, "retry_in_ms": wait.Milliseconds()},
			)
			if !sleep(ctx, wait) {
				return
			}
			backoff = min(backoff*2, resubscribeMax)
			continue
		}

		backoff = resubscribeBase
		bus.dispatch(ctx, topic, msgs)

		if !sleep(ctx, resubscribeBase) {
			return
		}
	}
}

func (bus *eventBus) dispatch(ctx context.Context, topic string, msgs <-chan *models.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			var event models.Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				bus.logger.Error("failed to decode event", err,
					watermill.LogFields{"topic": topic, "message_id": msg.UUID},
				)
				continue
			}

			bus.mu.RLock()
			var subs []subscription
			if consumer, ok := bus.consumers[topic]; ok {
				subs = append(subs, consumer.subscriptions...)
			}
			bus.mu.RUnlock()

			for _, sub := range subs {
				select {
				case bus.slots <- struct{}{}:
				case <-ctx.Done():
					return
				}
				bus.wg.Add(1)
				go bus.run(ctx, sub.handler, event)
			}
		}
	}
}

func (bus *eventBus) run(ctx context.Context, handler models.EventHandler, event models.Event) {
	fields := watermill.LogFields{"event_type": event.Type, "event_id": event.ID}
	defer func() {
		if r := recover(); r != nil {
			bus.logger.Error("event handler panicked", fmt.Errorf("panic: %v", r), fields)
		}
		<-bus.slots
		bus.wg.Done()
	}()

	if err := handler(ctx, event); err != nil {
		bus.logger.Error("event handler failed", err, fields)
	}
}

// Close stops every consumer, waits for running handlers and closes the transport.
func (bus *eventBus) Close() error {
	bus.mu.Lock()
	if bus.closed {
		bus.mu.Unlock()
		return nil
	}
	bus.closed = true
	bus.mu.Unlock()

	bus.cancel()
	bus.wg.Wait()
	return bus.pubsub.Close()
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
