package events

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill-sqlite/wmsqlitezombiezen"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/GoBetterAuth/session-store/env"
	"github.com/GoBetterAuth/session-store/events"
	"github.com/GoBetterAuth/session-store/models"
)

const (
	defaultBufferSize    = 100
	defaultConsumerGroup = "sessionstore"
	defaultSQLitePath    = "events.db"
	connectTimeout       = 5 * time.Second
)

type providerFactory func(cfg models.EventBusConfig, logger watermill.LoggerAdapter) (models.PubSub, error)

var providers = map[events.EventBusProvider]providerFactory{
	events.ProviderGoChannel: newGoChannel,
	events.ProviderSQLite:    newSQLite,
	events.ProviderPostgres:  newPostgres,
	events.ProviderRedis:     newRedisStream,
	events.ProviderKafka:     newKafka,
	events.ProviderNATS:      newNATS,
	events.ProviderRabbitMQ:  newRabbitMQ,
}

// NewPubSub builds the Watermill transport selected by cfg.Provider.
// An empty provider means the in-process gochannel transport.
func NewPubSub(cfg models.EventBusConfig, logger watermill.LoggerAdapter) (models.PubSub, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	provider := events.EventBusProvider(cfg.Provider)
	if provider == "" {
		provider = events.ProviderGoChannel
	}

	factory, ok := providers[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported event bus provider: %s", cfg.Provider)
	}
	return factory(cfg, logger)
}

// setting prefers the environment over the configured value.
func setting(envKey string, configured string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return configured
}

func consumerGroup(configured string) string {
	if group := setting(env.EnvEventBusConsumerGroup, configured); group != "" {
		return group
	}
	return defaultConsumerGroup
}

func splitList(value string) []string {
	var items []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func newGoChannel(cfg models.EventBusConfig, logger watermill.LoggerAdapter) (models.PubSub, error) {
	bufferSize := defaultBufferSize
	if cfg.GoChannel != nil && cfg.GoChannel.BufferSize > 0 {
		bufferSize = cfg.GoChannel.BufferSize
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(bufferSize),
	}, logger)
	return NewWatermillPubSub(pubSub, pubSub), nil
}

func newPostgres(cfg models.EventBusConfig, logger watermill.LoggerAdapter) (models.PubSub, error) {
	var configured string
	if cfg.PostgreSQL != nil {
		configured = cfg.PostgreSQL.URL
	}
	url := setting(env.EnvPostgresURL, configured)
	if url == "" {
		return nil, fmt.Errorf("postgres event bus requires a url (set %s or event_bus.postgres.url)", env.EnvPostgresURL)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	subscriber, err := watermillSQL.NewSubscriber(db, watermillSQL.SubscriberConfig{
		SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
	}, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create postgres subscriber: %w", err)
	}

	publisher, err := watermillSQL.NewPublisher(db, watermillSQL.PublisherConfig{
		SchemaAdapter:        watermillSQL.DefaultPostgreSQLSchema{},
		AutoInitializeSchema: true,
	}, logger)
	if err != nil {
		subscriber.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create postgres publisher: %w", err)
	}

	return NewWatermillPubSub(publisher, subscriber, db.Close), nil
}

func newRedisStream(cfg models.EventBusConfig, logger watermill.LoggerAdapter) (models.PubSub, error) {
	var configured, group string
	if cfg.Redis != nil {
		configured = cfg.Redis.URL
		group = cfg.Redis.ConsumerGroup
	}
	url := setting(env.EnvRedisURL, configured)
	if url == "" {
		return nil, fmt.Errorf("redis event bus requires a url (set %s or event_bus.redis.url)", env.EnvRedisURL)
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		ConsumerGroup: consumerGroup(group),
	}, logger)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create redis subscriber: %w", err)
	}

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, logger)
	if err != nil {
		subscriber.Close()
		client.Close()
		return nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	return NewWatermillPubSub(publisher, subscriber, client.Close), nil
}

// newSQLite keeps events in their own sqlite file, separate from the
// sessions database.
func newSQLite(cfg models.EventBusConfig, logger watermill.LoggerAdapter) (models.PubSub, error) {
	var configured string
	if cfg.SQLite != nil {
		configured = cfg.SQLite.DBPath
	}
	dbPath := setting(env.EnvSQLiteEventsPath, configured)
	if dbPath == "" {
		dbPath = defaultSQLitePath
	}

	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for sqlite events: %w", err)
		}
	}

	subscriber, err := wmsqlitezombiezen.NewSubscriber(dbPath, wmsqlitezombiezen.SubscriberOptions{
		InitializeSchema: true,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite subscriber: %w", err)
	}

	pool, err := sqlitex.NewPool("file:"+dbPath, sqlitex.PoolOptions{PoolSize: 2})
	if err != nil {
		subscriber.Close()
		return nil, fmt.Errorf("failed to create sqlite connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	conn, err := pool.Take(ctx)
	if err != nil {
		subscriber.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to get sqlite connection: %w", err)
	}

	publisher, err := wmsqlitezombiezen.NewPublisher(conn, wmsqlitezombiezen.PublisherOptions{
		InitializeSchema: true,
		Logger:           logger,
	})
	if err != nil {
		pool.Put(conn)
		subscriber.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to create sqlite publisher: %w", err)
	}

	release := func() error {
		pool.Put(conn)
		return pool.Close()
	}
	return NewWatermillPubSub(&serialPublisher{Publisher: publisher}, subscriber, release), nil
}

// serialPublisher guards a publisher that owns a single sqlite connection,
// which must not be used by two goroutines at once.
type serialPublisher struct {
	message.Publisher
	mu sync.Mutex
}

func (p *serialPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Publisher.Publish(topic, messages...)
}

func (p *serialPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Publisher.Close()
}

func newKafka(cfg models.EventBusConfig, logger watermill.LoggerAdapter) (models.PubSub, error) {
	var configured, group string
	if cfg.Kafka != nil {
		configured = cfg.Kafka.Brokers
		group = cfg.Kafka.ConsumerGroup
	}
	brokers := splitList(setting(env.EnvKafkaBrokers, configured))
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka event bus requires brokers (set %s or event_bus.kafka.brokers)", env.EnvKafkaBrokers)
	}
	group = consumerGroup(group)

	logger.Debug("kafka init", watermill.LogFields{"brokers": strings.Join(brokers, ","), "consumer_group": group})

	subscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	subscriberConfig.Consumer.Offsets.Initial = sarama.OffsetNewest

	// Session events are small and frequent; batch them on the producer side.
	producerConfig := kafka.DefaultSaramaSyncPublisherConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForLocal
	producerConfig.Producer.Retry.Max = 3
	producerConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	producerConfig.Producer.Flush.Messages = 100

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		ConsumerGroup:         group,
		OverwriteSaramaConfig: subscriberConfig,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: producerConfig,
	}, logger)
	if err != nil {
		subscriber.Close()
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return NewWatermillPubSub(publisher, subscriber), nil
}

func newNATS(cfg models.EventBusConfig, logger watermill.LoggerAdapter) (models.PubSub, error) {
	var configured string
	if cfg.NATS != nil {
		configured = cfg.NATS.URL
	}
	url := setting(env.EnvNatsURL, configured)
	if url == "" {
		return nil, fmt.Errorf("nats event bus requires a url (set %s or event_bus.nats.url)", env.EnvNatsURL)
	}

	subscriber, err := nats.NewSubscriber(nats.SubscriberConfig{URL: url}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create nats subscriber: %w", err)
	}

	publisher, err := nats.NewPublisher(nats.PublisherConfig{URL: url}, logger)
	if err != nil {
		subscriber.Close()
		return nil, fmt.Errorf("failed to create nats publisher: %w", err)
	}

	return NewWatermillPubSub(publisher, subscriber), nil
}

func newRabbitMQ(cfg models.EventBusConfig, logger watermill.LoggerAdapter) (models.PubSub, error) {
	var configured string
	if cfg.RabbitMQ != nil {
		configured = cfg.RabbitMQ.URL
	}
	url := setting(env.EnvRabbitMQURL, configured)
	if url == "" {
		return nil, fmt.Errorf("rabbitmq event bus requires a url (set %s or event_bus.rabbitmq.url)", env.EnvRabbitMQURL)
	}

	amqpConfig := amqp.NewDurableQueueConfig(url)

	subscriber, err := amqp.NewSubscriber(amqpConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create rabbitmq subscriber: %w", err)
	}

	publisher, err := amqp.NewPublisher(amqpConfig, logger)
	if err != nil {
		subscriber.Close()
		return nil, fmt.Errorf("failed to create rabbitmq publisher: %w", err)
	}

	return NewWatermillPubSub(publisher, subscriber), nil
}
