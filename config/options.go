package config

import (
	"fmt"
	"os"
	"time"

	"github.com/GoBetterAuth/session-store/env"
	"github.com/GoBetterAuth/session-store/internal/util"
	"github.com/GoBetterAuth/session-store/models"
)

const (
	DefaultDataColumn = "data"
	DefaultCookieName = "sessionstore.sid"
)

type ConfigOption func(*models.Config)

// NewConfig builds a Config using functional options with sensible defaults.
// Panics if the resulting configuration is invalid.
func NewConfig(options ...ConfigOption) *models.Config {
	config := defaultConfig()

	// Options override defaults only with non-zero values
	for _, option := range options {
		option(config)
	}

	if err := Validate(config); err != nil {
		panic(err)
	}

	return config
}

func defaultConfig() *models.Config {
	return &models.Config{
		Database: models.DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Minute * 10,
		},
		Logger: models.LoggerConfig{
			Level: "info",
		},
		Store: models.StoreConfig{
			DataColumn:     DefaultDataColumn,
			Codec:          "json",
			HashSessionIDs: true,
		},
		Cookie: models.CookieConfig{
			Name:     DefaultCookieName,
			Path:     "/",
			HttpOnly: true,
			SameSite: "lax",
		},
		EventBus: models.EventBusConfig{
			Provider:  "gochannel",
			GoChannel: &models.GoChannelConfig{BufferSize: 100},
		},
		Metrics: models.MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Server: models.ServerConfig{
			Address:         ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

// Validate checks struct tags and the event bus provider settings.
func Validate(config *models.Config) error {
	if err := util.ValidateStruct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if config.EventBus.Enabled {
		if err := validateEventBusConfig(&config.EventBus); err != nil {
			return fmt.Errorf("invalid event bus configuration: %w", err)
		}
	}
	return nil
}

func WithDatabase(config models.DatabaseConfig) ConfigOption {
	return func(c *models.Config) {
		if config.Provider != "" {
			c.Database.Provider = config.Provider
		}
		if envValue := os.Getenv(env.EnvDatabaseURL); envValue != "" {
			c.Database.URL = envValue
		} else if config.URL != "" {
			c.Database.URL = config.URL
		}
		if config.MaxOpenConns != 0 {
			c.Database.MaxOpenConns = config.MaxOpenConns
		}
		if config.MaxIdleConns != 0 {
			c.Database.MaxIdleConns = config.MaxIdleConns
		}
		if config.ConnMaxLifetime != 0 {
			c.Database.ConnMaxLifetime = config.ConnMaxLifetime
		}
	}
}

func WithLogger(config models.LoggerConfig) ConfigOption {
	return func(c *models.Config) {
		if envValue := os.Getenv(env.EnvLogLevel); envValue != "" {
			c.Logger.Level = envValue
		} else if config.Level != "" {
			c.Logger.Level = config.Level
		}
	}
}

// WithStore sets the sessions table options. Boolean fields are copied as is.
func WithStore(config models.StoreConfig) ConfigOption {
	return func(c *models.Config) {
		if envValue := os.Getenv(env.EnvDataColumn); envValue != "" {
			c.Store.DataColumn = envValue
		} else if config.DataColumn != "" {
			c.Store.DataColumn = config.DataColumn
		}
		if config.DataColumnType != "" {
			c.Store.DataColumnType = config.DataColumnType
		}
		if config.Codec != "" {
			c.Store.Codec = config.Codec
		}
		if config.MaxDataSize != 0 {
			c.Store.MaxDataSize = config.MaxDataSize
		}
		c.Store.AutoMigrate = config.AutoMigrate
		c.Store.HashSessionIDs = config.HashSessionIDs
	}
}

// WithCookie sets the session cookie attributes. Boolean fields are copied as is.
func WithCookie(config models.CookieConfig) ConfigOption {
	return func(c *models.Config) {
		if config.Name != "" {
			c.Cookie.Name = config.Name
		}
		if config.Path != "" {
			c.Cookie.Path = config.Path
		}
		if config.Domain != "" {
			c.Cookie.Domain = config.Domain
		}
		if config.MaxAge != 0 {
			c.Cookie.MaxAge = config.MaxAge
		}
		c.Cookie.Secure = config.Secure
		c.Cookie.HttpOnly = config.HttpOnly
		if config.SameSite != "" {
			c.Cookie.SameSite = config.SameSite
		}
	}
}

func WithEventBus(config models.EventBusConfig) ConfigOption {
	return func(c *models.Config) {
		c.EventBus.Enabled = config.Enabled
		if config.Prefix != "" {
			c.EventBus.Prefix = config.Prefix
		}
		if config.MaxConcurrentHandlers > 0 {
			c.EventBus.MaxConcurrentHandlers = config.MaxConcurrentHandlers
		}
		if config.Provider != "" {
			c.EventBus.Provider = config.Provider
		}
		if config.GoChannel != nil {
			c.EventBus.GoChannel = config.GoChannel
		}
		if config.SQLite != nil {
			c.EventBus.SQLite = config.SQLite
		}
		if config.PostgreSQL != nil {
			c.EventBus.PostgreSQL = config.PostgreSQL
		}
		if config.Redis != nil {
			c.EventBus.Redis = config.Redis
		}
		if config.Kafka != nil {
			c.EventBus.Kafka = config.Kafka
		}
		if config.NATS != nil {
			c.EventBus.NATS = config.NATS
		}
		if config.RabbitMQ != nil {
			c.EventBus.RabbitMQ = config.RabbitMQ
		}
	}
}

func WithMetrics(config models.MetricsConfig) ConfigOption {
	return func(c *models.Config) {
		c.Metrics.Enabled = config.Enabled
		if config.Path != "" {
			c.Metrics.Path = config.Path
		}
	}
}

func WithServer(config models.ServerConfig) ConfigOption {
	return func(c *models.Config) {
		if port := os.Getenv(env.EnvPort); port != "" {
			c.Server.Address = ":" + port
		} else if config.Address != "" {
			c.Server.Address = config.Address
		}
		if config.ShutdownTimeout != 0 {
			c.Server.ShutdownTimeout = config.ShutdownTimeout
		}
	}
}

// validateEventBusConfig checks that the selected provider can be reached
// from either its config section or its environment variable.
func validateEventBusConfig(config *models.EventBusConfig) error {
	provider := config.Provider
	if provider == "" {
		provider = "gochannel"
	}

	switch provider {
	case "gochannel", "sqlite":
		return nil

	case "postgres":
		if os.Getenv(env.EnvPostgresURL) == "" && (config.PostgreSQL == nil || config.PostgreSQL.URL == "") {
			return fmt.Errorf("postgres provider selected but postgres.url is empty and %s is not set", env.EnvPostgresURL)
		}

	case "redis":
		if os.Getenv(env.EnvRedisURL) == "" && (config.Redis == nil || config.Redis.URL == "") {
			return fmt.Errorf("redis provider selected but redis.url is empty and %s is not set", env.EnvRedisURL)
		}

	case "kafka":
		if os.Getenv(env.EnvKafkaBrokers) == "" && (config.Kafka == nil || config.Kafka.Brokers == "") {
			return fmt.Errorf("kafka provider selected but kafka.brokers is empty and %s is not set", env.EnvKafkaBrokers)
		}

	case "nats":
		if os.Getenv(env.EnvNatsURL) == "" && (config.NATS == nil || config.NATS.URL == "") {
			return fmt.Errorf("nats provider selected but nats.url is empty and %s is not set", env.EnvNatsURL)
		}

	case "rabbitmq":
		if os.Getenv(env.EnvRabbitMQURL) == "" && (config.RabbitMQ == nil || config.RabbitMQ.URL == "") {
			return fmt.Errorf("rabbitmq provider selected but rabbitmq.url is empty and %s is not set", env.EnvRabbitMQURL)
		}

	default:
		return fmt.Errorf("unsupported event bus provider: %s", provider)
	}

	return nil
}
