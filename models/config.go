package models

import (
	"time"
)

// Config holds the configuration of a session store.
type Config struct {
	Database DatabaseConfig `json:"database" toml:"database"`
	Logger   LoggerConfig   `json:"logger" toml:"logger"`
	Store    StoreConfig    `json:"store" toml:"store"`
	Cookie   CookieConfig   `json:"cookie" toml:"cookie"`
	EventBus EventBusConfig `json:"event_bus" toml:"event_bus"`
	Metrics  MetricsConfig  `json:"metrics" toml:"metrics"`
	Server   ServerConfig   `json:"server" toml:"server"`
}

type DatabaseConfig struct {
	Provider        string        `json:"provider" toml:"provider" validate:"omitempty,oneof=sqlite postgres mysql"`
	URL             string        `json:"url" toml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `json:"max_idle_conns" toml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" toml:"conn_max_lifetime"`
}

type LoggerConfig struct {
	Level string `json:"level" toml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// StoreConfig describes the sessions table and how its data column is filled.
type StoreConfig struct {
	// DataColumn names the column holding the serialized mapping.
	DataColumn string `json:"data_column" toml:"data_column" validate:"required,sqlident,ne=id,ne=session_id,ne=created_at,ne=updated_at"`
	// DataColumnType is the SQL type used when the table is created. Empty means TEXT.
	DataColumnType string `json:"data_column_type" toml:"data_column_type" validate:"omitempty,sqltype"`
	Codec          string `json:"codec" toml:"codec" validate:"omitempty,oneof=json msgpack"`
	// MaxDataSize overrides the introspected column capacity when positive.
	MaxDataSize int  `json:"max_data_size" toml:"max_data_size" validate:"gte=0"`
	AutoMigrate bool `json:"auto_migrate" toml:"auto_migrate"`
	// HashSessionIDs stores a SHA-256 of the cookie value instead of the value itself.
	HashSessionIDs bool `json:"hash_session_ids" toml:"hash_session_ids"`
}

type CookieConfig struct {
	Name     string        `json:"name" toml:"name" validate:"required"`
	Path     string        `json:"path" toml:"path"`
	Domain   string        `json:"domain" toml:"domain"`
	MaxAge   time.Duration `json:"max_age" toml:"max_age"`
	Secure   bool          `json:"secure" toml:"secure"`
	HttpOnly bool          `json:"http_only" toml:"http_only"`
	SameSite string        `json:"same_site" toml:"same_site" validate:"omitempty,oneof=lax strict none"`
}

type EventBusConfig struct {
	Enabled               bool              `json:"enabled" toml:"enabled"`
	Prefix                string            `json:"prefix" toml:"prefix"`
	MaxConcurrentHandlers int               `json:"max_concurrent_handlers" toml:"max_concurrent_handlers"`
	Provider              string            `json:"provider" toml:"provider" validate:"omitempty,oneof=gochannel sqlite postgres redis kafka nats rabbitmq"`
	GoChannel             *GoChannelConfig  `json:"go_channel" toml:"go_channel"`
	SQLite                *SQLiteConfig     `json:"sqlite" toml:"sqlite"`
	PostgreSQL            *PostgreSQLConfig `json:"postgres" toml:"postgres"`
	Redis                 *RedisConfig      `json:"redis" toml:"redis"`
	Kafka                 *KafkaConfig      `json:"kafka" toml:"kafka"`
	NATS                  *NatsConfig       `json:"nats" toml:"nats"`
	RabbitMQ              *RabbitMQConfig   `json:"rabbitmq" toml:"rabbitmq"`
}

type GoChannelConfig struct {
	BufferSize int `json:"buffer_size" toml:"buffer_size"`
}

// SQLiteConfig locates the events database. It defaults to events.db.
type SQLiteConfig struct {
	DBPath string `json:"db_path" toml:"db_path"`
}

type PostgreSQLConfig struct {
	URL string `json:"url" toml:"url"`
}

type RedisConfig struct {
	URL           string `json:"url" toml:"url"`
	ConsumerGroup string `json:"consumer_group" toml:"consumer_group"`
}

type KafkaConfig struct {
	Brokers       string `json:"brokers" toml:"brokers"`
	ConsumerGroup string `json:"consumer_group" toml:"consumer_group"`
}

type NatsConfig struct {
	URL string `json:"url" toml:"url"`
}

type RabbitMQConfig struct {
	URL string `json:"url" toml:"url"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" toml:"enabled"`
	Path    string `json:"path" toml:"path"`
}

type ServerConfig struct {
	Address         string        `json:"address" toml:"address"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" toml:"shutdown_timeout"`
}
