package env

const (
	// SESSION STORE

	EnvConfigPath  = "SESSION_STORE_CONFIG_PATH"
	EnvDatabaseURL = "SESSION_STORE_DATABASE_URL"
	EnvDataColumn  = "SESSION_STORE_DATA_COLUMN"
	EnvLogLevel    = "SESSION_STORE_LOG_LEVEL"

	// EVENT BUS

	EnvSQLiteEventsPath      = "SQLITE_EVENTS_PATH"
	EnvPostgresURL           = "POSTGRES_URL"
	EnvRedisURL              = "REDIS_URL"
	EnvKafkaBrokers          = "KAFKA_BROKERS"
	EnvNatsURL               = "NATS_URL"
	EnvRabbitMQURL           = "RABBITMQ_URL"
	EnvEventBusConsumerGroup = "EVENT_BUS_CONSUMER_GROUP"

	// ENVIRONMENT

	EnvGoEnvironment = "GO_ENV"
	EnvPort          = "PORT"
)
