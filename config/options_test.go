package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoBetterAuth/session-store/env"
	"github.com/GoBetterAuth/session-store/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		env.EnvConfigPath, env.EnvDatabaseURL, env.EnvDataColumn, env.EnvLogLevel,
		env.EnvPostgresURL, env.EnvRedisURL, env.EnvKafkaBrokers, env.EnvNatsURL, env.EnvRabbitMQURL,
		env.EnvPort,
	} {
		t.Setenv(key, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	clearEnv(t)

	config := NewConfig()
	assert.Equal(t, "data", config.Store.DataColumn)
	assert.Equal(t, "json", config.Store.Codec)
	assert.True(t, config.Store.HashSessionIDs)
	assert.Equal(t, "sessionstore.sid", config.Cookie.Name)
	assert.True(t, config.Cookie.HttpOnly)
	assert.Equal(t, "lax", config.Cookie.SameSite)
	assert.Equal(t, "gochannel", config.EventBus.Provider)
	assert.False(t, config.EventBus.Enabled)
	assert.Equal(t, "/metrics", config.Metrics.Path)
	assert.Equal(t, ":8080", config.Server.Address)
}

func TestNewConfig_Options(t *testing.T) {
	clearEnv(t)

	config := NewConfig(
		WithDatabase(models.DatabaseConfig{Provider: "sqlite", URL: "sessions.db"}),
		WithStore(models.StoreConfig{DataColumn: "payload", DataColumnType: "VARCHAR(4096)", Codec: "msgpack", MaxDataSize: 2048}),
		WithCookie(models.CookieConfig{Name: "sid", MaxAge: time.Hour, Secure: true}),
		WithServer(models.ServerConfig{Address: "127.0.0.1:9000"}),
	)

	assert.Equal(t, "sessions.db", config.Database.URL)
	assert.Equal(t, "payload", config.Store.DataColumn)
	assert.Equal(t, "VARCHAR(4096)", config.Store.DataColumnType)
	assert.Equal(t, "msgpack", config.Store.Codec)
	assert.Equal(t, 2048, config.Store.MaxDataSize)
	assert.False(t, config.Store.HashSessionIDs)
	assert.Equal(t, "sid", config.Cookie.Name)
	assert.Equal(t, "/", config.Cookie.Path)
	assert.True(t, config.Cookie.Secure)
	assert.Equal(t, "127.0.0.1:9000", config.Server.Address)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(env.EnvDataColumn, "blob")
	t.Setenv(env.EnvLogLevel, "debug")
	t.Setenv(env.EnvPort, "9999")

	config := NewConfig(
		WithStore(models.StoreConfig{DataColumn: "payload"}),
		WithLogger(models.LoggerConfig{Level: "error"}),
		WithServer(models.ServerConfig{}),
	)
	assert.Equal(t, "blob", config.Store.DataColumn)
	assert.Equal(t, "debug", config.Logger.Level)
	assert.Equal(t, ":9999", config.Server.Address)
}

func TestNewConfig_PanicsOnInvalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		option ConfigOption
	}{
		{name: "bad column", option: WithStore(models.StoreConfig{DataColumn: "data column"})},
		{name: "reserved column", option: WithStore(models.StoreConfig{DataColumn: "updated_at"})},
		{name: "bad codec", option: WithStore(models.StoreConfig{Codec: "xml"})},
		{name: "bad provider", option: WithDatabase(models.DatabaseConfig{Provider: "oracle"})},
		{name: "bad same site", option: WithCookie(models.CookieConfig{SameSite: "sometimes"})},
		{name: "redis without url", option: WithEventBus(models.EventBusConfig{Enabled: true, Provider: "redis"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { NewConfig(tt.option) })
		})
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	missing, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, *NewConfig(), missing)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[database]
provider = "sqlite"
url = "sessions.db"

[store]
data_column = "payload"
max_data_size = 4096
hash_session_ids = true

[cookie]
name = "app.sid"
max_age = "24h"
http_only = true

[event_bus]
enabled = true
provider = "gochannel"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	fileConfig, err := LoadFile(path)
	require.NoError(t, err)

	config := NewConfig(FromFile(fileConfig)...)
	assert.Equal(t, "payload", config.Store.DataColumn)
	assert.Equal(t, 4096, config.Store.MaxDataSize)
	assert.Equal(t, "app.sid", config.Cookie.Name)
	assert.Equal(t, 24*time.Hour, config.Cookie.MaxAge)
	assert.True(t, config.EventBus.Enabled)
	assert.Equal(t, 100, config.EventBus.GoChannel.BufferSize)
}

func TestLoadFile_KeepsBooleanDefaults(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name       string
		content    *string
		hashIDs    bool
		httpOnly   bool
		metrics    bool
		autoCreate bool
	}{
		{name: "missing file", hashIDs: true, httpOnly: true, metrics: true},
		{name: "empty file", content: ptr(""), hashIDs: true, httpOnly: true, metrics: true},
		{
			name:     "partial sections",
			content:  ptr("[store]\ndata_column = \"payload\"\n\n[cookie]\nname = \"app.sid\"\n"),
			hashIDs:  true,
			httpOnly: true,
			metrics:  true,
		},
		{
			name:       "explicit values",
			content:    ptr("[store]\nhash_session_ids = false\nauto_migrate = true\n\n[cookie]\nhttp_only = false\n\n[metrics]\nenabled = false\n"),
			autoCreate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0o600))
			}

			fileConfig, err := LoadFile(path)
			require.NoError(t, err)

			config := NewConfig(FromFile(fileConfig)...)
			assert.Equal(t, tt.hashIDs, config.Store.HashSessionIDs)
			assert.Equal(t, tt.httpOnly, config.Cookie.HttpOnly)
			assert.Equal(t, tt.metrics, config.Metrics.Enabled)
			assert.Equal(t, tt.autoCreate, config.Store.AutoMigrate)
			assert.Equal(t, "lax", config.Cookie.SameSite)
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestLoadFile_SQLiteEventBus(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[event_bus]\nenabled = true\nprovider = \"sqlite\"\n\n[event_bus.sqlite]\ndb_path = \"/var/lib/sessionstore/events.db\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	fileConfig, err := LoadFile(path)
	require.NoError(t, err)

	config := NewConfig(FromFile(fileConfig)...)
	assert.Equal(t, "sqlite", config.EventBus.Provider)
	require.NotNil(t, config.EventBus.SQLite)
	assert.Equal(t, "/var/lib/sessionstore/events.db", config.EventBus.SQLite.DBPath)
}

func TestLoadFile_UnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store]\ncolumn = \"data\"\n"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	t.Setenv(env.EnvConfigPath, "")
	assert.Equal(t, "config.toml", ConfigPath())

	t.Setenv(env.EnvConfigPath, "/etc/sessionstore.toml")
	assert.Equal(t, "/etc/sessionstore.toml", ConfigPath())
}
