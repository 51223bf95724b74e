package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/GoBetterAuth/session-store/env"
	"github.com/GoBetterAuth/session-store/models"
)

const DefaultConfigPath = "config.toml"

// ConfigPath returns SESSION_STORE_CONFIG_PATH or config.toml.
func ConfigPath() string {
	if path := os.Getenv(env.EnvConfigPath); path != "" {
		return path
	}
	return DefaultConfigPath
}

// LoadFile decodes a TOML file over the defaults, so keys the file leaves
// out keep their default values. A missing file yields the defaults.
func LoadFile(path string) (models.Config, error) {
	fileConfig := *defaultConfig()

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fileConfig, nil
	}

	meta, err := toml.DecodeFile(path, &fileConfig)
	if err != nil {
		return fileConfig, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fileConfig, fmt.Errorf("unknown keys in %s: %v", path, undecoded)
	}
	return fileConfig, nil
}

// FromFile turns every section returned by LoadFile into options. Boolean
// fields are copied as is, so fileConfig must come from LoadFile rather than
// a zero Config.
func FromFile(fileConfig models.Config) []ConfigOption {
	return []ConfigOption{
		WithDatabase(fileConfig.Database),
		WithLogger(fileConfig.Logger),
		WithStore(fileConfig.Store),
		WithCookie(fileConfig.Cookie),
		WithEventBus(fileConfig.EventBus),
		WithMetrics(fileConfig.Metrics),
		WithServer(fileConfig.Server),
	}
}
