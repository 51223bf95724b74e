package bootstrap

import (
	"log/slog"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/lmittmann/tint"

	"github.com/GoBetterAuth/session-store/env"
	"github.com/GoBetterAuth/session-store/models"
)

// InitLogger builds the process logger: colored text through tint during
// development, JSON when GO_ENV=production.
func InitLogger(cfg models.LoggerConfig) *slog.Logger {
	level := ParseLevel(cfg.Level)

	var logger *slog.Logger
	if os.Getenv(env.EnvGoEnvironment) != "production" {
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
	}

	slog.SetDefault(logger)
	return logger
}

func ParseLevel(value string) slog.Level {
	switch value {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WatermillLogger routes Watermill's logs through logger when it is a
// *slog.Logger and drops them otherwise.
func WatermillLogger(logger models.Logger) watermill.LoggerAdapter {
	if sl, ok := logger.(*slog.Logger); ok {
		return watermill.NewSlogLogger(sl)
	}
	return watermill.NopLogger{}
}
