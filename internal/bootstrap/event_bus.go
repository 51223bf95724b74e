package bootstrap

import (
	internalevents "github.com/GoBetterAuth/session-store/internal/events"
	"github.com/GoBetterAuth/session-store/models"
)

// InitEventBus returns nil when the bus is disabled.
func InitEventBus(cfg models.EventBusConfig, logger models.Logger) (models.EventBus, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	wmLogger := WatermillLogger(logger)
	pubsub, err := internalevents.NewPubSub(cfg, wmLogger)
	if err != nil {
		return nil, err
	}
	return internalevents.NewEventBus(cfg, wmLogger, pubsub), nil
}
