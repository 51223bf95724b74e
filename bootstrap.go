package sessionstore

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"

	internalbootstrap "github.com/GoBetterAuth/session-store/internal/bootstrap"
	internalcodec "github.com/GoBetterAuth/session-store/internal/codec"
	internalmetrics "github.com/GoBetterAuth/session-store/internal/metrics"
	internalmigrations "github.com/GoBetterAuth/session-store/internal/migrations"
	internalrepositories "github.com/GoBetterAuth/session-store/internal/repositories"
	internalservices "github.com/GoBetterAuth/session-store/internal/services"
	"github.com/GoBetterAuth/session-store/models"
	coreservices "github.com/GoBetterAuth/session-store/services"
)

// InitLogger builds the logger described by the configuration.
func InitLogger(config *models.Config) models.Logger {
	return internalbootstrap.InitLogger(config.Logger)
}

// InitDatabase opens the configured database.
func InitDatabase(config *models.Config) (*bun.DB, error) {
	return internalbootstrap.InitDatabase(config.Database, config.Logger.Level)
}

// InitEventBus returns nil when the event bus is disabled.
func InitEventBus(config *models.Config, logger models.Logger) (models.EventBus, error) {
	return internalbootstrap.InitEventBus(config.EventBus, logger)
}

// initMetrics registers the store collectors. It returns nil collectors when
// metrics are disabled.
func initMetrics(config *models.Config, registry *prometheus.Registry) (*internalmetrics.Collectors, *prometheus.Registry, error) {
	if !config.Metrics.Enabled {
		return nil, registry, nil
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	collectors, err := internalmetrics.New(registry)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return collectors, registry, nil
}

func initMigrator(config *models.Config, db *bun.DB, provider string, logger models.Logger) (*internalmigrations.Migrator, error) {
	return internalmigrations.NewMigrator(
		db,
		provider,
		internalmigrations.TableOptions{
			DataColumn:     config.Store.DataColumn,
			DataColumnType: config.Store.DataColumnType,
		},
		logger,
		config.Logger.Level == "debug",
	)
}

func initCoreServices(
	config *models.Config,
	repo internalrepositories.SessionRepository,
	logger models.Logger,
	eventBus models.EventBus,
	collectors *internalmetrics.Collectors,
) (*coreservices.CoreServices, error) {
	codec, err := internalcodec.New(config.Store.Codec)
	if err != nil {
		return nil, err
	}

	sessionService := internalservices.NewSessionService(internalservices.SessionServiceDeps{
		Repo:        repo,
		Codec:       codec,
		Logger:      logger,
		EventBus:    eventBus,
		Metrics:     collectors,
		MaxDataSize: config.Store.MaxDataSize,
	})

	return &coreservices.CoreServices{
		SessionService: sessionService,
	}, nil
}

func runAutoMigrate(ctx context.Context, store *Store) error {
	if !store.Config.Store.AutoMigrate {
		return nil
	}
	return store.CreateTable(ctx)
}
