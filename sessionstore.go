// Package sessionstore keeps HTTP session data in a relational table, one row
// per session identifier, with the mapping serialized into a configurable
// data column.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"

	storeconfig "github.com/GoBetterAuth/session-store/config"
	internalbootstrap "github.com/GoBetterAuth/session-store/internal/bootstrap"
	"github.com/GoBetterAuth/session-store/internal/handlers"
	"github.com/GoBetterAuth/session-store/internal/middleware"
	internalmigrations "github.com/GoBetterAuth/session-store/internal/migrations"
	internalrepositories "github.com/GoBetterAuth/session-store/internal/repositories"
	"github.com/GoBetterAuth/session-store/internal/security"
	"github.com/GoBetterAuth/session-store/models"
	coreservices "github.com/GoBetterAuth/session-store/services"
)

// ---------------------------------
// INITIALISATION
// ---------------------------------

type Store struct {
	Config *models.Config

	db       *bun.DB
	ownsDB   bool
	provider string
	logger   models.Logger
	eventBus models.EventBus
	ownsBus  bool
	registry *prometheus.Registry

	repo     internalrepositories.SessionRepository
	services *coreservices.CoreServices
	migrator *internalmigrations.Migrator
	ids      security.SessionIDGenerator
}

type Option func(*Store)

// WithDB uses an existing connection. The store does not close it.
func WithDB(db *bun.DB) Option {
	return func(s *Store) {
		s.db = db
	}
}

func WithLogger(logger models.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithEventBus publishes lifecycle events on bus. The store does not close it.
func WithEventBus(bus models.EventBus) Option {
	return func(s *Store) {
		s.eventBus = bus
	}
}

// WithRegistry registers the store metrics on registry instead of a private one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(s *Store) {
		s.registry = registry
	}
}

// New builds a store from config. A nil config selects the defaults.
func New(config *models.Config, opts ...Option) (*Store, error) {
	if config == nil {
		config = storeconfig.NewConfig()
	}
	if err := storeconfig.Validate(config); err != nil {
		return nil, err
	}

	store := &Store{Config: config}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.init(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	if s.logger == nil {
		s.logger = InitLogger(s.Config)
	}

	if s.db == nil {
		db, err := InitDatabase(s.Config)
		if err != nil {
			return err
		}
		s.db = db
		s.ownsDB = true
	}

	provider, err := internalbootstrap.ProviderOf(s.db)
	if err != nil {
		return err
	}
	s.provider = provider

	collectors, registry, err := initMetrics(s.Config, s.registry)
	if err != nil {
		return err
	}
	s.registry = registry

	if s.eventBus == nil {
		bus, err := InitEventBus(s.Config, s.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize event bus: %w", err)
		}
		s.eventBus = bus
		s.ownsBus = bus != nil
	}

	s.repo = internalrepositories.NewBunSessionRepository(s.db, s.Config.Store.DataColumn)

	s.services, err = initCoreServices(s.Config, s.repo, s.logger, s.eventBus, collectors)
	if err != nil {
		return err
	}

	s.migrator, err = initMigrator(s.Config, s.db, s.provider, s.logger)
	if err != nil {
		return err
	}

	s.ids = security.NewSessionIDGenerator(s.Config.Store.HashSessionIDs)

	return runAutoMigrate(context.Background(), s)
}

// Close releases the connection and event bus opened by New.
func (s *Store) Close() error {
	var errs []error
	if s.ownsBus && s.eventBus != nil {
		errs = append(errs, s.eventBus.Close())
	}
	if s.ownsDB && s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// ---------------------------------
// SESSIONS
// ---------------------------------

// NewSession builds an unsaved record for sessionID bound to the store codec.
func (s *Store) NewSession(sessionID string) *models.Session {
	return s.services.SessionService.New(sessionID)
}

// FindBySessionID returns the record stored under sessionID, or nil when
// there is none. The data column is decoded on first access.
func (s *Store) FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.services.SessionService.FindBySessionID(ctx, sessionID)
}

// Save writes the record. Records loaded from storage whose data was never
// read are left untouched. Data that does not fit the data column yields a
// *models.SessionDataOverflowError.
func (s *Store) Save(ctx context.Context, session *models.Session) error {
	return s.services.SessionService.Save(ctx, session)
}

func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	return s.services.SessionService.Destroy(ctx, sessionID)
}

// DataColumnLimit returns the byte capacity enforced by Save, 0 when unbounded.
func (s *Store) DataColumnLimit(ctx context.Context) (int, error) {
	return s.services.SessionService.DataColumnLimit(ctx)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// StorageKey maps a cookie value to the identifier stored in session_id.
func (s *Store) StorageKey(cookieValue string) string {
	return s.ids.StorageKey(cookieValue)
}

// ---------------------------------
// MIGRATIONS
// ---------------------------------

// CreateTable creates the sessions table with the configured data column.
// It is a no-op when the migration has already been applied.
func (s *Store) CreateTable(ctx context.Context) error {
	return s.migrator.Up(ctx)
}

func (s *Store) DropTable(ctx context.Context) error {
	return s.migrator.Down(ctx)
}

func (s *Store) TableExists(ctx context.Context) (bool, error) {
	return s.repo.TableExists(ctx)
}

func (s *Store) MigrationStatus(ctx context.Context) ([]models.MigrationStatus, error) {
	return s.migrator.Status(ctx)
}

// ---------------------------------
// HTTP
// ---------------------------------

// Middleware loads the session named by the request cookie and saves it
// once the wrapped handler returns.
func (s *Store) Middleware() func(http.Handler) http.Handler {
	return middleware.Session(s.services.SessionService, middleware.SessionOptions{
		Cookie: s.Config.Cookie,
		IDs:    s.ids,
		Logger: s.logger,
	})
}

// MetricsHandler serves the store metrics, or nil when metrics are disabled.
func (s *Store) MetricsHandler() http.Handler {
	if s.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Handler returns the standalone HTTP surface: the session routes, health
// check and metrics.
func (s *Store) Handler() http.Handler {
	return handlers.NewRouter(handlers.RouterOptions{
		DB:                s.db,
		SessionMiddleware: s.Middleware(),
		MetricsPath:       s.Config.Metrics.Path,
		MetricsHandler:    s.MetricsHandler(),
	})
}

func (s *Store) EventBus() models.EventBus {
	return s.eventBus
}

func (s *Store) DB() *bun.DB {
	return s.db
}

// FromContext returns the session loaded by Middleware for the request.
func FromContext(ctx context.Context) (*models.Session, bool) {
	return middleware.SessionFromContext(ctx)
}

// Reset discards the request's session and issues a fresh identifier. The
// old row is deleted once the fresh session has been saved.
func Reset(r *http.Request) error {
	return middleware.Reset(r)
}
