package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GoBetterAuth/session-store/events"
	"github.com/GoBetterAuth/session-store/internal/metrics"
	"github.com/GoBetterAuth/session-store/internal/repositories"
	"github.com/GoBetterAuth/session-store/internal/util"
	"github.com/GoBetterAuth/session-store/models"
	"github.com/GoBetterAuth/session-store/services"
)

type SessionServiceDeps struct {
	Repo     repositories.SessionRepository
	Codec    models.Codec
	Logger   models.Logger
	EventBus models.EventBus
	Metrics  *metrics.Collectors
	// MaxDataSize replaces the introspected column capacity when positive.
	MaxDataSize int
}

type sessionService struct {
	repo        repositories.SessionRepository
	codec       models.Codec
	logger      models.Logger
	eventBus    models.EventBus
	metrics     *metrics.Collectors
	maxDataSize int

	limitMu    sync.Mutex
	limit      int
	limitKnown bool
}

func NewSessionService(deps SessionServiceDeps) services.SessionService {
	logger := deps.Logger
	if logger == nil {
		logger = util.NewMockLogger()
	}
	return &sessionService{
		repo:        deps.Repo,
		codec:       deps.Codec,
		logger:      logger,
		eventBus:    deps.EventBus,
		metrics:     deps.Metrics,
		maxDataSize: deps.MaxDataSize,
	}
}

func (s *sessionService) New(sessionID string) *models.Session {
	return models.NewSession(sessionID, s.binding())
}

func (s *sessionService) FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		s.metrics.ObserveLookup(metrics.ResultError)
		return nil, err
	}
	if session == nil {
		s.metrics.ObserveLookup(metrics.ResultNotFound)
		return nil, nil
	}

	s.metrics.ObserveLookup(metrics.ResultFound)
	session.Bind(s.binding())
	return session, nil
}

func (s *sessionService) Save(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}

	if !session.IsNew() && !session.Loaded() {
		s.metrics.ObserveSave(metrics.ResultSkipped)
		return nil
	}

	if err := s.prepare(ctx, session); err != nil {
		var overflow *models.SessionDataOverflowError
		if errors.As(err, &overflow) {
			s.metrics.ObserveSave(metrics.ResultOverflow)
			s.logger.Warn("session data exceeds column capacity",
				"id", session.ID,
				"bytes", overflow.Size,
				"limit", overflow.Limit,
			)
			s.publish(events.EventSessionOverflow, models.SessionEventPayload{
				ID:    session.ID,
				Bytes: overflow.Size,
				Limit: overflow.Limit,
			})
		} else {
			s.metrics.ObserveSave(metrics.ResultError)
		}
		return err
	}

	eventType := events.EventSessionUpdated
	result := metrics.ResultUpdated
	if session.IsNew() {
		if _, err := s.repo.Create(ctx, session); err != nil {
			s.metrics.ObserveSave(metrics.ResultError)
			return err
		}
		eventType = events.EventSessionCreated
		result = metrics.ResultCreated
	} else {
		if _, err := s.repo.Update(ctx, session); err != nil {
			s.metrics.ObserveSave(metrics.ResultError)
			return err
		}
	}

	s.metrics.ObserveSave(result)
	s.metrics.ObserveBlob(len(session.RawData))
	s.publish(eventType, models.SessionEventPayload{
		ID:    session.ID,
		Bytes: len(session.RawData),
	})
	return nil
}

func (s *sessionService) Destroy(ctx context.Context, sessionID string) error {
	if err := s.repo.DeleteBySessionID(ctx, sessionID); err != nil {
		return err
	}
	s.publish(events.EventSessionDestroyed, models.SessionEventPayload{})
	return nil
}

func (s *sessionService) DataColumnLimit(ctx context.Context) (int, error) {
	if s.maxDataSize > 0 {
		return s.maxDataSize, nil
	}

	s.limitMu.Lock()
	defer s.limitMu.Unlock()

	if s.limitKnown {
		return s.limit, nil
	}

	limit, err := s.repo.DataColumnLimit(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read data column capacity: %w", err)
	}
	s.limit = limit
	s.limitKnown = true
	return limit, nil
}

// prepare runs right before a write. Only a loaded mapping is serialized and
// measured; RawData is replaced only once the candidate fits the column.
func (s *sessionService) prepare(ctx context.Context, session *models.Session) error {
	if !session.Loaded() {
		return nil
	}

	candidate, err := s.codec.Marshal(session.Data())
	if err != nil {
		return fmt.Errorf("failed to serialize session data: %w", err)
	}

	limit, err := s.DataColumnLimit(ctx)
	if err != nil {
		return err
	}
	if limit > 0 && len(candidate) > limit {
		return &models.SessionDataOverflowError{
			ID:    session.ID,
			Size:  len(candidate),
			Limit: limit,
		}
	}

	session.RawData = candidate
	return nil
}

func (s *sessionService) binding() models.SessionBinding {
	return models.SessionBinding{
		Codec:  s.codec,
		Logger: s.logger,
		OnCorrupt: func(*models.Session, error) {
			s.metrics.ObserveCorrupt()
		},
	}
}

func (s *sessionService) publish(eventType string, payload models.SessionEventPayload) {
	if s.eventBus == nil {
		return
	}
	event, err := util.NewEvent(eventType, payload)
	if err != nil {
		s.logger.Error("failed to build session event", "event_type", eventType, "error", err)
		return
	}
	util.PublishEventAsync(s.eventBus, s.logger, event)
}
