package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aeroacademy/groundschool-backend/internal/config"
	"github.com/aeroacademy/groundschool-backend/internal/model"
	"github.com/aeroacademy/groundschool-backend/internal/repository"
)

// ProctorService records proctoring signals. The engine only records;
// enforcement and review live outside this service. Events flow through a
// Redis queue to the proctor worker for batched persistence, and are
// mirrored to a PubSub channel examiners can watch live.
type ProctorService struct {
	attemptRepo *repository.AttemptRepository
	eventRepo   *repository.ProctorEventRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewProctorService creates a new ProctorService.
func NewProctorService(
	attemptRepo *repository.AttemptRepository,
	eventRepo *repository.ProctorEventRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ProctorService {
	return &ProctorService{
		attemptRepo: attemptRepo,
		eventRepo:   eventRepo,
		rdb:         rdb,
		log:         log,
	}
}

// RecordEvent enqueues one proctor event for an attempt the trainee owns.
func (s *ProctorService) RecordEvent(ctx context.Context, attemptID uuid.UUID, userID int, eventType model.ProctorEventType, detail string) error {
	a, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if a.UserID != userID {
		return ErrNotAttemptOwner
	}

	ev := model.ProctorEvent{
		AttemptID:  attemptID,
		UserID:     userID,
		Type:       eventType,
		Detail:     detail,
		OccurredAt: time.Now(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal proctor event: %w", err)
	}

	if err := s.rdb.LPush(ctx, config.WorkerKey.ProctorEventsQueue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue proctor event: %w", err)
	}

	// Best effort live mirror; persistence does not depend on it.
	channel := config.CacheKey.ExamProctorChannel(a.ExamID.String())
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		s.log.Debug().Err(err).Str("channel", channel).Msg("publish proctor event")
	}
	return nil
}

// ListByAttempt returns the persisted events for examiner review.
func (s *ProctorService) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.ProctorEvent, error) {
	return s.eventRepo.ListByAttempt(ctx, attemptID)
}
