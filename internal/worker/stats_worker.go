package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aeroacademy/groundschool-backend/internal/config"
	"github.com/aeroacademy/groundschool-backend/internal/exam"
	"github.com/aeroacademy/groundschool-backend/internal/repository"
)

const (
	statsPollTimeout = 1 * time.Second
	statsMaxRequeues = 3
)

// StatsWorker consumes completed-attempt events and folds them into the
// question and exam statistics rows. Each fold runs under a row lock, so
// concurrent workers compose; the producer side guarantees exactly one event
// per completed attempt.
type StatsWorker struct {
	questionRepo *repository.QuestionRepository
	examRepo     *repository.ExamRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

func NewStatsWorker(questionRepo *repository.QuestionRepository, examRepo *repository.ExamRepository, rdb *redis.Client, log zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		questionRepo: questionRepo,
		examRepo:     examRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "stats_worker").Logger(),
	}
}

type statsEnvelope struct {
	exam.AttemptEvent
	Requeues int `json:"requeues,omitempty"`
}

func (w *StatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatsWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Draining stats queue...")
			w.drain(context.Background())
			return

		default:
			item, err := w.rdb.BLPop(ctx, statsPollTimeout, config.WorkerKey.AttemptEventsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}
			w.handle(ctx, []byte(item[1]))
		}
	}
}

// drain applies whatever is left in the queue without blocking.
func (w *StatsWorker) drain(ctx context.Context) {
	for {
		item, err := w.rdb.LPop(ctx, config.WorkerKey.AttemptEventsQueue).Result()
		if err != nil {
			return
		}
		w.handle(ctx, []byte(item))
	}
}

func (w *StatsWorker) handle(ctx context.Context, raw []byte) {
	var env statsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}

	if err := w.apply(ctx, &env.AttemptEvent); err != nil {
		w.log.Error().Err(err).
			Str("attempt_id", env.AttemptID.String()).
			Int("requeues", env.Requeues).
			Msg("apply attempt event failed")
		w.requeue(ctx, &env)
		return
	}

	w.log.Debug().
		Str("attempt_id", env.AttemptID.String()).
		Int("usage_events", len(env.Usage)).
		Msg("attempt event applied")
}

func (w *StatsWorker) apply(ctx context.Context, ev *exam.AttemptEvent) error {
	for _, usage := range ev.Usage {
		if err := w.questionRepo.ApplyUsage(ctx, usage.QuestionID, usage); err != nil {
			return err
		}
	}
	return w.examRepo.ApplyAttempt(ctx, ev.ExamID, *ev)
}

// requeue puts a failed event back at the queue tail a bounded number of
// times. Question folds are not idempotent, so a replayed event can count a
// question twice; bounded retries keep that window small and log loudly.
func (w *StatsWorker) requeue(ctx context.Context, env *statsEnvelope) {
	if env.Requeues >= statsMaxRequeues {
		w.log.Error().
			Str("attempt_id", env.AttemptID.String()).
			Msg("attempt event dropped after max requeues")
		return
	}
	env.Requeues++
	raw, err := json.Marshal(env)
	if err != nil {
		return
	}
	w.rdb.RPush(ctx, config.WorkerKey.AttemptEventsQueue, raw)
}
