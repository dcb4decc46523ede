package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aeroacademy/groundschool-backend/internal/config"
	"github.com/aeroacademy/groundschool-backend/internal/model"
	"github.com/aeroacademy/groundschool-backend/internal/repository"
)

const (
	proctorBatchSize    = 100
	proctorBatchTimeout = 2 * time.Second
	proctorPollTimeout  = 1 * time.Second
)

// ProctorWorker consumes proctor events from the Redis queue and persists
// them in batches. Events are append-only facts, so a replay on failure is
// harmless.
type ProctorWorker struct {
	eventRepo *repository.ProctorEventRepository
	rdb       *redis.Client
	log       zerolog.Logger
}

func NewProctorWorker(eventRepo *repository.ProctorEventRepository, rdb *redis.Client, log zerolog.Logger) *ProctorWorker {
	return &ProctorWorker{
		eventRepo: eventRepo,
		rdb:       rdb,
		log:       log.With().Str("component", "proctor_worker").Logger(),
	}
}

func (w *ProctorWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProctorWorker started")

	batch := make([]model.ProctorEvent, 0, proctorBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= proctorBatchSize || time.Since(lastFlush) >= proctorBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, proctorPollTimeout, config.WorkerKey.ProctorEventsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var ev model.ProctorEvent
			if err := json.Unmarshal([]byte(item[1]), &ev); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			batch = append(batch, ev)
		}
	}
}

func (w *ProctorWorker) flushSafe(ctx context.Context, batch []model.ProctorEvent) {
	if len(batch) == 0 {
		return
	}

	if err := w.eventRepo.InsertBatch(ctx, batch); err != nil {
		w.log.Error().Err(err).Int("events", len(batch)).Msg("batch insert failed, requeueing")
		for _, ev := range batch {
			raw, _ := json.Marshal(ev)
			w.rdb.RPush(ctx, config.WorkerKey.ProctorEventsQueue, raw)
		}
		return
	}

	w.log.Debug().Int("events", len(batch)).Msg("proctor events persisted")
}
