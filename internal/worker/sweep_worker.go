package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aeroacademy/groundschool-backend/internal/repository"
	"github.com/aeroacademy/groundschool-backend/internal/service"
)

// SweepWorker periodically finalizes attempts whose owner went away: live
// attempts past their deadline become timed_out and are scored, and paused
// attempts past the pause budget become abandoned. Lazy checks on trainee
// requests remain the primary mechanism; the sweep only catches attempts
// nobody touches again.
type SweepWorker struct {
	attemptRepo    *repository.AttemptRepository
	attemptService *service.AttemptService
	interval       time.Duration
	log            zerolog.Logger
}

func NewSweepWorker(attemptRepo *repository.AttemptRepository, attemptService *service.AttemptService, interval time.Duration, log zerolog.Logger) *SweepWorker {
	return &SweepWorker{
		attemptRepo:    attemptRepo,
		attemptService: attemptService,
		interval:       interval,
		log:            log.With().Str("component", "sweep_worker").Logger(),
	}
}

func (w *SweepWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("SweepWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context) {
	now := time.Now()

	expired, err := w.attemptRepo.ListExpiredInProgress(ctx, now)
	if err != nil {
		w.log.Error().Err(err).Msg("list expired attempts")
	}
	overdue, err := w.attemptRepo.ListOverduePaused(ctx, now)
	if err != nil {
		w.log.Error().Err(err).Msg("list overdue paused attempts")
	}

	finalized := 0
	for _, id := range append(expired, overdue...) {
		if err := w.attemptService.FinalizeExpired(ctx, id); err != nil {
			w.log.Error().Err(err).Str("attempt_id", id.String()).Msg("finalize expired attempt")
			continue
		}
		finalized++
	}

	if finalized > 0 {
		w.log.Info().Int("finalized", finalized).Msg("sweep pass complete")
	}
}
