package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aeroacademy/groundschool-backend/internal/config"
	"github.com/aeroacademy/groundschool-backend/internal/database"
	"github.com/aeroacademy/groundschool-backend/internal/handler"
	"github.com/aeroacademy/groundschool-backend/internal/logger"
	"github.com/aeroacademy/groundschool-backend/internal/repository"
	"github.com/aeroacademy/groundschool-backend/internal/router"
	"github.com/aeroacademy/groundschool-backend/internal/service"
	"github.com/aeroacademy/groundschool-backend/internal/validator"
	"github.com/aeroacademy/groundschool-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting GroundSchool Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	proctorEventRepo := repository.NewProctorEventRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo, rdb)
	questionService := service.NewQuestionService(questionRepo, logger.Component(log, "question_service"))
	examService := service.NewExamService(examRepo, questionRepo, authService, rdb, logger.Component(log, "exam_service"))
	attemptService := service.NewAttemptService(attemptRepo, examRepo, questionRepo, rdb, logger.Component(log, "attempt_service"))
	proctorService := service.NewProctorService(attemptRepo, proctorEventRepo, rdb, logger.Component(log, "proctor_service"))

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Attempt:  handler.NewAttemptHandler(attemptService),
		Exam:     handler.NewExamHandler(examService, attemptService),
		Question: handler.NewQuestionHandler(questionService),
		Proctor:  handler.NewProctorHandler(proctorService),
		WS:       handler.NewWSHandler(rdb, attemptService, proctorService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	statsWorker := worker.NewStatsWorker(questionRepo, examRepo, rdb, log)
	proctorWorker := worker.NewProctorWorker(proctorEventRepo, rdb, log)
	sweepWorker := worker.NewSweepWorker(attemptRepo, attemptService, cfg.SweepInterval, log)

	go statsWorker.Start(workerCtx)
	go proctorWorker.Start(workerCtx)
	go sweepWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
