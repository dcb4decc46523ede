package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/aeroacademy/groundschool-backend/internal/config"
	"github.com/aeroacademy/groundschool-backend/internal/handler"
	"github.com/aeroacademy/groundschool-backend/internal/middleware"
	"github.com/aeroacademy/groundschool-backend/internal/model"
	"github.com/aeroacademy/groundschool-backend/internal/response"
	"github.com/aeroacademy/groundschool-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Attempt  *handler.AttemptHandler
	Exam     *handler.ExamHandler
	Question *handler.QuestionHandler
	Proctor  *handler.ProctorHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireTraineeJWT(authService), handlers.Auth.Logout)
		auth.GET("/trainee/me", middleware.RequireTraineeJWT(authService), handlers.Auth.Me)
		auth.GET("/examiner/me", middleware.RequireExaminerJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Trainee Group (JWT + Single Device) ────────────────────────
	traineeAPI := router.Group("/api/v1")
	traineeAPI.Use(
		middleware.RequireTraineeJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		// Published exam catalog; short client cache keeps list loads cheap.
		traineeAPI.GET("/catalog", middleware.CacheControl(60), handlers.Exam.ListPublished)

		traineeAPI.GET("/exams/:id/availability", handlers.Attempt.CheckAvailability)
		traineeAPI.POST("/exams/:id/attempts", handlers.Attempt.StartAttempt)

		traineeAPI.GET("/attempts/:id", handlers.Attempt.GetPaper)
		traineeAPI.PUT("/attempts/:id/answers/:questionId", handlers.Attempt.SaveAnswer)
		traineeAPI.POST("/attempts/:id/questions/:questionId/flag", handlers.Attempt.FlagQuestion)
		traineeAPI.POST("/attempts/:id/pause", handlers.Attempt.PauseAttempt)
		traineeAPI.POST("/attempts/:id/resume", handlers.Attempt.ResumeAttempt)
		traineeAPI.POST("/attempts/:id/submit", handlers.Attempt.SubmitAttempt)
		traineeAPI.GET("/attempts/:id/results", handlers.Attempt.GetResults)
		traineeAPI.POST("/attempts/:id/events", handlers.Proctor.RecordEvent)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/attempts/:id/stream",
			middleware.RequireWSAuth(authService, service.TokenTypeTrainee),
			handlers.WS.AttemptStream,
		)
		ws.GET("/exams/:id/monitor",
			middleware.RequireWSAuth(authService, service.TokenTypeExaminer),
			handlers.WS.ExamMonitor,
		)
	}

	// ─── 4. Examiner Group (JWT + RBAC) ────────────────────────────────
	examinerAPI := router.Group("/api/v1/examiner")
	examinerAPI.Use(middleware.RequireExaminerJWT(authService))
	{
		// Question pool management
		examinerAPI.GET("/questions",
			middleware.RequirePermission(string(model.PermissionQuestionsRead)),
			handlers.Question.List,
		)
		examinerAPI.GET("/questions/:id",
			middleware.RequirePermission(string(model.PermissionQuestionsRead)),
			handlers.Question.Get,
		)
		examinerAPI.POST("/questions",
			middleware.RequirePermission(string(model.PermissionQuestionsWrite)),
			handlers.Question.Create,
		)
		examinerAPI.PUT("/questions/:id",
			middleware.RequirePermission(string(model.PermissionQuestionsWrite)),
			handlers.Question.Update,
		)
		examinerAPI.DELETE("/questions/:id",
			middleware.RequirePermission(string(model.PermissionQuestionsWrite)),
			handlers.Question.Retire,
		)

		// Exam definition lifecycle
		examinerAPI.GET("/exams",
			middleware.RequirePermission(string(model.PermissionExamsRead)),
			handlers.Exam.List,
		)
		examinerAPI.POST("/exams",
			middleware.RequirePermission(string(model.PermissionExamsWrite)),
			handlers.Exam.Create,
		)
		examinerAPI.GET("/exams/:id",
			middleware.RequirePermission(string(model.PermissionExamsRead)),
			handlers.Exam.Get,
		)
		examinerAPI.PUT("/exams/:id",
			middleware.RequirePermission(string(model.PermissionExamsWrite)),
			handlers.Exam.Update,
		)
		examinerAPI.DELETE("/exams/:id",
			middleware.RequirePermission(string(model.PermissionExamsWrite)),
			handlers.Exam.Delete,
		)
		examinerAPI.POST("/exams/:id/publish",
			middleware.RequirePermission(string(model.PermissionExamsPublish)),
			handlers.Exam.Publish,
		)
		examinerAPI.POST("/exams/:id/archive",
			middleware.RequirePermission(string(model.PermissionExamsPublish)),
			handlers.Exam.Archive,
		)
		examinerAPI.GET("/exams/:id/stats",
			middleware.RequirePermission(string(model.PermissionExamsRead)),
			handlers.Exam.Stats,
		)
		examinerAPI.GET("/exams/:id/attempts",
			middleware.RequirePermission(string(model.PermissionAttemptsRead)),
			handlers.Exam.ListAttempts,
		)

		// Attempt review
		examinerAPI.POST("/attempts/:id/invalidate",
			middleware.RequirePermission(string(model.PermissionAttemptsInvalidate)),
			handlers.Exam.InvalidateAttempt,
		)
		examinerAPI.GET("/attempts/:id/events",
			middleware.RequireAnyPermission(
				string(model.PermissionAttemptsRead),
				string(model.PermissionExamsMonitor),
			),
			handlers.Proctor.ListEvents,
		)
	}

	return router
}
