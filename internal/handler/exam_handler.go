package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aeroacademy/groundschool-backend/internal/middleware"
	"github.com/aeroacademy/groundschool-backend/internal/model"
	"github.com/aeroacademy/groundschool-backend/internal/response"
	"github.com/aeroacademy/groundschool-backend/internal/service"
	"github.com/aeroacademy/groundschool-backend/internal/validator"
)

// ExamHandler handles examiner-facing exam definition endpoints plus the
// trainee catalog listing.
type ExamHandler struct {
	examService    *service.ExamService
	attemptService *service.AttemptService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, attemptService *service.AttemptService) *ExamHandler {
	return &ExamHandler{examService: examService, attemptService: attemptService}
}

func failExamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotExamAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrExamNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrExamNotDraft)
	case errors.Is(err, service.ErrBadSelection):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInsufficientPool)
	case errors.Is(err, service.ErrCategoryMinimumsRequired):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// Create godoc
// POST /api/v1/exams
func (h *ExamHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	def, err := h.examService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failExamError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, def)
}

// List godoc
// GET /api/v1/exams
func (h *ExamHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	defs, err := h.examService.ListByAuthor(c.Request.Context(), claims.UserID)
	if err != nil {
		failExamError(c, err)
		return
	}
	response.Success(c, http.StatusOK, defs)
}

// ListPublished godoc
// GET /api/v1/catalog
func (h *ExamHandler) ListPublished(c *gin.Context) {
	defs, err := h.examService.ListPublished(c.Request.Context())
	if err != nil {
		failExamError(c, err)
		return
	}
	response.Success(c, http.StatusOK, defs)
}

// Get godoc
// GET /api/v1/exams/:id
func (h *ExamHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	def, err := h.examService.GetByID(c.Request.Context(), id)
	if err != nil {
		failExamError(c, err)
		return
	}
	response.Success(c, http.StatusOK, def)
}

// Update godoc
// PUT /api/v1/exams/:id
func (h *ExamHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	def, err := h.examService.Update(c.Request.Context(), id, claims.UserID, &req)
	if err != nil {
		failExamError(c, err)
		return
	}
	response.Success(c, http.StatusOK, def)
}

// Delete godoc
// DELETE /api/v1/exams/:id
func (h *ExamHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Delete(c.Request.Context(), id, claims.UserID); err != nil {
		failExamError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Publish godoc
// POST /api/v1/exams/:id/publish
func (h *ExamHandler) Publish(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	def, err := h.examService.Publish(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failExamError(c, err)
		return
	}
	response.Success(c, http.StatusOK, def)
}

// Archive godoc
// POST /api/v1/exams/:id/archive
func (h *ExamHandler) Archive(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Archive(c.Request.Context(), id, claims.UserID); err != nil {
		failExamError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": model.ExamStatusArchived})
}

// Stats godoc
// GET /api/v1/exams/:id/stats
func (h *ExamHandler) Stats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	stats, err := h.examService.Stats(c.Request.Context(), id)
	if err != nil {
		failExamError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// ListAttempts godoc
// GET /api/v1/exams/:id/attempts
func (h *ExamHandler) ListAttempts(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempts, err := h.attemptService.ListByExam(c.Request.Context(), id)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, attempts)
}

// InvalidateAttempt godoc
// POST /api/v1/attempts/:id/invalidate
func (h *ExamHandler) InvalidateAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.InvalidateAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.InvalidateAttempt(c.Request.Context(), attemptID, claims.UserID, req.Reason); err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": model.AttemptStatusInvalidated})
}
