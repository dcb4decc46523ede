package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aeroacademy/groundschool-backend/internal/exam"
	"github.com/aeroacademy/groundschool-backend/internal/middleware"
	"github.com/aeroacademy/groundschool-backend/internal/model"
	"github.com/aeroacademy/groundschool-backend/internal/response"
	"github.com/aeroacademy/groundschool-backend/internal/service"
	"github.com/aeroacademy/groundschool-backend/internal/validator"
)

// AttemptHandler handles the trainee-facing attempt lifecycle endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// failAttemptError maps lifecycle and availability errors onto the API's
// typed error codes.
func failAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotAttemptOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotAttemptOwner)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrInvalidAccessCode):
		response.Fail(c, http.StatusForbidden, response.ErrInvalidAccessCode)
	case errors.Is(err, service.ErrResultsNotVisible):
		response.Fail(c, http.StatusForbidden, response.ErrResultsNotVisible)
	case errors.Is(err, service.ErrAttemptConflict):
		response.Fail(c, http.StatusConflict, response.ErrAttemptConflict)
	case errors.Is(err, exam.ErrTimeExceeded):
		response.Fail(c, http.StatusConflict, response.ErrTimeExceeded)
	case errors.Is(err, exam.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, exam.ErrAttemptNotActive):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotActive)
	case errors.Is(err, exam.ErrAttemptNotPaused):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotPaused)
	case errors.Is(err, exam.ErrPauseNotAllowed):
		response.Fail(c, http.StatusForbidden, response.ErrPauseNotAllowed)
	case errors.Is(err, exam.ErrPauseExpired):
		response.Fail(c, http.StatusConflict, response.ErrPauseExpired)
	case errors.Is(err, exam.ErrQuestionNotInAttempt):
		response.Fail(c, http.StatusNotFound, response.ErrQuestionNotInScope)
	case errors.Is(err, exam.ErrMalformedAnswer):
		response.Fail(c, http.StatusBadRequest, response.ErrMalformedAnswer)
	case errors.Is(err, exam.ErrInsufficientQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInsufficientPool)
	case errors.Is(err, exam.ErrAttemptCompleted):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// CheckAvailability godoc
// GET /api/v1/exams/:id/availability
func (h *AttemptHandler) CheckAvailability(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	avail, err := h.attemptService.CheckAvailability(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, avail)
}

// StartAttempt godoc
// POST /api/v1/exams/:id/attempts
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.StartAttemptRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	summary, err := h.attemptService.StartAttempt(c.Request.Context(), examID, claims.UserID, &req)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, summary)
}

// GetPaper godoc
// GET /api/v1/attempts/:id
func (h *AttemptHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summary, err := h.attemptService.GetPaper(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// SaveAnswer godoc
// PUT /api/v1/attempts/:id/answers/:questionId
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.SaveAnswer(c.Request.Context(), attemptID, claims.UserID, questionID, &req)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// FlagQuestion godoc
// POST /api/v1/attempts/:id/questions/:questionId/flag
func (h *AttemptHandler) FlagQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req struct {
		Flagged bool `json:"flagged"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.FlagQuestion(c.Request.Context(), attemptID, claims.UserID, questionID, req.Flagged); err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"flagged": req.Flagged})
}

// PauseAttempt godoc
// POST /api/v1/attempts/:id/pause
func (h *AttemptHandler) PauseAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.attemptService.PauseAttempt(c.Request.Context(), attemptID, claims.UserID); err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": model.AttemptStatusPaused})
}

// ResumeAttempt godoc
// POST /api/v1/attempts/:id/resume
func (h *AttemptHandler) ResumeAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.attemptService.ResumeAttempt(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// SubmitAttempt godoc
// POST /api/v1/attempts/:id/submit
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.attemptService.SubmitAttempt(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GetResults godoc
// GET /api/v1/attempts/:id/results
func (h *AttemptHandler) GetResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.attemptService.GetResults(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
