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

// ProctorHandler handles the HTTP fallback for recording proctor events
// and the examiner review listing. The WebSocket stream is the primary
// path for trainee clients.
type ProctorHandler struct {
	proctorService *service.ProctorService
}

// NewProctorHandler creates a new ProctorHandler.
func NewProctorHandler(proctorService *service.ProctorService) *ProctorHandler {
	return &ProctorHandler{proctorService: proctorService}
}

// RecordEvent godoc
// POST /api/v1/attempts/:id/events
func (h *ProctorHandler) RecordEvent(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req struct {
		Type   model.ProctorEventType `json:"type" binding:"required,oneof=TAB_BLUR TAB_FOCUS FULLSCREEN_EXIT COPY_PASTE DISCONNECT"`
		Detail string                 `json:"detail" binding:"omitempty,max=500"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.proctorService.RecordEvent(c.Request.Context(), attemptID, claims.UserID, req.Type, req.Detail); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotAttemptOwner):
			response.Fail(c, http.StatusForbidden, response.ErrNotAttemptOwner)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"recorded": true})
}

// ListEvents godoc
// GET /api/v1/attempts/:id/events
func (h *ProctorHandler) ListEvents(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	events, err := h.proctorService.ListByAttempt(c.Request.Context(), attemptID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, events)
}
