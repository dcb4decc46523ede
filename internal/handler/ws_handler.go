package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aeroacademy/groundschool-backend/internal/config"
	"github.com/aeroacademy/groundschool-backend/internal/middleware"
	"github.com/aeroacademy/groundschool-backend/internal/model"
	"github.com/aeroacademy/groundschool-backend/internal/service"
	ws "github.com/aeroacademy/groundschool-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the trainee proctor stream and the examiner live monitor.
type WSHandler struct {
	rdb            *redis.Client
	attemptService *service.AttemptService
	proctorService *service.ProctorService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, attemptService *service.AttemptService, proctorService *service.ProctorService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:            rdb,
		attemptService: attemptService,
		proctorService: proctorService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:id/stream
// Upgrades to WebSocket for proctor event reporting and timer checks.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	// Ownership check before upgrading; Clock does not mutate the attempt.
	if _, _, err := h.attemptService.Clock(c.Request.Context(), attemptID, claims.UserID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "attempt not accessible"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Trainee connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			h.recordDisconnect(attemptID, claims.UserID)
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionReport:
			h.handleReport(c, conn, wsLog, attemptID, claims.UserID, raw)
		case ws.ActionClock:
			h.handleClock(c, conn, attemptID, claims.UserID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		}
	}
}

func (h *WSHandler) handleReport(c *gin.Context, conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID, userID int, raw []byte) {
	var req ws.ReportRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.Type == "" {
		ws.WriteError(conn, "type is required")
		return
	}

	if err := h.proctorService.RecordEvent(c.Request.Context(), attemptID, userID, req.Type, req.Detail); err != nil {
		wsLog.Error().Err(err).Msg("Record proctor event error")
		ws.WriteError(conn, "record failed")
		return
	}
	ws.WriteTyped(conn, ws.AckResponse{Event: ws.EventAck})
}

func (h *WSHandler) handleClock(c *gin.Context, conn *websocket.Conn, attemptID uuid.UUID, userID int) {
	status, remaining, err := h.attemptService.Clock(c.Request.Context(), attemptID, userID)
	if err != nil {
		ws.WriteError(conn, "clock check failed")
		return
	}
	ws.WriteTyped(conn, ws.ClockResponse{
		Event:            ws.EventClock,
		Status:           string(status),
		RemainingSeconds: remaining,
	})
}

// recordDisconnect logs an abrupt connection loss as a proctor signal so
// examiners can distinguish network drops from tab switching.
func (h *WSHandler) recordDisconnect(attemptID uuid.UUID, userID int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.proctorService.RecordEvent(ctx, attemptID, userID, model.ProctorEventDisconnect, "websocket closed"); err != nil {
		h.log.Debug().Err(err).Msg("record disconnect event")
	}
}

// ExamMonitor godoc
// WS /ws/v1/exams/:id/monitor
// Streams proctor events for one exam to an examiner in real time.
func (h *WSHandler) ExamMonitor(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	channel := config.CacheKey.ExamProctorChannel(examID.String())
	sub := h.rdb.Subscribe(c.Request.Context(), channel)
	defer sub.Close()

	wsLog := h.log.With().
		Int("examiner_id", claims.UserID).
		Str("exam_id", examID.String()).
		Logger()
	wsLog.Info().Msg("Examiner monitoring")

	// Drain the client side so closes are noticed; examiners only listen.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Close()
				return
			}
		}
	}()

	for msg := range sub.Channel() {
		var ev model.ProctorEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			wsLog.Debug().Err(err).Msg("skip malformed proctor payload")
			continue
		}
		if err := ws.WriteTyped(conn, ws.ProctorBroadcast{Event: ws.EventProctor, Payload: ev}); err != nil {
			wsLog.Debug().Msg("Monitor disconnected")
			return
		}
	}
}
