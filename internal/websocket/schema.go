package websocket

import "github.com/aeroacademy/groundschool-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionReport Action = "report"
	ActionPing   Action = "ping"
	ActionClock  Action = "clock"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ReportRequest is sent by the trainee client to record a proctor signal.
type ReportRequest struct {
	Action Action                 `json:"action"`
	Type   model.ProctorEventType `json:"type"`
	Detail string                 `json:"detail,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventAck     Event = "ack"
	EventPong    Event = "pong"
	EventClock   Event = "clock"
	EventProctor Event = "proctor"
)

// AckResponse confirms a recorded proctor signal.
type AckResponse struct {
	Event Event `json:"event"`
}

// ClockResponse reports the server-side view of the attempt timer.
// RemainingSeconds is nil for untimed exams.
type ClockResponse struct {
	Event            Event  `json:"event"`
	Status           string `json:"status"`
	RemainingSeconds *int   `json:"remaining_seconds"`
}

// ProctorBroadcast forwards one recorded signal to examiner monitors.
type ProctorBroadcast struct {
	Event   Event              `json:"event"`
	Payload model.ProctorEvent `json:"payload"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
