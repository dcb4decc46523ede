package model

import (
	"time"

	"github.com/google/uuid"
)

// ProctorEventType enumerates recorded proctoring signals. The engine only
// records events; enforcement and review live outside this service.
type ProctorEventType string

const (
	ProctorEventTabBlur    ProctorEventType = "TAB_BLUR"
	ProctorEventTabFocus   ProctorEventType = "TAB_FOCUS"
	ProctorEventFullscreen ProctorEventType = "FULLSCREEN_EXIT"
	ProctorEventCopyPaste  ProctorEventType = "COPY_PASTE"
	ProctorEventDisconnect ProctorEventType = "DISCONNECT"
)

// ProctorEvent is one recorded proctoring signal tied to an attempt.
type ProctorEvent struct {
	ID         int64            `json:"id"`
	AttemptID  uuid.UUID        `json:"attempt_id"`
	UserID     int              `json:"user_id"`
	Type       ProctorEventType `json:"type"`
	Detail     string           `json:"detail,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
