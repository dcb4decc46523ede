package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates the states of one test-taking session.
// in_progress and paused are live; the rest are terminal, except that
// submitted always resolves into completed once scoring finishes.
type AttemptStatus string

const (
	AttemptStatusInProgress  AttemptStatus = "in_progress"
	AttemptStatusPaused      AttemptStatus = "paused"
	AttemptStatusSubmitted   AttemptStatus = "submitted"
	AttemptStatusCompleted   AttemptStatus = "completed"
	AttemptStatusAbandoned   AttemptStatus = "abandoned"
	AttemptStatusInvalidated AttemptStatus = "invalidated"
	AttemptStatusTimedOut    AttemptStatus = "timed_out"
)

// Terminal reports whether the status permits no further trainee activity.
func (s AttemptStatus) Terminal() bool {
	switch s {
	case AttemptStatusSubmitted, AttemptStatusCompleted, AttemptStatusAbandoned,
		AttemptStatusInvalidated, AttemptStatusTimedOut:
		return true
	}
	return false
}

// QuestionSnapshot pins one selected question to an attempt. The snapshot is
// immutable once the attempt starts; pool edits never alter a live attempt.
type QuestionSnapshot struct {
	QuestionID uuid.UUID `json:"question_id"`
	Order      int       `json:"order"`
	Points     float64   `json:"points"`
	OptionIDs  []string  `json:"option_ids,omitempty"` // shuffled display order
}

// AnswerRecord is the trainee's current answer to one question. It is
// overwritten on every save while the attempt is live and frozen at submit.
type AnswerRecord struct {
	Payload          json.RawMessage `json:"payload"`
	TimeSpentSeconds int             `json:"time_spent_seconds"`
	Flagged          bool            `json:"flagged"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ExamAttempt is one test-taking session by one trainee against one exam.
type ExamAttempt struct {
	ID            uuid.UUID     `json:"id"`
	ExamID        uuid.UUID     `json:"exam_id"`
	UserID        int           `json:"user_id"`
	AttemptNumber int           `json:"attempt_number"`
	Status        AttemptStatus `json:"status"`

	Snapshot []QuestionSnapshot         `json:"snapshot"`
	Answers  map[uuid.UUID]AnswerRecord `json:"answers"`

	// Time accounting. ElapsedSeconds accumulates closed work sessions;
	// the open session (if any) runs from SessionStartedAt. Deadline is
	// derived at start/resume, never recomputed from scratch.
	ElapsedSeconds    int        `json:"elapsed_seconds"`
	SessionStartedAt  *time.Time `json:"session_started_at,omitempty"`
	PausedAt          *time.Time `json:"paused_at,omitempty"`
	PauseCount        int        `json:"pause_count"`
	PauseSecondsTotal int        `json:"pause_seconds_total"`
	Deadline          *time.Time `json:"deadline,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`

	InvalidatedReason string `json:"invalidated_reason,omitempty"`
	InvalidatedBy     *int   `json:"invalidated_by,omitempty"`

	Result *ExamResult `json:"result,omitempty"`

	// Version guards concurrent writers; every persisted mutation bumps it.
	Version int `json:"-"`
}

// TotalPoints sums the snapshot's point values.
func (a *ExamAttempt) TotalPoints() float64 {
	var total float64
	for _, s := range a.Snapshot {
		total += s.Points
	}
	return total
}

// ProgressPercentage is the share of snapshot questions with a saved answer.
// Flag-only records carry no payload and do not count.
func (a *ExamAttempt) ProgressPercentage() float64 {
	if len(a.Snapshot) == 0 {
		return 0
	}
	answered := 0
	for _, rec := range a.Answers {
		if len(rec.Payload) > 0 {
			answered++
		}
	}
	return float64(answered) / float64(len(a.Snapshot)) * 100
}

// CategoryScore is the per-category subtotal within one attempt.
type CategoryScore struct {
	Category       string  `json:"category"`
	Correct        int     `json:"correct"`
	Incorrect      int     `json:"incorrect"`
	Total          int     `json:"total"`
	PointsEarned   float64 `json:"points_earned"`
	PointsPossible float64 `json:"points_possible"`
	Percentage     float64 `json:"percentage"`
}

// QuestionResult is the scored outcome of one question within an attempt.
// CorrectAnswer and Explanation are populated only when the exam definition
// allows revealing them.
type QuestionResult struct {
	QuestionID    uuid.UUID       `json:"question_id"`
	Order         int             `json:"order"`
	Category      string          `json:"category"`
	Answered      bool            `json:"answered"`
	Correct       bool            `json:"correct"`
	PartialScore  float64         `json:"partial_score,omitempty"`
	PointsEarned  float64         `json:"points_earned"`
	PointsMax     float64         `json:"points_max"`
	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
}

// ExamResult is the final scored outcome of one attempt.
type ExamResult struct {
	EarnedPoints    float64 `json:"earned_points"`
	TotalPoints     float64 `json:"total_points"`
	ScorePercentage float64 `json:"score_percentage"`
	// OriginalScore preserves the engine-computed percentage when an
	// administrative override adjusts ScorePercentage afterwards.
	OriginalScore float64 `json:"original_score"`
	Grade         string  `json:"grade"`
	Passed        bool    `json:"passed"`

	CorrectCount    int `json:"correct_count"`
	IncorrectCount  int `json:"incorrect_count"`
	PartialCount    int `json:"partial_count"`
	UnansweredCount int `json:"unanswered_count"`

	CategoryBreakdown []CategoryScore  `json:"category_breakdown,omitempty"`
	Questions         []QuestionResult `json:"questions,omitempty"`

	DurationSeconds int `json:"duration_seconds"`
}

// SaveAnswerRequest is the payload for saving or overwriting one answer.
type SaveAnswerRequest struct {
	Answer           json.RawMessage `json:"answer" binding:"required"`
	TimeSpentSeconds int             `json:"time_spent_seconds" binding:"omitempty,min=0"`
	Flagged          *bool           `json:"flagged" binding:"omitempty"`
}

// StartAttemptRequest is the payload for starting an attempt.
type StartAttemptRequest struct {
	AccessCode string `json:"access_code" binding:"omitempty,max=32"`
}

// InvalidateAttemptRequest is the payload for administratively voiding an attempt.
type InvalidateAttemptRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// Availability is the outcome of the pre-start eligibility check.
type Availability struct {
	Available  bool       `json:"available"`
	Reason     string     `json:"reason,omitempty"`
	RetryAfter *time.Time `json:"retry_after,omitempty"`
}

// AttemptSummary is the trainee-facing view returned by startAttempt.
type AttemptSummary struct {
	AttemptID     uuid.UUID            `json:"attempt_id"`
	AttemptNumber int                  `json:"attempt_number"`
	Deadline      *time.Time           `json:"deadline,omitempty"`
	Questions     []QuestionForTrainee `json:"questions"`
	AllowPause    bool                 `json:"allow_pause"`
	AllowSkip     bool                 `json:"allow_skip"`
}
