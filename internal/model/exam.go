package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the lifecycle states of an exam definition.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// SelectionMode enumerates the question-selection algorithms.
type SelectionMode string

const (
	SelectionModeFixed          SelectionMode = "fixed"
	SelectionModeRandom         SelectionMode = "random"
	SelectionModeWeightedRandom SelectionMode = "weighted_random"
)

// PassingPolicy enumerates how pass/fail is decided.
type PassingPolicy string

const (
	PassingPolicyPercentage PassingPolicy = "percentage"
	PassingPolicyPoints     PassingPolicy = "points"
	PassingPolicyCategory   PassingPolicy = "category"
)

// SelectionRule describes one draw from the question pool for random and
// weighted-random selection modes.
type SelectionRule struct {
	Category    string      `json:"category" binding:"required"`
	Count       int         `json:"count" binding:"required,min=1"`
	Difficulty  *Difficulty `json:"difficulty,omitempty" binding:"omitempty,oneof=easy medium hard"`
	Subcategory *string     `json:"subcategory,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// ExamDefinition is the static configuration of one exam: selection,
// timing, pause budget, attempt limits, passing criteria, and display flags.
type ExamDefinition struct {
	ID       uuid.UUID  `json:"id"`
	AuthorID int        `json:"author_id"`
	Title    string     `json:"title"`
	Status   ExamStatus `json:"status"`

	SelectionMode    SelectionMode   `json:"selection_mode"`
	FixedQuestionIDs []uuid.UUID     `json:"fixed_question_ids,omitempty"`
	SelectionRules   []SelectionRule `json:"selection_rules,omitempty"`
	TotalQuestions   int             `json:"total_questions"`

	RandomizeQuestions bool `json:"randomize_questions"`
	RandomizeOptions   bool `json:"randomize_options"`

	TimeLimitMinutes *int `json:"time_limit_minutes,omitempty"`
	AllowPause       bool `json:"allow_pause"`
	MaxPauseCount    int  `json:"max_pause_count"`
	MaxPauseMinutes  int  `json:"max_pause_minutes"`

	MaxAttempts         *int       `json:"max_attempts,omitempty"`
	RetryDelayMinutes   *int       `json:"retry_delay_minutes,omitempty"`
	FailCooldownMinutes *int       `json:"fail_cooldown_minutes,omitempty"`
	AvailableFrom       *time.Time `json:"available_from,omitempty"`
	AvailableUntil      *time.Time `json:"available_until,omitempty"`

	PassingPolicy    PassingPolicy      `json:"passing_policy"`
	PassingScore     float64            `json:"passing_score"`
	CategoryMinimums map[string]float64 `json:"category_minimums,omitempty"`

	AllowSkip       bool `json:"allow_skip"`
	AllowReview     bool `json:"allow_review"`
	ForceSequential bool `json:"force_sequential"`

	ShowCorrectAnswers    bool `json:"show_correct_answers"`
	ShowExplanation       bool `json:"show_explanation"`
	ShowCategoryBreakdown bool `json:"show_category_breakdown"`

	// AccessCodeHash is a bcrypt hash of an optional exam access code.
	// Empty means no code is required. Never serialized to clients.
	AccessCodeHash string `json:"-"`

	Stats     ExamStats `json:"stats"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimeLimit returns the exam's time limit as a duration, or zero if untimed.
func (d *ExamDefinition) TimeLimit() time.Duration {
	if d.TimeLimitMinutes == nil {
		return 0
	}
	return time.Duration(*d.TimeLimitMinutes) * time.Minute
}

// MaxPauseDuration returns the cumulative pause budget, or zero if unbounded.
func (d *ExamDefinition) MaxPauseDuration() time.Duration {
	return time.Duration(d.MaxPauseMinutes) * time.Minute
}

// ExamStats holds rolling aggregates over completed attempts of one exam.
type ExamStats struct {
	TotalAttempts      int     `json:"total_attempts"`
	TotalPasses        int     `json:"total_passes"`
	AvgScore           float64 `json:"avg_score"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
}

// CreateExamRequest is the payload for creating a new exam definition.
type CreateExamRequest struct {
	Title            string          `json:"title" binding:"required,min=3,max=255"`
	SelectionMode    SelectionMode   `json:"selection_mode" binding:"required,oneof=fixed random weighted_random"`
	FixedQuestionIDs []uuid.UUID     `json:"fixed_question_ids" binding:"omitempty"`
	SelectionRules   []SelectionRule `json:"selection_rules" binding:"omitempty,dive"`
	TotalQuestions   int             `json:"total_questions" binding:"required,min=1"`

	RandomizeQuestions bool `json:"randomize_questions"`
	RandomizeOptions   bool `json:"randomize_options"`

	TimeLimitMinutes *int `json:"time_limit_minutes" binding:"omitempty,min=1,max=480"`
	AllowPause       bool `json:"allow_pause"`
	MaxPauseCount    int  `json:"max_pause_count" binding:"omitempty,min=0,max=20"`
	MaxPauseMinutes  int  `json:"max_pause_minutes" binding:"omitempty,min=0,max=480"`

	MaxAttempts         *int       `json:"max_attempts" binding:"omitempty,min=1"`
	RetryDelayMinutes   *int       `json:"retry_delay_minutes" binding:"omitempty,min=1"`
	FailCooldownMinutes *int       `json:"fail_cooldown_minutes" binding:"omitempty,min=1"`
	AvailableFrom       *time.Time `json:"available_from" binding:"omitempty"`
	AvailableUntil      *time.Time `json:"available_until" binding:"omitempty,gtfield=AvailableFrom"`

	PassingPolicy    PassingPolicy      `json:"passing_policy" binding:"required,oneof=percentage points category"`
	PassingScore     float64            `json:"passing_score" binding:"omitempty,min=0"`
	CategoryMinimums map[string]float64 `json:"category_minimums" binding:"omitempty"`

	AllowSkip       bool `json:"allow_skip"`
	AllowReview     bool `json:"allow_review"`
	ForceSequential bool `json:"force_sequential"`

	ShowCorrectAnswers    bool `json:"show_correct_answers"`
	ShowExplanation       bool `json:"show_explanation"`
	ShowCategoryBreakdown bool `json:"show_category_breakdown"`

	AccessCode string `json:"access_code" binding:"omitempty,min=4,max=32"`
}
