package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "single_choice"
	QuestionTypeMultiSelect  QuestionType = "multi_select"
	QuestionTypeTrueFalse    QuestionType = "true_false"
	QuestionTypeFillBlank    QuestionType = "fill_blank"
	QuestionTypeMatching     QuestionType = "matching"
	QuestionTypeOrdering     QuestionType = "ordering"
	QuestionTypeShortAnswer  QuestionType = "short_answer"
)

// Difficulty enumerates coarse difficulty levels used by selection rules.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Option is one selectable choice within a question. Matching and ordering
// questions also use options as their left-hand items.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is a catalog item from the question pool. The engine treats the
// pool as read-only apart from rolling usage statistics.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	Category      string          `json:"category"`
	Subcategory   string          `json:"subcategory,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	Type          QuestionType    `json:"type"`
	Prompt        string          `json:"prompt"`
	Options       []Option        `json:"options"`
	AnswerKey     json.RawMessage `json:"answer_key,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
	Points        float64         `json:"points"`
	PartialCredit bool            `json:"partial_credit"`
	Difficulty    Difficulty      `json:"difficulty"`
	Active        bool            `json:"active"`
	Approved      bool            `json:"approved"`
	Stats         QuestionStats   `json:"stats"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// QuestionStats holds rolling usage statistics for one question.
// All fields compose through increment/merge semantics; see exam.ApplyUsage.
type QuestionStats struct {
	TimesAsked      int            `json:"times_asked"`
	TimesCorrect    int            `json:"times_correct"`
	TimesSkipped    int            `json:"times_skipped"`
	SuccessRate     float64        `json:"success_rate"`
	AvgTimeSeconds  float64        `json:"avg_time_seconds"`
	OptionCounts    map[string]int `json:"option_counts,omitempty"`
	DifficultyScore float64        `json:"difficulty_score"`
}

// QuestionRequest is the payload for creating or updating a pool question.
type QuestionRequest struct {
	Category      string          `json:"category" binding:"required,min=2,max=100"`
	Subcategory   string          `json:"subcategory" binding:"omitempty,max=100"`
	Tags          []string        `json:"tags" binding:"omitempty,dive,min=1"`
	Type          QuestionType    `json:"type" binding:"required,oneof=single_choice multi_select true_false fill_blank matching ordering short_answer"`
	Prompt        string          `json:"prompt" binding:"required,min=3"`
	Options       []Option        `json:"options" binding:"omitempty,dive"`
	AnswerKey     json.RawMessage `json:"answer_key" binding:"required"`
	Explanation   string          `json:"explanation"`
	Points        float64         `json:"points" binding:"omitempty,min=0"`
	PartialCredit bool            `json:"partial_credit"`
	Difficulty    Difficulty      `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

// ToQuestion materializes the request as a pool question. Zero points
// defaults to 1 and an unset difficulty to medium.
func (r *QuestionRequest) ToQuestion() *Question {
	q := &Question{
		Category:      r.Category,
		Subcategory:   r.Subcategory,
		Tags:          r.Tags,
		Type:          r.Type,
		Prompt:        r.Prompt,
		Options:       r.Options,
		AnswerKey:     r.AnswerKey,
		Explanation:   r.Explanation,
		Points:        r.Points,
		PartialCredit: r.PartialCredit,
		Difficulty:    r.Difficulty,
		Active:        true,
		Approved:      true,
	}
	if q.Points == 0 {
		q.Points = 1
	}
	if q.Difficulty == "" {
		q.Difficulty = DifficultyMedium
	}
	return q
}

// QuestionForTrainee is a question stripped of the answer key and
// explanation, sent to the test-taker at attempt start.
type QuestionForTrainee struct {
	ID            uuid.UUID    `json:"id"`
	Order         int          `json:"order"`
	Type          QuestionType `json:"type"`
	Category      string       `json:"category"`
	Prompt        string       `json:"prompt"`
	Options       []Option     `json:"options"`
	Points        float64      `json:"points"`
	PartialCredit bool         `json:"partial_credit"`
}
