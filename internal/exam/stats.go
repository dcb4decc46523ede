package exam

import (
	"time"

	"github.com/google/uuid"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

// difficultyMinSample is the response count below which the difficulty
// score is left untouched; small samples re-estimate too noisily.
const difficultyMinSample = 10

// ApplyUsage folds one usage event into a question's rolling statistics.
// Pure increment/merge semantics so concurrent completions compose: callers
// serialize application per question row (the stats worker holds a row
// lock), and events are emitted exactly once per completed attempt.
func ApplyUsage(stats model.QuestionStats, ev UsageEvent) model.QuestionStats {
	stats.TimesAsked++
	if !ev.Answered {
		stats.TimesSkipped++
	} else if ev.Correct {
		stats.TimesCorrect++
	}

	stats.SuccessRate = float64(stats.TimesCorrect) / float64(stats.TimesAsked) * 100

	if ev.Answered && ev.TimeSpentSeconds > 0 {
		n := float64(stats.TimesAsked - stats.TimesSkipped)
		stats.AvgTimeSeconds = (stats.AvgTimeSeconds*(n-1) + float64(ev.TimeSpentSeconds)) / n
	}

	if len(ev.SelectedOptions) > 0 {
		if stats.OptionCounts == nil {
			stats.OptionCounts = make(map[string]int, len(ev.SelectedOptions))
		}
		for _, id := range ev.SelectedOptions {
			stats.OptionCounts[id]++
		}
	}

	if stats.TimesAsked >= difficultyMinSample {
		stats.DifficultyScore = 100 - stats.SuccessRate
	}

	return stats
}

// AttemptEvent is the completed-attempt fact published to the statistics
// aggregator and reporting consumers. Emitted exactly once, guarded by the
// attempt's terminal-state transition.
type AttemptEvent struct {
	AttemptID       uuid.UUID          `json:"attempt_id"`
	ExamID          uuid.UUID          `json:"exam_id"`
	UserID          int                `json:"user_id"`
	Passed          bool               `json:"passed"`
	ScorePercentage float64            `json:"score_percentage"`
	CategoryScores  map[string]float64 `json:"category_scores,omitempty"`
	DurationSeconds int                `json:"duration_seconds"`
	CompletedAt     time.Time          `json:"completed_at"`
	Usage           []UsageEvent       `json:"usage"`
}

// ApplyAttempt folds one completed attempt into an exam's rolling
// aggregates using the running-average formula.
func ApplyAttempt(stats model.ExamStats, ev AttemptEvent) model.ExamStats {
	stats.TotalAttempts++
	if ev.Passed {
		stats.TotalPasses++
	}
	n := float64(stats.TotalAttempts)
	stats.AvgScore = (stats.AvgScore*(n-1) + ev.ScorePercentage) / n
	stats.AvgDurationSeconds = (stats.AvgDurationSeconds*(n-1) + float64(ev.DurationSeconds)) / n
	return stats
}
