package exam

import (
	"math"
	"testing"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

func TestApplyUsageCounters(t *testing.T) {
	var stats model.QuestionStats

	stats = ApplyUsage(stats, UsageEvent{Answered: true, Correct: true, TimeSpentSeconds: 30, SelectedOptions: []string{"a"}})
	stats = ApplyUsage(stats, UsageEvent{Answered: true, Correct: false, TimeSpentSeconds: 50, SelectedOptions: []string{"b"}})
	stats = ApplyUsage(stats, UsageEvent{Answered: false})

	if stats.TimesAsked != 3 {
		t.Errorf("TimesAsked = %d, want 3", stats.TimesAsked)
	}
	if stats.TimesCorrect != 1 {
		t.Errorf("TimesCorrect = %d, want 1", stats.TimesCorrect)
	}
	if stats.TimesSkipped != 1 {
		t.Errorf("TimesSkipped = %d, want 1", stats.TimesSkipped)
	}
	if want := 100.0 / 3.0; math.Abs(stats.SuccessRate-want) > 1e-9 {
		t.Errorf("SuccessRate = %v, want %v", stats.SuccessRate, want)
	}
	// Average over the two answered responses only.
	if stats.AvgTimeSeconds != 40 {
		t.Errorf("AvgTimeSeconds = %v, want 40", stats.AvgTimeSeconds)
	}
	if stats.OptionCounts["a"] != 1 || stats.OptionCounts["b"] != 1 {
		t.Errorf("OptionCounts = %v, want a:1 b:1", stats.OptionCounts)
	}
}

func TestApplyUsageSkipDoesNotMoveTimeAverage(t *testing.T) {
	stats := ApplyUsage(model.QuestionStats{}, UsageEvent{Answered: true, Correct: true, TimeSpentSeconds: 20})
	stats = ApplyUsage(stats, UsageEvent{Answered: false})

	if stats.AvgTimeSeconds != 20 {
		t.Errorf("AvgTimeSeconds = %v, want 20 after a skip", stats.AvgTimeSeconds)
	}
}

func TestApplyUsageDifficultyHeldUntilSample(t *testing.T) {
	var stats model.QuestionStats

	// Nine responses: difficulty stays at its initial value.
	for i := 0; i < 9; i++ {
		stats = ApplyUsage(stats, UsageEvent{Answered: true, Correct: i%3 == 0})
	}
	if stats.DifficultyScore != 0 {
		t.Fatalf("DifficultyScore re-estimated at %d responses: %v", stats.TimesAsked, stats.DifficultyScore)
	}

	// The tenth response crosses the sample threshold.
	stats = ApplyUsage(stats, UsageEvent{Answered: true, Correct: false})
	if stats.TimesAsked != 10 {
		t.Fatalf("TimesAsked = %d, want 10", stats.TimesAsked)
	}
	want := 100 - stats.SuccessRate
	if math.Abs(stats.DifficultyScore-want) > 1e-9 {
		t.Errorf("DifficultyScore = %v, want %v", stats.DifficultyScore, want)
	}
	if stats.DifficultyScore <= 0 {
		t.Errorf("question answered correctly 3/10 times should score as hard, got %v", stats.DifficultyScore)
	}
}

func TestApplyAttemptRunningAverages(t *testing.T) {
	var stats model.ExamStats

	stats = ApplyAttempt(stats, AttemptEvent{Passed: true, ScorePercentage: 90, DurationSeconds: 600})
	stats = ApplyAttempt(stats, AttemptEvent{Passed: false, ScorePercentage: 50, DurationSeconds: 1200})
	stats = ApplyAttempt(stats, AttemptEvent{Passed: true, ScorePercentage: 70, DurationSeconds: 900})

	if stats.TotalAttempts != 3 {
		t.Errorf("TotalAttempts = %d, want 3", stats.TotalAttempts)
	}
	if stats.TotalPasses != 2 {
		t.Errorf("TotalPasses = %d, want 2", stats.TotalPasses)
	}
	if math.Abs(stats.AvgScore-70) > 1e-9 {
		t.Errorf("AvgScore = %v, want 70", stats.AvgScore)
	}
	if math.Abs(stats.AvgDurationSeconds-900) > 1e-9 {
		t.Errorf("AvgDurationSeconds = %v, want 900", stats.AvgDurationSeconds)
	}
}
