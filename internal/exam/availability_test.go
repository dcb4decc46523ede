package exam

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

func publishedDef() *model.ExamDefinition {
	return &model.ExamDefinition{
		ID:     uuid.New(),
		Status: model.ExamStatusPublished,
	}
}

func finishedAttempt(at time.Time, passed bool) model.ExamAttempt {
	return model.ExamAttempt{
		Status:     model.AttemptStatusCompleted,
		FinishedAt: &at,
		Result:     &model.ExamResult{Passed: passed},
	}
}

func TestCheckAvailabilityNotPublished(t *testing.T) {
	def := publishedDef()
	def.Status = model.ExamStatusDraft

	got := CheckAvailability(def, nil, time.Now())
	if got.Available || got.Reason != ReasonNotPublished {
		t.Errorf("got %+v, want not-published", got)
	}
}

func TestCheckAvailabilityWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	from := now.Add(time.Hour)
	until := now.Add(-time.Hour)

	def := publishedDef()
	def.AvailableFrom = &from
	got := CheckAvailability(def, nil, now)
	if got.Available || got.Reason != ReasonNotYetAvailable {
		t.Errorf("before window: %+v", got)
	}
	if got.RetryAfter == nil || !got.RetryAfter.Equal(from) {
		t.Errorf("retry after = %v, want %v", got.RetryAfter, from)
	}

	def = publishedDef()
	def.AvailableUntil = &until
	got = CheckAvailability(def, nil, now)
	if got.Available || got.Reason != ReasonNoLongerAvailable {
		t.Errorf("after window: %+v", got)
	}
}

// One completed attempt against max_attempts=1 blocks further starts.
func TestCheckAvailabilityMaxAttempts(t *testing.T) {
	now := time.Now()
	one := 1
	def := publishedDef()
	def.MaxAttempts = &one

	prior := []model.ExamAttempt{finishedAttempt(now.Add(-time.Hour), true)}
	got := CheckAvailability(def, prior, now)
	if got.Available {
		t.Fatal("expected unavailable")
	}
	if got.Reason != ReasonMaxAttemptsReached {
		t.Errorf("reason = %q, want %q", got.Reason, ReasonMaxAttemptsReached)
	}
}

func TestCheckAvailabilityIgnoresNonScoredAttempts(t *testing.T) {
	now := time.Now()
	one := 1
	def := publishedDef()
	def.MaxAttempts = &one

	prior := []model.ExamAttempt{
		{Status: model.AttemptStatusAbandoned},
		{Status: model.AttemptStatusInvalidated},
		{Status: model.AttemptStatusInProgress},
	}
	got := CheckAvailability(def, prior, now)
	if !got.Available {
		t.Errorf("abandoned/invalidated/live attempts must not count: %+v", got)
	}
}

func TestCheckAvailabilityRetryDelay(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	delay := 60
	def := publishedDef()
	def.RetryDelayMinutes = &delay

	last := now.Add(-30 * time.Minute)
	got := CheckAvailability(def, []model.ExamAttempt{finishedAttempt(last, true)}, now)
	if got.Available || got.Reason != ReasonRetryDelayNotPassed {
		t.Fatalf("got %+v, want retry-delay block", got)
	}
	wantRetry := last.Add(time.Hour)
	if got.RetryAfter == nil || !got.RetryAfter.Equal(wantRetry) {
		t.Errorf("retry after = %v, want %v", got.RetryAfter, wantRetry)
	}

	got = CheckAvailability(def, []model.ExamAttempt{finishedAttempt(now.Add(-2*time.Hour), true)}, now)
	if !got.Available {
		t.Errorf("delay elapsed, expected available: %+v", got)
	}
}

func TestCheckAvailabilityFailCooldown(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cooldown := 120
	def := publishedDef()
	def.FailCooldownMinutes = &cooldown

	got := CheckAvailability(def, []model.ExamAttempt{finishedAttempt(now.Add(-time.Hour), false)}, now)
	if got.Available || got.Reason != ReasonCooldownNotPassed {
		t.Fatalf("got %+v, want cooldown block", got)
	}

	// A passed attempt triggers no cooldown.
	got = CheckAvailability(def, []model.ExamAttempt{finishedAttempt(now.Add(-time.Hour), true)}, now)
	if !got.Available {
		t.Errorf("pass must not trigger fail cooldown: %+v", got)
	}
}

func TestCheckAvailabilityShortCircuitOrder(t *testing.T) {
	// Both the window and the attempt limit fail; the window check comes
	// first in the ordered evaluation.
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	until := now.Add(-time.Hour)
	one := 1

	def := publishedDef()
	def.AvailableUntil = &until
	def.MaxAttempts = &one

	got := CheckAvailability(def, []model.ExamAttempt{finishedAttempt(now.Add(-2*time.Hour), true)}, now)
	if got.Reason != ReasonNoLongerAvailable {
		t.Errorf("reason = %q, want window failure to short-circuit first", got.Reason)
	}
}
