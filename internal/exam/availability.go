package exam

import (
	"time"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

// Availability reasons reported to the caller. Machine-readable; the HTTP
// layer maps them to error codes.
const (
	ReasonNotPublished        = "Exam is not published"
	ReasonNotYetAvailable     = "Exam is not yet available"
	ReasonNoLongerAvailable   = "Exam is no longer available"
	ReasonMaxAttemptsReached  = "Maximum attempts reached"
	ReasonRetryDelayNotPassed = "Retry delay has not elapsed"
	ReasonCooldownNotPassed   = "Cooldown after failed attempt has not elapsed"
)

// CheckAvailability decides whether a trainee may start a new attempt.
// Checks run in order and the first failure short-circuits with a specific
// reason plus, where applicable, a retry-after timestamp. Prior attempts
// must belong to this trainee and exam; only scored terminal attempts
// (completed, timed_out) count against limits; invalidated and abandoned
// attempts never do.
func CheckAvailability(def *model.ExamDefinition, prior []model.ExamAttempt, now time.Time) model.Availability {
	if def.Status != model.ExamStatusPublished {
		return model.Availability{Reason: ReasonNotPublished}
	}
	if def.AvailableFrom != nil && now.Before(*def.AvailableFrom) {
		return model.Availability{Reason: ReasonNotYetAvailable, RetryAfter: def.AvailableFrom}
	}
	if def.AvailableUntil != nil && now.After(*def.AvailableUntil) {
		return model.Availability{Reason: ReasonNoLongerAvailable}
	}

	var (
		counted       int
		lastCompleted *time.Time
		lastFailed    *time.Time
	)
	for i := range prior {
		a := &prior[i]
		switch a.Status {
		case model.AttemptStatusCompleted, model.AttemptStatusTimedOut:
		default:
			continue
		}
		counted++
		if a.FinishedAt == nil {
			continue
		}
		if lastCompleted == nil || a.FinishedAt.After(*lastCompleted) {
			lastCompleted = a.FinishedAt
		}
		if a.Result != nil && !a.Result.Passed {
			if lastFailed == nil || a.FinishedAt.After(*lastFailed) {
				lastFailed = a.FinishedAt
			}
		}
	}

	if def.MaxAttempts != nil && counted >= *def.MaxAttempts {
		return model.Availability{Reason: ReasonMaxAttemptsReached}
	}

	if def.RetryDelayMinutes != nil && lastCompleted != nil {
		retryAt := lastCompleted.Add(time.Duration(*def.RetryDelayMinutes) * time.Minute)
		if now.Before(retryAt) {
			return model.Availability{Reason: ReasonRetryDelayNotPassed, RetryAfter: &retryAt}
		}
	}

	if def.FailCooldownMinutes != nil && lastFailed != nil {
		retryAt := lastFailed.Add(time.Duration(*def.FailCooldownMinutes) * time.Minute)
		if now.Before(retryAt) {
			return model.Availability{Reason: ReasonCooldownNotPassed, RetryAfter: &retryAt}
		}
	}

	return model.Availability{Available: true}
}
