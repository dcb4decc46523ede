package exam

import (
	"time"

	"github.com/google/uuid"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

// The attempt state machine lives here as pure functions over
// model.ExamAttempt with an explicit clock. Callers (the service layer)
// decide when to persist the mutated attempt; nothing in this file touches
// storage. All time-based transitions are evaluated lazily on the next call
// rather than by a background timer, so a stale attempt is only finalized
// when touched or swept.

// NewAttempt creates an in-progress attempt over an immutable question
// snapshot. The deadline is derived once, here or at resume, never
// recomputed from scratch.
func NewAttempt(def *model.ExamDefinition, userID, attemptNumber int, snapshot []model.QuestionSnapshot, now time.Time) *model.ExamAttempt {
	a := &model.ExamAttempt{
		ID:               uuid.New(),
		ExamID:           def.ID,
		UserID:           userID,
		AttemptNumber:    attemptNumber,
		Status:           model.AttemptStatusInProgress,
		Snapshot:         snapshot,
		Answers:          make(map[uuid.UUID]model.AnswerRecord),
		StartedAt:        now,
		SessionStartedAt: &now,
		Version:          1,
	}
	if limit := def.TimeLimit(); limit > 0 {
		deadline := now.Add(limit)
		a.Deadline = &deadline
	}
	return a
}

// RemainingTime reports the time left on the attempt's clock. The second
// return is false when the exam is untimed. While paused the clock is
// stopped, so remaining time is derived from accumulated elapsed seconds.
func RemainingTime(a *model.ExamAttempt, def *model.ExamDefinition, now time.Time) (time.Duration, bool) {
	limit := def.TimeLimit()
	if limit <= 0 {
		return 0, false
	}

	var remaining time.Duration
	switch a.Status {
	case model.AttemptStatusInProgress:
		if a.Deadline != nil {
			remaining = a.Deadline.Sub(now)
		} else {
			remaining = limit - openElapsed(a, now)
		}
	case model.AttemptStatusPaused:
		remaining = limit - time.Duration(a.ElapsedSeconds)*time.Second
	default:
		remaining = 0
	}

	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// openElapsed is accumulated elapsed time plus the open session, if any.
func openElapsed(a *model.ExamAttempt, now time.Time) time.Duration {
	elapsed := time.Duration(a.ElapsedSeconds) * time.Second
	if a.SessionStartedAt != nil {
		elapsed += now.Sub(*a.SessionStartedAt)
	}
	return elapsed
}

// EnsureLive lazily enforces the time limit: if an in-progress attempt's
// clock has run out, it is force-transitioned to timed_out and
// ErrTimeExceeded is returned. The caller must persist the mutation and then
// score the attempt with whatever answers exist.
func EnsureLive(a *model.ExamAttempt, def *model.ExamDefinition, now time.Time) error {
	if a.Status != model.AttemptStatusInProgress {
		return nil
	}
	remaining, limited := RemainingTime(a, def, now)
	if limited && remaining <= 0 {
		ForceTimeout(a, def, now)
		return ErrTimeExceeded
	}
	return nil
}

// ForceTimeout transitions an attempt to timed_out, capping elapsed time at
// the limit. It is then scored identically to a submission.
func ForceTimeout(a *model.ExamAttempt, def *model.ExamDefinition, now time.Time) {
	closeSession(a, now)
	if limit := def.TimeLimit(); limit > 0 {
		if max := int(limit / time.Second); a.ElapsedSeconds > max {
			a.ElapsedSeconds = max
		}
	}
	a.Status = model.AttemptStatusTimedOut
	a.SubmittedAt = &now
}

// Pause stops the attempt's clock. Fails with ErrPauseNotAllowed when the
// definition forbids pausing or the pause count budget is spent.
func Pause(a *model.ExamAttempt, def *model.ExamDefinition, now time.Time) error {
	if a.Status != model.AttemptStatusInProgress {
		return ErrAttemptNotActive
	}
	if err := EnsureLive(a, def, now); err != nil {
		return err
	}
	if !def.AllowPause {
		return ErrPauseNotAllowed
	}
	if def.MaxPauseCount > 0 && a.PauseCount >= def.MaxPauseCount {
		return ErrPauseNotAllowed
	}

	closeSession(a, now)
	a.PauseCount++
	a.PausedAt = &now
	a.Deadline = nil // clock stopped; re-derived at resume
	a.Status = model.AttemptStatusPaused
	return nil
}

// Resume restarts the clock after a pause. If the pause overran the
// cumulative budget the attempt is force-transitioned to abandoned and
// ErrPauseExpired is returned; the caller must persist that transition.
func Resume(a *model.ExamAttempt, def *model.ExamDefinition, now time.Time) error {
	if a.Status != model.AttemptStatusPaused {
		return ErrAttemptNotPaused
	}

	var pauseDur time.Duration
	if a.PausedAt != nil {
		pauseDur = now.Sub(*a.PausedAt)
	}
	if budget := def.MaxPauseDuration(); budget > 0 {
		total := time.Duration(a.PauseSecondsTotal)*time.Second + pauseDur
		if total > budget {
			a.Status = model.AttemptStatusAbandoned
			a.FinishedAt = &now
			return ErrPauseExpired
		}
	}

	a.PauseSecondsTotal += int(pauseDur / time.Second)
	a.PausedAt = nil
	a.SessionStartedAt = &now
	if limit := def.TimeLimit(); limit > 0 {
		deadline := now.Add(limit - time.Duration(a.ElapsedSeconds)*time.Second)
		a.Deadline = &deadline
	}
	a.Status = model.AttemptStatusInProgress
	return nil
}

// SaveAnswer upserts the answer record for a question after the lazy time
// check. The record is overwritten wholesale on every save while live and
// frozen once the attempt leaves in_progress for good.
func SaveAnswer(a *model.ExamAttempt, def *model.ExamDefinition, questionID uuid.UUID, rec model.AnswerRecord, now time.Time) error {
	if a.Status != model.AttemptStatusInProgress {
		return ErrAttemptNotActive
	}
	if err := EnsureLive(a, def, now); err != nil {
		return err
	}
	if !inSnapshot(a, questionID) {
		return ErrQuestionNotInAttempt
	}

	rec.UpdatedAt = now
	a.Answers[questionID] = rec
	return nil
}

// FlagQuestion toggles the review flag on a question, creating an empty
// answer record if none exists yet.
func FlagQuestion(a *model.ExamAttempt, def *model.ExamDefinition, questionID uuid.UUID, flagged bool, now time.Time) error {
	if a.Status != model.AttemptStatusInProgress {
		return ErrAttemptNotActive
	}
	if err := EnsureLive(a, def, now); err != nil {
		return err
	}
	if !inSnapshot(a, questionID) {
		return ErrQuestionNotInAttempt
	}

	rec := a.Answers[questionID]
	rec.Flagged = flagged
	rec.UpdatedAt = now
	a.Answers[questionID] = rec
	return nil
}

// BeginSubmit finalizes elapsed time and moves the attempt to submitted.
// Valid from in_progress or paused; terminal states fail with
// ErrAlreadySubmitted and no mutation.
func BeginSubmit(a *model.ExamAttempt, def *model.ExamDefinition, now time.Time) error {
	switch a.Status {
	case model.AttemptStatusInProgress, model.AttemptStatusPaused:
	default:
		return ErrAlreadySubmitted
	}

	closeSession(a, now)
	if limit := def.TimeLimit(); limit > 0 {
		if max := int(limit / time.Second); a.ElapsedSeconds > max {
			a.ElapsedSeconds = max
		}
	}
	a.PausedAt = nil
	a.Deadline = nil
	a.Status = model.AttemptStatusSubmitted
	a.SubmittedAt = &now
	return nil
}

// Complete records the scored result. Submission always resolves through
// submitted into completed; timed_out attempts are completed-in-place by
// keeping their status while still carrying a result.
func Complete(a *model.ExamAttempt, result *model.ExamResult, now time.Time) {
	a.Result = result
	a.FinishedAt = &now
	if a.Status == model.AttemptStatusSubmitted {
		a.Status = model.AttemptStatusCompleted
	}
}

// Invalidate administratively voids an attempt from any non-completed state.
// Invalidated attempts are excluded from statistics.
func Invalidate(a *model.ExamAttempt, reason string, reviewerID int, now time.Time) error {
	if a.Status == model.AttemptStatusCompleted {
		return ErrAttemptCompleted
	}
	a.Status = model.AttemptStatusInvalidated
	a.InvalidatedReason = reason
	a.InvalidatedBy = &reviewerID
	a.FinishedAt = &now
	return nil
}

// closeSession rolls the open work session into the elapsed counter.
func closeSession(a *model.ExamAttempt, now time.Time) {
	if a.SessionStartedAt != nil {
		a.ElapsedSeconds += int(now.Sub(*a.SessionStartedAt) / time.Second)
		a.SessionStartedAt = nil
	}
}

func inSnapshot(a *model.ExamAttempt, questionID uuid.UUID) bool {
	for _, s := range a.Snapshot {
		if s.QuestionID == questionID {
			return true
		}
	}
	return false
}
