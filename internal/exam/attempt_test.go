package exam

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

func timedDefinition(limitMinutes int) *model.ExamDefinition {
	def := &model.ExamDefinition{
		ID:             uuid.New(),
		Status:         model.ExamStatusPublished,
		TotalQuestions: 2,
		AllowPause:     true,
		MaxPauseCount:  2,
		MaxPauseMinutes: 30,
		PassingPolicy:  model.PassingPolicyPercentage,
		PassingScore:   70,
	}
	if limitMinutes > 0 {
		def.TimeLimitMinutes = &limitMinutes
	}
	return def
}

func snapshotOfTwo() []model.QuestionSnapshot {
	return []model.QuestionSnapshot{
		{QuestionID: uuid.New(), Order: 1, Points: 1},
		{QuestionID: uuid.New(), Order: 2, Points: 1},
	}
}

func TestNewAttemptDerivesDeadline(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	def := timedDefinition(60)

	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)

	if a.Status != model.AttemptStatusInProgress {
		t.Fatalf("status = %s, want in_progress", a.Status)
	}
	if a.Deadline == nil || !a.Deadline.Equal(now.Add(time.Hour)) {
		t.Errorf("deadline = %v, want %v", a.Deadline, now.Add(time.Hour))
	}

	untimed := NewAttempt(timedDefinition(0), 42, 1, snapshotOfTwo(), now)
	if untimed.Deadline != nil {
		t.Error("untimed exam must not have a deadline")
	}
}

func TestSaveAnswerAfterDeadlineTimesOut(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	def := timedDefinition(10)
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)

	// Eleven minutes later the next save must fail and force timed_out.
	late := now.Add(11 * time.Minute)
	err := SaveAnswer(a, def, a.Snapshot[0].QuestionID, model.AnswerRecord{
		Payload: json.RawMessage(`{"option_id":"a"}`),
	}, late)

	if !errors.Is(err, ErrTimeExceeded) {
		t.Fatalf("err = %v, want ErrTimeExceeded", err)
	}
	if a.Status != model.AttemptStatusTimedOut {
		t.Errorf("status = %s, want timed_out", a.Status)
	}
	if len(a.Answers) != 0 {
		t.Error("rejected write must not store an answer")
	}
	if a.ElapsedSeconds != 600 {
		t.Errorf("elapsed = %d, want capped at 600", a.ElapsedSeconds)
	}
}

func TestSaveAnswerWithinDeadline(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	def := timedDefinition(10)
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)
	qid := a.Snapshot[0].QuestionID

	err := SaveAnswer(a, def, qid, model.AnswerRecord{
		Payload:          json.RawMessage(`{"option_id":"b"}`),
		TimeSpentSeconds: 45,
	}, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := a.Answers[qid]; !ok {
		t.Fatal("answer not stored")
	}

	// Overwrite on re-save.
	err = SaveAnswer(a, def, qid, model.AnswerRecord{
		Payload: json.RawMessage(`{"option_id":"c"}`),
	}, now.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(a.Answers[qid].Payload) != `{"option_id":"c"}` {
		t.Error("answer record must be overwritten on re-save")
	}
}

func TestSaveAnswerUnknownQuestion(t *testing.T) {
	now := time.Now()
	def := timedDefinition(10)
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)

	err := SaveAnswer(a, def, uuid.New(), model.AnswerRecord{}, now)
	if !errors.Is(err, ErrQuestionNotInAttempt) {
		t.Errorf("err = %v, want ErrQuestionNotInAttempt", err)
	}
}

func TestFlagWithoutAnswerStaysUnanswered(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	def := timedDefinition(10)
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)
	qid := a.Snapshot[0].QuestionID

	if err := FlagQuestion(a, def, qid, true, now.Add(time.Minute)); err != nil {
		t.Fatalf("flag: %v", err)
	}

	rec, ok := a.Answers[qid]
	if !ok || !rec.Flagged {
		t.Fatal("flag-only record not stored")
	}
	if rec.Payload != nil {
		t.Errorf("flag-only record payload = %q, want none", rec.Payload)
	}
	if got := a.ProgressPercentage(); got != 0 {
		t.Errorf("progress = %v after flag-only record, want 0", got)
	}

	// A real answer moves progress; flagging it again keeps the payload.
	err := SaveAnswer(a, def, qid, model.AnswerRecord{
		Payload: json.RawMessage(`{"option_id":"b"}`),
		Flagged: rec.Flagged,
	}, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := a.ProgressPercentage(); got != 50 {
		t.Errorf("progress = %v, want 50", got)
	}
	if err := FlagQuestion(a, def, qid, false, now.Add(3*time.Minute)); err != nil {
		t.Fatalf("unflag: %v", err)
	}
	if string(a.Answers[qid].Payload) != `{"option_id":"b"}` {
		t.Error("unflagging must keep the saved payload")
	}
}

func TestPauseAndResumeStopTheClock(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	def := timedDefinition(60)
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)

	// Work 10 minutes, pause for 20, resume.
	pauseAt := now.Add(10 * time.Minute)
	if err := Pause(a, def, pauseAt); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if a.Status != model.AttemptStatusPaused || a.PauseCount != 1 {
		t.Fatalf("status=%s pauses=%d after pause", a.Status, a.PauseCount)
	}
	if a.ElapsedSeconds != 600 {
		t.Errorf("elapsed = %d, want 600 after 10 minutes of work", a.ElapsedSeconds)
	}

	resumeAt := pauseAt.Add(20 * time.Minute)
	if err := Resume(a, def, resumeAt); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if a.Status != model.AttemptStatusInProgress {
		t.Fatalf("status = %s after resume", a.Status)
	}
	if a.PauseSecondsTotal != 1200 {
		t.Errorf("pause seconds = %d, want 1200", a.PauseSecondsTotal)
	}

	// 50 minutes of work remain; the deadline reflects the stopped clock.
	wantDeadline := resumeAt.Add(50 * time.Minute)
	if a.Deadline == nil || !a.Deadline.Equal(wantDeadline) {
		t.Errorf("deadline = %v, want %v", a.Deadline, wantDeadline)
	}
	remaining, limited := RemainingTime(a, def, resumeAt)
	if !limited || remaining != 50*time.Minute {
		t.Errorf("remaining = %v, want 50m", remaining)
	}
}

func TestPauseBudgetExhaustion(t *testing.T) {
	now := time.Now()
	def := timedDefinition(60)
	def.MaxPauseCount = 1
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)

	if err := Pause(a, def, now.Add(time.Minute)); err != nil {
		t.Fatalf("first pause: %v", err)
	}
	if err := Resume(a, def, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := Pause(a, def, now.Add(3*time.Minute)); !errors.Is(err, ErrPauseNotAllowed) {
		t.Errorf("second pause err = %v, want ErrPauseNotAllowed", err)
	}
}

func TestPauseForbiddenByPolicy(t *testing.T) {
	now := time.Now()
	def := timedDefinition(60)
	def.AllowPause = false
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)

	if err := Pause(a, def, now); !errors.Is(err, ErrPauseNotAllowed) {
		t.Errorf("err = %v, want ErrPauseNotAllowed", err)
	}
}

// Resuming after the cumulative pause budget has elapsed always yields
// abandoned, never in_progress.
func TestResumeAfterPauseBudgetAbandons(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	def := timedDefinition(60)
	def.MaxPauseMinutes = 15
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)

	if err := Pause(a, def, now.Add(5*time.Minute)); err != nil {
		t.Fatalf("pause: %v", err)
	}

	err := Resume(a, def, now.Add(5*time.Minute).Add(16*time.Minute))
	if !errors.Is(err, ErrPauseExpired) {
		t.Fatalf("err = %v, want ErrPauseExpired", err)
	}
	if a.Status != model.AttemptStatusAbandoned {
		t.Errorf("status = %s, want abandoned", a.Status)
	}
}

func TestResumeRequiresPaused(t *testing.T) {
	now := time.Now()
	def := timedDefinition(60)
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)

	if err := Resume(a, def, now); !errors.Is(err, ErrAttemptNotPaused) {
		t.Errorf("err = %v, want ErrAttemptNotPaused", err)
	}
}

func TestSubmitTwiceFailsWithoutMutation(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	def := timedDefinition(60)
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)

	if err := BeginSubmit(a, def, now.Add(20*time.Minute)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if a.Status != model.AttemptStatusSubmitted {
		t.Fatalf("status = %s, want submitted", a.Status)
	}
	Complete(a, &model.ExamResult{ScorePercentage: 80, Passed: true}, now.Add(20*time.Minute))
	if a.Status != model.AttemptStatusCompleted {
		t.Fatalf("status = %s, want completed", a.Status)
	}

	before := a.Result
	err := BeginSubmit(a, def, now.Add(25*time.Minute))
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second submit err = %v, want ErrAlreadySubmitted", err)
	}
	if a.Result != before || a.Result.ScorePercentage != 80 || !a.Result.Passed {
		t.Error("second submit must not change the stored result")
	}
}

func TestSubmitFromPaused(t *testing.T) {
	now := time.Now()
	def := timedDefinition(60)
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)

	if err := Pause(a, def, now.Add(time.Minute)); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := BeginSubmit(a, def, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("submit from paused: %v", err)
	}
	if a.Status != model.AttemptStatusSubmitted {
		t.Errorf("status = %s, want submitted", a.Status)
	}
}

func TestInvalidate(t *testing.T) {
	now := time.Now()
	def := timedDefinition(60)
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)

	if err := Invalidate(a, "seat camera offline", 7, now); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if a.Status != model.AttemptStatusInvalidated || a.InvalidatedBy == nil || *a.InvalidatedBy != 7 {
		t.Errorf("attempt not marked invalidated: %+v", a)
	}

	done := NewAttempt(def, 42, 2, snapshotOfTwo(), now)
	_ = BeginSubmit(done, def, now)
	Complete(done, &model.ExamResult{}, now)
	if err := Invalidate(done, "x", 7, now); !errors.Is(err, ErrAttemptCompleted) {
		t.Errorf("err = %v, want ErrAttemptCompleted", err)
	}
}

func TestForceTimeoutScoredLikeSubmission(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	def := timedDefinition(10)
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)
	qid := a.Snapshot[0].QuestionID
	_ = SaveAnswer(a, def, qid, model.AnswerRecord{Payload: json.RawMessage(`{"option_id":"a"}`)}, now.Add(time.Minute))

	ForceTimeout(a, def, now.Add(12*time.Minute))
	if a.Status != model.AttemptStatusTimedOut {
		t.Fatalf("status = %s, want timed_out", a.Status)
	}

	// The timed-out attempt is scored with whatever answers exist.
	Complete(a, &model.ExamResult{ScorePercentage: 50}, now.Add(12*time.Minute))
	if a.Status != model.AttemptStatusTimedOut {
		t.Errorf("timed_out must be preserved after scoring, got %s", a.Status)
	}
	if a.Result == nil {
		t.Error("timed-out attempt must still carry a result")
	}
}

func TestRemainingTimeUntimed(t *testing.T) {
	now := time.Now()
	def := timedDefinition(0)
	a := NewAttempt(def, 42, 1, snapshotOfTwo(), now)

	if _, limited := RemainingTime(a, def, now.Add(100*time.Hour)); limited {
		t.Error("untimed exam must report unlimited time")
	}
	if err := EnsureLive(a, def, now.Add(100*time.Hour)); err != nil {
		t.Errorf("untimed attempt must never time out, got %v", err)
	}
}
