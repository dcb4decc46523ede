package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/aeroacademy/groundschool-backend/internal/config"
	"github.com/aeroacademy/groundschool-backend/internal/exam"
	"github.com/aeroacademy/groundschool-backend/internal/model"
	"github.com/aeroacademy/groundschool-backend/internal/repository"
)

// Attempt façade errors. Pure-core errors (exam.Err…) pass through
// untouched; these cover concerns the core does not know about.
var (
	ErrExamNotAvailable  = errors.New("exam is not available")
	ErrInvalidAccessCode = errors.New("invalid access code")
	ErrNotAttemptOwner   = errors.New("attempt belongs to another trainee")
	ErrResultsNotVisible = errors.New("results are not visible for this attempt")
	ErrAttemptConflict   = errors.New("attempt was modified concurrently")
)

// maxUpdateRetries bounds the reload-and-retry loop around optimistic
// version conflicts before surfacing ErrAttemptConflict.
const maxUpdateRetries = 3

// SaveAnswerResult is returned by SaveAnswer.
type SaveAnswerResult struct {
	Saved                bool    `json:"saved"`
	RemainingTimeSeconds *int    `json:"remaining_time_seconds,omitempty"`
	ProgressPercentage   float64 `json:"progress_percentage"`
}

// ResumeResult is returned by ResumeAttempt.
type ResumeResult struct {
	RemainingTimeSeconds *int       `json:"remaining_time_seconds,omitempty"`
	Deadline             *time.Time `json:"deadline,omitempty"`
}

// AttemptService orchestrates the attempt lifecycle: it loads state, applies
// the pure transition functions, persists under optimistic versioning, and
// publishes completed-attempt events for the statistics worker.
type AttemptService struct {
	attemptRepo  *repository.AttemptRepository
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo:  attemptRepo,
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log,
	}
}

// CheckAvailability reports whether the trainee may start a new attempt now.
func (s *AttemptService) CheckAvailability(ctx context.Context, examID uuid.UUID, userID int) (*model.Availability, error) {
	def, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	prior, err := s.attemptRepo.ListByUserAndExam(ctx, userID, examID)
	if err != nil {
		return nil, fmt.Errorf("list prior attempts: %w", err)
	}
	avail := exam.CheckAvailability(def, prior, time.Now())
	return &avail, nil
}

// StartAttempt runs the availability gate, verifies the access code if the
// exam requires one, selects the question snapshot, and opens the attempt.
// If the trainee already has a live attempt on this exam it is returned
// instead of opening a second one.
func (s *AttemptService) StartAttempt(ctx context.Context, examID uuid.UUID, userID int, req *model.StartAttemptRequest) (*model.AttemptSummary, error) {
	def, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	if active, err := s.attemptRepo.GetActive(ctx, userID, examID); err == nil {
		return s.buildSummary(ctx, def, active)
	}

	prior, err := s.attemptRepo.ListByUserAndExam(ctx, userID, examID)
	if err != nil {
		return nil, fmt.Errorf("list prior attempts: %w", err)
	}
	now := time.Now()
	if avail := exam.CheckAvailability(def, prior, now); !avail.Available {
		return nil, fmt.Errorf("%w: %s", ErrExamNotAvailable, avail.Reason)
	}

	if def.AccessCodeHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(def.AccessCodeHash), []byte(req.AccessCode)); err != nil {
			return nil, ErrInvalidAccessCode
		}
	}

	selector := exam.NewSelector(s.questionRepo, rand.New(rand.NewSource(now.UnixNano())))
	snapshot, questions, err := selector.Select(ctx, def)
	if err != nil {
		return nil, err
	}

	a := exam.NewAttempt(def, userID, len(prior)+1, snapshot, now)
	if err := s.attemptRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Str("exam_id", examID.String()).
		Int("user_id", userID).
		Int("questions", len(snapshot)).
		Msg("attempt started")

	return s.summaryFromQuestions(def, a, questions), nil
}

// GetPaper returns the trainee-facing paper for a live attempt, rebuilding
// the sanitized question list from the snapshot.
func (s *AttemptService) GetPaper(ctx context.Context, attemptID uuid.UUID, userID int) (*model.AttemptSummary, error) {
	a, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrNotAttemptOwner
	}
	def, err := s.examRepo.GetByID(ctx, a.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return s.buildSummary(ctx, def, a)
}

// Clock reports the attempt status and remaining wall-clock seconds
// without mutating the attempt. Remaining is nil for untimed exams and
// for attempts that are no longer in progress.
func (s *AttemptService) Clock(ctx context.Context, attemptID uuid.UUID, userID int) (model.AttemptStatus, *int, error) {
	a, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return "", nil, err
	}
	if a.UserID != userID {
		return "", nil, ErrNotAttemptOwner
	}
	if a.Status != model.AttemptStatusInProgress {
		return a.Status, nil, nil
	}

	def, err := s.examRepo.GetByID(ctx, a.ExamID)
	if err != nil {
		return "", nil, fmt.Errorf("get exam: %w", err)
	}
	remaining, limited := exam.RemainingTime(a, def, time.Now())
	if !limited {
		return a.Status, nil, nil
	}
	secs := int(remaining / time.Second)
	if secs < 0 {
		secs = 0
	}
	return a.Status, &secs, nil
}

// SaveAnswer validates and stores one answer on a live attempt. A request
// arriving after the deadline finalizes the attempt as timed_out and
// returns exam.ErrTimeExceeded without storing the answer.
func (s *AttemptService) SaveAnswer(ctx context.Context, attemptID uuid.UUID, userID int, questionID uuid.UUID, req *model.SaveAnswerRequest) (*SaveAnswerResult, error) {
	var out *SaveAnswerResult

	err := s.withRetry(ctx, attemptID, func(a *model.ExamAttempt, def *model.ExamDefinition) error {
		if a.UserID != userID {
			return ErrNotAttemptOwner
		}

		q, err := s.questionRepo.GetByID(ctx, questionID)
		if err != nil {
			return exam.ErrQuestionNotInAttempt
		}
		if _, err := exam.DecodeAnswer(q.Type, req.Answer); err != nil {
			return fmt.Errorf("%w: %v", exam.ErrMalformedAnswer, err)
		}

		now := time.Now()
		rec := model.AnswerRecord{
			Payload:          req.Answer,
			TimeSpentSeconds: req.TimeSpentSeconds,
		}
		if req.Flagged != nil {
			rec.Flagged = *req.Flagged
		} else if prev, ok := a.Answers[questionID]; ok {
			rec.Flagged = prev.Flagged
		}

		if err := exam.SaveAnswer(a, def, questionID, rec, now); err != nil {
			if errors.Is(err, exam.ErrTimeExceeded) {
				if ferr := s.finalizeTransition(ctx, def, a); ferr != nil {
					return ferr
				}
			}
			return err
		}

		if err := s.attemptRepo.Update(ctx, a); err != nil {
			return err
		}
		if err := s.attemptRepo.UpsertAnswer(ctx, attemptID, questionID, a.Answers[questionID]); err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}

		out = &SaveAnswerResult{
			Saved:              true,
			ProgressPercentage: a.ProgressPercentage(),
		}
		if remaining, limited := exam.RemainingTime(a, def, now); limited {
			secs := int(remaining / time.Second)
			out.RemainingTimeSeconds = &secs
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FlagQuestion toggles the review flag on one question.
func (s *AttemptService) FlagQuestion(ctx context.Context, attemptID uuid.UUID, userID int, questionID uuid.UUID, flagged bool) error {
	return s.withRetry(ctx, attemptID, func(a *model.ExamAttempt, def *model.ExamDefinition) error {
		if a.UserID != userID {
			return ErrNotAttemptOwner
		}
		now := time.Now()
		if err := exam.FlagQuestion(a, def, questionID, flagged, now); err != nil {
			if errors.Is(err, exam.ErrTimeExceeded) {
				if ferr := s.finalizeTransition(ctx, def, a); ferr != nil {
					return ferr
				}
			}
			return err
		}
		if err := s.attemptRepo.Update(ctx, a); err != nil {
			return err
		}
		return s.attemptRepo.UpsertAnswer(ctx, attemptID, questionID, a.Answers[questionID])
	})
}

// PauseAttempt stops the attempt clock.
func (s *AttemptService) PauseAttempt(ctx context.Context, attemptID uuid.UUID, userID int) error {
	return s.withRetry(ctx, attemptID, func(a *model.ExamAttempt, def *model.ExamDefinition) error {
		if a.UserID != userID {
			return ErrNotAttemptOwner
		}
		if err := exam.Pause(a, def, time.Now()); err != nil {
			if errors.Is(err, exam.ErrTimeExceeded) {
				if ferr := s.finalizeTransition(ctx, def, a); ferr != nil {
					return ferr
				}
			}
			return err
		}
		return s.attemptRepo.Update(ctx, a)
	})
}

// ResumeAttempt restarts the clock after a pause. A pause that overran the
// cumulative budget resolves the attempt to abandoned and returns
// exam.ErrPauseExpired.
func (s *AttemptService) ResumeAttempt(ctx context.Context, attemptID uuid.UUID, userID int) (*ResumeResult, error) {
	var out *ResumeResult

	err := s.withRetry(ctx, attemptID, func(a *model.ExamAttempt, def *model.ExamDefinition) error {
		if a.UserID != userID {
			return ErrNotAttemptOwner
		}
		now := time.Now()
		if err := exam.Resume(a, def, now); err != nil {
			if errors.Is(err, exam.ErrPauseExpired) {
				// Persist the abandoned transition before surfacing it.
				if uerr := s.attemptRepo.Update(ctx, a); uerr != nil {
					return uerr
				}
			}
			return err
		}
		if err := s.attemptRepo.Update(ctx, a); err != nil {
			return err
		}

		out = &ResumeResult{Deadline: a.Deadline}
		if remaining, limited := exam.RemainingTime(a, def, now); limited {
			secs := int(remaining / time.Second)
			out.RemainingTimeSeconds = &secs
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitAttempt finalizes and scores the attempt. Submitting past the
// deadline scores whatever answers exist under timed_out. A second submit
// returns the stored result alongside exam.ErrAlreadySubmitted.
func (s *AttemptService) SubmitAttempt(ctx context.Context, attemptID uuid.UUID, userID int) (*model.ExamResult, error) {
	var result *model.ExamResult

	err := s.withRetry(ctx, attemptID, func(a *model.ExamAttempt, def *model.ExamDefinition) error {
		if a.UserID != userID {
			return ErrNotAttemptOwner
		}
		now := time.Now()

		if err := exam.EnsureLive(a, def, now); err != nil {
			// Deadline already passed: finalize as timed_out and hand the
			// caller the scored result.
			if ferr := s.finalizeTransition(ctx, def, a); ferr != nil {
				return ferr
			}
			result = a.Result
			return nil
		}

		if err := exam.BeginSubmit(a, def, now); err != nil {
			result = a.Result
			return err
		}
		if err := s.finalizeTransition(ctx, def, a); err != nil {
			return err
		}
		result = a.Result
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// finalizeTransition persists a terminal transition (submitted or
// timed_out), scores the attempt, and publishes the completed-attempt event.
// The versioned update makes the transition, and therefore the event,
// exactly-once: a concurrent caller loses the version race and retries
// against the already-terminal state.
func (s *AttemptService) finalizeTransition(ctx context.Context, def *model.ExamDefinition, a *model.ExamAttempt) error {
	if err := s.attemptRepo.Update(ctx, a); err != nil {
		return err
	}

	ids := make([]uuid.UUID, len(a.Snapshot))
	for i, snap := range a.Snapshot {
		ids[i] = snap.QuestionID
	}
	questions, err := s.questionRepo.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load snapshot questions: %w", err)
	}

	now := time.Now()
	result, usage := exam.Grade(def, a, questions)
	exam.Complete(a, result, now)

	if err := s.attemptRepo.Update(ctx, a); err != nil {
		return err
	}

	s.publishAttemptEvent(ctx, a, result, usage, now)

	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Str("status", string(a.Status)).
		Float64("score", result.ScorePercentage).
		Bool("passed", result.Passed).
		Msg("attempt finalized")
	return nil
}

func (s *AttemptService) publishAttemptEvent(ctx context.Context, a *model.ExamAttempt, result *model.ExamResult, usage []exam.UsageEvent, now time.Time) {
	catScores := make(map[string]float64, len(result.CategoryBreakdown))
	for _, cat := range result.CategoryBreakdown {
		catScores[cat.Category] = cat.Percentage
	}

	payload, err := json.Marshal(exam.AttemptEvent{
		AttemptID:       a.ID,
		ExamID:          a.ExamID,
		UserID:          a.UserID,
		Passed:          result.Passed,
		ScorePercentage: result.ScorePercentage,
		CategoryScores:  catScores,
		DurationSeconds: result.DurationSeconds,
		CompletedAt:     now,
		Usage:           usage,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("marshal attempt event")
		return
	}
	if err := s.rdb.LPush(ctx, config.WorkerKey.AttemptEventsQueue, payload).Err(); err != nil {
		s.log.Error().Err(err).Str("attempt_id", a.ID.String()).Msg("enqueue attempt event")
	}
}

// GetResults returns the scored result for a finished attempt. Per-question
// detail is visible only when the definition reveals correct answers and the
// attempt reached a scored terminal state; the category breakdown follows
// its own flag.
func (s *AttemptService) GetResults(ctx context.Context, attemptID uuid.UUID, userID int) (*model.ExamResult, error) {
	a, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrNotAttemptOwner
	}
	if a.Result == nil {
		return nil, ErrResultsNotVisible
	}
	def, err := s.examRepo.GetByID(ctx, a.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	return exam.ResultView(a, def), nil
}

// InvalidateAttempt administratively voids an attempt. Invalidated attempts
// never reach the statistics queue; an already-scored attempt keeps its
// stored result for audit but is excluded from availability counting.
func (s *AttemptService) InvalidateAttempt(ctx context.Context, attemptID uuid.UUID, reviewerID int, reason string) error {
	return s.withRetry(ctx, attemptID, func(a *model.ExamAttempt, def *model.ExamDefinition) error {
		if err := exam.Invalidate(a, reason, reviewerID, time.Now()); err != nil {
			return err
		}
		if err := s.attemptRepo.Update(ctx, a); err != nil {
			return err
		}
		s.log.Warn().
			Str("attempt_id", attemptID.String()).
			Int("reviewer_id", reviewerID).
			Str("reason", reason).
			Msg("attempt invalidated")
		return nil
	})
}

// ListByExam returns all attempts against one exam for the admin surface.
func (s *AttemptService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamAttempt, error) {
	return s.attemptRepo.ListByExam(ctx, examID)
}

// FinalizeExpired is the sweep entry point: it touches one attempt so the
// lazy deadline and pause-budget checks fire, finalizing it if overdue.
func (s *AttemptService) FinalizeExpired(ctx context.Context, attemptID uuid.UUID) error {
	return s.withRetry(ctx, attemptID, func(a *model.ExamAttempt, def *model.ExamDefinition) error {
		now := time.Now()
		switch a.Status {
		case model.AttemptStatusInProgress:
			if err := exam.EnsureLive(a, def, now); err != nil {
				return s.finalizeTransition(ctx, def, a)
			}
		case model.AttemptStatusPaused:
			if err := exam.Resume(a, def, now); errors.Is(err, exam.ErrPauseExpired) {
				return s.attemptRepo.Update(ctx, a)
			}
			// Budget not yet spent; put the clock back the way it was.
			return nil
		}
		return nil
	})
}

// withRetry loads the attempt and its definition, runs fn, and retries on
// optimistic version conflicts with fresh state.
func (s *AttemptService) withRetry(ctx context.Context, attemptID uuid.UUID, fn func(*model.ExamAttempt, *model.ExamDefinition) error) error {
	for i := 0; i < maxUpdateRetries; i++ {
		a, err := s.attemptRepo.GetByID(ctx, attemptID)
		if err != nil {
			return err
		}
		def, err := s.examRepo.GetByID(ctx, a.ExamID)
		if err != nil {
			return fmt.Errorf("get exam: %w", err)
		}

		err = fn(a, def)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		return err
	}
	return ErrAttemptConflict
}

// buildSummary reloads the snapshot's questions and produces the sanitized
// trainee paper.
func (s *AttemptService) buildSummary(ctx context.Context, def *model.ExamDefinition, a *model.ExamAttempt) (*model.AttemptSummary, error) {
	ids := make([]uuid.UUID, len(a.Snapshot))
	for i, snap := range a.Snapshot {
		ids[i] = snap.QuestionID
	}
	byID, err := s.questionRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load snapshot questions: %w", err)
	}

	questions := make([]model.Question, 0, len(a.Snapshot))
	for _, snap := range a.Snapshot {
		if q, ok := byID[snap.QuestionID]; ok {
			questions = append(questions, *q)
		}
	}
	return s.summaryFromQuestions(def, a, questions), nil
}

// summaryFromQuestions sanitizes questions (no key, no explanation) in
// snapshot order, applying the per-attempt shuffled option order.
func (s *AttemptService) summaryFromQuestions(def *model.ExamDefinition, a *model.ExamAttempt, questions []model.Question) *model.AttemptSummary {
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	sanitized := make([]model.QuestionForTrainee, 0, len(a.Snapshot))
	for _, snap := range a.Snapshot {
		q, ok := byID[snap.QuestionID]
		if !ok {
			continue
		}
		options := q.Options
		if len(snap.OptionIDs) > 0 {
			ordered := make([]model.Option, 0, len(options))
			for _, id := range snap.OptionIDs {
				for _, o := range options {
					if o.ID == id {
						ordered = append(ordered, o)
						break
					}
				}
			}
			options = ordered
		}
		sanitized = append(sanitized, model.QuestionForTrainee{
			ID:            q.ID,
			Order:         snap.Order,
			Type:          q.Type,
			Category:      q.Category,
			Prompt:        q.Prompt,
			Options:       options,
			Points:        snap.Points,
			PartialCredit: q.PartialCredit,
		})
	}

	return &model.AttemptSummary{
		AttemptID:     a.ID,
		AttemptNumber: a.AttemptNumber,
		Deadline:      a.Deadline,
		Questions:     sanitized,
		AllowPause:    def.AllowPause,
		AllowSkip:     def.AllowSkip,
	}
}
