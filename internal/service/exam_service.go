package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aeroacademy/groundschool-backend/internal/config"
	"github.com/aeroacademy/groundschool-backend/internal/exam"
	"github.com/aeroacademy/groundschool-backend/internal/model"
	"github.com/aeroacademy/groundschool-backend/internal/repository"
)

// Exam admin errors.
var (
	ErrExamNotDraft             = errors.New("exam is not in DRAFT status")
	ErrNotExamAuthor            = errors.New("not the exam author")
	ErrBadSelection             = errors.New("selection configuration cannot be satisfied")
	ErrCategoryMinimumsRequired = errors.New("category passing policy requires category_minimums")
)

// examCacheTTL bounds how long a published definition stays cached.
const examCacheTTL = 10 * time.Minute

// ExamService handles the examiner-facing definition lifecycle.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	auth         *AuthService
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	auth *AuthService,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		auth:         auth,
		rdb:          rdb,
		log:          log,
	}
}

// Create builds a DRAFT definition from the request.
func (s *ExamService) Create(ctx context.Context, authorID int, req *model.CreateExamRequest) (*model.ExamDefinition, error) {
	if req.PassingPolicy == model.PassingPolicyCategory && len(req.CategoryMinimums) == 0 {
		return nil, ErrCategoryMinimumsRequired
	}

	d := &model.ExamDefinition{
		AuthorID:              authorID,
		Title:                 req.Title,
		Status:                model.ExamStatusDraft,
		SelectionMode:         req.SelectionMode,
		FixedQuestionIDs:      req.FixedQuestionIDs,
		SelectionRules:        req.SelectionRules,
		TotalQuestions:        req.TotalQuestions,
		RandomizeQuestions:    req.RandomizeQuestions,
		RandomizeOptions:      req.RandomizeOptions,
		TimeLimitMinutes:      req.TimeLimitMinutes,
		AllowPause:            req.AllowPause,
		MaxPauseCount:         req.MaxPauseCount,
		MaxPauseMinutes:       req.MaxPauseMinutes,
		MaxAttempts:           req.MaxAttempts,
		RetryDelayMinutes:     req.RetryDelayMinutes,
		FailCooldownMinutes:   req.FailCooldownMinutes,
		AvailableFrom:         req.AvailableFrom,
		AvailableUntil:        req.AvailableUntil,
		PassingPolicy:         req.PassingPolicy,
		PassingScore:          req.PassingScore,
		CategoryMinimums:      req.CategoryMinimums,
		AllowSkip:             req.AllowSkip,
		AllowReview:           req.AllowReview,
		ForceSequential:       req.ForceSequential,
		ShowCorrectAnswers:    req.ShowCorrectAnswers,
		ShowExplanation:       req.ShowExplanation,
		ShowCategoryBreakdown: req.ShowCategoryBreakdown,
	}

	if req.AccessCode != "" {
		hash, err := s.auth.HashPassword(req.AccessCode)
		if err != nil {
			return nil, fmt.Errorf("hash access code: %w", err)
		}
		d.AccessCodeHash = hash
	}

	if err := s.examRepo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	return d, nil
}

// GetByID retrieves a definition, preferring the Redis cache for published
// exams.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamDefinition, error) {
	if cached, err := s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(id.String())).Bytes(); err == nil {
		d := &model.ExamDefinition{}
		if err := json.Unmarshal(cached, d); err == nil {
			return d, nil
		}
	}
	return s.examRepo.GetByID(ctx, id)
}

// ListByAuthor retrieves an examiner's definitions.
func (s *ExamService) ListByAuthor(ctx context.Context, authorID int) ([]model.ExamDefinition, error) {
	return s.examRepo.ListByAuthor(ctx, authorID)
}

// ListPublished retrieves the trainee-facing catalog.
func (s *ExamService) ListPublished(ctx context.Context) ([]model.ExamDefinition, error) {
	return s.examRepo.ListPublished(ctx)
}

// Update rewrites a DRAFT definition. Published and archived exams are
// immutable; attempts already running hold their own snapshots anyway.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, authorID int, req *model.CreateExamRequest) (*model.ExamDefinition, error) {
	d, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	if d.Status != model.ExamStatusDraft {
		return nil, ErrExamNotDraft
	}

	d.Title = req.Title
	d.SelectionMode = req.SelectionMode
	d.FixedQuestionIDs = req.FixedQuestionIDs
	d.SelectionRules = req.SelectionRules
	d.TotalQuestions = req.TotalQuestions
	d.RandomizeQuestions = req.RandomizeQuestions
	d.RandomizeOptions = req.RandomizeOptions
	d.TimeLimitMinutes = req.TimeLimitMinutes
	d.AllowPause = req.AllowPause
	d.MaxPauseCount = req.MaxPauseCount
	d.MaxPauseMinutes = req.MaxPauseMinutes
	d.MaxAttempts = req.MaxAttempts
	d.RetryDelayMinutes = req.RetryDelayMinutes
	d.FailCooldownMinutes = req.FailCooldownMinutes
	d.AvailableFrom = req.AvailableFrom
	d.AvailableUntil = req.AvailableUntil
	d.PassingPolicy = req.PassingPolicy
	d.PassingScore = req.PassingScore
	d.CategoryMinimums = req.CategoryMinimums
	d.AllowSkip = req.AllowSkip
	d.AllowReview = req.AllowReview
	d.ForceSequential = req.ForceSequential
	d.ShowCorrectAnswers = req.ShowCorrectAnswers
	d.ShowExplanation = req.ShowExplanation
	d.ShowCategoryBreakdown = req.ShowCategoryBreakdown

	if req.AccessCode != "" {
		hash, err := s.auth.HashPassword(req.AccessCode)
		if err != nil {
			return nil, fmt.Errorf("hash access code: %w", err)
		}
		d.AccessCodeHash = hash
	}

	if err := s.examRepo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	return d, nil
}

// Delete removes a DRAFT definition.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	d, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if d.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	return s.examRepo.Delete(ctx, id)
}

// Publish transitions DRAFT to PUBLISHED after checking the pool can
// plausibly satisfy the selection configuration, then warms the cache.
func (s *ExamService) Publish(ctx context.Context, id uuid.UUID, authorID int) (*model.ExamDefinition, error) {
	d, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	if d.Status != model.ExamStatusDraft {
		return nil, ErrExamNotDraft
	}

	if err := s.validateSelection(ctx, d); err != nil {
		return nil, err
	}

	if err := s.examRepo.UpdateStatus(ctx, id, model.ExamStatusPublished); err != nil {
		return nil, fmt.Errorf("publish exam: %w", err)
	}
	d.Status = model.ExamStatusPublished

	if payload, err := json.Marshal(d); err == nil {
		if err := s.rdb.Set(ctx, config.CacheKey.ExamPayloadKey(id.String()), payload, examCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("warm exam cache")
		}
	}

	s.log.Info().Str("exam_id", id.String()).Str("title", d.Title).Msg("exam published")
	return d, nil
}

// Archive retires a published definition from the catalog.
func (s *ExamService) Archive(ctx context.Context, id uuid.UUID, authorID int) error {
	d, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if err := s.examRepo.UpdateStatus(ctx, id, model.ExamStatusArchived); err != nil {
		return err
	}
	return s.rdb.Del(ctx, config.CacheKey.ExamPayloadKey(id.String())).Err()
}

// Stats returns the exam's rolling aggregates.
func (s *ExamService) Stats(ctx context.Context, id uuid.UUID) (*model.ExamStats, error) {
	d, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &d.Stats, nil
}

// validateSelection performs a dry-run of the selector against the live
// pool so publishing fails fast rather than every start attempt failing.
func (s *ExamService) validateSelection(ctx context.Context, d *model.ExamDefinition) error {
	switch d.SelectionMode {
	case model.SelectionModeFixed:
		if len(d.FixedQuestionIDs) < d.TotalQuestions {
			return fmt.Errorf("%w: fixed list has %d ids, needs %d",
				ErrBadSelection, len(d.FixedQuestionIDs), d.TotalQuestions)
		}
	case model.SelectionModeRandom, model.SelectionModeWeightedRandom:
		var sum int
		for _, rule := range d.SelectionRules {
			eligible, err := s.questionRepo.FindEligible(ctx, exam.PoolFilter{
				Category:    rule.Category,
				Difficulty:  rule.Difficulty,
				Subcategory: rule.Subcategory,
				Tags:        rule.Tags,
			})
			if err != nil {
				return fmt.Errorf("check pool for %q: %w", rule.Category, err)
			}
			if len(eligible) < rule.Count {
				return fmt.Errorf("%w: category %q has %d eligible, rule needs %d",
					ErrBadSelection, rule.Category, len(eligible), rule.Count)
			}
			sum += rule.Count
		}
		if sum < d.TotalQuestions {
			return fmt.Errorf("%w: rules draw %d, total_questions is %d",
				ErrBadSelection, sum, d.TotalQuestions)
		}
	}
	return nil
}
