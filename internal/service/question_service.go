package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aeroacademy/groundschool-backend/internal/exam"
	"github.com/aeroacademy/groundschool-backend/internal/model"
	"github.com/aeroacademy/groundschool-backend/internal/repository"
)

// QuestionService handles question pool management.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, log zerolog.Logger) *QuestionService {
	return &QuestionService{questionRepo: questionRepo, log: log}
}

// Create validates and inserts a question. The answer key must decode for
// the declared type and be structurally consistent with the options.
func (s *QuestionService) Create(ctx context.Context, q *model.Question) error {
	if err := exam.ValidateQuestion(q); err != nil {
		return err
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// Update rewrites a question. Live attempts are unaffected; their snapshots
// pin the selection made at start.
func (s *QuestionService) Update(ctx context.Context, q *model.Question) error {
	if err := exam.ValidateQuestion(q); err != nil {
		return err
	}
	return s.questionRepo.Update(ctx, q)
}

// GetByID retrieves one question including its answer key; examiner only.
func (s *QuestionService) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return s.questionRepo.GetByID(ctx, id)
}

// List pages through the pool for the admin surface.
func (s *QuestionService) List(ctx context.Context, category string, page, perPage int) ([]model.Question, int64, error) {
	return s.questionRepo.List(ctx, category, page, perPage)
}

// Retire deactivates a question so future selections skip it.
func (s *QuestionService) Retire(ctx context.Context, id uuid.UUID) error {
	if err := s.questionRepo.Retire(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("question_id", id.String()).Msg("question retired")
	return nil
}
