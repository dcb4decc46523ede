package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aeroacademy/groundschool-backend/internal/exam"
	"github.com/aeroacademy/groundschool-backend/internal/model"
)

const examColumns = `id, author_id, title, status, selection_mode, fixed_question_ids,
	 selection_rules, total_questions, randomize_questions, randomize_options,
	 time_limit_minutes, allow_pause, max_pause_count, max_pause_minutes,
	 max_attempts, retry_delay_minutes, fail_cooldown_minutes,
	 available_from, available_until, passing_policy, passing_score,
	 category_minimums, allow_skip, allow_review, force_sequential,
	 show_correct_answers, show_explanation, show_category_breakdown,
	 access_code_hash, total_attempts, total_passes, avg_score,
	 avg_duration_seconds, created_at, updated_at`

// ExamRepository handles exam definition data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row) (*model.ExamDefinition, error) {
	d := &model.ExamDefinition{}
	err := row.Scan(
		&d.ID, &d.AuthorID, &d.Title, &d.Status, &d.SelectionMode, &d.FixedQuestionIDs,
		&d.SelectionRules, &d.TotalQuestions, &d.RandomizeQuestions, &d.RandomizeOptions,
		&d.TimeLimitMinutes, &d.AllowPause, &d.MaxPauseCount, &d.MaxPauseMinutes,
		&d.MaxAttempts, &d.RetryDelayMinutes, &d.FailCooldownMinutes,
		&d.AvailableFrom, &d.AvailableUntil, &d.PassingPolicy, &d.PassingScore,
		&d.CategoryMinimums, &d.AllowSkip, &d.AllowReview, &d.ForceSequential,
		&d.ShowCorrectAnswers, &d.ShowExplanation, &d.ShowCategoryBreakdown,
		&d.AccessCodeHash, &d.Stats.TotalAttempts, &d.Stats.TotalPasses,
		&d.Stats.AvgScore, &d.Stats.AvgDurationSeconds, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetByID retrieves one exam definition.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamDefinition, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// ListByAuthor retrieves an examiner's definitions, newest first.
func (r *ExamRepository) ListByAuthor(ctx context.Context, authorID int) ([]model.ExamDefinition, error) {
	return r.list(ctx,
		`SELECT `+examColumns+` FROM exams WHERE author_id = $1 ORDER BY created_at DESC`, authorID)
}

// ListPublished retrieves all PUBLISHED definitions for the trainee catalog.
func (r *ExamRepository) ListPublished(ctx context.Context) ([]model.ExamDefinition, error) {
	return r.list(ctx,
		`SELECT `+examColumns+` FROM exams WHERE status = $1 ORDER BY created_at DESC`,
		model.ExamStatusPublished)
}

func (r *ExamRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.ExamDefinition, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.ExamDefinition
	for rows.Next() {
		d, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *d)
	}
	return exams, rows.Err()
}

// Create inserts a new definition in DRAFT status.
func (r *ExamRepository) Create(ctx context.Context, d *model.ExamDefinition) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (author_id, title, status, selection_mode, fixed_question_ids,
			 selection_rules, total_questions, randomize_questions, randomize_options,
			 time_limit_minutes, allow_pause, max_pause_count, max_pause_minutes,
			 max_attempts, retry_delay_minutes, fail_cooldown_minutes,
			 available_from, available_until, passing_policy, passing_score,
			 category_minimums, allow_skip, allow_review, force_sequential,
			 show_correct_answers, show_explanation, show_category_breakdown,
			 access_code_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			 $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
		 RETURNING id, created_at, updated_at`,
		d.AuthorID, d.Title, model.ExamStatusDraft, d.SelectionMode, d.FixedQuestionIDs,
		d.SelectionRules, d.TotalQuestions, d.RandomizeQuestions, d.RandomizeOptions,
		d.TimeLimitMinutes, d.AllowPause, d.MaxPauseCount, d.MaxPauseMinutes,
		d.MaxAttempts, d.RetryDelayMinutes, d.FailCooldownMinutes,
		d.AvailableFrom, d.AvailableUntil, d.PassingPolicy, d.PassingScore,
		d.CategoryMinimums, d.AllowSkip, d.AllowReview, d.ForceSequential,
		d.ShowCorrectAnswers, d.ShowExplanation, d.ShowCategoryBreakdown,
		d.AccessCodeHash,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// Update rewrites an existing definition's editable fields.
func (r *ExamRepository) Update(ctx context.Context, d *model.ExamDefinition) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = $1, selection_mode = $2, fixed_question_ids = $3,
		     selection_rules = $4, total_questions = $5, randomize_questions = $6,
		     randomize_options = $7, time_limit_minutes = $8, allow_pause = $9,
		     max_pause_count = $10, max_pause_minutes = $11, max_attempts = $12,
		     retry_delay_minutes = $13, fail_cooldown_minutes = $14,
		     available_from = $15, available_until = $16, passing_policy = $17,
		     passing_score = $18, category_minimums = $19, allow_skip = $20,
		     allow_review = $21, force_sequential = $22, show_correct_answers = $23,
		     show_explanation = $24, show_category_breakdown = $25,
		     access_code_hash = $26, updated_at = NOW()
		 WHERE id = $27`,
		d.Title, d.SelectionMode, d.FixedQuestionIDs, d.SelectionRules,
		d.TotalQuestions, d.RandomizeQuestions, d.RandomizeOptions,
		d.TimeLimitMinutes, d.AllowPause, d.MaxPauseCount, d.MaxPauseMinutes,
		d.MaxAttempts, d.RetryDelayMinutes, d.FailCooldownMinutes,
		d.AvailableFrom, d.AvailableUntil, d.PassingPolicy, d.PassingScore,
		d.CategoryMinimums, d.AllowSkip, d.AllowReview, d.ForceSequential,
		d.ShowCorrectAnswers, d.ShowExplanation, d.ShowCategoryBreakdown,
		d.AccessCodeHash, d.ID)
	return err
}

// UpdateStatus transitions the definition lifecycle (publish, archive).
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}

// Delete removes a definition. The service layer enforces DRAFT-only.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}

// ApplyAttempt folds one completed attempt into the exam's aggregates under
// a row lock.
func (r *ExamRepository) ApplyAttempt(ctx context.Context, examID uuid.UUID, ev exam.AttemptEvent) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var stats model.ExamStats
	err = tx.QueryRow(ctx,
		`SELECT total_attempts, total_passes, avg_score, avg_duration_seconds
		 FROM exams WHERE id = $1 FOR UPDATE`, examID,
	).Scan(&stats.TotalAttempts, &stats.TotalPasses, &stats.AvgScore, &stats.AvgDurationSeconds)
	if err != nil {
		return err
	}

	stats = exam.ApplyAttempt(stats, ev)

	_, err = tx.Exec(ctx,
		`UPDATE exams
		 SET total_attempts = $1, total_passes = $2, avg_score = $3,
		     avg_duration_seconds = $4, updated_at = NOW()
		 WHERE id = $5`,
		stats.TotalAttempts, stats.TotalPasses, stats.AvgScore,
		stats.AvgDurationSeconds, examID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
