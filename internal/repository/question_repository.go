package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aeroacademy/groundschool-backend/internal/exam"
	"github.com/aeroacademy/groundschool-backend/internal/model"
)

const questionColumns = `id, category, subcategory, tags, type, prompt, options, answer_key,
	 explanation, points, partial_credit, difficulty, active, approved,
	 times_asked, times_correct, times_skipped, success_rate, avg_time_seconds,
	 option_counts, difficulty_score, created_at, updated_at`

// QuestionRepository handles question pool data access. It satisfies
// exam.QuestionSource for the selector.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	err := row.Scan(
		&q.ID, &q.Category, &q.Subcategory, &q.Tags, &q.Type, &q.Prompt, &q.Options,
		&q.AnswerKey, &q.Explanation, &q.Points, &q.PartialCredit, &q.Difficulty,
		&q.Active, &q.Approved,
		&q.Stats.TimesAsked, &q.Stats.TimesCorrect, &q.Stats.TimesSkipped,
		&q.Stats.SuccessRate, &q.Stats.AvgTimeSeconds, &q.Stats.OptionCounts,
		&q.Stats.DifficultyScore, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// FindEligible returns active, approved questions matching the filter.
func (r *QuestionRepository) FindEligible(ctx context.Context, filter exam.PoolFilter) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + `
		 FROM questions
		 WHERE active = TRUE AND approved = TRUE AND category = $1`
	args := []interface{}{filter.Category}

	if filter.Difficulty != nil {
		args = append(args, *filter.Difficulty)
		query += fmt.Sprintf(" AND difficulty = $%d", len(args))
	}
	if filter.Subcategory != nil {
		args = append(args, *filter.Subcategory)
		query += fmt.Sprintf(" AND subcategory = $%d", len(args))
	}
	if len(filter.Tags) > 0 {
		args = append(args, filter.Tags)
		query += fmt.Sprintf(" AND tags @> $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// GetByID retrieves one question.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// GetByIDs retrieves the given questions keyed by id. Missing ids are
// simply absent from the map.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*model.Question, len(ids))
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out[q.ID] = q
	}
	return out, rows.Err()
}

// List retrieves questions for the admin surface with optional filters and
// pagination.
func (r *QuestionRepository) List(ctx context.Context, category string, page, perPage int) ([]model.Question, int64, error) {
	where := ""
	args := []interface{}{}
	if category != "" {
		args = append(args, category)
		where = " WHERE category = $1"
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, (page-1)*perPage)
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions`+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, err
		}
		questions = append(questions, *q)
	}
	return questions, total, rows.Err()
}

// Create inserts a new question into the pool.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (category, subcategory, tags, type, prompt, options, answer_key,
			 explanation, points, partial_credit, difficulty, active, approved)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at, updated_at`,
		q.Category, q.Subcategory, q.Tags, q.Type, q.Prompt, q.Options, q.AnswerKey,
		q.Explanation, q.Points, q.PartialCredit, q.Difficulty, q.Active, q.Approved,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// Update rewrites the editable fields of a question.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET category = $1, subcategory = $2, tags = $3, type = $4, prompt = $5,
		     options = $6, answer_key = $7, explanation = $8, points = $9,
		     partial_credit = $10, difficulty = $11, active = $12, approved = $13,
		     updated_at = NOW()
		 WHERE id = $14`,
		q.Category, q.Subcategory, q.Tags, q.Type, q.Prompt, q.Options, q.AnswerKey,
		q.Explanation, q.Points, q.PartialCredit, q.Difficulty, q.Active, q.Approved, q.ID)
	return err
}

// Retire marks a question inactive; live attempt snapshots are unaffected.
func (r *QuestionRepository) Retire(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// ApplyUsage folds one usage event into a question's statistics under a row
// lock, so concurrent completions compose.
func (r *QuestionRepository) ApplyUsage(ctx context.Context, questionID uuid.UUID, ev exam.UsageEvent) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var stats model.QuestionStats
	err = tx.QueryRow(ctx,
		`SELECT times_asked, times_correct, times_skipped, success_rate,
			 avg_time_seconds, option_counts, difficulty_score
		 FROM questions WHERE id = $1 FOR UPDATE`, questionID,
	).Scan(&stats.TimesAsked, &stats.TimesCorrect, &stats.TimesSkipped,
		&stats.SuccessRate, &stats.AvgTimeSeconds, &stats.OptionCounts, &stats.DifficultyScore)
	if err != nil {
		return err
	}

	stats = exam.ApplyUsage(stats, ev)

	_, err = tx.Exec(ctx,
		`UPDATE questions
		 SET times_asked = $1, times_correct = $2, times_skipped = $3,
		     success_rate = $4, avg_time_seconds = $5, option_counts = $6,
		     difficulty_score = $7, updated_at = NOW()
		 WHERE id = $8`,
		stats.TimesAsked, stats.TimesCorrect, stats.TimesSkipped,
		stats.SuccessRate, stats.AvgTimeSeconds, stats.OptionCounts,
		stats.DifficultyScore, questionID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
