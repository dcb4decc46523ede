package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

// ErrVersionConflict is returned when a versioned update finds the attempt
// row already modified by a concurrent writer.
var ErrVersionConflict = errors.New("attempt version conflict")

const attemptColumns = `id, exam_id, user_id, attempt_number, status, snapshot,
	 elapsed_seconds, session_started_at, paused_at, pause_count,
	 pause_seconds_total, deadline, started_at, submitted_at, finished_at,
	 invalidated_reason, invalidated_by, result, version`

// AttemptRepository handles exam attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	var reason pgtype.Text
	err := row.Scan(
		&a.ID, &a.ExamID, &a.UserID, &a.AttemptNumber, &a.Status, &a.Snapshot,
		&a.ElapsedSeconds, &a.SessionStartedAt, &a.PausedAt, &a.PauseCount,
		&a.PauseSecondsTotal, &a.Deadline, &a.StartedAt, &a.SubmittedAt,
		&a.FinishedAt, &reason, &a.InvalidatedBy, &a.Result, &a.Version,
	)
	if err != nil {
		return nil, err
	}
	a.InvalidatedReason = reason.String
	return a, nil
}

// Create inserts a new attempt, assigning the next attempt number for the
// exam-trainee pair.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (exam_id, user_id, attempt_number, status, snapshot,
			 elapsed_seconds, session_started_at, deadline, started_at, version)
		 VALUES ($1, $2,
			 (SELECT COALESCE(MAX(attempt_number), 0) + 1
			  FROM exam_attempts WHERE exam_id = $1 AND user_id = $2),
			 $3, $4, $5, $6, $7, $8, 1)
		 RETURNING id, attempt_number`,
		a.ExamID, a.UserID, a.Status, a.Snapshot,
		a.ElapsedSeconds, a.SessionStartedAt, a.Deadline, a.StartedAt,
	).Scan(&a.ID, &a.AttemptNumber)
}

// GetByID retrieves one attempt including its saved answers.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadAnswers(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AttemptRepository) loadAnswers(ctx context.Context, a *model.ExamAttempt) error {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, payload, time_spent_seconds, flagged, updated_at
		 FROM attempt_answers WHERE attempt_id = $1`, a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	a.Answers = make(map[uuid.UUID]model.AnswerRecord)
	for rows.Next() {
		var qid uuid.UUID
		var rec model.AnswerRecord
		if err := rows.Scan(&qid, &rec.Payload, &rec.TimeSpentSeconds, &rec.Flagged, &rec.UpdatedAt); err != nil {
			return err
		}
		a.Answers[qid] = rec
	}
	return rows.Err()
}

// ListByUserAndExam retrieves a trainee's attempt history for one exam,
// oldest first. Used by the availability check.
func (r *AttemptRepository) ListByUserAndExam(ctx context.Context, userID int, examID uuid.UUID) ([]model.ExamAttempt, error) {
	return r.list(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts WHERE user_id = $1 AND exam_id = $2
		 ORDER BY attempt_number`, userID, examID)
}

// ListByExam retrieves all attempts against one exam for the admin surface.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamAttempt, error) {
	return r.list(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts WHERE exam_id = $1
		 ORDER BY started_at DESC`, examID)
}

// GetActive retrieves a trainee's live (in_progress or paused) attempt on an
// exam, or pgx.ErrNoRows.
func (r *AttemptRepository) GetActive(ctx context.Context, userID int, examID uuid.UUID) (*model.ExamAttempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts
		 WHERE user_id = $1 AND exam_id = $2 AND status IN ($3, $4)`,
		userID, examID, model.AttemptStatusInProgress, model.AttemptStatusPaused))
	if err != nil {
		return nil, err
	}
	if err := r.loadAnswers(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AttemptRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// Update persists an attempt's mutable state guarded by its version. The
// stored version must match a.Version; on success the row's version is
// bumped and a.Version is updated to match. A mismatch returns
// ErrVersionConflict and the caller reloads and retries.
func (r *AttemptRepository) Update(ctx context.Context, a *model.ExamAttempt) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $1, elapsed_seconds = $2, session_started_at = $3,
		     paused_at = $4, pause_count = $5, pause_seconds_total = $6,
		     deadline = $7, submitted_at = $8, finished_at = $9,
		     invalidated_reason = $10, invalidated_by = $11, result = $12,
		     version = version + 1
		 WHERE id = $13 AND version = $14`,
		a.Status, a.ElapsedSeconds, a.SessionStartedAt, a.PausedAt, a.PauseCount,
		a.PauseSecondsTotal, a.Deadline, a.SubmittedAt, a.FinishedAt,
		a.InvalidatedReason, a.InvalidatedBy, a.Result, a.ID, a.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	a.Version++
	return nil
}

// UpsertAnswer writes the current answer for one question of an attempt.
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, attemptID, questionID uuid.UUID, rec model.AnswerRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, payload, time_spent_seconds, flagged, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET payload = EXCLUDED.payload,
		     time_spent_seconds = EXCLUDED.time_spent_seconds,
		     flagged = EXCLUDED.flagged,
		     updated_at = EXCLUDED.updated_at`,
		attemptID, questionID, rec.Payload, rec.TimeSpentSeconds, rec.Flagged, rec.UpdatedAt)
	return err
}

// ListExpiredInProgress finds in_progress attempts whose deadline passed
// before cutoff. The sweep worker finalizes these as timed_out.
func (r *AttemptRepository) ListExpiredInProgress(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	return r.listIDs(ctx,
		`SELECT id FROM exam_attempts
		 WHERE status = $1 AND deadline IS NOT NULL AND deadline < $2`,
		model.AttemptStatusInProgress, cutoff)
}

// ListOverduePaused finds paused attempts whose cumulative pause budget ran
// out before cutoff. The sweep worker finalizes these as abandoned.
func (r *AttemptRepository) ListOverduePaused(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	return r.listIDs(ctx,
		`SELECT a.id
		 FROM exam_attempts a
		 JOIN exams e ON e.id = a.exam_id
		 WHERE a.status = $1
		   AND e.max_pause_minutes > 0
		   AND a.paused_at + make_interval(secs => e.max_pause_minutes * 60 - a.pause_seconds_total) < $2`,
		model.AttemptStatusPaused, cutoff)
}

func (r *AttemptRepository) listIDs(ctx context.Context, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
