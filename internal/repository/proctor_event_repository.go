package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

// ProctorEventRepository handles append-only proctor event storage.
type ProctorEventRepository struct {
	pool *pgxpool.Pool
}

// NewProctorEventRepository creates a new ProctorEventRepository.
func NewProctorEventRepository(pool *pgxpool.Pool) *ProctorEventRepository {
	return &ProctorEventRepository{pool: pool}
}

// InsertBatch appends a batch of proctor events in one round trip.
func (r *ProctorEventRepository) InsertBatch(ctx context.Context, events []model.ProctorEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(
			`INSERT INTO proctor_events (attempt_id, user_id, type, detail, occurred_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			ev.AttemptID, ev.UserID, ev.Type, ev.Detail, ev.OccurredAt)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListByAttempt retrieves the recorded events for one attempt in order.
func (r *ProctorEventRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.ProctorEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, user_id, type, detail, occurred_at
		 FROM proctor_events WHERE attempt_id = $1
		 ORDER BY occurred_at`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ProctorEvent
	for rows.Next() {
		var ev model.ProctorEvent
		if err := rows.Scan(&ev.ID, &ev.AttemptID, &ev.UserID, &ev.Type, &ev.Detail, &ev.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
