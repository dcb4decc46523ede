package repository

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

// textRow replays one row of text-format column values through the same
// pgtype codecs a live query would use. A nil value is a SQL NULL.
type textRow struct {
	m    *pgtype.Map
	oids []uint32
	vals [][]byte
}

func (r textRow) Scan(dest ...any) error {
	if len(dest) != len(r.vals) {
		return fmt.Errorf("row has %d columns, scan wants %d", len(r.vals), len(dest))
	}
	for i, d := range dest {
		if err := r.m.Scan(r.oids[i], pgx.TextFormatCode, r.vals[i], d); err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
	}
	return nil
}

func TestScanAttemptFreshRow(t *testing.T) {
	// A just-started attempt: every nullable column is NULL, including
	// invalidated_reason, invalidated_by and result.
	row := textRow{
		m: pgtype.NewMap(),
		oids: []uint32{
			pgtype.UUIDOID, pgtype.UUIDOID, pgtype.Int4OID, pgtype.Int4OID,
			pgtype.TextOID, pgtype.JSONBOID, pgtype.Int4OID,
			pgtype.TimestamptzOID, pgtype.TimestamptzOID, pgtype.Int4OID,
			pgtype.Int4OID, pgtype.TimestamptzOID, pgtype.TimestamptzOID,
			pgtype.TimestamptzOID, pgtype.TimestamptzOID, pgtype.TextOID,
			pgtype.Int4OID, pgtype.JSONBOID, pgtype.Int4OID,
		},
		vals: [][]byte{
			[]byte("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), // id
			[]byte("6ba7b811-9dad-11d1-80b4-00c04fd430c8"), // exam_id
			[]byte("7"),           // user_id
			[]byte("1"),           // attempt_number
			[]byte("in_progress"), // status
			[]byte(`[{"question_id":"6ba7b812-9dad-11d1-80b4-00c04fd430c8","order":1,"points":1}]`),
			[]byte("0"), // elapsed_seconds
			[]byte("2026-03-10 09:00:00+00"), // session_started_at
			nil,                              // paused_at
			[]byte("0"),                      // pause_count
			[]byte("0"),                      // pause_seconds_total
			nil,                              // deadline
			[]byte("2026-03-10 09:00:00+00"), // started_at
			nil,                              // submitted_at
			nil,                              // finished_at
			nil,                              // invalidated_reason
			nil,                              // invalidated_by
			nil,                              // result
			[]byte("1"),                      // version
		},
	}

	a, err := scanAttempt(row)
	require.NoError(t, err)

	assert.Equal(t, 7, a.UserID)
	assert.Equal(t, 1, a.AttemptNumber)
	assert.Equal(t, model.AttemptStatusInProgress, a.Status)
	assert.Len(t, a.Snapshot, 1)
	assert.Equal(t, "", a.InvalidatedReason)
	assert.Nil(t, a.InvalidatedBy)
	assert.Nil(t, a.Result)
	assert.Nil(t, a.PausedAt)
	assert.Nil(t, a.Deadline)
	assert.Equal(t, 1, a.Version)
}
