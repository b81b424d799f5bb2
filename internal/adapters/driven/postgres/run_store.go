package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
	"github.com/searchlight-oss/indexer-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RunStore = (*RunStore)(nil)

// RunStore implements driven.RunStore using PostgreSQL, so a run's terminal
// phase and failed-item count survive the process.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Save upserts the run state by job id.
func (s *RunStore) Save(ctx context.Context, state *domain.RunState) error {
	statsJSON, err := json.Marshal(state.Stats)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO index_runs (job_id, group_id, index_name, mode, phase, stats, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id) DO UPDATE SET
			phase = EXCLUDED.phase,
			stats = EXCLUDED.stats,
			error = EXCLUDED.error,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err = s.db.ExecContext(ctx, query,
		state.JobID,
		state.GroupID,
		state.IndexName,
		string(state.Mode),
		string(state.Phase),
		statsJSON,
		state.Error,
		nullTime(state.StartedAt),
		nullTime(state.CompletedAt),
	)
	return err
}

// Get retrieves a run state by job id.
func (s *RunStore) Get(ctx context.Context, jobID string) (*domain.RunState, error) {
	query := `
		SELECT job_id, group_id, index_name, mode, phase, stats, error, started_at, completed_at
		FROM index_runs
		WHERE job_id = $1
	`
	state, err := scanRun(s.db.QueryRowContext(ctx, query, jobID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", jobID, domain.ErrTaskNotFound)
	}
	return state, err
}

// List retrieves recent run states for an index, newest first.
func (s *RunStore) List(ctx context.Context, indexName string, limit int) ([]*domain.RunState, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT job_id, group_id, index_name, mode, phase, stats, error, started_at, completed_at
		FROM index_runs
		WHERE index_name = $1
		ORDER BY started_at DESC NULLS LAST
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, indexName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []*domain.RunState
	for rows.Next() {
		state, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.RunState, error) {
	var state domain.RunState
	var mode, phase string
	var statsJSON []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&state.JobID,
		&state.GroupID,
		&state.IndexName,
		&mode,
		&phase,
		&statsJSON,
		&state.Error,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	state.Mode = domain.IndexingType(mode)
	state.Phase = domain.RunPhase(phase)
	state.StartedAt = timePtr(startedAt)
	state.CompletedAt = timePtr(completedAt)

	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &state.Stats); err != nil {
			return nil, err
		}
	}
	return &state, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	out := t.Time
	return &out
}
