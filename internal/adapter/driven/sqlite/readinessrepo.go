package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ericfisherdev/prready/internal/domain/model"
	"github.com/ericfisherdev/prready/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ResultStore = (*ReadinessRepo)(nil)

// ReadinessRepo persists readiness results as JSON payloads keyed by cache key.
type ReadinessRepo struct {
	db *DB
}

// NewReadinessRepo creates a new ReadinessRepo backed by the given DB.
func NewReadinessRepo(db *DB) *ReadinessRepo {
	return &ReadinessRepo{db: db}
}

// Load returns the stored result for key, or nil, nil if there is none.
func (r *ReadinessRepo) Load(ctx context.Context, key string) (*model.ReadinessResult, error) {
	const query = `SELECT payload FROM readiness_results WHERE key = ?`

	var payload string
	err := r.db.Reader.QueryRowContext(ctx, query, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load result %s: %w", model.ErrPersistence, key, err)
	}

	var result model.ReadinessResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("%w: decode result %s: %w", model.ErrPersistence, key, err)
	}

	return &result, nil
}

// Save stores result under key, replacing any previous value.
func (r *ReadinessRepo) Save(ctx context.Context, key string, result model.ReadinessResult) error {
	const query = `
		INSERT INTO readiness_results (key, payload, computed_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			computed_at = excluded.computed_at
	`

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("%w: encode result %s: %w", model.ErrPersistence, key, err)
	}

	if _, err := r.db.Writer.ExecContext(ctx, query, key, string(payload), formatTime(result.ComputedAt)); err != nil {
		return fmt.Errorf("%w: save result %s: %w", model.ErrPersistence, key, err)
	}

	return nil
}

// Clear removes the stored result for key. Clearing an absent key is a no-op.
func (r *ReadinessRepo) Clear(ctx context.Context, key string) error {
	const query = `DELETE FROM readiness_results WHERE key = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("%w: clear result %s: %w", model.ErrPersistence, key, err)
	}

	return nil
}
