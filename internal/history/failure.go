package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	minFailureLimit = 1
	maxFailureLimit = 500
)

// Failure is one rejected or timed-out telemetry publish.
type Failure struct {
	ID         int64     `json:"id"`
	FrameID    string    `json:"frameId,omitempty"`
	Topic      string    `json:"topic"`
	EntityKind string    `json:"entityKind"`
	EntityKey  string    `json:"entityKey,omitempty"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurredAt"`
}

// FailureRepository stores publish failures.
type FailureRepository struct {
	db *sql.DB
}

// NewFailureRepository creates a repository on an open, migrated database.
func NewFailureRepository(db *sql.DB) *FailureRepository {
	return &FailureRepository{db: db}
}

// Record inserts f. A zero OccurredAt is stamped with the current time.
func (r *FailureRepository) Record(ctx context.Context, f Failure) error {
	if f.Topic == "" || f.Error == "" {
		return fmt.Errorf("%w: topic and error are required", ErrInvalidFailure)
	}
	if f.OccurredAt.IsZero() {
		f.OccurredAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO publish_failures (frame_id, topic, entity_kind, entity_key, error, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.FrameID, f.Topic, f.EntityKind, f.EntityKey, f.Error, formatTime(f.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("inserting publish failure: %w", err)
	}
	return nil
}

// Recent returns the newest failures first. limit is clamped to 1..500.
func (r *FailureRepository) Recent(ctx context.Context, limit int) ([]Failure, error) {
	limit = clampLimit(limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, frame_id, topic, entity_kind, entity_key, error, occurred_at
		 FROM publish_failures
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying publish failures: %w", err)
	}
	defer rows.Close()

	failures := make([]Failure, 0, limit)
	for rows.Next() {
		var f Failure
		var occurredAt string
		if err := rows.Scan(&f.ID, &f.FrameID, &f.Topic, &f.EntityKind, &f.EntityKey, &f.Error, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning publish failure: %w", err)
		}
		if f.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating publish failures: %w", err)
	}
	return failures, nil
}

func clampLimit(limit int) int {
	if limit < minFailureLimit {
		return minFailureLimit
	}
	if limit > maxFailureLimit {
		return maxFailureLimit
	}
	return limit
}
