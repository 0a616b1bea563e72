package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const topicColumns = `id, title, description, keywords, reference_urls,
	generate_both_languages, status, current_stage, completed_stages,
	checkpoint_data, last_checkpoint_at, retry_count, max_retries, last_error,
	linkedin_post_hr, linkedin_post_en, version, created_at, updated_at`

func scanTopic(row pgx.Row) (*Topic, error) {
	var t Topic
	var checkpointJSON []byte

	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Keywords, &t.ReferenceURLs,
		&t.GenerateBothLanguages, &t.Status, &t.CurrentStage, &t.CompletedStages,
		&checkpointJSON, &t.LastCheckpointAt, &t.RetryCount, &t.MaxRetries, &t.LastError,
		&t.LinkedInPostHr, &t.LinkedInPostEn, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(checkpointJSON) > 0 {
		if err := json.Unmarshal(checkpointJSON, &t.CheckpointData); err != nil {
			return nil, fmt.Errorf("failed to decode checkpoint data: %w", err)
		}
	}
	if t.CheckpointData == nil {
		t.CheckpointData = map[string]json.RawMessage{}
	}

	return &t, nil
}

// CreateTopic submits a new topic in the queued state.
func (db *DB) CreateTopic(ctx context.Context, input *TopicInput) (*Topic, error) {
	maxRetries := input.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO topics (title, description, keywords, reference_urls,
		       generate_both_languages, status, completed_stages, checkpoint_data, max_retries)
		 VALUES ($1, $2, $3, $4, $5, 'queued', '{}', '{}'::jsonb, $6)
		 RETURNING `+topicColumns,
		input.Title, input.Description, input.Keywords, input.ReferenceURLs,
		input.GenerateBothLanguages, maxRetries,
	)

	topic, err := scanTopic(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}
	return topic, nil
}

// GetTopic retrieves a topic by id. Returns ErrTopicNotFound if absent.
func (db *DB) GetTopic(ctx context.Context, id uuid.UUID) (*Topic, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+topicColumns+` FROM topics WHERE id = $1`, id)

	topic, err := scanTopic(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return topic, nil
}

// SetTopicStatus updates the lifecycle status and current stage pointer.
func (db *DB) SetTopicStatus(ctx context.Context, id uuid.UUID, status string, currentStage *string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE topics SET status = $1, current_stage = $2, updated_at = NOW() WHERE id = $3`,
		status, currentStage, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set topic status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTopicNotFound
	}
	return nil
}

// SaveCheckpoint atomically records a completed stage: it sets
// checkpointData[stage], appends the stage to completedStages (idempotent)
// and bumps lastCheckpointAt, all in one guarded row update. The version
// argument must match the version last read for this topic; on mismatch the
// write is rejected with ErrCheckpointConflict and nothing changes. No reader
// can observe a completedStages entry without its checkpointData entry.
func (db *DB) SaveCheckpoint(ctx context.Context, id uuid.UUID, stage string, output json.RawMessage, version int64) (int64, error) {
	if len(output) == 0 {
		output = json.RawMessage("null")
	}

	var newVersion int64
	err := db.pool.QueryRow(ctx,
		`UPDATE topics
		 SET checkpoint_data = jsonb_set(COALESCE(checkpoint_data, '{}'::jsonb), ARRAY[$2], $3::jsonb, true),
		     completed_stages = CASE WHEN $2 = ANY(completed_stages)
		                             THEN completed_stages
		                             ELSE array_append(completed_stages, $2) END,
		     last_checkpoint_at = NOW(),
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $1 AND version = $4
		 RETURNING version`,
		id, stage, []byte(output), version,
	).Scan(&newVersion)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Distinguish a missing topic from a lost CAS race.
			if _, getErr := db.GetTopic(ctx, id); getErr != nil {
				return 0, getErr
			}
			return 0, ErrCheckpointConflict
		}
		return 0, fmt.Errorf("failed to save checkpoint for stage %s: %w", stage, err)
	}

	return newVersion, nil
}

// ResetCheckpoint discards all checkpointed progress for a topic. This is an
// explicit operator action, never triggered automatically.
func (db *DB) ResetCheckpoint(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE topics
		 SET checkpoint_data = '{}'::jsonb, completed_stages = '{}',
		     last_checkpoint_at = NULL, version = version + 1, updated_at = NOW()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to reset checkpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTopicNotFound
	}
	return nil
}

// MarkFailed records a stage failure: status=failed, lastError set, retry
// counter incremented. The current stage pointer stays frozen at the failing
// stage and checkpointed progress is preserved.
func (db *DB) MarkFailed(ctx context.Context, id uuid.UUID, stage, errorMessage string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE topics
		 SET status = 'failed', current_stage = $2, last_error = $3,
		     retry_count = retry_count + 1, updated_at = NOW()
		 WHERE id = $1`,
		id, stage, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to mark topic failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTopicNotFound
	}
	return nil
}

// MarkReviewReady finalizes a successful run: status=review_ready, current
// stage cleared, and the generated social posts stored on the topic.
func (db *DB) MarkReviewReady(ctx context.Context, id uuid.UUID, linkedInHr, linkedInEn *string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE topics
		 SET status = 'review_ready', current_stage = NULL,
		     linkedin_post_hr = COALESCE($2, linkedin_post_hr),
		     linkedin_post_en = COALESCE($3, linkedin_post_en),
		     updated_at = NOW()
		 WHERE id = $1`,
		id, linkedInHr, linkedInEn,
	)
	if err != nil {
		return fmt.Errorf("failed to mark topic review_ready: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTopicNotFound
	}
	return nil
}

// RequeueForRetry resets a failed topic to queued and clears its last error.
// The retry budget check belongs to the orchestrator, not the store.
func (db *DB) RequeueForRetry(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE topics SET status = 'queued', last_error = NULL, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to requeue topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTopicNotFound
	}
	return nil
}

// ListQueuedTopicIDs returns ids of topics waiting to be processed, oldest
// first.
func (db *DB) ListQueuedTopicIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id FROM topics WHERE status = 'queued' ORDER BY created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list queued topics: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan topic id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
