package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Stage Log Methods
// -----------------------------------------------------------------------------

// StartStageLog opens a stage log entry in the started state and returns its
// id. One entry is created per execution attempt, not per topic.
func (db *DB) StartStageLog(ctx context.Context, input *StageLogStart) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO stage_logs (topic_id, stage, agent_name, input_data, status, started_at)
		 VALUES ($1, $2, $3, $4, 'started', NOW())
		 RETURNING id`,
		input.TopicID, input.Stage, input.AgentName, []byte(input.InputData),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to start stage log: %w", err)
	}
	return id, nil
}

// FinishStageLog closes a stage log entry with its outcome. It is called
// exactly once per entry; the record is never mutated afterwards.
func (db *DB) FinishStageLog(ctx context.Context, id uuid.UUID, finish *StageLogFinish) error {
	var modelUsed *string
	if finish.ModelUsed != "" {
		modelUsed = &finish.ModelUsed
	}
	var errorMessage *string
	if finish.ErrorMessage != "" {
		errorMessage = &finish.ErrorMessage
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE stage_logs
		 SET output_data = $1, prompt_tokens = $2, completion_tokens = $3,
		     total_tokens = $4, model_used = $5, status = $6, error_message = $7,
		     completed_at = NOW(),
		     duration_ms = (EXTRACT(EPOCH FROM (NOW() - started_at)) * 1000)::int
		 WHERE id = $8`,
		[]byte(finish.OutputData), finish.PromptTokens, finish.CompletionTokens,
		finish.TotalTokens, modelUsed, finish.Status, errorMessage, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish stage log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stage log not found: %s", id)
	}
	return nil
}

// ListStageLogs retrieves all stage log entries for a topic in execution
// order, optionally filtered by stage.
func (db *DB) ListStageLogs(ctx context.Context, topicID uuid.UUID, stage *string) ([]StageLog, error) {
	query := `SELECT id, topic_id, stage, agent_name, input_data, output_data,
	                 prompt_tokens, completion_tokens, total_tokens, duration_ms,
	                 model_used, status, error_message, started_at, completed_at
	          FROM stage_logs
	          WHERE topic_id = $1`
	args := []any{topicID}

	if stage != nil {
		query += " AND stage = $2"
		args = append(args, *stage)
	}

	query += " ORDER BY started_at"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage logs: %w", err)
	}
	defer rows.Close()

	var logs []StageLog
	for rows.Next() {
		var log StageLog
		var startedAt time.Time
		if err := rows.Scan(&log.ID, &log.TopicID, &log.Stage, &log.AgentName,
			&log.InputData, &log.OutputData, &log.PromptTokens, &log.CompletionTokens,
			&log.TotalTokens, &log.DurationMs, &log.ModelUsed, &log.Status,
			&log.ErrorMessage, &startedAt, &log.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage log: %w", err)
		}
		log.StartedAt = startedAt
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
