// Package agents implements the stage executors of the content pipeline.
// Each agent runs exactly one stage: it builds a prompt from the run context,
// calls an external generation service, parses and validates the structured
// response, and records a single stage-log entry for the attempt.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/llm"
)

// Context accumulates stage outputs for one pipeline run. It is in-memory
// only; on resume the orchestrator rebuilds it from the topic's checkpoint.
type Context struct {
	Topic   *db.Topic
	Outputs map[string]json.RawMessage
}

// NewContext creates a run context seeded with the topic snapshot.
func NewContext(topic *db.Topic) *Context {
	return &Context{
		Topic:   topic,
		Outputs: make(map[string]json.RawMessage),
	}
}

// Set stores a stage output under its stage name.
func (c *Context) Set(stage string, output json.RawMessage) {
	c.Outputs[stage] = output
}

// Has reports whether a stage output is present.
func (c *Context) Has(stage string) bool {
	_, ok := c.Outputs[stage]
	return ok
}

// Output decodes the named stage's output into v.
func (c *Context) Output(stage string, v any) error {
	raw, ok := c.Outputs[stage]
	if !ok {
		return fmt.Errorf("stage output %q not present in run context", stage)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %q output: %w", stage, err)
	}
	return nil
}

// StageLogger records stage execution attempts. Satisfied by *db.DB.
type StageLogger interface {
	StartStageLog(ctx context.Context, input *db.StageLogStart) (uuid.UUID, error)
	FinishStageLog(ctx context.Context, id uuid.UUID, finish *db.StageLogFinish) error
}

// ImageStore persists generated image binaries and returns a stable storage
// key. Satisfied by *db.DB.
type ImageStore interface {
	SaveImage(ctx context.Context, input *db.ImageInput) (string, error)
}

// Agent executes exactly one stage's content-generation step. Agents never
// retry internally; retry policy belongs to the orchestrator.
type Agent interface {
	Name() string
	Stage() string
	Execute(ctx context.Context, rc *Context) (json.RawMessage, error)
}

// validate is shared by all agents for output-field validation.
var validate = validator.New()

// maxLoggedInputBytes bounds the sanitized input payload stored per stage
// log entry so prompts do not bloat the audit table.
const maxLoggedInputBytes = 4096

// base carries the dependencies shared by every agent.
type base struct {
	llm  llm.Client
	logs StageLogger
}

// execution is the successful outcome of one instrumented agent run.
type execution struct {
	output any
	usage  llm.Usage
	model  string
}

// instrument runs fn with stage-log bookkeeping: an entry is opened in the
// started state before execution and closed exactly once with the outcome.
// Logging failures are not fatal to the stage itself.
func (b base) instrument(ctx context.Context, topicID uuid.UUID, stage, agentName string, input any, fn func(ctx context.Context) (*execution, error)) (json.RawMessage, error) {
	logID, logErr := b.logs.StartStageLog(ctx, &db.StageLogStart{
		TopicID:   topicID,
		Stage:     stage,
		AgentName: agentName,
		InputData: marshalTruncated(input),
	})

	exec, err := fn(ctx)
	if err != nil {
		if logErr == nil {
			_ = b.logs.FinishStageLog(ctx, logID, &db.StageLogFinish{
				Status:       db.StageLogFailed,
				ErrorMessage: err.Error(),
			})
		}
		return nil, err
	}

	outputJSON, err := json.Marshal(exec.output)
	if err != nil {
		if logErr == nil {
			_ = b.logs.FinishStageLog(ctx, logID, &db.StageLogFinish{
				Status:       db.StageLogFailed,
				ErrorMessage: fmt.Sprintf("failed to marshal output: %v", err),
			})
		}
		return nil, fmt.Errorf("failed to marshal %s output: %w", stage, err)
	}

	if logErr == nil {
		_ = b.logs.FinishStageLog(ctx, logID, &db.StageLogFinish{
			OutputData:       outputJSON,
			PromptTokens:     exec.usage.PromptTokens,
			CompletionTokens: exec.usage.CompletionTokens,
			TotalTokens:      exec.usage.TotalTokens,
			ModelUsed:        exec.model,
			Status:           db.StageLogCompleted,
		})
	}

	return outputJSON, nil
}

// marshalTruncated renders the agent input for the stage log, replacing
// oversized payloads with a bounded preview so the row stays small.
func marshalTruncated(input any) json.RawMessage {
	data, err := json.Marshal(input)
	if err != nil {
		return json.RawMessage(`{"error":"unserializable input"}`)
	}
	if len(data) <= maxLoggedInputBytes {
		return data
	}

	preview, _ := json.Marshal(map[string]any{
		"truncated_bytes": len(data),
		"preview":         string(data[:maxLoggedInputBytes]),
	})
	return preview
}

// validateOutput checks stage-specific required fields and translates
// validator failures into the agents error taxonomy.
func validateOutput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return &ValidationError{
			Field:   f.Namespace(),
			Message: fmt.Sprintf("failed %q constraint", f.Tag()),
		}
	}
	return &ValidationError{Message: err.Error()}
}
