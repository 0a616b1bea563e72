// Package pipeline provides the high-level orchestration for the content
// generation process: a fixed stage sequence driven through per-stage agents
// with durable checkpoints between stages.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dinver-app/content-pipeline/internal/agents"
	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/llm"
	"github.com/dinver-app/content-pipeline/internal/observability"
)

// ErrRetryBudgetExhausted is returned by RetryTopic when a failed topic has
// used all of its retry attempts.
var ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

// TopicStore is the persistence surface the orchestrator needs. Satisfied
// by *db.DB.
type TopicStore interface {
	GetTopic(ctx context.Context, id uuid.UUID) (*db.Topic, error)
	SetTopicStatus(ctx context.Context, id uuid.UUID, status string, currentStage *string) error
	SaveCheckpoint(ctx context.Context, id uuid.UUID, stage string, output json.RawMessage, version int64) (int64, error)
	ResetCheckpoint(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, stage, errorMessage string) error
	MarkReviewReady(ctx context.Context, id uuid.UUID, linkedInHr, linkedInEn *string) error
	RequeueForRetry(ctx context.Context, id uuid.UUID) error
	ListQueuedTopicIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// Publisher is the boundary where finished pipeline output becomes a
// published post. Satisfied by *db.DB.
type Publisher interface {
	PostExistsForTopic(ctx context.Context, topicID uuid.UUID) (bool, error)
	CreatePost(ctx context.Context, input *db.PostInput) (uuid.UUID, error)
}

// Deps holds the injected dependencies for a Manager.
type Deps struct {
	Store      TopicStore
	Logs       agents.StageLogger
	LLM        llm.Client
	Images     llm.ImageClient
	ImageStore agents.ImageStore
	Publisher  Publisher
}

// Options holds configuration for a Manager.
type Options struct {
	// StageTimeout bounds each individual stage. Zero disables the bound.
	StageTimeout time.Duration
	Verbose      bool
	Printer      *observability.Printer
}

// ProcessOptions controls one ProcessTopic invocation.
type ProcessOptions struct {
	// Resume reuses checkpointed stage outputs instead of regenerating them.
	Resume bool
	// FullReset discards all checkpoint data before processing.
	FullReset bool
}

// DefaultProcessOptions resumes from checkpoints, the normal mode.
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{Resume: true}
}

// Manager drives topics through the pipeline.
type Manager struct {
	store        TopicStore
	publisher    Publisher
	stages       []stageSpec
	printer      *observability.Printer
	stageTimeout time.Duration
	verbose      bool
}

// NewManager creates a Manager with the full stage dispatch table.
func NewManager(deps Deps, opts Options) *Manager {
	printer := opts.Printer
	if printer == nil {
		printer = observability.NewPrinter(os.Stdout)
	}
	return &Manager{
		store:        deps.Store,
		publisher:    deps.Publisher,
		stages:       buildStages(deps),
		printer:      printer,
		stageTimeout: opts.StageTimeout,
		verbose:      opts.Verbose,
	}
}

// ProcessTopic runs one topic through every remaining stage and publishes
// the result. Completed stages with checkpointed output are skipped when
// resuming. On any stage failure the topic is marked failed with the stage
// frozen in current_stage and the error is returned.
func (m *Manager) ProcessTopic(ctx context.Context, topicID uuid.UUID, opts ProcessOptions) error {
	topic, err := m.store.GetTopic(ctx, topicID)
	if err != nil {
		return err
	}

	if opts.FullReset {
		if err := m.store.ResetCheckpoint(ctx, topicID); err != nil {
			return fmt.Errorf("failed to reset checkpoint: %w", err)
		}
		topic, err = m.store.GetTopic(ctx, topicID)
		if err != nil {
			return err
		}
		if m.verbose {
			fmt.Printf("[VERBOSE] Cleared checkpoint for topic %s\n", topicID)
		}
	}

	rc := agents.NewContext(topic)
	if opts.Resume && !opts.FullReset && topic.HasCheckpoint() {
		for stage, output := range topic.CheckpointData {
			rc.Set(stage, output)
		}
	}

	if err := m.store.SetTopicStatus(ctx, topicID, db.TopicStatusProcessing, nil); err != nil {
		return fmt.Errorf("failed to mark topic processing: %w", err)
	}

	active := activeStages(m.stages, topic.GenerateBothLanguages)
	total := len(active)
	version := topic.Version

	for i, spec := range active {
		stepLabel := fmt.Sprintf("Step %d/%d", i+1, total)

		if opts.Resume && !opts.FullReset && topic.StageCompleted(spec.name) && rc.Has(spec.name) {
			fmt.Printf("%s: Skipping %s (checkpoint found)...\n", stepLabel, spec.name)
			continue
		}

		fmt.Printf("%s: Running %s...\n", stepLabel, spec.name)
		stageName := spec.name
		if err := m.store.SetTopicStatus(ctx, topicID, spec.topicStatus, &stageName); err != nil {
			return fmt.Errorf("failed to set topic status for %s: %w", spec.name, err)
		}

		output, err := m.runStage(ctx, spec, rc)
		if err != nil {
			m.failTopic(ctx, topicID, spec.name, err)
			return fmt.Errorf("stage %s failed: %w", spec.name, err)
		}

		rc.Set(spec.name, output)
		newVersion, err := m.store.SaveCheckpoint(ctx, topicID, spec.name, output, version)
		if err != nil {
			m.failTopic(ctx, topicID, spec.name, err)
			return fmt.Errorf("failed to checkpoint %s: %w", spec.name, err)
		}
		version = newVersion
		topic.CompletedStages = append(topic.CompletedStages, spec.name)

		if m.verbose {
			fmt.Printf("[VERBOSE] Checkpointed %s (version %d)\n", spec.name, version)
		}
	}

	fmt.Printf("Publishing topic %s...\n", topicID)
	if err := m.publish(ctx, rc); err != nil {
		m.failTopic(ctx, topicID, "publish", err)
		return fmt.Errorf("publish failed: %w", err)
	}

	linkedInHr, linkedInEn := socialPosts(rc)
	if err := m.store.MarkReviewReady(ctx, topicID, linkedInHr, linkedInEn); err != nil {
		return fmt.Errorf("failed to mark topic review_ready: %w", err)
	}

	if m.verbose {
		if final, err := m.store.GetTopic(ctx, topicID); err == nil {
			m.printer.PrintTopic(final)
		}
	}

	fmt.Printf("Done! Topic %s is ready for review.\n", topicID)
	return nil
}

// runStage executes one agent under the configured stage timeout.
func (m *Manager) runStage(ctx context.Context, spec stageSpec, rc *agents.Context) (json.RawMessage, error) {
	if m.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.stageTimeout)
		defer cancel()
	}
	return spec.agent.Execute(ctx, rc)
}

// failTopic records a stage failure. The recording itself is best effort;
// the stage error is what gets surfaced.
func (m *Manager) failTopic(ctx context.Context, topicID uuid.UUID, stage string, stageErr error) {
	if err := m.store.MarkFailed(ctx, topicID, stage, stageErr.Error()); err != nil {
		fmt.Printf("Warning: Failed to record failure for topic %s: %v\n", topicID, err)
	}
}

// RetryTopic requeues a failed topic and reruns it, resuming from its
// checkpoint. Topics that are not failed, or that have exhausted their
// retry budget, are rejected.
func (m *Manager) RetryTopic(ctx context.Context, topicID uuid.UUID) error {
	topic, err := m.store.GetTopic(ctx, topicID)
	if err != nil {
		return err
	}

	if topic.Status != db.TopicStatusFailed {
		return fmt.Errorf("topic %s is not failed (status: %s)", topicID, topic.Status)
	}
	if topic.RetryCount >= topic.MaxRetries {
		return fmt.Errorf("%w: %d/%d attempts used", ErrRetryBudgetExhausted, topic.RetryCount, topic.MaxRetries)
	}

	if err := m.store.RequeueForRetry(ctx, topicID); err != nil {
		return fmt.Errorf("failed to requeue topic: %w", err)
	}

	fmt.Printf("Retrying topic %s (attempt %d/%d)...\n", topicID, topic.RetryCount+1, topic.MaxRetries)
	return m.ProcessTopic(ctx, topicID, DefaultProcessOptions())
}

// ProcessQueued drains up to limit queued topics with bounded concurrency.
// Individual topic failures are reported but do not stop the batch.
func (m *Manager) ProcessQueued(ctx context.Context, limit, concurrency int) (int, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	ids, err := m.store.ListQueuedTopicIDs(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list queued topics: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	fmt.Printf("Processing %d queued topic(s) with concurrency %d...\n", len(ids), concurrency)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := m.ProcessTopic(gCtx, id, DefaultProcessOptions()); err != nil {
				fmt.Printf("Warning: Topic %s failed: %v\n", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return len(ids), err
	}
	return len(ids), nil
}

// socialPosts extracts the finished LinkedIn post texts from the run
// context for denormalization onto the topic row.
func socialPosts(rc *agents.Context) (hr, en *string) {
	var postHr agents.SocialPostOutput
	if err := rc.Output(db.StageLinkedInHr, &postHr); err == nil && postHr.Post != "" {
		hr = &postHr.Post
	}
	var postEn agents.SocialPostOutput
	if err := rc.Output(db.StageLinkedInEn, &postEn); err == nil && postEn.Post != "" {
		en = &postEn.Post
	}
	return hr, en
}
