package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/llm"
)

// fakeLLM returns canned responses keyed by a substring of the prompt, or a
// single response for everything when responses has one entry with key "".
type fakeLLM struct {
	responses map[string]string
	err       error
	usage     llm.Usage
	prompts   []string
}

func newFakeLLM(response string) *fakeLLM {
	return &fakeLLM{
		responses: map[string]string{"": response},
		usage:     llm.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (*llm.Result, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (*llm.Result, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	if text, ok := f.responses[""]; ok {
		return &llm.Result{Text: text, Model: "fake-model", Usage: f.usage}, nil
	}
	for needle, text := range f.responses {
		if needle != "" && strings.Contains(prompt, needle) {
			return &llm.Result{Text: text, Model: "fake-model", Usage: f.usage}, nil
		}
	}
	return nil, fmt.Errorf("no canned response for prompt: %.60s", prompt)
}

func (f *fakeLLM) GetModel(tier llm.ModelTier) string { return "fake-model" }
func (f *fakeLLM) Close() error                       { return nil }

// loggedStage captures one full stage-log lifecycle for assertions.
type loggedStage struct {
	Start  db.StageLogStart
	Finish *db.StageLogFinish
}

type fakeStageLogger struct {
	entries  []*loggedStage
	startErr error
}

func (f *fakeStageLogger) StartStageLog(ctx context.Context, input *db.StageLogStart) (uuid.UUID, error) {
	if f.startErr != nil {
		return uuid.Nil, f.startErr
	}
	f.entries = append(f.entries, &loggedStage{Start: *input})
	return uuid.New(), nil
}

func (f *fakeStageLogger) FinishStageLog(ctx context.Context, id uuid.UUID, finish *db.StageLogFinish) error {
	if len(f.entries) == 0 {
		return errors.New("finish without start")
	}
	last := f.entries[len(f.entries)-1]
	if last.Finish != nil {
		return errors.New("stage log finished twice")
	}
	last.Finish = finish
	return nil
}

func (f *fakeStageLogger) last() *loggedStage {
	if len(f.entries) == 0 {
		return nil
	}
	return f.entries[len(f.entries)-1]
}

type fakeImageClient struct {
	result *llm.ImageResult
	err    error
}

func (f *fakeImageClient) GenerateImage(ctx context.Context, prompt string) (*llm.ImageResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeImageClient) Close() error { return nil }

type fakeImageStore struct {
	saved []*db.ImageInput
	err   error
}

func (f *fakeImageStore) SaveImage(ctx context.Context, input *db.ImageInput) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, input)
	return fmt.Sprintf("topics/%s/img-1", input.TopicID), nil
}

func testTopic(both bool) *db.Topic {
	return &db.Topic{
		ID:                    uuid.New(),
		Title:                 "Digitalna lojalnost u restoranima",
		Description:           "How loyalty programs change repeat visits",
		Keywords:              []string{"loyalty", "restaurants"},
		GenerateBothLanguages: both,
		Status:                db.TopicStatusProcessing,
		CheckpointData:        map[string]json.RawMessage{},
		MaxRetries:            db.DefaultMaxRetries,
		Version:               1,
	}
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
