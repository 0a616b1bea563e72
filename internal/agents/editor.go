package agents

import (
	"context"
	"encoding/json"

	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/llm"
	"github.com/dinver-app/content-pipeline/internal/prompts"
)

// EditedContent is one language's article after the editing pass.
type EditedContent struct {
	Title       string `json:"title" validate:"required"`
	Content     string `json:"content" validate:"required"`
	Excerpt     string `json:"excerpt,omitempty"`
	ReadingTime int    `json:"reading_time,omitempty"`
}

// EditorOutput is the structured result of the edit stage. En is nil for
// single-language topics.
type EditorOutput struct {
	Hr           *EditedContent `json:"hr" validate:"required"`
	En           *EditedContent `json:"en,omitempty"`
	Changes      []string       `json:"changes,omitempty"`
	QualityScore float64        `json:"quality_score" validate:"gte=0,lte=10"`
}

// EditorAgent revises all existing drafts in a single pass so the two
// language versions stay aligned.
type EditorAgent struct {
	base
}

func NewEditorAgent(client llm.Client, logs StageLogger) *EditorAgent {
	return &EditorAgent{base: base{llm: client, logs: logs}}
}

func (a *EditorAgent) Name() string  { return "editor" }
func (a *EditorAgent) Stage() string { return db.StageEdit }

func (a *EditorAgent) Execute(ctx context.Context, rc *Context) (json.RawMessage, error) {
	topic := rc.Topic

	var draftHr DraftOutput
	if err := rc.Output(db.StageDraftHr, &draftHr); err != nil {
		return nil, err
	}
	draftHrJSON, err := json.Marshal(draftHr)
	if err != nil {
		return nil, err
	}

	draftEnText := ""
	if rc.Has(db.StageDraftEn) {
		var draftEn DraftOutput
		if err := rc.Output(db.StageDraftEn, &draftEn); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(draftEn)
		if err != nil {
			return nil, err
		}
		draftEnText = string(raw)
	}

	input := map[string]any{
		"title":     draftHr.Title,
		"bilingual": draftEnText != "",
	}

	return a.instrument(ctx, topic.ID, a.Stage(), a.Name(), input, func(ctx context.Context) (*execution, error) {
		prompt := prompts.Format(prompts.MustGet("agents.json", "edit"), map[string]string{
			"DraftHr": string(draftHrJSON),
			"DraftEn": draftEnText,
		})

		result, err := a.llm.GenerateJSON(ctx, prompt, llm.TierAdvanced)
		if err != nil {
			return nil, &APICallError{Message: "edit generation failed", Cause: err}
		}

		var out EditorOutput
		if err := llm.UnmarshalResponse(result.Text, &out); err != nil {
			return nil, &ParseError{Message: "invalid edit response", Cause: err}
		}
		if err := validateOutput(&out); err != nil {
			return nil, err
		}
		if draftEnText != "" && out.En == nil {
			return nil, &ValidationError{Field: "en", Message: "missing English edit for bilingual topic"}
		}

		return &execution{output: out, usage: result.Usage, model: result.Model}, nil
	})
}
