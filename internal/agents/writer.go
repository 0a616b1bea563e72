package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/llm"
	"github.com/dinver-app/content-pipeline/internal/prompts"
)

// DraftOutput is the structured result of a draft stage.
type DraftOutput struct {
	Title       string `json:"title" validate:"required"`
	Content     string `json:"content" validate:"required"`
	Excerpt     string `json:"excerpt" validate:"required"`
	ReadingTime int    `json:"reading_time" validate:"gte=0"`
	Language    string `json:"language,omitempty"`
}

// WriterAgent writes the full article draft in one language. The pipeline
// registers one instance per target language.
type WriterAgent struct {
	base
	language string
}

func NewWriterAgent(client llm.Client, logs StageLogger, language string) *WriterAgent {
	return &WriterAgent{base: base{llm: client, logs: logs}, language: language}
}

func (a *WriterAgent) Name() string { return "writer_" + a.language }

func (a *WriterAgent) Stage() string {
	if a.language == db.LanguageEn {
		return db.StageDraftEn
	}
	return db.StageDraftHr
}

func (a *WriterAgent) Execute(ctx context.Context, rc *Context) (json.RawMessage, error) {
	topic := rc.Topic

	var research ResearchOutput
	if err := rc.Output(db.StageResearch, &research); err != nil {
		return nil, err
	}
	var outline OutlineOutput
	if err := rc.Output(db.StageOutline, &outline); err != nil {
		return nil, err
	}

	researchJSON, err := json.Marshal(research)
	if err != nil {
		return nil, err
	}
	outlineJSON, err := json.Marshal(outline)
	if err != nil {
		return nil, err
	}

	title := outline.TitleHr
	if a.language == db.LanguageEn && outline.TitleEn != "" {
		title = outline.TitleEn
	}

	input := map[string]any{
		"title":    title,
		"language": a.language,
	}

	return a.instrument(ctx, topic.ID, a.Stage(), a.Name(), input, func(ctx context.Context) (*execution, error) {
		prompt := prompts.Format(prompts.MustGet("agents.json", "draft"), map[string]string{
			"Title":        title,
			"Outline":      string(outlineJSON),
			"Research":     string(researchJSON),
			"Language":     a.language,
			"LanguageName": languageName(a.language),
		})

		result, err := a.llm.GenerateJSON(ctx, prompt, llm.TierAdvanced)
		if err != nil {
			return nil, &APICallError{Message: fmt.Sprintf("%s draft generation failed", a.language), Cause: err}
		}

		var out DraftOutput
		if err := llm.UnmarshalResponse(result.Text, &out); err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("invalid %s draft response", a.language), Cause: err}
		}
		if err := validateOutput(&out); err != nil {
			return nil, err
		}
		out.Language = a.language

		return &execution{output: out, usage: result.Usage, model: result.Model}, nil
	})
}

func languageName(code string) string {
	switch code {
	case db.LanguageEn:
		return "English"
	case db.LanguageHr:
		return "Croatian"
	default:
		return code
	}
}
