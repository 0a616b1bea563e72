package agents

import (
	"context"
	"encoding/json"

	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/llm"
	"github.com/dinver-app/content-pipeline/internal/prompts"
)

// OutlineSection is one planned section of the article.
type OutlineSection struct {
	Heading       string   `json:"heading" validate:"required"`
	TalkingPoints []string `json:"talking_points,omitempty"`
}

// OutlineOutput is the structured result of the outline stage. TitleEn is
// empty unless the topic requests both languages.
type OutlineOutput struct {
	TitleHr  string           `json:"title_hr" validate:"required"`
	TitleEn  string           `json:"title_en,omitempty"`
	Hook     string           `json:"hook,omitempty"`
	Sections []OutlineSection `json:"sections" validate:"required,min=1,dive"`
}

// OutlineAgent turns research findings into an article plan.
type OutlineAgent struct {
	base
}

func NewOutlineAgent(client llm.Client, logs StageLogger) *OutlineAgent {
	return &OutlineAgent{base: base{llm: client, logs: logs}}
}

func (a *OutlineAgent) Name() string  { return "outline" }
func (a *OutlineAgent) Stage() string { return db.StageOutline }

func (a *OutlineAgent) Execute(ctx context.Context, rc *Context) (json.RawMessage, error) {
	topic := rc.Topic

	var research ResearchOutput
	if err := rc.Output(db.StageResearch, &research); err != nil {
		return nil, err
	}
	researchJSON, err := json.Marshal(research)
	if err != nil {
		return nil, err
	}

	englishNote := ""
	if topic.GenerateBothLanguages {
		englishNote = " and English"
	}

	input := map[string]any{
		"title":                   topic.Title,
		"generate_both_languages": topic.GenerateBothLanguages,
	}

	return a.instrument(ctx, topic.ID, a.Stage(), a.Name(), input, func(ctx context.Context) (*execution, error) {
		prompt := prompts.Format(prompts.MustGet("agents.json", "outline"), map[string]string{
			"Title":       topic.Title,
			"Description": topic.Description,
			"Research":    string(researchJSON),
			"EnglishNote": englishNote,
		})

		result, err := a.llm.GenerateJSON(ctx, prompt, llm.TierStandard)
		if err != nil {
			return nil, &APICallError{Message: "outline generation failed", Cause: err}
		}

		var out OutlineOutput
		if err := llm.UnmarshalResponse(result.Text, &out); err != nil {
			return nil, &ParseError{Message: "invalid outline response", Cause: err}
		}
		if err := validateOutput(&out); err != nil {
			return nil, err
		}
		if topic.GenerateBothLanguages && out.TitleEn == "" {
			return nil, &ValidationError{Field: "title_en", Message: "missing English title for bilingual topic"}
		}

		return &execution{output: out, usage: result.Usage, model: result.Model}, nil
	})
}
