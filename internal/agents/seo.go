package agents

import (
	"context"
	"encoding/json"

	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/llm"
	"github.com/dinver-app/content-pipeline/internal/prompts"
)

// SEOMetadata is one language's search metadata. The length limits match
// what search result pages render without truncation.
type SEOMetadata struct {
	MetaTitle       string   `json:"meta_title" validate:"required,max=60"`
	MetaDescription string   `json:"meta_description" validate:"required,max=160"`
	Keywords        []string `json:"keywords" validate:"required,min=1"`
	Tags            []string `json:"tags,omitempty"`
	Category        string   `json:"category,omitempty"`
}

// SEOOutput is the structured result of the seo stage.
type SEOOutput struct {
	Hr *SEOMetadata `json:"hr" validate:"required"`
	En *SEOMetadata `json:"en,omitempty"`
}

// SEOAgent generates search metadata for every edited language version.
type SEOAgent struct {
	base
}

func NewSEOAgent(client llm.Client, logs StageLogger) *SEOAgent {
	return &SEOAgent{base: base{llm: client, logs: logs}}
}

func (a *SEOAgent) Name() string  { return "seo" }
func (a *SEOAgent) Stage() string { return db.StageSEO }

func (a *SEOAgent) Execute(ctx context.Context, rc *Context) (json.RawMessage, error) {
	topic := rc.Topic

	var edited EditorOutput
	if err := rc.Output(db.StageEdit, &edited); err != nil {
		return nil, err
	}

	articleHr, err := json.Marshal(edited.Hr)
	if err != nil {
		return nil, err
	}
	articleEn := ""
	if edited.En != nil {
		raw, err := json.Marshal(edited.En)
		if err != nil {
			return nil, err
		}
		articleEn = string(raw)
	}

	input := map[string]any{
		"title":     edited.Hr.Title,
		"bilingual": edited.En != nil,
	}

	return a.instrument(ctx, topic.ID, a.Stage(), a.Name(), input, func(ctx context.Context) (*execution, error) {
		prompt := prompts.Format(prompts.MustGet("agents.json", "seo"), map[string]string{
			"ArticleHr": string(articleHr),
			"ArticleEn": articleEn,
		})

		result, err := a.llm.GenerateJSON(ctx, prompt, llm.TierLite)
		if err != nil {
			return nil, &APICallError{Message: "seo generation failed", Cause: err}
		}

		var out SEOOutput
		if err := llm.UnmarshalResponse(result.Text, &out); err != nil {
			return nil, &ParseError{Message: "invalid seo response", Cause: err}
		}
		if err := validateOutput(&out); err != nil {
			return nil, err
		}
		if edited.En != nil && out.En == nil {
			return nil, &ValidationError{Field: "en", Message: "missing English metadata for bilingual topic"}
		}

		return &execution{output: out, usage: result.Usage, model: result.Model}, nil
	})
}
