package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/llm"
	"github.com/dinver-app/content-pipeline/internal/prompts"
)

// SocialPostOutput is the structured result of a linkedin stage.
type SocialPostOutput struct {
	Post     string   `json:"post" validate:"required"`
	Hashtags []string `json:"hashtags,omitempty"`
	Language string   `json:"language,omitempty"`
}

// SocialPostAgent writes the LinkedIn announcement for one language. The
// pipeline registers one instance per target language.
type SocialPostAgent struct {
	base
	language string
}

func NewSocialPostAgent(client llm.Client, logs StageLogger, language string) *SocialPostAgent {
	return &SocialPostAgent{base: base{llm: client, logs: logs}, language: language}
}

func (a *SocialPostAgent) Name() string { return "linkedin_" + a.language }

func (a *SocialPostAgent) Stage() string {
	if a.language == db.LanguageEn {
		return db.StageLinkedInEn
	}
	return db.StageLinkedInHr
}

func (a *SocialPostAgent) Execute(ctx context.Context, rc *Context) (json.RawMessage, error) {
	topic := rc.Topic

	var edited EditorOutput
	if err := rc.Output(db.StageEdit, &edited); err != nil {
		return nil, err
	}

	article := edited.Hr
	if a.language == db.LanguageEn {
		if edited.En == nil {
			return nil, &ValidationError{Field: "en", Message: "no English article available for linkedin post"}
		}
		article = edited.En
	}

	var seo SEOOutput
	keyPoints := ""
	if err := rc.Output(db.StageSEO, &seo); err == nil {
		meta := seo.Hr
		if a.language == db.LanguageEn && seo.En != nil {
			meta = seo.En
		}
		if meta != nil {
			keyPoints = strings.Join(meta.Keywords, ", ")
		}
	}

	input := map[string]any{
		"title":    article.Title,
		"language": a.language,
	}

	return a.instrument(ctx, topic.ID, a.Stage(), a.Name(), input, func(ctx context.Context) (*execution, error) {
		prompt := prompts.Format(prompts.MustGet("agents.json", "linkedin"), map[string]string{
			"Title":        article.Title,
			"Excerpt":      article.Excerpt,
			"KeyPoints":    keyPoints,
			"Language":     a.language,
			"LanguageName": languageName(a.language),
		})

		result, err := a.llm.GenerateJSON(ctx, prompt, llm.TierStandard)
		if err != nil {
			return nil, &APICallError{Message: fmt.Sprintf("%s linkedin generation failed", a.language), Cause: err}
		}

		var out SocialPostOutput
		if err := llm.UnmarshalResponse(result.Text, &out); err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("invalid %s linkedin response", a.language), Cause: err}
		}
		if err := validateOutput(&out); err != nil {
			return nil, err
		}
		out.Language = a.language

		return &execution{output: out, usage: result.Usage, model: result.Model}, nil
	})
}
