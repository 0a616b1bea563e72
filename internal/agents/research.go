package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/fetch"
	"github.com/dinver-app/content-pipeline/internal/llm"
	"github.com/dinver-app/content-pipeline/internal/prompts"
)

// maxReferenceURLs caps how many topic reference links are fetched per run.
const maxReferenceURLs = 3

// maxReferenceChars bounds the extracted text per reference so the prompt
// stays within model context limits.
const maxReferenceChars = 6000

// ResearchInput is the sanitized input recorded for the research stage.
type ResearchInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	ReferenceURLs []string `json:"reference_urls,omitempty"`
}

// ResearchOutput is the structured result of the research stage.
type ResearchOutput struct {
	Summary          string   `json:"summary" validate:"required"`
	MarketFindings   []string `json:"market_findings" validate:"required,min=1"`
	AudienceInsights []string `json:"audience_insights,omitempty"`
	SuggestedAngles  []string `json:"suggested_angles,omitempty"`
}

// ResearchAgent gathers market and audience context for a topic, optionally
// grounding the prompt in text extracted from the topic's reference URLs.
type ResearchAgent struct {
	base
	fetchOpts *fetch.Options
}

// NewResearchAgent creates a research agent with default fetch options.
func NewResearchAgent(client llm.Client, logs StageLogger) *ResearchAgent {
	return &ResearchAgent{
		base:      base{llm: client, logs: logs},
		fetchOpts: fetch.DefaultOptions(),
	}
}

func (a *ResearchAgent) Name() string  { return "research" }
func (a *ResearchAgent) Stage() string { return db.StageResearch }

func (a *ResearchAgent) Execute(ctx context.Context, rc *Context) (json.RawMessage, error) {
	topic := rc.Topic
	input := ResearchInput{
		Title:         topic.Title,
		Description:   topic.Description,
		Keywords:      topic.Keywords,
		ReferenceURLs: topic.ReferenceURLs,
	}

	referenceText := a.collectReferences(ctx, topic.ReferenceURLs)

	return a.instrument(ctx, topic.ID, a.Stage(), a.Name(), input, func(ctx context.Context) (*execution, error) {
		prompt := prompts.Format(prompts.MustGet("agents.json", "research"), map[string]string{
			"Title":         topic.Title,
			"Description":   topic.Description,
			"Keywords":      strings.Join(topic.Keywords, ", "),
			"ReferenceText": referenceText,
		})

		result, err := a.llm.GenerateJSON(ctx, prompt, llm.TierStandard)
		if err != nil {
			return nil, &APICallError{Message: "research generation failed", Cause: err}
		}

		var out ResearchOutput
		if err := llm.UnmarshalResponse(result.Text, &out); err != nil {
			return nil, &ParseError{Message: "invalid research response", Cause: err}
		}
		if err := validateOutput(&out); err != nil {
			return nil, err
		}

		return &execution{output: out, usage: result.Usage, model: result.Model}, nil
	})
}

// collectReferences fetches and extracts readable text from the topic's
// reference URLs. Individual fetch failures are skipped; references are
// best-effort grounding, not a stage precondition.
func (a *ResearchAgent) collectReferences(ctx context.Context, urls []string) string {
	if len(urls) > maxReferenceURLs {
		urls = urls[:maxReferenceURLs]
	}

	var sb strings.Builder
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		res, err := fetch.URL(ctx, u, a.fetchOpts)
		if err != nil {
			continue
		}
		text, err := fetch.ExtractMainText(res.HTML, fetch.DefaultTextSelectors())
		if err != nil || text == "" {
			continue
		}
		if len(text) > maxReferenceChars {
			text = text[:maxReferenceChars]
		}
		fmt.Fprintf(&sb, "--- %s ---\n%s\n\n", u, text)
	}

	if sb.Len() == 0 {
		return "(no reference material available)"
	}
	return sb.String()
}
