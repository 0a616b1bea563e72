package agents

import (
	"context"
	"encoding/json"

	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/llm"
	"github.com/dinver-app/content-pipeline/internal/prompts"
)

// imagePrompt is the intermediate art-direction result of the image stage.
type imagePrompt struct {
	Prompt  string `json:"prompt" validate:"required"`
	AltText string `json:"alt_text,omitempty"`
}

// ImageOutput is the structured result of the image stage. Only the storage
// key is checkpointed; the binary lives in the image store.
type ImageOutput struct {
	StorageKey string `json:"storage_key" validate:"required"`
	AltText    string `json:"alt_text,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	MIMEType   string `json:"mime_type,omitempty"`
}

// ImageAgent produces the featured image in two phases: a text model writes
// the generation prompt, an image model renders it. The phases fail with
// distinct errors so operators can tell them apart.
type ImageAgent struct {
	base
	images llm.ImageClient
	store  ImageStore
}

func NewImageAgent(client llm.Client, logs StageLogger, images llm.ImageClient, store ImageStore) *ImageAgent {
	return &ImageAgent{
		base:   base{llm: client, logs: logs},
		images: images,
		store:  store,
	}
}

func (a *ImageAgent) Name() string  { return "image" }
func (a *ImageAgent) Stage() string { return db.StageImage }

func (a *ImageAgent) Execute(ctx context.Context, rc *Context) (json.RawMessage, error) {
	topic := rc.Topic

	var edited EditorOutput
	if err := rc.Output(db.StageEdit, &edited); err != nil {
		return nil, err
	}

	input := map[string]any{"title": edited.Hr.Title}

	return a.instrument(ctx, topic.ID, a.Stage(), a.Name(), input, func(ctx context.Context) (*execution, error) {
		prompt := prompts.Format(prompts.MustGet("agents.json", "image_prompt"), map[string]string{
			"Title":   edited.Hr.Title,
			"Excerpt": edited.Hr.Excerpt,
		})

		result, err := a.llm.GenerateJSON(ctx, prompt, llm.TierLite)
		if err != nil {
			return nil, &APICallError{Message: "image prompt generation failed", Cause: err}
		}

		var ip imagePrompt
		if err := llm.UnmarshalResponse(result.Text, &ip); err != nil {
			return nil, &ParseError{Message: "invalid image prompt response", Cause: err}
		}
		if err := validateOutput(&ip); err != nil {
			return nil, err
		}

		img, err := a.images.GenerateImage(ctx, ip.Prompt)
		if err != nil {
			return nil, &APICallError{Message: "image generation failed", Cause: err}
		}

		key, err := a.store.SaveImage(ctx, &db.ImageInput{
			TopicID:  topic.ID,
			MIMEType: img.MIMEType,
			Data:     img.Data,
			AltText:  ip.AltText,
		})
		if err != nil {
			return nil, &APICallError{Message: "image storage failed", Cause: err}
		}

		out := ImageOutput{
			StorageKey: key,
			AltText:    ip.AltText,
			Prompt:     ip.Prompt,
			MIMEType:   img.MIMEType,
		}
		return &execution{output: out, usage: result.Usage, model: result.Model}, nil
	})
}
