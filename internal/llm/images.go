package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ImageResult is the outcome of a single image-generation call.
type ImageResult struct {
	Data     []byte
	MIMEType string
	Model    string
}

// ImageClient is an abstraction over image-generation providers.
type ImageClient interface {
	// GenerateImage renders an image for the given prompt and returns the
	// binary content.
	GenerateImage(ctx context.Context, prompt string) (*ImageResult, error)
	// Close releases any resources held by the client
	Close() error
}

// GeminiImageClient implements ImageClient using an image-capable Gemini model.
type GeminiImageClient struct {
	client *genai.Client
	model  string
}

// NewGeminiImageClient creates a new image-generation client.
func NewGeminiImageClient(ctx context.Context, config *Config, apiKey string) (*GeminiImageClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Models[TierImage]
	if model == "" {
		model = DefaultGeminiConfig().Models[TierImage]
	}

	return &GeminiImageClient{client: client, model: model}, nil
}

// GenerateImage renders an image for the given prompt. The image model
// returns the binary as an inline blob part alongside any commentary text.
func (c *GeminiImageClient) GenerateImage(ctx context.Context, prompt string) (*ImageResult, error) {
	model := c.client.GenerativeModel(c.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}

	blob, err := extractBlobFromResponse(resp)
	if err != nil {
		return nil, err
	}

	return &ImageResult{
		Data:     blob.Data,
		MIMEType: blob.MIMEType,
		Model:    c.model,
	}, nil
}

// Close releases resources held by the client
func (c *GeminiImageClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractBlobFromResponse finds the first inline image blob in the response.
func extractBlobFromResponse(resp *genai.GenerateContentResponse) (genai.Blob, error) {
	if len(resp.Candidates) == 0 {
		return genai.Blob{}, fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return genai.Blob{}, fmt.Errorf("no content in response")
	}

	for _, part := range candidate.Content.Parts {
		if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
			return blob, nil
		}
	}

	return genai.Blob{}, fmt.Errorf("no image data in response")
}
