package llm

import (
	"testing"
)

func TestCleanJSONBlock_MarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "code block with language",
			input:    "```javascript\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "plain JSON",
			input:    `{"key": "value"}`,
			expected: `{"key": "value"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestCleanJSONBlock_PreambleText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "preamble before JSON object",
			input:    "As requested, here is the JSON:\n{\"company\": \"Acme\"}",
			expected: `{"company": "Acme"}`,
		},
		{
			name:     "conversational preamble",
			input:    "Based on the article provided, here's the structured output:\n\n{\"title\": \"Test\", \"tone\": \"professional\"}",
			expected: `{"title": "Test", "tone": "professional"}`,
		},
		{
			name:     "preamble before JSON array",
			input:    "Here are the keywords:\n[\"a\", \"b\"]",
			expected: `["a", "b"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestUnmarshalResponse(t *testing.T) {
	type payload struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}

	t.Run("fenced payload", func(t *testing.T) {
		var p payload
		err := UnmarshalResponse("```json\n{\"title\": \"Konoba\", \"tags\": [\"food\"]}\n```", &p)
		if err != nil {
			t.Fatalf("UnmarshalResponse() error = %v", err)
		}
		if p.Title != "Konoba" || len(p.Tags) != 1 {
			t.Errorf("unexpected payload: %+v", p)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		var p payload
		err := UnmarshalResponse("not json at all", &p)
		if err == nil {
			t.Fatal("expected error for malformed payload")
		}
	})
}
