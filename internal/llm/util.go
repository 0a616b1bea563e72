// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CleanJSONBlock extracts the JSON payload from a raw model response.
// LLMs often wrap JSON in ```json ... ``` blocks or prepend conversational
// preamble even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	// Handle ```json ... ``` blocks
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	// Handle generic ``` ... ``` blocks
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	// Handle conversational preamble before the payload: keep everything from
	// the first opening brace/bracket to the matching last one.
	start := strings.IndexAny(text, "{[")
	if start > 0 {
		closer := "}"
		if text[start] == '[' {
			closer = "]"
		}
		if end := strings.LastIndex(text, closer); end > start {
			return strings.TrimSpace(text[start : end+1])
		}
	}

	return text
}

// UnmarshalResponse decodes a model response into v after stripping any
// markdown fences or preamble. All agents parse responses through this so a
// malformed payload surfaces as a single error shape instead of scattered
// json errors.
func UnmarshalResponse(text string, v any) error {
	cleaned := CleanJSONBlock(text)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	return nil
}
