// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/dinver-app/content-pipeline/internal/db"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintTopic outputs a human-readable summary of a topic's pipeline state.
func (p *Printer) PrintTopic(topic *db.Topic) {
	if topic == nil {
		return
	}

	var sb strings.Builder

	title := topic.Title
	if len(title) > 45 {
		title = title[:42] + "..."
	}
	sb.WriteString(fmt.Sprintf("Title:     %s\n", title))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", topic.Status))
	if topic.CurrentStage != nil {
		sb.WriteString(fmt.Sprintf("Stage:     %s\n", *topic.CurrentStage))
	}
	sb.WriteString(fmt.Sprintf("Languages: %s\n", languagesLabel(topic.GenerateBothLanguages)))
	sb.WriteString(fmt.Sprintf("Retries:   %d/%d\n", topic.RetryCount, topic.MaxRetries))

	if len(topic.CompletedStages) > 0 {
		sb.WriteString("\nCompleted stages:\n")
		for _, stage := range topic.CompletedStages {
			sb.WriteString(fmt.Sprintf("  ✓ %s\n", stage))
		}
	}

	if topic.LastError != nil {
		lastErr := *topic.LastError
		if len(lastErr) > 45 {
			lastErr = lastErr[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("\nLast error: %s\n", lastErr))
	}

	p.printBox("TOPIC", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStageLogs outputs the execution history for a topic with token usage.
func (p *Printer) PrintStageLogs(logs []db.StageLog) {
	if len(logs) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO STAGE LOGS")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	totalTokens := 0

	for i, log := range logs {
		marker := statusMarker(log.Status)
		sb.WriteString(fmt.Sprintf("%s %s (%s)\n", marker, log.Stage, log.AgentName))
		if log.ModelUsed != nil {
			sb.WriteString(fmt.Sprintf("  model: %s\n", *log.ModelUsed))
		}
		if log.TotalTokens > 0 {
			sb.WriteString(fmt.Sprintf("  tokens: %d (prompt %d, completion %d)\n",
				log.TotalTokens, log.PromptTokens, log.CompletionTokens))
			totalTokens += log.TotalTokens
		}
		if log.DurationMs != nil {
			sb.WriteString(fmt.Sprintf("  duration: %dms\n", *log.DurationMs))
		}
		if log.ErrorMessage != nil {
			msg := *log.ErrorMessage
			if len(msg) > 45 {
				msg = msg[:42] + "..."
			}
			sb.WriteString(fmt.Sprintf("  error: %s\n", msg))
		}
		if i < len(logs)-1 {
			sb.WriteString("\n")
		}
	}

	if totalTokens > 0 {
		sb.WriteString(fmt.Sprintf("\nTotal tokens: %d", totalTokens))
	}

	p.printBox("STAGE LOGS", sb.String())
}

// PrintPosts outputs a summary of published posts for a topic.
func (p *Printer) PrintPosts(posts []db.Post) {
	if len(posts) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Published %d post(s):\n\n", len(posts)))

	count := min(len(posts), maxItemsToShow)
	for i := 0; i < count; i++ {
		post := posts[i]
		title := post.Title
		if len(title) > 45 {
			title = title[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("• [%s] %s\n", post.Language, title))
		if post.MetaTitle != "" {
			meta := post.MetaTitle
			if len(meta) > 45 {
				meta = meta[:42] + "..."
			}
			sb.WriteString(fmt.Sprintf("  meta: %s\n", meta))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("PUBLISHED POSTS", sb.String())
}

func languagesLabel(both bool) string {
	if both {
		return "hr, en"
	}
	return "hr"
}

func statusMarker(status string) string {
	switch status {
	case db.StageLogCompleted:
		return "✓"
	case db.StageLogFailed:
		return "⚠"
	default:
		return "…"
	}
}
