package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/context-engine/internal/journal"
)

// --- completion_history ---

// CompletionHistoryTool handles the completion_history MCP tool.
// It lists recent gatekeeper attempts recorded in the journal.
type CompletionHistoryTool struct {
	store   *journal.Store
	project string
}

// NewCompletionHistoryTool creates a CompletionHistoryTool for project.
func NewCompletionHistoryTool(store *journal.Store, project string) *CompletionHistoryTool {
	return &CompletionHistoryTool{store: store, project: project}
}

// Definition returns the MCP tool definition for registration.
func (t *CompletionHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("completion_history",
		mcp.WithDescription(
			"List recent attempt_completion runs for this project, newest first, "+
				"with the gate that stopped each failed run. Use it to see why a task keeps failing.",
		),
		mcp.WithString("task_id",
			mcp.Description("Only show attempts for this task."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum attempts to return (default: 10)."),
		),
	)
}

// Handle processes the completion_history tool call.
func (t *CompletionHistoryTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := strings.TrimSpace(req.GetString("task_id", ""))
	limit := int(req.GetFloat("limit", 10))

	attempts, err := t.store.RecentAttempts(t.project, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	if len(attempts) == 0 {
		if taskID != "" {
			return mcp.NewToolResultText(fmt.Sprintf("No completion attempts recorded for task `%s`.", taskID)), nil
		}
		return mcp.NewToolResultText("No completion attempts recorded yet."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Completion History (%d)\n\n", len(attempts))
	for _, a := range attempts {
		if a.Outcome == journal.OutcomeCompleted {
			fmt.Fprintf(&sb, "- ✅ `%s` %s", a.TaskID, a.Summary)
			if a.CommitRef != "" {
				fmt.Fprintf(&sb, " (commit %s)", a.CommitRef)
			}
		} else {
			fmt.Fprintf(&sb, "- ❌ `%s` %s (gate: %s)", a.TaskID, a.Summary, a.FailedGate)
		}
		if when := relativeTime(a.StartedAt); when != "" {
			fmt.Fprintf(&sb, ", %s", when)
		}
		sb.WriteString("\n")
		if a.Outcome != journal.OutcomeCompleted && a.Detail != "" {
			fmt.Fprintf(&sb, "  > %s\n", firstLine(a.Detail))
		}
	}
	return mcp.NewToolResultText(strings.TrimRight(sb.String(), "\n")), nil
}

// --- search_log ---

// SearchLogTool handles the search_log MCP tool.
// It runs a full-text query over work-log entries mirrored into the journal.
type SearchLogTool struct {
	store   *journal.Store
	project string
}

// NewSearchLogTool creates a SearchLogTool for project.
func NewSearchLogTool(store *journal.Store, project string) *SearchLogTool {
	return &SearchLogTool{store: store, project: project}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchLogTool) Definition() mcp.Tool {
	return mcp.NewTool("search_log",
		mcp.WithDescription(
			"Full-text search over this project's work-log entries. "+
				"Faster and cheaper than consult_logs when you know the words you're looking for.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Words to search for."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return (default: 10)."),
		),
	)
}

// Handle processes the search_log tool call.
func (t *SearchLogTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit := int(req.GetFloat("limit", 10))

	entries, err := t.store.SearchLog(t.project, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching log: %w", err)
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No log entries match %q.", query)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Log Search: %q (%d)\n\n", query, len(entries))
	for _, e := range entries {
		fmt.Fprintf(&sb, "- **[%s]** `%s` (%s): %s\n", e.LoggedAt, e.TaskID, e.Status, e.Summary)
	}
	return mcp.NewToolResultText(strings.TrimRight(sb.String(), "\n")), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// relativeTime renders a journal timestamp as "3 minutes ago".
func relativeTime(ts string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return humanize.Time(t)
		}
	}
	return ts
}
