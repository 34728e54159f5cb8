package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/context-engine/internal/diag"
	"github.com/HendryAvila/context-engine/internal/tasklist"
)

// ProgressLog appends a work-log entry.
type ProgressLog interface {
	Append(taskID string, status tasklist.Status, summary string) diag.Outcome
}

// StatusSetter rewrites a task's marker.
type StatusSetter interface {
	SetStatus(taskID string, status tasklist.Status) diag.Outcome
}

// LogProgressTool handles the log_progress MCP tool.
// The marker in the task list is updated only after the log entry was
// written, so the list never runs ahead of the log.
type LogProgressTool struct {
	log   ProgressLog
	tasks StatusSetter
}

// NewLogProgressTool creates a LogProgressTool with its dependencies.
func NewLogProgressTool(log ProgressLog, tasks StatusSetter) *LogProgressTool {
	return &LogProgressTool{log: log, tasks: tasks}
}

// Definition returns the MCP tool definition for registration.
func (t *LogProgressTool) Definition() mcp.Tool {
	statuses := make([]string, len(tasklist.AllStatuses))
	for i, s := range tasklist.AllStatuses {
		statuses[i] = string(s)
	}
	return mcp.NewTool("log_progress",
		mcp.WithDescription(
			"Record a checkpoint in the work log. started, blocked and complete also update the task's marker "+
				"in the task list. Use attempt_completion, not this tool, to finish a task.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task identifier as written in the task list."),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("Checkpoint reached."),
			mcp.Enum(statuses...),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("One or two sentences on what happened."),
		),
	)
}

// Handle processes the log_progress tool call.
func (t *LogProgressTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := strings.TrimSpace(req.GetString("task_id", ""))
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}
	status, ok := parseStatus(req.GetString("status", ""))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("'status' must be one of: %s", statusList())), nil
	}
	summary := strings.TrimSpace(req.GetString("summary", ""))
	if summary == "" {
		return mcp.NewToolResultError("'summary' is required"), nil
	}

	out := t.log.Append(taskID, status, summary)
	if !out.OK() {
		return mcp.NewToolResultText(fmt.Sprintf("⚠️ Failed to log progress: %s", out.Warning)), nil
	}

	msg := fmt.Sprintf("✓ Progress logged: %s - %s", taskID, status)
	if st := t.tasks.SetStatus(taskID, status); !st.OK() {
		msg += fmt.Sprintf("\n⚠️ %s", st.Warning)
	}
	return mcp.NewToolResultText(msg), nil
}

func parseStatus(raw string) (tasklist.Status, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, s := range tasklist.AllStatuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

func statusList() string {
	parts := make([]string, len(tasklist.AllStatuses))
	for i, s := range tasklist.AllStatuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
