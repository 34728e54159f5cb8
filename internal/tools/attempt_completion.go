package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/context-engine/internal/gatekeeper"
)

// Completer runs a completion attempt.
type Completer interface {
	Attempt(ctx context.Context, taskID, summary string) *gatekeeper.Result
}

// AttemptCompletionTool handles the attempt_completion MCP tool.
// Gate failures come back as ordinary text naming the gate, never as
// MCP errors, so the agent can read and act on them.
type AttemptCompletionTool struct {
	gk Completer
}

// NewAttemptCompletionTool creates an AttemptCompletionTool.
func NewAttemptCompletionTool(gk Completer) *AttemptCompletionTool {
	return &AttemptCompletionTool{gk: gk}
}

// Definition returns the MCP tool definition for registration.
func (t *AttemptCompletionTool) Definition() mcp.Tool {
	return mcp.NewTool("attempt_completion",
		mcp.WithDescription(
			"Finish a task. Runs the project's test command, reviews the pending changes with a critic model, "+
				"commits them, marks the task complete and logs it. "+
				"Any failing gate stops the run and is reported with the reason; fix it and call again.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task identifier as written in the task list, e.g. '3.2.1'."),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("What was done. The first line becomes the commit subject."),
		),
	)
}

// Handle processes the attempt_completion tool call.
func (t *AttemptCompletionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := strings.TrimSpace(req.GetString("task_id", ""))
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}
	summary := strings.TrimSpace(req.GetString("summary", ""))
	if summary == "" {
		return mcp.NewToolResultError("'summary' is required"), nil
	}

	res := t.gk.Attempt(ctx, taskID, summary)
	return mcp.NewToolResultText(res.Message()), nil
}
