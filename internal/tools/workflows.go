package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/context-engine/internal/config"
	"github.com/HendryAvila/context-engine/internal/templates"
)

// Delegator hands a prompt to a one-shot subagent. DelegateTool implements it.
type Delegator interface {
	Delegate(ctx context.Context, prompt string, contextFiles []string, high bool, timeout time.Duration) string
}

// --- plan / execute_task ---

// WorkflowTool renders a lifecycle workflow and either returns it for the
// calling agent to follow or, with delegate=true, runs it through a subagent.
type WorkflowTool struct {
	name        string
	workflow    string
	description string
	arg         string
	argDesc     string
	// alwaysHigh forces the reasoning model when delegating; otherwise the
	// caller picks with high_complexity.
	alwaysHigh bool

	cfg      *config.ProjectConfig
	renderer templates.Renderer
	sub      Delegator
}

// NewPlanTool creates the plan tool. Delegated plans use the reasoning model.
func NewPlanTool(cfg *config.ProjectConfig, renderer templates.Renderer, sub Delegator) *WorkflowTool {
	return &WorkflowTool{
		name:     "plan",
		workflow: templates.Plan,
		description: "Get the planning workflow for a requirement: turn it into reviewed, atomic tasks. " +
			"Set delegate=true to have a reasoning subagent carry it out and return its result.",
		arg:        "requirement",
		argDesc:    "The requirement to plan.",
		alwaysHigh: true,
		cfg:        cfg,
		renderer:   renderer,
		sub:        sub,
	}
}

// NewExecuteTaskTool creates the execute_task tool.
func NewExecuteTaskTool(cfg *config.ProjectConfig, renderer templates.Renderer, sub Delegator) *WorkflowTool {
	return &WorkflowTool{
		name:     "execute_task",
		workflow: templates.ExecuteTask,
		description: "Get the workflow for implementing one task from the task list. " +
			"Set delegate=true to hand the whole workflow to a subagent instead of following it yourself.",
		arg:      "task_id",
		argDesc:  "Task identifier as written in the task list, e.g. '3.2.1'.",
		cfg:      cfg,
		renderer: renderer,
		sub:      sub,
	}
}

// Definition returns the MCP tool definition for registration.
func (t *WorkflowTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(t.description),
		mcp.WithString(t.arg,
			mcp.Description(t.argDesc),
		),
		mcp.WithBoolean("delegate",
			mcp.Description("Run the workflow with a one-shot subagent. Default: false."),
		),
	}
	if !t.alwaysHigh {
		opts = append(opts, mcp.WithBoolean("high_complexity",
			mcp.Description("When delegating, use the reasoning model instead of the fast model."),
		))
	}
	return mcp.NewTool(t.name, opts...)
}

// Handle processes the tool call.
func (t *WorkflowTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data := templates.NewWorkflowData(t.cfg)
	if v := strings.TrimSpace(req.GetString(t.arg, "")); v != "" {
		data = data.With(t.arg, v)
	}

	text, err := t.renderer.Render(t.workflow, data)
	if err != nil {
		return nil, fmt.Errorf("rendering %s workflow: %w", t.workflow, err)
	}
	if !req.GetBool("delegate", false) {
		return mcp.NewToolResultText(text), nil
	}

	high := t.alwaysHigh || req.GetBool("high_complexity", false)
	return mcp.NewToolResultText(t.sub.Delegate(ctx, text, nil, high, 0)), nil
}

// --- review ---

// ReviewTool handles the review MCP tool. The review workflow is always run
// by a fast subagent and its findings are returned.
type ReviewTool struct {
	cfg      *config.ProjectConfig
	renderer templates.Renderer
	sub      Delegator
}

// NewReviewTool creates a ReviewTool with its dependencies.
func NewReviewTool(cfg *config.ProjectConfig, renderer templates.Renderer, sub Delegator) *ReviewTool {
	return &ReviewTool{cfg: cfg, renderer: renderer, sub: sub}
}

// Definition returns the MCP tool definition for registration.
func (t *ReviewTool) Definition() mcp.Tool {
	return mcp.NewTool("review",
		mcp.WithDescription(
			"Have a fast subagent review the pending changes against the project rules and report problems. "+
				"Run it before attempt_completion.",
		),
	)
}

// Handle processes the review tool call.
func (t *ReviewTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := t.renderer.Render(templates.Review, templates.NewWorkflowData(t.cfg))
	if err != nil {
		return nil, fmt.Errorf("rendering review workflow: %w", err)
	}
	return mcp.NewToolResultText(t.sub.Delegate(ctx, text, nil, false, 0)), nil
}
