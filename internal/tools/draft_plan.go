package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/context-engine/internal/config"
	"github.com/HendryAvila/context-engine/internal/templates"
)

// DraftPlanTool handles the draft_implementation_plan MCP tool.
type DraftPlanTool struct {
	cfg      *config.ProjectConfig
	renderer templates.Renderer
}

// NewDraftPlanTool creates a DraftPlanTool with its dependencies.
func NewDraftPlanTool(cfg *config.ProjectConfig, renderer templates.Renderer) *DraftPlanTool {
	return &DraftPlanTool{cfg: cfg, renderer: renderer}
}

// Definition returns the MCP tool definition for registration.
func (t *DraftPlanTool) Definition() mcp.Tool {
	return mcp.NewTool("draft_implementation_plan",
		mcp.WithDescription(
			"Get the implementation-plan template for a requirement. "+
				"Fill it in and show it to the human before changing any code.",
		),
		mcp.WithString("requirement",
			mcp.Required(),
			mcp.Description("The requirement to plan, in the human's words."),
		),
	)
}

// Handle processes the draft_implementation_plan tool call.
func (t *DraftPlanTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requirement := strings.TrimSpace(req.GetString("requirement", ""))
	if requirement == "" {
		return mcp.NewToolResultError("'requirement' is required"), nil
	}

	data := templates.NewWorkflowData(t.cfg).With("requirement", requirement)
	out, err := t.renderer.Render(templates.ImplementationPlan, data)
	if err != nil {
		return nil, fmt.Errorf("rendering plan: %w", err)
	}
	return mcp.NewToolResultText(out), nil
}
