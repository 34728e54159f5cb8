package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/context-engine/internal/config"
	"github.com/HendryAvila/context-engine/internal/templates"
)

// FetchContextTool handles the fetch_context MCP tool.
// It concatenates the readme, the task list and the rules document, then
// appends the static tool guide.
type FetchContextTool struct {
	cfg      *config.ProjectConfig
	renderer templates.Renderer
}

// NewFetchContextTool creates a FetchContextTool with its dependencies.
func NewFetchContextTool(cfg *config.ProjectConfig, renderer templates.Renderer) *FetchContextTool {
	return &FetchContextTool{cfg: cfg, renderer: renderer}
}

// Definition returns the MCP tool definition for registration.
func (t *FetchContextTool) Definition() mcp.Tool {
	return mcp.NewTool("fetch_context",
		mcp.WithDescription(
			"Load the project context: readme, task list and agent rules, plus a guide to the other tools. "+
				"Call this at the start of every session before doing any work.",
		),
	)
}

// fetchRoles is the order in which documents are concatenated.
var fetchRoles = []string{config.RoleReadme, config.RoleTasks, config.RoleRules}

// Handle processes the fetch_context tool call.
func (t *FetchContextTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder

	for _, role := range fetchRoles {
		rel := t.cfg.GetDocPath(role)
		content, err := readDocFile(t.cfg.DocFile(role))
		fmt.Fprintf(&sb, "# %s (`%s`)\n\n", docTitle(role), rel)
		switch {
		case err != nil:
			fmt.Fprintf(&sb, "⚠️ Failed to read %s: %v\n\n", rel, err)
		case strings.TrimSpace(content) == "":
			fmt.Fprintf(&sb, "_Not found: %s_\n\n", rel)
		default:
			sb.WriteString(strings.TrimRight(content, "\n"))
			sb.WriteString("\n\n")
		}
		sb.WriteString("---\n\n")
	}

	guide, err := t.renderer.Render(templates.ToolGuide, templates.NewWorkflowData(t.cfg))
	if err != nil {
		return nil, fmt.Errorf("rendering tool guide: %w", err)
	}
	sb.WriteString(guide)

	return mcp.NewToolResultText(sb.String()), nil
}

func docTitle(role string) string {
	switch role {
	case config.RoleReadme:
		return "Readme"
	case config.RoleTasks:
		return "Task List"
	case config.RoleRules:
		return "Rules"
	default:
		return role
	}
}
