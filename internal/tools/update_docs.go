package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/context-engine/internal/config"
)

// DocSyncer refreshes documents and returns the rewritten paths.
type DocSyncer interface {
	Sync(ctx context.Context) ([]string, error)
}

// UpdateDocsTool handles the update_docs MCP tool.
type UpdateDocsTool struct {
	cfg  *config.ProjectConfig
	sync DocSyncer
}

// NewUpdateDocsTool creates an UpdateDocsTool with its dependencies.
func NewUpdateDocsTool(cfg *config.ProjectConfig, sync DocSyncer) *UpdateDocsTool {
	return &UpdateDocsTool{cfg: cfg, sync: sync}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateDocsTool) Definition() mcp.Tool {
	return mcp.NewTool("update_docs",
		mcp.WithDescription(
			"Bring the project documents in line with the work log. "+
				"Each document except the task list and the log is checked by a fast model and rewritten only if it drifted.",
		),
	)
}

// Handle processes the update_docs tool call.
func (t *UpdateDocsTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	updated, err := t.sync.Sync(ctx)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("⚠️ Failed to update docs: %v", err)), nil
	}
	if len(updated) == 0 {
		return mcp.NewToolResultText("No documentation updates needed."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Updated %d document(s):\n", len(updated))
	for _, p := range updated {
		fmt.Fprintf(&sb, "- %s\n", relToRoot(t.cfg.Root, p))
	}
	return mcp.NewToolResultText(strings.TrimRight(sb.String(), "\n")), nil
}
