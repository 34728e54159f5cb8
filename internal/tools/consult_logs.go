package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/context-engine/internal/config"
)

// LogReader supplies the work log text.
type LogReader interface {
	Read() (string, error)
	Path() string
}

// ConsultLogsTool handles the consult_logs MCP tool.
// The fast model answers a question using only the work log.
type ConsultLogsTool struct {
	cfg   *config.ProjectConfig
	model ModelRunner
	log   LogReader
}

// NewConsultLogsTool creates a ConsultLogsTool with its dependencies.
func NewConsultLogsTool(cfg *config.ProjectConfig, model ModelRunner, log LogReader) *ConsultLogsTool {
	return &ConsultLogsTool{cfg: cfg, model: model, log: log}
}

// Definition returns the MCP tool definition for registration.
func (t *ConsultLogsTool) Definition() mcp.Tool {
	return mcp.NewTool("consult_logs",
		mcp.WithDescription(
			"Ask a question about past work. A fast model answers using only the project's work log, "+
				"so you don't have to read the whole log yourself.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question, e.g. 'Why was task 2.3 blocked?'"),
		),
	)
}

// Handle processes the consult_logs tool call.
func (t *ConsultLogsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	workLog, err := t.log.Read()
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("⚠️ Failed to consult logs: %v", err)), nil
	}
	if strings.TrimSpace(workLog) == "" {
		return mcp.NewToolResultText(fmt.Sprintf("No work log found at %s", relToRoot(t.cfg.Root, t.log.Path()))), nil
	}

	answer, err := t.model.RunModel(ctx, t.cfg.Model.Fast, consultPrompt(query, workLog))
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("⚠️ Failed to consult logs: %v", err)), nil
	}
	return mcp.NewToolResultText(answer), nil
}

func consultPrompt(query, workLog string) string {
	var sb strings.Builder
	sb.WriteString("You answer questions about a software project's history. ")
	sb.WriteString("Use only the work log below. If the log does not contain the answer, say so plainly.\n\n")
	sb.WriteString("# Work Log\n\n")
	sb.WriteString(workLog)
	sb.WriteString("\n\n---\n\n# Question\n\n")
	sb.WriteString(query)
	return sb.String()
}
