package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/context-engine/internal/config"
	"github.com/HendryAvila/context-engine/internal/runner"
)

// subagentPreamble tells the delegated model it gets exactly one turn.
const subagentPreamble = "SYSTEM NOTE: You are a subagent working on a specific task. " +
	"You have only ONE turn to complete this task. " +
	"You are stateless; no memory is retained after this turn. " +
	"You must tie up all loose ends within this single response. " +
	"If the task is too large to complete in a single turn, you must explicitly state this."

// maxGlobMatches caps how many files one glob pattern may pull in.
const maxGlobMatches = 50

// ModelRunner runs a model with an explicit timeout.
type ModelRunner interface {
	RunModel(ctx context.Context, modelID, prompt string) (string, error)
	RunModelWithTimeout(ctx context.Context, modelID, prompt string, timeout time.Duration) (string, error)
}

// DelegateTool handles the delegate_implementation MCP tool.
// It hands a self-contained prompt plus selected project files to a
// one-shot subagent.
type DelegateTool struct {
	cfg   *config.ProjectConfig
	model ModelRunner
}

// NewDelegateTool creates a DelegateTool with its dependencies.
func NewDelegateTool(cfg *config.ProjectConfig, model ModelRunner) *DelegateTool {
	return &DelegateTool{cfg: cfg, model: model}
}

// Definition returns the MCP tool definition for registration.
func (t *DelegateTool) Definition() mcp.Tool {
	return mcp.NewTool("delegate_implementation",
		mcp.WithDescription(
			"Delegate a self-contained task to a one-shot subagent model. "+
				"Pass only the files it needs in context_files (paths relative to the project root; "+
				"glob patterns such as 'internal/**/*.go' are expanded). "+
				"Files outside the project are skipped. Returns the subagent's reply.",
		),
		mcp.WithString("instructions",
			mcp.Required(),
			mcp.Description("Complete instructions for the subagent."),
		),
		mcp.WithArray("context_files",
			mcp.Description("Project-relative file paths or glob patterns to include as context."),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("high_complexity",
			mcp.Description("Use the reasoning model instead of the fast model. Default: false."),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Maximum seconds to wait. Defaults to the configured model timeout."),
		),
	)
}

// Handle processes the delegate_implementation tool call.
func (t *DelegateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := req.GetString("instructions", "")
	if strings.TrimSpace(instructions) == "" {
		return mcp.NewToolResultError("'instructions' is required"), nil
	}
	files := req.GetStringSlice("context_files", nil)
	high := req.GetBool("high_complexity", false)
	timeout := time.Duration(req.GetFloat("timeout", 0)) * time.Second

	return mcp.NewToolResultText(t.Delegate(ctx, instructions, files, high, timeout)), nil
}

// Delegate runs the subagent and returns its reply, or an inline ⚠️
// diagnostic when the model fails.
func (t *DelegateTool) Delegate(ctx context.Context, prompt string, contextFiles []string, high bool, timeout time.Duration) string {
	model := t.cfg.Model.Fast
	if high {
		model = t.cfg.Model.Reasoning
	}
	if timeout <= 0 {
		timeout = t.cfg.ModelTimeout()
	}

	full := BuildSubagentPrompt(t.cfg.Root, prompt, contextFiles)

	out, err := t.model.RunModelWithTimeout(ctx, model, full, timeout)
	if err != nil {
		return describeModelError(err)
	}
	return out
}

// BuildSubagentPrompt assembles preamble, context files and the prompt.
func BuildSubagentPrompt(root, prompt string, contextFiles []string) string {
	if len(contextFiles) == 0 {
		return subagentPreamble + "\n\n" + prompt
	}
	sections := collectContextFiles(root, contextFiles)
	if len(sections) == 0 {
		return subagentPreamble + "\n\n" + prompt
	}
	return subagentPreamble + "\n\n" + strings.Join(sections, "\n") + "\n\n---\n\n" + prompt
}

// collectContextFiles renders each requested file, expanding globs, and
// reports skipped or missing entries inline.
func collectContextFiles(root string, entries []string) []string {
	var sections []string
	seen := make(map[string]bool)

	add := func(rel string) {
		if seen[rel] {
			return
		}
		seen[rel] = true
		sections = append(sections, renderContextFile(root, rel))
	}

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !hasGlobMeta(entry) {
			add(entry)
			continue
		}

		matches, err := expandGlob(root, entry)
		switch {
		case err != nil:
			sections = append(sections, fmt.Sprintf("⚠️ Error reading %s: %v", entry, err))
		case len(matches) == 0:
			sections = append(sections, fmt.Sprintf("⚠️ Context file not found: %s", entry))
		default:
			for _, m := range matches {
				add(m)
			}
		}
	}
	return sections
}

func renderContextFile(root, rel string) string {
	abs, inside := resolveInProject(root, rel)
	if !inside {
		return fmt.Sprintf("⚠️ Context file skipped (outside project): %s", rel)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("⚠️ Context file not found: %s", rel)
		}
		return fmt.Sprintf("⚠️ Error reading %s: %v", rel, err)
	}
	return fmt.Sprintf("# Context File: %s\n%s\n", rel, data)
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// expandGlob matches pattern inside root only. Patterns that try to climb
// out of the project match nothing.
func expandGlob(root, pattern string) ([]string, error) {
	pattern = strings.TrimPrefix(pattern, "./")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern")
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	if len(matches) > maxGlobMatches {
		matches = matches[:maxGlobMatches]
	}
	return matches, nil
}

// describeModelError renders a runner error the way the agent sees it.
func describeModelError(err error) string {
	var invErr *runner.ModelInvocationError
	var toErr *runner.ModelTimeoutError
	switch {
	case errors.As(err, &toErr):
		return fmt.Sprintf("⚠️ Subagent timed out after %d seconds", int(toErr.Timeout.Seconds()))
	case errors.As(err, &invErr) && invErr.Err == nil:
		return fmt.Sprintf("⚠️ Subagent failed (exit code %d):\n%s", invErr.ExitCode, invErr.Stderr)
	default:
		return fmt.Sprintf("⚠️ Failed to delegate task: %v", err)
	}
}
