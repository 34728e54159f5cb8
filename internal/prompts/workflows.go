// Package prompts implements MCP prompt handlers for the development
// workflows.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/context-engine/internal/config"
	"github.com/HendryAvila/context-engine/internal/templates"
)

// Argument is one optional prompt argument. Its value reaches the
// template through WorkflowData.Extra under the same name.
type Argument struct {
	Name        string
	Description string
}

// WorkflowPrompt serves one embedded workflow as an MCP prompt.
type WorkflowPrompt struct {
	name        string
	description string
	args        []Argument
	cfg         *config.ProjectConfig
	renderer    templates.Renderer
}

// NewWorkflowPrompt creates a prompt for the workflow called name.
func NewWorkflowPrompt(name, description string, cfg *config.ProjectConfig, renderer templates.Renderer, args ...Argument) *WorkflowPrompt {
	return &WorkflowPrompt{
		name:        name,
		description: description,
		args:        args,
		cfg:         cfg,
		renderer:    renderer,
	}
}

// Workflows returns the prompt for every lifecycle workflow, in the order
// they are used.
func Workflows(cfg *config.ProjectConfig, renderer templates.Renderer) []*WorkflowPrompt {
	return []*WorkflowPrompt{
		NewWorkflowPrompt(templates.Start,
			"Start a session: load the rules, task list, index and readme, then report where the project stands.",
			cfg, renderer),
		NewWorkflowPrompt(templates.Plan,
			"Plan new work: turn a requirement into reviewed, atomic tasks.",
			cfg, renderer,
			Argument{Name: "requirement", Description: "The requirement to plan"}),
		NewWorkflowPrompt(templates.ExecuteTask,
			"Implement one task from the task list, logging progress and finishing with attempt_completion.",
			cfg, renderer,
			Argument{Name: "task_id", Description: "Task identifier, e.g. 3.2.1"}),
		NewWorkflowPrompt(templates.Review,
			"Review the pending changes against the project rules before completion.",
			cfg, renderer),
		NewWorkflowPrompt(templates.Finish,
			"Wrap up a session: check the task list, refresh docs and leave notes for next time.",
			cfg, renderer),
		NewWorkflowPrompt(templates.Summarize,
			"Summarize recent progress from the work log.",
			cfg, renderer),
		NewWorkflowPrompt(templates.Refine,
			"Refine the task list: split, merge or reorder tasks that no longer fit.",
			cfg, renderer),
	}
}

// Name returns the prompt name.
func (p *WorkflowPrompt) Name() string { return p.name }

// Definition returns the MCP prompt definition for registration.
func (p *WorkflowPrompt) Definition() mcp.Prompt {
	opts := []mcp.PromptOption{mcp.WithPromptDescription(p.description)}
	for _, a := range p.args {
		opts = append(opts, mcp.WithArgument(a.Name, mcp.ArgumentDescription(a.Description)))
	}
	return mcp.NewPrompt(p.name, opts...)
}

// Handle renders the workflow with the current project documents.
func (p *WorkflowPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	data := templates.NewWorkflowData(p.cfg)
	for _, a := range p.args {
		if v := strings.TrimSpace(req.Params.Arguments[a.Name]); v != "" {
			data = data.With(a.Name, v)
		}
	}

	text, err := p.renderer.Render(p.name, data)
	if err != nil {
		return nil, fmt.Errorf("rendering %s prompt: %w", p.name, err)
	}

	return &mcp.GetPromptResult{
		Description: p.description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}
