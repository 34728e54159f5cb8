package prompts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/context-engine/internal/config"
	"github.com/HendryAvila/context-engine/internal/templates"
)

func setup(t *testing.T) (*config.ProjectConfig, *templates.TemplateRenderer) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "WORK_PLAN.md"), []byte("- [ ] 4.2 Ship it\n"), 0o644))
	cfg, err := config.Load(root)
	require.NoError(t, err)
	r, err := templates.NewRenderer()
	require.NoError(t, err)
	return cfg, r
}

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	require.Len(t, res.Messages, 1)
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok, "content is %T, want TextContent", res.Messages[0].Content)
	return tc.Text
}

func TestWorkflows_AllRender(t *testing.T) {
	cfg, r := setup(t)
	want := []string{"start", "plan", "execute-task", "review", "finish", "summarize", "refine"}

	got := Workflows(cfg, r)
	require.Len(t, got, len(want))
	for i, p := range got {
		assert.Equal(t, want[i], p.Name())
		assert.Equal(t, want[i], p.Definition().Name)

		res, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
		require.NoError(t, err, p.Name())
		assert.NotEmpty(t, strings.TrimSpace(promptText(t, res)), "%s rendered empty", p.Name())
	}
}

func TestWorkflowPrompt_ArgumentsReachTemplate(t *testing.T) {
	cfg, r := setup(t)
	byName := map[string]*WorkflowPrompt{}
	for _, p := range Workflows(cfg, r) {
		byName[p.Name()] = p
	}

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"task_id": "4.2"}
	res, err := byName["execute-task"].Handle(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(promptText(t, res), "# Active Task: 4.2"), "execute-task did not receive task_id")

	req.Params.Arguments = map[string]string{"requirement": "Add dark mode"}
	res, err = byName["plan"].Handle(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(promptText(t, res), "# Requirement\n\nAdd dark mode"), "plan did not receive requirement")
}

func TestWorkflowPrompt_InlinesTaskList(t *testing.T) {
	cfg, r := setup(t)
	res, err := Workflows(cfg, r)[0].Handle(context.Background(), mcp.GetPromptRequest{})
	require.NoError(t, err)
	assert.Contains(t, promptText(t, res), "- [ ] 4.2 Ship it")
}

func TestWorkflowPrompt_DefinitionArguments(t *testing.T) {
	cfg, r := setup(t)
	p := NewWorkflowPrompt(templates.Plan, "d", cfg, r, Argument{Name: "requirement", Description: "x"})
	def := p.Definition()
	require.Len(t, def.Arguments, 1)
	assert.Equal(t, "requirement", def.Arguments[0].Name)
}
