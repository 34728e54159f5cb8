// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools/prompts/resources that depend on
// abstractions. No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/context-engine/internal/config"
	"github.com/HendryAvila/context-engine/internal/journal"
	"github.com/HendryAvila/context-engine/internal/metrics"
	"github.com/HendryAvila/context-engine/internal/prompts"
	"github.com/HendryAvila/context-engine/internal/resources"
	"github.com/HendryAvila/context-engine/internal/templates"
	"github.com/HendryAvila/context-engine/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Name is the MCP server name advertised to clients.
const Name = "context-engine"

// New creates and configures the MCP server for the project described by
// cfg, with all tools, prompts and resources registered.
//
// The returned cleanup function closes the journal database and must be
// called on shutdown (typically via defer). It is always non-nil.
func New(cfg *config.ProjectConfig, logger *slog.Logger, m *metrics.Metrics) (*server.MCPServer, func(), error) {
	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, noop, fmt.Errorf("creating template renderer: %w", err)
	}

	engine := NewEngine(cfg, logger, m)

	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	fetchTool := tools.NewFetchContextTool(cfg, renderer)
	s.AddTool(fetchTool.Definition(), fetchTool.Handle)

	consultTool := tools.NewConsultLogsTool(cfg, engine.Runner, engine.Log)
	s.AddTool(consultTool.Definition(), consultTool.Handle)

	planTool := tools.NewDraftPlanTool(cfg, renderer)
	s.AddTool(planTool.Definition(), planTool.Handle)

	delegateTool := tools.NewDelegateTool(cfg, engine.Runner)
	s.AddTool(delegateTool.Definition(), delegateTool.Handle)

	// Workflow tools run a rendered workflow through the delegate subagent.
	for _, wf := range []*tools.WorkflowTool{
		tools.NewPlanTool(cfg, renderer, delegateTool),
		tools.NewExecuteTaskTool(cfg, renderer, delegateTool),
	} {
		s.AddTool(wf.Definition(), wf.Handle)
	}
	reviewTool := tools.NewReviewTool(cfg, renderer, delegateTool)
	s.AddTool(reviewTool.Definition(), reviewTool.Handle)

	logTool := tools.NewLogProgressTool(engine.Log, engine.Tasks)
	s.AddTool(logTool.Definition(), logTool.Handle)

	completionTool := tools.NewAttemptCompletionTool(engine.Gatekeeper)
	s.AddTool(completionTool.Definition(), completionTool.Handle)

	docsTool := tools.NewUpdateDocsTool(cfg, engine.Docs)
	s.AddTool(docsTool.Definition(), docsTool.Handle)

	// --- Register journal tools ---
	//
	// Only when the journal opened. Without it the server is still fully
	// functional; the markdown documents remain the source of truth.

	if engine.Journal != nil {
		registerJournalTools(s, engine.Journal, cfg.Root)
	}

	// --- Register prompts ---

	for _, p := range prompts.Workflows(cfg, renderer) {
		s.AddPrompt(p.Definition(), p.Handle)
	}

	// --- Register resources ---

	resourceHandler := resources.NewHandler(cfg)
	s.AddResource(resourceHandler.ConfigResource(), resourceHandler.HandleConfig)
	s.AddResource(resourceHandler.TasksResource(), resourceHandler.HandleTasks)
	s.AddResource(resourceHandler.WorkLogResource(), resourceHandler.HandleWorkLog)

	return s, engine.Close, nil
}

// noop is the cleanup returned when construction fails early.
func noop() {}

func registerJournalTools(s *server.MCPServer, store *journal.Store, project string) {
	historyTool := tools.NewCompletionHistoryTool(store, project)
	s.AddTool(historyTool.Definition(), historyTool.Handle)

	searchTool := tools.NewSearchLogTool(store, project)
	s.AddTool(searchTool.Definition(), searchTool.Handle)
}

// serverInstructions tells the AI how to use the engine.
func serverInstructions() string {
	return `You have access to context-engine, a workflow server for the project you are working on.

## Session Start
Call fetch_context first. It returns the readme, the task list, the agent rules and a guide to every tool.

## Working on Tasks
1. Pick a task from the task list. Call log_progress with status "started".
2. Plan non-trivial work with draft_implementation_plan and get the human's approval.
3. Implement. Hand self-contained subtasks to delegate_implementation with only the files they need.
4. Log checkpoints with log_progress ("implementing", "verified", "blocked").
5. Call review for a quick subagent check of the pending changes.
6. Finish with attempt_completion. Never mark a task complete by editing the task list yourself.

## attempt_completion
It runs the project's test command, reviews the diff with a critic model, commits, marks the task [x] and logs it.
If it reports a failing gate, read the reason, fix the problem and call it again. Nothing is rolled back.

## History
Use consult_logs to ask questions about earlier work. When available, completion_history shows past
attempts and search_log searches the work log by keyword.

## Documentation
After behavior changes, call update_docs to bring the documents in line with the work log.`
}
