package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/context-engine/internal/config"
)

// errGateFailed makes the process exit 1 after the result was printed.
var errGateFailed = errors.New("completion gate failed")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "context-engine",
		Short: "Workflow MCP server with a task-completion gatekeeper",
		Long: `context-engine serves MCP tools that guide an AI coding agent through a
project's development lifecycle, keeping the task list and work log in sync
and gating task completion on tests, an automated critique and a commit.`,
		Example: `  # Serve over stdio for an MCP client
  context-engine serve --project ~/src/app

  # Serve over streamable HTTP with Prometheus metrics
  context-engine serve --project . --transport http --addr :8080 --metrics-addr :9090

  # Run the completion gates from a terminal
  context-engine complete --task 1.2 --summary "Add CSV export"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("project", "p", ".", "Project root directory")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(),
		newCompleteCmd(),
		newStatusCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

// loadProject resolves --project into a config.
func loadProject(cmd *cobra.Command) (*config.ProjectConfig, error) {
	project, _ := cmd.Flags().GetString("project")
	cfg, err := config.Load(project)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger. stdout belongs to the stdio transport.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := parseLevel(raw)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q: %w", raw, err)
	}
	return level, nil
}
