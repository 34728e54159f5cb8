package main

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	ceserver "github.com/HendryAvila/context-engine/internal/server"
)

func newCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Run the completion gates for a task from the terminal",
		Long: `Runs the same gates as the attempt_completion tool: the project's test
command, a critic review of the pending diff, a commit, then the task-list
and work-log updates. Exits 1 when any gate fails.`,
		RunE: runComplete,
	}
	cmd.Flags().String("task", "", "Task identifier (required)")
	cmd.Flags().String("summary", "", "Summary of the change (required)")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("summary")
	return cmd
}

func runComplete(cmd *cobra.Command, _ []string) error {
	taskID, _ := cmd.Flags().GetString("task")
	summary, _ := cmd.Flags().GetString("summary")

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadProject(cmd)
	if err != nil {
		return err
	}

	engine := ceserver.NewEngine(cfg, logger, nil)
	defer engine.Close()

	var spin *spinner.Spinner
	if term.IsTerminal(int(os.Stderr.Fd())) {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		spin.Writer = os.Stderr
		spin.Suffix = fmt.Sprintf(" Completing %s: tests, critique, commit...", taskID)
		spin.Start()
	}

	res := engine.Gatekeeper.Attempt(cmd.Context(), taskID, summary)

	if spin != nil {
		spin.Stop()
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderResult(res))
	if !res.Success {
		return errGateFailed
	}
	return nil
}
