// context-engine: workflow MCP server with a task-completion gatekeeper.
//
// It serves tools that walk an AI coding agent through load context → plan
// → implement → review → finish for one project, and refuses to mark a
// task complete until tests pass, a critic model approves the diff and the
// change is committed.
//
// Usage:
//
//	context-engine serve --project .            # MCP server on stdio
//	context-engine complete --task 1.2 --summary "..."
//	context-engine status
//	context-engine init
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errGateFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
