package gatekeeper

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// GateTiming is how long one gate took.
type GateTiming struct {
	Gate    Gate
	Elapsed time.Duration
}

// Result is the outcome of one completion attempt.
type Result struct {
	TaskID       string
	Summary      string
	Success      bool
	FailedGate   Gate
	Gates        []Gate // gates entered, in order
	Timings      []GateTiming
	Output       string // failure output of verify, collect_changes or commit
	Critique     string
	CommitOutput string
	DiffBytes    int
	Warnings     []string
	StartedAt    time.Time
	FinishedAt   time.Time

	diff string
}

// Duration is the wall-clock time of the attempt.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Detail returns the text explaining the outcome: the critique on success
// or rejection, otherwise the failing gate's output.
func (r *Result) Detail() string {
	if r.Success || r.FailedGate == GateCritique {
		return r.Critique
	}
	return r.Output
}

// Message renders the result as the text returned to the agent.
func (r *Result) Message() string {
	var sb strings.Builder

	if r.Success {
		fmt.Fprintf(&sb, "✅ Task `%s` completed and committed.\n\n", r.TaskID)
		fmt.Fprintf(&sb, "Reviewed %s of changes.\n\n", humanize.Bytes(uint64(r.DiffBytes)))
		if r.Critique != "" {
			fmt.Fprintf(&sb, "## Critique\n\n%s\n\n", r.Critique)
		}
		if r.CommitOutput != "" {
			fmt.Fprintf(&sb, "## Commit\n\n```\n%s\n```\n", r.CommitOutput)
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(&sb, "\n⚠️ %s", w)
		}
		return strings.TrimRight(sb.String(), "\n")
	}

	switch r.FailedGate {
	case GateVerify:
		fmt.Fprintf(&sb, "❌ Verification failed (gate: %s). Fix the failing checks before retrying.\n\n", r.FailedGate)
		fmt.Fprintf(&sb, "```\n%s\n```", strings.TrimRight(r.Output, "\n"))
	case GateCollectChanges:
		// Output is only set when git itself failed.
		if r.Output == "" {
			fmt.Fprintf(&sb, "❌ No changes to review (gate: %s).", r.FailedGate)
			break
		}
		fmt.Fprintf(&sb, "❌ Collecting changes failed (gate: %s). Check that the project is a git repository.\n\n", r.FailedGate)
		fmt.Fprintf(&sb, "```\n%s\n```", strings.TrimRight(r.Output, "\n"))
	case GateCritique:
		fmt.Fprintf(&sb, "❌ Critique rejected the change (gate: %s). Address the feedback and retry.\n\n", r.FailedGate)
		sb.WriteString(r.Critique)
	case GateCommit:
		fmt.Fprintf(&sb, "❌ Commit failed (gate: %s).\n\n", r.FailedGate)
		fmt.Fprintf(&sb, "```\n%s\n```", strings.TrimRight(r.Output, "\n"))
	default:
		fmt.Fprintf(&sb, "❌ Completion failed (gate: %s).\n\n%s", r.FailedGate, r.Output)
	}
	return sb.String()
}
