// Package gatekeeper decides whether a task may be marked complete.
//
// A completion attempt walks five gates in a fixed order:
//
//	verify -> collect_changes -> critique -> commit -> record
//
// The first four are blocking: a failure stops the attempt and names the
// gate. record is best-effort and only produces warnings. Nothing is rolled
// back; a failed attempt leaves the working tree as it found it and a
// committed one stays committed even if recording fails.
package gatekeeper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/HendryAvila/context-engine/internal/config"
	"github.com/HendryAvila/context-engine/internal/diag"
	"github.com/HendryAvila/context-engine/internal/runner"
	"github.com/HendryAvila/context-engine/internal/tasklist"
)

// timeNow is a package-level var so tests can pin timestamps.
var timeNow = time.Now

// Gate names one step of a completion attempt.
type Gate string

const (
	GateVerify         Gate = "verify"
	GateCollectChanges Gate = "collect_changes"
	GateCritique       Gate = "critique"
	GateCommit         Gate = "commit"
	GateRecord         Gate = "record"
)

// Gates lists every gate in execution order.
var Gates = []Gate{GateVerify, GateCollectChanges, GateCritique, GateCommit, GateRecord}

// --- Collaborators ---

// ShellRunner runs the project's verification command.
type ShellRunner interface {
	RunShell(ctx context.Context, commandLine, cwd string) (runner.ShellResult, error)
}

// ModelRunner asks the critic model for a verdict.
type ModelRunner interface {
	RunModel(ctx context.Context, modelID, prompt string) (string, error)
}

// VCS collects the change set and commits it.
type VCS interface {
	Diff(ctx context.Context) (string, error)
	CommitAll(ctx context.Context, message string) (string, error)
}

// StatusStore rewrites task markers.
type StatusStore interface {
	SetStatus(taskID string, status tasklist.Status) diag.Outcome
}

// LogStore appends work log entries.
type LogStore interface {
	Append(taskID string, status tasklist.Status, summary string) diag.Outcome
}

// Observer is notified once per attempt, after the last gate ran.
// It's optional.
type Observer interface {
	OnAttempt(r *Result)
}

// Recorder counts attempts by outcome and times each gate.
// internal/metrics implements it.
type Recorder interface {
	ObserveAttempt(success bool, gate string)
	ObserveGate(gate string, passed bool, elapsed time.Duration)
}

// Deps bundles the collaborators a Gatekeeper needs.
type Deps struct {
	Config *config.ProjectConfig
	Shell  ShellRunner
	Model  ModelRunner
	VCS    VCS
	Tasks  StatusStore
	Log    LogStore
	Sink   diag.Sink
}

// Gatekeeper runs completion attempts for one project.
type Gatekeeper struct {
	deps     Deps
	sink     diag.Sink
	observer Observer
	recorder Recorder
}

// New creates a Gatekeeper. Every field of deps except Sink is required.
func New(deps Deps) *Gatekeeper {
	return &Gatekeeper{deps: deps, sink: diag.OrDiscard(deps.Sink)}
}

// SetObserver attaches an observer. Passing nil detaches it.
func (g *Gatekeeper) SetObserver(o Observer) { g.observer = o }

// SetRecorder attaches a metrics recorder. Passing nil detaches it.
func (g *Gatekeeper) SetRecorder(r Recorder) { g.recorder = r }

// rootLocks serializes attempts per project root within the process, so two
// concurrent attempts cannot interleave their diff and commit.
var rootLocks sync.Map

func lockRoot(root string) func() {
	v, _ := rootLocks.LoadOrStore(root, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Attempt runs every gate for taskID. It always returns a Result; gate
// failures are reported through it, not as errors.
func (g *Gatekeeper) Attempt(ctx context.Context, taskID, summary string) *Result {
	unlock := lockRoot(g.deps.Config.Root)
	defer unlock()

	res := &Result{TaskID: taskID, Summary: summary, StartedAt: timeNow()}
	g.run(ctx, res)
	res.FinishedAt = timeNow()

	if g.recorder != nil {
		for _, t := range res.Timings {
			g.recorder.ObserveGate(string(t.Gate), t.Gate != res.FailedGate, t.Elapsed)
		}
		g.recorder.ObserveAttempt(res.Success, string(res.FailedGate))
	}
	if g.observer != nil {
		g.observer.OnAttempt(res)
	}
	return res
}

func (g *Gatekeeper) run(ctx context.Context, res *Result) {
	steps := []struct {
		gate Gate
		fn   func(context.Context, *Result) bool
	}{
		{GateVerify, g.verify},
		{GateCollectChanges, g.collectChanges},
		{GateCritique, g.critique},
		{GateCommit, g.commit},
		{GateRecord, g.record},
	}

	for _, step := range steps {
		res.Gates = append(res.Gates, step.gate)
		start := timeNow()
		ok := step.fn(ctx, res)
		res.Timings = append(res.Timings, GateTiming{Gate: step.gate, Elapsed: timeNow().Sub(start)})
		if !ok {
			res.FailedGate = step.gate
			return
		}
	}
	res.Success = true
}

// verify runs the configured test command from the project root.
func (g *Gatekeeper) verify(ctx context.Context, res *Result) bool {
	cmdline := g.deps.Config.GetCommand("test")
	out, err := g.deps.Shell.RunShell(ctx, cmdline, g.deps.Config.Root)
	if err != nil {
		res.Output = err.Error()
		return false
	}
	if out.ExitCode != 0 {
		res.Output = out.Combined()
		return false
	}
	return true
}

// collectChanges requires a non-empty change set.
func (g *Gatekeeper) collectChanges(ctx context.Context, res *Result) bool {
	diff, err := g.deps.VCS.Diff(ctx)
	if err != nil {
		res.Output = err.Error()
		return false
	}
	if strings.TrimSpace(diff) == "" {
		return false
	}
	res.diff = diff
	res.DiffBytes = len(diff)
	return true
}

// critique asks the critic model to approve the change set. A model
// failure counts as a rejection.
func (g *Gatekeeper) critique(ctx context.Context, res *Result) bool {
	prompt := ReviewerPrompt(res.TaskID, res.Summary, res.diff)
	verdict, err := g.deps.Model.RunModel(ctx, g.deps.Config.CriticModel(), prompt)
	if err != nil {
		res.Critique = fmt.Sprintf("critic unavailable: %v", err)
		return false
	}
	res.Critique = verdict
	return Approved(verdict)
}

// commit stages everything and commits with the task id in the message.
func (g *Gatekeeper) commit(ctx context.Context, res *Result) bool {
	out, err := g.deps.VCS.CommitAll(ctx, CommitMessage(res.TaskID, res.Summary))
	if err != nil {
		res.Output = err.Error()
		return false
	}
	res.CommitOutput = strings.TrimSpace(out)
	return true
}

// record marks the task complete and logs it. Failures become warnings.
func (g *Gatekeeper) record(_ context.Context, res *Result) bool {
	if out := g.deps.Tasks.SetStatus(res.TaskID, tasklist.StatusComplete); !out.OK() {
		res.Warnings = append(res.Warnings, out.Warning)
	}
	if out := g.deps.Log.Append(res.TaskID, tasklist.StatusComplete, res.Summary); !out.OK() {
		res.Warnings = append(res.Warnings, out.Warning)
	}
	return true
}

// Approved reports whether verdict approves the change. Any occurrence of
// "APPROVE", in any case, counts.
func Approved(verdict string) bool {
	return strings.Contains(strings.ToUpper(verdict), "APPROVE")
}

// CommitMessage builds the commit subject for taskID.
func CommitMessage(taskID, summary string) string {
	first, rest, _ := strings.Cut(strings.TrimSpace(summary), "\n")
	subject := strings.TrimSpace(first)
	if subject == "" {
		return fmt.Sprintf("task(%s): complete", taskID)
	}
	msg := fmt.Sprintf("task(%s): %s", taskID, subject)
	if body := strings.TrimSpace(rest); body != "" {
		msg += "\n\n" + body
	}
	return msg
}

// ReviewerPrompt asks the critic for a one-word verdict followed by reasons.
func ReviewerPrompt(taskID, summary, diff string) string {
	var sb strings.Builder
	sb.WriteString("You are a strict senior code reviewer. Review the change below for task ")
	fmt.Fprintf(&sb, "`%s`.\n\n", taskID)
	sb.WriteString("## Claimed summary\n\n")
	sb.WriteString(summary)
	sb.WriteString("\n\n## Diff\n\n```diff\n")
	sb.WriteString(diff)
	if !strings.HasSuffix(diff, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n\n")
	sb.WriteString("Check that the diff implements the summary, has no obvious bugs, ")
	sb.WriteString("and leaves no debug code or unrelated edits behind.\n\n")
	sb.WriteString("Reply with APPROVE on the first line if the change is acceptable. ")
	sb.WriteString("Otherwise reply with REJECT on the first line followed by the specific problems to fix.\n")
	return sb.String()
}
