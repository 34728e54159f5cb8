// Package docsync asks the fast model whether project documents still match
// what the work log says happened, and rewrites the ones that drifted.
package docsync

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/HendryAvila/context-engine/internal/config"
	"github.com/HendryAvila/context-engine/internal/diag"
)

// NoChanges is the reply that leaves a document untouched.
const NoChanges = "NO_CHANGES"

// ModelRunner is the subset of runner.Runner the advisor needs.
type ModelRunner interface {
	RunModel(ctx context.Context, modelID, prompt string) (string, error)
}

// LogReader supplies the work log.
type LogReader interface {
	Read() (string, error)
}

// Advisor refreshes documentation from the work log.
type Advisor struct {
	cfg   *config.ProjectConfig
	model ModelRunner
	log   LogReader
	sink  diag.Sink
}

// New creates an Advisor.
func New(cfg *config.ProjectConfig, model ModelRunner, log LogReader, sink diag.Sink) *Advisor {
	return &Advisor{cfg: cfg, model: model, log: log, sink: diag.OrDiscard(sink)}
}

// skipRoles are never rewritten by the advisor.
var skipRoles = map[string]bool{
	config.RoleLog:   true,
	config.RoleTasks: true,
}

// Sync walks every document role except the work log and task list. A
// document is rewritten only when the model returns content that differs
// from what is on disk. Per-document failures are reported to the sink and
// skipped. It returns the absolute paths that were rewritten.
func (a *Advisor) Sync(ctx context.Context) ([]string, error) {
	workLog, err := a.log.Read()
	if err != nil {
		return nil, fmt.Errorf("reading work log: %w", err)
	}
	if strings.TrimSpace(workLog) == "" {
		a.sink.Warn("docsync: work log is empty, nothing to sync")
		return nil, nil
	}

	var updated []string
	for _, role := range a.cfg.DocRoles() {
		if skipRoles[role] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		path := a.cfg.DocFile(role)
		changed, err := a.syncDoc(ctx, role, path, workLog)
		if err != nil {
			a.sink.Warn("docsync: skipping document", "role", role, "path", path, "error", err)
			continue
		}
		if changed {
			updated = append(updated, path)
		}
	}
	return updated, nil
}

func (a *Advisor) syncDoc(ctx context.Context, role, path, workLog string) (bool, error) {
	current, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading: %w", err)
	}

	reply, err := a.model.RunModel(ctx, a.cfg.Model.Fast, Prompt(role, a.cfg.GetDocPath(role), string(current), workLog))
	if err != nil {
		return false, err
	}

	if !ShouldWrite(reply, string(current)) {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat: %w", err)
	}
	if err := os.WriteFile(path, []byte(ensureTrailingNewline(reply)), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("writing: %w", err)
	}
	return true, nil
}

// ShouldWrite reports whether reply is a real replacement for current.
func ShouldWrite(reply, current string) bool {
	if strings.TrimSpace(reply) == "" {
		return false
	}
	if strings.Contains(reply, NoChanges) {
		return false
	}
	return strings.TrimRight(reply, " \t\r\n") != strings.TrimRight(current, " \t\r\n")
}

func ensureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// Prompt builds the update request for one document.
func Prompt(role, relPath, current, workLog string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You maintain the project document `%s` (role: %s).\n\n", relPath, role)
	sb.WriteString("Compare it with the recent work log below. If the document is still accurate, ")
	fmt.Fprintf(&sb, "reply with exactly %s and nothing else. ", NoChanges)
	sb.WriteString("Otherwise reply with the complete updated document, with no commentary and no code fences.\n\n")
	sb.WriteString("## Work Log\n\n")
	sb.WriteString(workLog)
	sb.WriteString("\n\n## Current Document\n\n")
	sb.WriteString(current)
	sb.WriteString("\n")
	return sb.String()
}
