// Package vcs wraps the git operations the completion gatekeeper needs:
// collecting the change set for review and committing an approved task.
package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/HendryAvila/context-engine/internal/runner"
)

// Git runs git commands in a single working tree.
type Git struct {
	repoRoot string
	exclude  []string
	timeout  time.Duration
}

// New creates a Git for repoRoot. Paths matching any exclude glob are left
// out of Diff. A zero timeout leaves commands unbounded.
func New(repoRoot string, exclude []string, timeout time.Duration) *Git {
	return &Git{
		repoRoot: repoRoot,
		exclude:  append([]string(nil), exclude...),
		timeout:  timeout,
	}
}

// Diff returns the unstaged changes, or the staged changes when nothing is
// unstaged. The two are never combined. Noise paths are excluded from both.
func (g *Git) Diff(ctx context.Context) (string, error) {
	unstaged, err := g.runGit(ctx, g.diffArgs(false)...)
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}
	if strings.TrimSpace(unstaged) != "" {
		return unstaged, nil
	}

	staged, err := g.runGit(ctx, g.diffArgs(true)...)
	if err != nil {
		return "", fmt.Errorf("git diff --cached: %w", err)
	}
	return staged, nil
}

// CommitAll stages every change in the tree and commits it with message.
// It returns git's commit output followed by the short hash.
func (g *Git) CommitAll(ctx context.Context, message string) (string, error) {
	if _, err := g.runGit(ctx, "add", "-A"); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}

	out, err := g.runGit(ctx, "commit", "-m", message)
	if err != nil {
		return out, fmt.Errorf("git commit: %w", err)
	}

	hash, err := g.runGit(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return out, nil
	}
	return strings.TrimSpace(out) + "\n" + strings.TrimSpace(hash), nil
}

func (g *Git) diffArgs(staged bool) []string {
	args := []string{"diff", "--no-color", "--no-ext-diff"}
	if staged {
		args = append(args, "--cached")
	}
	args = append(args, "--", ".")
	for _, pattern := range g.exclude {
		args = append(args, excludePathspec(pattern))
	}
	return args
}

// excludePathspec turns a noise glob into a git pathspec that matches it at
// any depth.
func excludePathspec(pattern string) string {
	p := strings.TrimPrefix(pattern, "/")
	if !strings.HasPrefix(p, "**/") {
		p = "**/" + p
	}
	return ":(exclude,glob)" + p
}

func (g *Git) runGit(ctx context.Context, args ...string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoRoot
	runner.KillTreeOnCancel(cmd)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}
