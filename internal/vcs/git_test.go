package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a git repository with one committed file.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	gitCmd(t, dir, "init")
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	gitCmd(t, dir, "config", "user.name", "Test User")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")

	writeFile(t, dir, "main.go", "package main\n")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-m", "initial")
	return dir
}

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiff_Unstaged(t *testing.T) {
	dir := setupTestRepo(t)
	writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")

	g := New(dir, nil, 0)
	diff, err := g.Diff(context.Background())
	require.NoError(t, err)
	assert.Contains(t, diff, "+func main() {}")
}

func TestDiff_FallsBackToStaged(t *testing.T) {
	dir := setupTestRepo(t)
	writeFile(t, dir, "main.go", "package main\n\n// staged\n")
	gitCmd(t, dir, "add", "main.go")

	g := New(dir, nil, 0)
	diff, err := g.Diff(context.Background())
	require.NoError(t, err)
	assert.Contains(t, diff, "+// staged")
}

func TestDiff_NeverConcatenatesStagedAndUnstaged(t *testing.T) {
	dir := setupTestRepo(t)
	writeFile(t, dir, "staged.go", "package main // staged\n")
	gitCmd(t, dir, "add", "staged.go")
	writeFile(t, dir, "main.go", "package main // unstaged\n")

	g := New(dir, nil, 0)
	diff, err := g.Diff(context.Background())
	require.NoError(t, err)
	assert.Contains(t, diff, "unstaged")
	assert.NotContains(t, diff, "// staged")
}

func TestDiff_ExcludesNoise(t *testing.T) {
	dir := setupTestRepo(t)
	writeFile(t, dir, "go.sum", "example.com/x v1.0.0 h1:abc\n")
	writeFile(t, dir, "web/package-lock.json", "{}\n")
	writeFile(t, dir, "assets/logo.png", "not really a png\n")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-m", "noise")

	writeFile(t, dir, "go.sum", "example.com/x v1.1.0 h1:def\n")
	writeFile(t, dir, "web/package-lock.json", "{\"v\":2}\n")
	writeFile(t, dir, "assets/logo.png", "changed\n")
	writeFile(t, dir, "main.go", "package main // real change\n")

	g := New(dir, []string{"go.sum", "package-lock.json", "*.png"}, 0)
	diff, err := g.Diff(context.Background())
	require.NoError(t, err)
	assert.Contains(t, diff, "real change")
	assert.NotContains(t, diff, "go.sum")
	assert.NotContains(t, diff, "package-lock.json")
	assert.NotContains(t, diff, "logo.png")
}

func TestDiff_OnlyNoiseIsEmpty(t *testing.T) {
	dir := setupTestRepo(t)
	writeFile(t, dir, "go.sum", "a\n")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-m", "sum")
	writeFile(t, dir, "go.sum", "b\n")

	g := New(dir, []string{"go.sum"}, 0)
	diff, err := g.Diff(context.Background())
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(diff))
}

func TestDiff_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	g := New(t.TempDir(), nil, 0)
	_, err := g.Diff(context.Background())
	assert.Error(t, err)
}

func TestCommitAll_IncludesUntracked(t *testing.T) {
	dir := setupTestRepo(t)
	writeFile(t, dir, "new.go", "package main\n")
	writeFile(t, dir, "main.go", "package main // edited\n")

	g := New(dir, nil, 0)
	out, err := g.CommitAll(context.Background(), "task(1.1): add new file")
	require.NoError(t, err)
	assert.Contains(t, out, "task(1.1)")

	status := gitCmd(t, dir, "status", "--porcelain")
	assert.Empty(t, strings.TrimSpace(status))

	log := gitCmd(t, dir, "log", "-1", "--pretty=%s")
	assert.Equal(t, "task(1.1): add new file", strings.TrimSpace(log))
}

func TestCommitAll_NothingToCommit(t *testing.T) {
	dir := setupTestRepo(t)

	g := New(dir, nil, 0)
	_, err := g.CommitAll(context.Background(), "empty")
	assert.Error(t, err)
}

func TestCommitAll_TimeoutKillsHookProcesses(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX hook script")
	}
	dir := setupTestRepo(t)
	hook := filepath.Join(dir, ".git", "hooks", "pre-commit")
	require.NoError(t, os.MkdirAll(filepath.Dir(hook), 0o755))
	require.NoError(t, os.WriteFile(hook, []byte("#!/bin/sh\nsleep 5\n"), 0o755))
	writeFile(t, dir, "new.go", "package main\n")

	g := New(dir, nil, time.Second)
	start := time.Now()
	_, err := g.CommitAll(context.Background(), "task(1.1): slow hook")
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.Less(t, elapsed, 4*time.Second, "hook outlived the timeout")
}

func TestExcludePathspec(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"go.sum", ":(exclude,glob)**/go.sum"},
		{"*.png", ":(exclude,glob)**/*.png"},
		{"**/dist/**", ":(exclude,glob)**/dist/**"},
		{"/yarn.lock", ":(exclude,glob)**/yarn.lock"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, excludePathspec(tt.in))
		})
	}
}
