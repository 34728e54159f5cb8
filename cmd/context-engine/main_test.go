package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/context-engine/internal/gatekeeper"
	"github.com/HendryAvila/context-engine/internal/journal"
	"github.com/HendryAvila/context-engine/internal/tasklist"
)

func TestParseLevel(t *testing.T) {
	lvl, err := parseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = parseLevel("loud")
	assert.Error(t, err)
}

func TestRenderResult_Success(t *testing.T) {
	start := time.Now()
	out := renderResult(&gatekeeper.Result{
		TaskID: "1.2", Success: true, Gates: gatekeeper.Gates, DiffBytes: 2048,
		CommitOutput: "[main abc1234] task(1.2): x\nabc1234",
		Warnings:     []string{"task list missing"},
		StartedAt:    start, FinishedAt: start.Add(time.Second),
	})

	assert.Contains(t, out, "task 1.2 committed")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "abc1234")
	assert.Contains(t, out, "task list missing")
}

func TestRenderResult_Failure(t *testing.T) {
	out := renderResult(&gatekeeper.Result{
		TaskID: "1.2", FailedGate: gatekeeper.GateCritique,
		Gates:    []gatekeeper.Gate{gatekeeper.GateVerify, gatekeeper.GateCollectChanges, gatekeeper.GateCritique},
		Critique: "REJECT: missing tests",
	})

	assert.Contains(t, out, "stopped at critique")
	assert.Contains(t, out, "REJECT: missing tests")
	assert.Contains(t, out, "commit")
}

func TestRenderStatus(t *testing.T) {
	out := renderStatus("WORK_PLAN.md",
		tasklist.Summary{Total: 4, Complete: 1, InProgress: 1, Blocked: 1, Open: 1, Next: "2.1 Parse"},
		&journal.Stats{Attempts: 3, Completed: 1, Failed: 2})

	assert.Contains(t, out, "1/4 complete")
	assert.Contains(t, out, "Next: 2.1 Parse")
	assert.Contains(t, out, "3 attempts")

	empty := renderStatus("WORK_PLAN.md", tasklist.Summary{}, nil)
	assert.Contains(t, empty, "No tasks with status markers found.")
	assert.NotContains(t, empty, "journal:")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "context-engine v"))
}

func TestCLI_InitAndStatus(t *testing.T) {
	root := t.TempDir()
	t.Setenv("CONTEXT_ENGINE_JOURNAL__ENABLED", "false")
	require.NoError(t, os.WriteFile(filepath.Join(root, "WORK_PLAN.md"), []byte("- [x] 1.1 a\n- [ ] 1.2 b\n"), 0o644))

	out, err := runCLI(t, "init", "--project", root)
	require.NoError(t, err)
	assert.Contains(t, out, ".context-engine.yaml")
	assert.FileExists(t, filepath.Join(root, ".context-engine.yaml"))

	_, err = runCLI(t, "init", "--project", root)
	assert.Error(t, err, "second init without --force must refuse")

	out, err = runCLI(t, "status", "--project", root, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "1/2 complete")
	assert.Contains(t, out, "Next: 1.2 b")
}

func TestCLI_MissingProject(t *testing.T) {
	_, err := runCLI(t, "status", "--project", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestCLI_ServeRejectsUnknownTransport(t *testing.T) {
	_, err := runCLI(t, "serve", "--project", t.TempDir(), "--transport", "carrier-pigeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}
