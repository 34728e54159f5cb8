// Package runner executes the external language-model CLI and the project's
// own shell commands.
//
// Model calls always carry a timeout. Shell commands report a nonzero exit
// through ShellResult instead of an error; only a failure to launch is an
// error.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/HendryAvila/context-engine/internal/config"
)

// timeNow is a package-level var so tests can control durations.
var timeNow = time.Now

// waitDelay bounds how long Wait keeps reading output after the process
// tree was killed or the direct child exited.
const waitDelay = 2 * time.Second

// ShellResult holds the captured outcome of one shell command.
type ShellResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Combined joins stdout and stderr the way a terminal would show them.
func (r ShellResult) Combined() string {
	switch {
	case r.Stdout == "":
		return r.Stderr
	case r.Stderr == "":
		return r.Stdout
	default:
		return strings.TrimRight(r.Stdout, "\n") + "\n" + r.Stderr
	}
}

// ModelInvocationError reports a model CLI that exited nonzero or could not
// be started.
type ModelInvocationError struct {
	Model    string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ModelInvocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model %s: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("model %s exited with code %d: %s", e.Model, e.ExitCode, strings.TrimSpace(e.Stderr))
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

// ModelTimeoutError reports a model call that exceeded its timeout.
type ModelTimeoutError struct {
	Model   string
	Timeout time.Duration
}

func (e *ModelTimeoutError) Error() string {
	return fmt.Sprintf("model %s timed out after %d seconds", e.Model, int(e.Timeout.Seconds()))
}

// Recorder observes model calls. internal/metrics implements it.
type Recorder interface {
	ObserveModelCall(model, outcome string, elapsed time.Duration)
}

// Runner runs processes on behalf of one project.
type Runner struct {
	cfg      *config.ProjectConfig
	recorder Recorder
}

// New creates a Runner for cfg.
func New(cfg *config.ProjectConfig) *Runner {
	return &Runner{cfg: cfg}
}

// SetRecorder attaches an optional metrics recorder. Passing nil detaches it.
func (r *Runner) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// RunModel sends prompt to modelID and returns the trimmed reply. It uses
// the configured model timeout.
func (r *Runner) RunModel(ctx context.Context, modelID, prompt string) (string, error) {
	return r.RunModelWithTimeout(ctx, modelID, prompt, r.cfg.ModelTimeout())
}

// RunModelWithTimeout is RunModel with an explicit limit. A non-positive
// timeout falls back to the configured one.
func (r *Runner) RunModelWithTimeout(ctx context.Context, modelID, prompt string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = r.cfg.ModelTimeout()
	}

	cmd := exec.Command(r.cfg.Model.CLI, "-m", modelID, prompt)
	cmd.Dir = r.cfg.Root
	cmd.Env = buildEnv(map[string]string{
		"NODE_OPTIONS": fmt.Sprintf("--max-old-space-size=%d", r.cfg.Model.MaxMemoryMB),
	})

	start := timeNow()
	res, err := runCommand(ctx, cmd, timeout)
	elapsed := timeNow().Sub(start)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		r.observe(modelID, "timeout", elapsed)
		return "", &ModelTimeoutError{Model: modelID, Timeout: timeout}
	case err != nil:
		r.observe(modelID, "error", elapsed)
		return "", &ModelInvocationError{Model: modelID, ExitCode: -1, Err: err}
	case res.ExitCode != 0:
		r.observe(modelID, "error", elapsed)
		return "", &ModelInvocationError{Model: modelID, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}

	r.observe(modelID, "ok", elapsed)
	return strings.TrimSpace(res.Stdout), nil
}

// RunShell runs commandLine through the platform shell in cwd.
// A nonzero exit is reported in the result, not as an error.
func (r *Runner) RunShell(ctx context.Context, commandLine, cwd string) (ShellResult, error) {
	cmd := shellCommand(commandLine)
	cmd.Dir = cwd
	cmd.Env = os.Environ()

	timeout := r.cfg.ShellTimeout()
	res, err := runCommand(ctx, cmd, timeout)
	if errors.Is(err, context.DeadlineExceeded) {
		res.ExitCode = -1
		res.Stderr += fmt.Sprintf("\ncommand timed out after %d seconds", int(timeout.Seconds()))
		return res, nil
	}
	if err != nil {
		return ShellResult{}, fmt.Errorf("running %q: %w", commandLine, err)
	}
	return res, nil
}

func (r *Runner) observe(model, outcome string, elapsed time.Duration) {
	if r.recorder == nil {
		return
	}
	r.recorder.ObserveModelCall(model, outcome, elapsed)
}

func shellCommand(commandLine string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd", "/C", commandLine)
	}
	return exec.Command("sh", "-c", commandLine)
}

// runCommand starts cmd and waits for it or for ctx to end, whichever comes
// first. The exit code of a finished process is reported in the result.
// On timeout the partial output is returned together with the context error.
func runCommand(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) (ShellResult, error) {
	ctx, cancel := applyTimeout(ctx, timeout)
	defer cancel()

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	start := timeNow()
	if err := cmd.Start(); err != nil {
		return ShellResult{}, fmt.Errorf("starting %s: %w", cmd.Path, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		if err := killProcessTree(cmd); err != nil {
			_ = cmd.Process.Kill()
		}
		<-done
		return ShellResult{
			ExitCode: -1,
			Stdout:   stdoutBuf.String(),
			Stderr:   stderrBuf.String(),
			Duration: timeNow().Sub(start),
		}, ctx.Err()
	case err = <-done:
	}

	result := ShellResult{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: timeNow().Sub(start),
	}
	if err != nil && !errors.Is(err, exec.ErrWaitDelay) {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return ShellResult{}, fmt.Errorf("waiting for %s: %w", cmd.Path, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

// KillTreeOnCancel makes a command built with exec.CommandContext kill its
// whole process tree when the context ends, not only the direct child, and
// stop waiting on inherited output pipes after a short delay.
func KillTreeOnCancel(cmd *exec.Cmd) {
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessTree(cmd)
	}
	cmd.WaitDelay = waitDelay
}

func applyTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// buildEnv appends extra to the current process environment. Later entries
// win, so extra overrides inherited values.
func buildEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
