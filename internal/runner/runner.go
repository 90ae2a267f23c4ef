// Package runner executes the configured commands concurrently, each under
// its own timeout, and aggregates pass/fail for reporting.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout applies when a spec carries no timeout of its own.
const DefaultTimeout = 300 * time.Second

const (
	StatusOK      = "OK"
	StatusFailed  = "FAILED"
	StatusTimeout = "TIMEOUT"
)

// Spec is one shell command with its timeout.
type Spec struct {
	Command string
	Timeout time.Duration
}

// Result captures one command's outcome.
type Result struct {
	Command  string
	Status   string // OK, FAILED, TIMEOUT
	Reason   string // nonzero_exit, start_failed, timeout
	ExitCode *int
	Output   string // combined stdout+stderr
	Duration time.Duration
}

func (r Result) Succeeded() bool {
	return r.Status == StatusOK
}

// Aggregate is the joined outcome of all commands in one invocation.
type Aggregate struct {
	Results []Result
}

// Succeeded reports whether every command exited zero within its timeout.
func (a Aggregate) Succeeded() bool {
	for _, res := range a.Results {
		if !res.Succeeded() {
			return false
		}
	}
	return true
}

// FailureReport concatenates the combined output of every failed command,
// each under a header naming the command and why it failed. Successful
// commands are omitted to keep the report focused.
func (a Aggregate) FailureReport() string {
	var b strings.Builder
	for _, res := range a.Results {
		if res.Succeeded() {
			continue
		}
		fmt.Fprintf(&b, "--- %s (%s)\n", res.Command, res.failureLabel())
		output := strings.TrimRight(res.Output, "\n")
		if output != "" {
			b.WriteString(output)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (r Result) failureLabel() string {
	switch {
	case r.Status == StatusTimeout:
		return fmt.Sprintf("timed out after %s", r.Duration.Round(time.Millisecond))
	case r.ExitCode != nil:
		return fmt.Sprintf("exit %d", *r.ExitCode)
	default:
		return "failed to start"
	}
}

// RunAll starts every command concurrently and blocks until all of them
// finish. Commands are independent: one failing or timing out never cancels
// its siblings. Results keep the order of specs.
func RunAll(ctx context.Context, specs []Spec) Aggregate {
	results := make([]Result, len(specs))

	var group errgroup.Group
	for i, spec := range specs {
		i, spec := i, spec
		group.Go(func() error {
			results[i] = runOne(ctx, spec)
			return nil
		})
	}
	// Join barrier; per-command failures live in the result slots.
	_ = group.Wait()

	return Aggregate{Results: results}
}

func runOne(ctx context.Context, spec Spec) Result {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := shellCommand(runCtx, spec.Command)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	configureProcessGroup(cmd)
	// On cancellation take the whole process group down, best effort, so
	// children spawned by the shell do not outlive the timeout.
	cmd.Cancel = func() error {
		return terminate(cmd)
	}
	cmd.WaitDelay = 5 * time.Second

	started := time.Now()
	err := cmd.Run()
	result := Result{
		Command:  spec.Command,
		Output:   output.String(),
		Duration: time.Since(started),
	}

	if err == nil {
		code := 0
		result.ExitCode = &code
		result.Status = StatusOK
		return result
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.Status = StatusTimeout
		result.Reason = "timeout"
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		result.ExitCode = &code
		result.Status = StatusFailed
		result.Reason = "nonzero_exit"
		return result
	}

	result.Status = StatusFailed
	result.Reason = "start_failed"
	if result.Output == "" {
		result.Output = err.Error() + "\n"
	}
	return result
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}
