// Package gitcmd implements the repository backend by running the git
// command-line tool.
package gitcmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// GitRunner defines the function signature for executing git commands.
// This allows mocking the actual git execution during tests.
type GitRunner func(ctx context.Context, args ...string) (stdout string, err error)

// Runner is the package-level variable holding the function used to run git commands.
// It defaults to the real implementation but can be swapped out in tests.
var Runner GitRunner = runGitCommandReal

// defaultTimeout bounds a git invocation when the caller's context has no deadline.
const defaultTimeout = 30 * time.Second

func runGitCommandReal(ctx context.Context, args ...string) (string, error) {
	if _, deadlineSet := ctx.Deadline(); !deadlineSet {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	// Keep git from paging or prompting; we own the terminal.
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_PAGER=cat")

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout := strings.TrimRight(stdoutBuf.String(), "\n")
	stderr := strings.TrimSpace(stderrBuf.String())

	if err != nil {
		return stdout, fmt.Errorf("git command failed: %w\nargs: %v\nstderr: %s", err, args, stderr)
	}

	return stdout, nil
}

// RunGitCommand runs git through the package-level Runner.
func RunGitCommand(ctx context.Context, args ...string) (string, error) {
	if Runner == nil {
		return "", fmt.Errorf("GitRunner is not initialized")
	}
	return Runner(ctx, args...)
}

// commandError shortens a runner error to git's own stderr message while
// keeping the original error in the chain.
type commandError struct {
	msg string
	err error
}

func (e *commandError) Error() string { return e.msg }
func (e *commandError) Unwrap() error { return e.err }

// cleanError extracts the stderr part of a runner error, falling back to
// the full error text when there is none.
func cleanError(err error) error {
	msg := err.Error()
	if _, after, ok := strings.Cut(msg, "stderr:"); ok && strings.TrimSpace(after) != "" {
		msg = strings.TrimSpace(after)
	}
	return &commandError{msg: msg, err: err}
}
