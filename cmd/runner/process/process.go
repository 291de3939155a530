package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Command is one child process invocation
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // nil inherits the parent environment
}

// String renders the command line for logs
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the captured outcome of a finished process
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// Executor runs child processes. The context deadline is the wall-clock bound;
// on expiry the whole process group is killed and Result.TimedOut is set.
// An error means the process could not be started or waited on.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// OSExecutor runs real processes via os/exec
type OSExecutor struct {
	// WaitDelay bounds how long Run waits for inherited pipes after a kill
	WaitDelay time.Duration
}

// NewOSExecutor creates an executor with a 10s wait delay
func NewOSExecutor() *OSExecutor {
	return &OSExecutor{WaitDelay: 10 * time.Second}
}

// Run starts the command, captures stdout and stderr in full and waits
func (e *OSExecutor) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if c.Env != nil {
		cmd.Env = c.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = e.WaitDelay
	configureProcessGroup(cmd)

	start := time.Now()
	err := cmd.Run()

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("failed to run %s: %w", c.Name, err)
	}

	return res, nil
}

// Tail returns the last n lines of s. A trailing newline does not produce an
// empty final line and an empty s yields an empty, non-nil slice.
func Tail(s string, n int) []string {
	if s == "" || n <= 0 {
		return []string{}
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")

	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
