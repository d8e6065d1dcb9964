package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"infometis/pkg/logging"
)

const subsystem = "Executor"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	// Stdin is optional input piped to the process.
	Stdin io.Reader
	// Timeout bounds the run; zero means only ctx bounds it.
	Timeout time.Duration
	// Silent suppresses debug logging of the command line, for commands
	// whose arguments carry secrets or that are polled in a loop.
	Silent bool
	// Env is appended to the current process environment.
	Env []string
	Dir string
}

// String renders the command line for logs and errors.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of a finished process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ExitError is returned when a process exits with a non-zero code.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// IsExitError reports whether err is or wraps an ExitError.
func IsExitError(err error) bool {
	var target *ExitError
	return errors.As(err, &target)
}

// Runner runs external commands. Collaborators depend on this interface so
// tests can substitute scripted results.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Executor runs commands as local child processes.
type Executor struct{}

// New creates a process executor.
func New() *Executor {
	return &Executor{}
}

var _ PathLooker = (*Executor)(nil)

// PathLooker is implemented by runners that can tell whether a binary is
// installed.
type PathLooker interface {
	LookPath(name string) error
}

// LookPath reports whether a binary is available in PATH.
func (e *Executor) LookPath(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s command not found in PATH: %w", name, err)
	}
	return nil
}

// Run starts the command and waits for it. A non-zero exit yields the Result
// together with an *ExitError; a cancelled or expired context yields the
// context error.
func (e *Executor) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	if !c.Silent {
		logging.Debug(subsystem, "Running %s", c.String())
	}

	cmd := execCommandContext(ctx, c.Name, c.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if c.Stdin != nil {
		cmd.Stdin = c.Stdin
	}
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s: %w", c.String(), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if !c.Silent {
			logging.Debug(subsystem, "%s exited with code %d", c.Name, result.ExitCode)
		}
		return result, &ExitError{Command: c.String(), ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return result, fmt.Errorf("failed to run %s: %w", c.String(), err)
}
