package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeResponse is the scripted outcome of a command matched by prefix.
type FakeResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// FakeRunner is a Runner that records every command and answers from a
// table of command-line prefixes. The longest matching prefix wins;
// unmatched commands succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	missing   map[string]bool
	calls     []Command
}

// NewFakeRunner creates an empty scripted runner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string]FakeResponse), missing: make(map[string]bool)}
}

// Missing makes LookPath report the binary as not installed.
func (f *FakeRunner) Missing(binary string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing[binary] = true
	return f
}

// LookPath fails only for binaries marked Missing.
func (f *FakeRunner) LookPath(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[name] {
		return fmt.Errorf("%s command not found in PATH", name)
	}
	return nil
}

// On scripts the response for commands whose line starts with prefix.
func (f *FakeRunner) On(prefix string, resp FakeResponse) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = resp
	return f
}

// Calls returns the command lines run so far.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = c.String()
	}
	return lines
}

// Called reports whether any recorded command line starts with prefix.
func (f *FakeRunner) Called(prefix string) bool {
	for _, line := range f.Calls() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

var (
	_ Runner     = (*FakeRunner)(nil)
	_ PathLooker = (*FakeRunner)(nil)
)

func (f *FakeRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	line := c.String()
	var (
		best  FakeResponse
		found bool
		size  = -1
	)
	for prefix, resp := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > size {
			best, found, size = resp, true, len(prefix)
		}
	}
	f.mu.Unlock()

	if !found {
		return &Result{}, nil
	}
	res := &Result{Stdout: best.Stdout, Stderr: best.Stderr, ExitCode: best.ExitCode}
	if best.Err != nil {
		return res, best.Err
	}
	if best.ExitCode != 0 {
		return res, &ExitError{Command: line, ExitCode: best.ExitCode, Stderr: best.Stderr}
	}
	return res, nil
}
