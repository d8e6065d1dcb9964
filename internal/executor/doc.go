// Package executor runs external processes (docker, k0s kubectl) and
// captures their output.
//
// Every invocation returns a Result with exit code, stdout, stderr and
// duration. A non-zero exit is reported as *ExitError carrying stderr, so
// callers can surface the tool's own message. Timeouts and context
// cancellation kill the process.
//
// Components take the Runner interface rather than *Executor so their tests
// can script command results without spawning processes.
package executor
