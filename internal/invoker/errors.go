package invoker

import (
	"fmt"
	"time"
)

// SpawnError means the agent process could not be started at all
// (missing executable, permissions). It still consumes an attempt: a later
// attempt may select a provider with a working command.
type SpawnError struct {
	Provider string
	Err      error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("provider %s: failed to spawn agent process: %v", e.Provider, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TimeoutError means the attempt exceeded its wall-clock budget and the
// process was force-terminated.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %s: attempt timed out after %v", e.Provider, e.Timeout)
}

// NonZeroExitError means the process ran and exited with a failure code.
// Stderr carries the diagnostic text the process produced, verbatim.
type NonZeroExitError struct {
	Provider string
	ExitCode int
	Stderr   string
}

func (e *NonZeroExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("provider %s: agent process failed: %s", e.Provider, e.Stderr)
	}
	return fmt.Sprintf("provider %s: agent process exited with code %d", e.Provider, e.ExitCode)
}

// MalformedOutputError means the process exited cleanly but its stdout could
// not be decoded as the expected output envelope. Treated as a transient
// provider-quality issue, not a success.
type MalformedOutputError struct {
	Provider string
	Err      error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("provider %s: malformed agent output: %v", e.Provider, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }
