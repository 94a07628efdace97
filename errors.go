package agentexec

import (
	"errors"

	"github.com/agentexec-dev/agentexec/internal/invoker"
	"github.com/agentexec-dev/agentexec/internal/retry"
	"github.com/agentexec-dev/agentexec/internal/validator"
)

// The engine's error taxonomy. Transient kinds (SpawnError, TimeoutError,
// NonZeroExitError, MalformedOutputError) are retried internally up to the
// attempt ceiling; only the exhausted failure surfaces, wrapped in
// RetriesExhaustedError. Fatal kinds (NoProviderAvailableError,
// SchemaValidationError) bypass retry entirely.
//
// All types work with errors.Is / errors.As:
//
//	var verr *agentexec.SchemaValidationError
//	if errors.As(err, &verr) { ... }
type (
	// SpawnError: the agent process could not be started.
	SpawnError = invoker.SpawnError

	// TimeoutError: the attempt exceeded its wall-clock budget.
	TimeoutError = invoker.TimeoutError

	// NonZeroExitError: the process ran and exited with a failure code.
	NonZeroExitError = invoker.NonZeroExitError

	// MalformedOutputError: clean exit but undecodable output.
	MalformedOutputError = invoker.MalformedOutputError

	// NoProviderAvailableError: no enabled, healthy provider exists.
	NoProviderAvailableError = retry.NoProviderAvailableError

	// RetriesExhaustedError: every attempt failed; wraps the last error.
	RetriesExhaustedError = retry.RetriesExhaustedError

	// SchemaValidationError: output does not match the caller's shape.
	SchemaValidationError = validator.SchemaValidationError
)

// ErrEngineClosed is returned by Execute after Shutdown.
var ErrEngineClosed = errors.New("engine is shut down")

// IsFatal reports whether err is a contract-level failure that retrying at a
// higher level cannot fix (as opposed to an exhausted-retry failure).
func IsFatal(err error) bool {
	var noProvider *NoProviderAvailableError
	var schema *SchemaValidationError
	return errors.As(err, &noProvider) || errors.As(err, &schema)
}
