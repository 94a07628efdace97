package retry

import "fmt"

// NoProviderAvailableError means no enabled, healthy provider exists.
// It is fatal: the coordinator does not retry it.
type NoProviderAvailableError struct{}

func (e *NoProviderAvailableError) Error() string {
	return "no provider available for execution"
}

// RetriesExhaustedError means every attempt failed. It wraps the last
// underlying attempt error so callers can inspect the final failure mode.
type RetriesExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Err }
