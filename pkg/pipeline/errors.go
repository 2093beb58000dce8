package pipeline

import "errors"

// Error categories surfaced by the pipeline. Transports match on these
// with errors.Is to pick a response code; the wrapped message carries the
// diagnostic detail.
var (
	// ErrValidation marks bad input (document or request parameters).
	// Never worth retrying.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown document identifier.
	ErrNotFound = errors.New("document not found")

	// ErrDeadlineExceeded marks a request that ran out of its time
	// budget. Retrying with a larger budget may succeed.
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// ErrUnavailable marks an unreachable collaborator (embedding model,
	// vector backend or generative service). Retryable.
	ErrUnavailable = errors.New("collaborator unavailable")
)
