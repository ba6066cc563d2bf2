package pipeline

import "errors"

// Domain-specific errors for the queue.
var (
	// ErrClosed is returned by Push after Close, and by Pop once the queue
	// is closed and empty.
	ErrClosed = errors.New("pipeline: queue closed")

	// ErrPolicyRequired is returned by New for a bounded queue without an
	// overflow policy.
	ErrPolicyRequired = errors.New("pipeline: bounded queue requires an overflow policy")

	// ErrInvalidCapacity is returned by New for a negative capacity.
	ErrInvalidCapacity = errors.New("pipeline: invalid capacity")
)
