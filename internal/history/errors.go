package history

import "errors"

// Domain-specific errors for history persistence.
var (
	// ErrInvalidKind is returned for a device kind other than logger,
	// inverter, panel or meter.
	ErrInvalidKind = errors.New("history: invalid device kind")

	// ErrInvalidDevice is returned for a device without an id.
	ErrInvalidDevice = errors.New("history: invalid device")

	// ErrInvalidFailure is returned for a failure without topic or error.
	ErrInvalidFailure = errors.New("history: invalid failure")
)
