package normalize

import (
	"errors"
	"fmt"
)

// Domain-specific errors for normalization.
var (
	// ErrMissingIdentity indicates a reading without a serial number.
	ErrMissingIdentity = errors.New("normalize: missing identity")

	// ErrInvalidPort indicates a panel reading with a negative port number.
	ErrInvalidPort = errors.New("normalize: invalid port")
)

// EntityKind names the kind of entity in a snapshot.
type EntityKind string

// Entity kinds.
const (
	KindLogger   EntityKind = "logger"
	KindInverter EntityKind = "inverter"
	KindPanel    EntityKind = "panel"
	KindMeter    EntityKind = "meter"
)

// EntityError reports one entity that could not be normalized or published.
type EntityError struct {
	Kind EntityKind

	// Key is the entity identity, possibly empty.
	Key string

	// Index is the position within its sequence (0 for the logger).
	Index int

	Err error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s[%d] %q: %v", e.Kind, e.Index, e.Key, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}
