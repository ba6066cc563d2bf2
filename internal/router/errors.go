package router

import (
	"errors"
	"fmt"
)

// Domain-specific errors for tag registration and dispatch.
var (
	// ErrDuplicateTag is returned when a tag already has a factory.
	ErrDuplicateTag = errors.New("router: tag already registered")

	// ErrRegistryFrozen is returned when registering after Freeze.
	ErrRegistryFrozen = errors.New("router: registry is frozen")

	// ErrNilFactory is returned when registering a nil factory.
	ErrNilFactory = errors.New("router: nil factory")

	// ErrUnhandledTag is matched by *UnhandledError.
	ErrUnhandledTag = errors.New("router: unhandled message tag")

	// ErrInvalidPayload wraps factory errors and recovered factory panics.
	ErrInvalidPayload = errors.New("router: invalid payload")
)

// UnhandledError reports a tag with no registered factory.
type UnhandledError struct {
	Tag uint16
}

func (e *UnhandledError) Error() string {
	return fmt.Sprintf("router: unhandled message tag %d", e.Tag)
}

// Is lets errors.Is(err, ErrUnhandledTag) match.
func (e *UnhandledError) Is(target error) bool {
	return target == ErrUnhandledTag
}
