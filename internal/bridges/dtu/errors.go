package dtu

import "errors"

var (
	// ErrBridgeStopped is returned by Submit once Stop has been called.
	ErrBridgeStopped = errors.New("dtu: bridge stopped")

	// ErrMissingDependency is returned by NewBridge when a required option
	// is nil.
	ErrMissingDependency = errors.New("dtu: missing dependency")

	// ErrInvalidDiscovery is returned when a discovery file is not valid JSON.
	ErrInvalidDiscovery = errors.New("dtu: invalid discovery payload")
)
