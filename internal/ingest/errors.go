package ingest

import "errors"

var (
	// ErrMissingDependency is returned when a source is built without a
	// required collaborator.
	ErrMissingDependency = errors.New("ingest: missing dependency")

	// ErrNoTopic is returned when a source has no topic to consume.
	ErrNoTopic = errors.New("ingest: topic is required")
)
