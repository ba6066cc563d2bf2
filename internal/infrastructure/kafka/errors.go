package kafka

import "errors"

// Domain-specific errors for Kafka operations.
var (
	// ErrNoBrokers is returned when no broker address is configured.
	ErrNoBrokers = errors.New("kafka: no brokers configured")

	// ErrNoTopic is returned when the topic is empty.
	ErrNoTopic = errors.New("kafka: topic is required")

	// ErrNoGroup is returned when a reader has no consumer group id.
	ErrNoGroup = errors.New("kafka: group id is required")

	// ErrWriteFailed wraps producer errors.
	ErrWriteFailed = errors.New("kafka: write failed")

	// ErrReadFailed wraps consumer errors other than cancellation.
	ErrReadFailed = errors.New("kafka: read failed")
)
