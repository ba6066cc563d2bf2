// Package kafka wraps segmentio/kafka-go for the DTU bridge.
//
// Reader consumes decoded frame envelopes from an ingest topic as part of a
// consumer group. Writer produces keyed records synchronously; the bridge
// uses it to mirror every normalized DTO, keyed by entity so that each
// device's readings stay ordered within a partition.
//
// Record is the package's own message type so callers never import kafka-go.
package kafka
