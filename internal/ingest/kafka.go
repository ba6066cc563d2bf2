package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/kafka"
)

// defaultRetryDelay is the pause after a failed read before trying again.
const defaultRetryDelay = time.Second

// RecordReader reads Kafka records. *kafka.Reader satisfies it.
type RecordReader interface {
	ReadRecord(ctx context.Context) (kafka.Record, error)
}

// KafkaSourceOptions configures a KafkaSource.
type KafkaSourceOptions struct {
	// RetryDelay is the pause after a failed read. Default: 1s.
	RetryDelay time.Duration

	// Logger is optional.
	Logger Logger
}

// KafkaSource submits frames consumed from a Kafka topic.
type KafkaSource struct {
	reader     RecordReader
	submitter  Submitter
	retryDelay time.Duration
	logger     Logger
}

// NewKafkaSource creates a source. Call Run to consume.
func NewKafkaSource(reader RecordReader, submitter Submitter, opts KafkaSourceOptions) (*KafkaSource, error) {
	if reader == nil || submitter == nil {
		return nil, ErrMissingDependency
	}

	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &KafkaSource{reader: reader, submitter: submitter, retryDelay: delay, logger: logger}, nil
}

// Run consumes records until ctx is cancelled or the reader is closed, both
// of which return nil. A submit error that is not caused by ctx ends the
// loop and is returned.
func (s *KafkaSource) Run(ctx context.Context) error {
	for {
		rec, err := s.reader.ReadRecord(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
				return nil
			}
			s.logger.Error("kafka read failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.retryDelay):
			}
			continue
		}

		f, err := Decode(rec.Value, SourceKafka)
		if err != nil {
			s.logger.Warn("dropping undecodable frame",
				"partition", rec.Partition,
				"offset", rec.Offset,
				"error", err,
			)
			continue
		}
		if f.ReceivedAt.IsZero() {
			f.Stamp(rec.Time)
		}

		if err := s.submitter.Submit(ctx, f); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("submitting frame at offset %d: %w", rec.Offset, err)
		}
	}
}
