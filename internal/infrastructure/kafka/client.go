package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Consumer and producer tuning.
const (
	readerMinBytes = 1
	readerMaxBytes = 10_000_000 // 10MB
	readerMaxWait  = 250 * time.Millisecond

	writerBatchTimeout = 10 * time.Millisecond
	writerBatchBytes   = 1 << 20
	writeTimeout       = 10 * time.Second
)

// Record is one Kafka message.
type Record struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
	Time    time.Time

	// Partition and Offset are set on records returned by Reader.
	Partition int
	Offset    int64
}

// Writer produces records to one topic.
type Writer struct {
	w     *kafkago.Writer
	topic string
}

// NewWriter creates a synchronous writer. Records with the same key go to
// the same partition.
func NewWriter(brokers []string, topic string) (*Writer, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if topic == "" {
		return nil, ErrNoTopic
	}

	return &Writer{
		w: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			BatchTimeout: writerBatchTimeout,
			BatchBytes:   writerBatchBytes,
			WriteTimeout: writeTimeout,
			RequiredAcks: kafkago.RequireAll,
			Async:        false,
		},
		topic: topic,
	}, nil
}

// Topic returns the destination topic.
func (w *Writer) Topic() string {
	return w.topic
}

// WriteRecords writes records in one batch and waits for acknowledgement.
func (w *Writer) WriteRecords(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, toMessage(r))
	}
	if err := w.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, w.topic, err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (w *Writer) Close() error {
	return w.w.Close()
}

// Reader consumes records from one topic as part of a consumer group.
type Reader struct {
	r     *kafkago.Reader
	topic string
}

// NewReader creates a group reader. Offsets are committed by the group, so a
// restarted bridge resumes where it stopped.
func NewReader(brokers []string, topic, groupID string) (*Reader, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if topic == "" {
		return nil, ErrNoTopic
	}
	if groupID == "" {
		return nil, ErrNoGroup
	}

	return &Reader{
		r: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:         brokers,
			GroupID:         groupID,
			Topic:           topic,
			MinBytes:        readerMinBytes,
			MaxBytes:        readerMaxBytes,
			MaxWait:         readerMaxWait,
			ReadLagInterval: -1,
			CommitInterval:  time.Second,
		}),
		topic: topic,
	}, nil
}

// Topic returns the consumed topic.
func (r *Reader) Topic() string {
	return r.topic
}

// ReadRecord blocks until the next record arrives. It returns ctx.Err()
// unwrapped when ctx ends, so callers can test for context.Canceled.
func (r *Reader) ReadRecord(ctx context.Context) (Record, error) {
	msg, err := r.r.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("%w: %s: %w", ErrReadFailed, r.topic, err)
	}
	return fromMessage(msg), nil
}

// Close closes the reader and leaves the consumer group.
func (r *Reader) Close() error {
	return r.r.Close()
}

func toMessage(r Record) kafkago.Message {
	msg := kafkago.Message{
		Key:   r.Key,
		Value: r.Value,
		Time:  r.Time,
	}
	for k, v := range r.Headers {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return msg
}

func fromMessage(msg kafkago.Message) Record {
	r := Record{
		Key:       msg.Key,
		Value:     msg.Value,
		Time:      msg.Time,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}
	if len(msg.Headers) > 0 {
		r.Headers = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			r.Headers[h.Key] = string(h.Value)
		}
	}
	return r
}
