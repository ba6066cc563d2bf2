package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

func TestNewWriter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		brokers []string
		topic   string
		wantErr error
	}{
		{"no brokers", nil, "dtu-telemetry", ErrNoBrokers},
		{"no topic", []string{"localhost:9092"}, "", ErrNoTopic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWriter(tt.brokers, tt.topic); !errors.Is(err, tt.wantErr) {
				t.Errorf("NewWriter() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	w, err := NewWriter([]string{"localhost:9092"}, "dtu-telemetry")
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	defer w.Close()
	if w.Topic() != "dtu-telemetry" {
		t.Errorf("Topic() = %q, want %q", w.Topic(), "dtu-telemetry")
	}
	if _, ok := w.w.Balancer.(*kafkago.Hash); !ok {
		t.Errorf("Balancer = %T, want *kafka.Hash", w.w.Balancer)
	}
	if w.w.RequiredAcks != kafkago.RequireAll || w.w.Async {
		t.Errorf("writer acks = %v async = %v, want RequireAll sync", w.w.RequiredAcks, w.w.Async)
	}
}

func TestWriteRecords_Empty(t *testing.T) {
	w, _ := NewWriter([]string{"localhost:9092"}, "dtu-telemetry")
	defer w.Close()

	// No records means no network round-trip.
	if err := w.WriteRecords(context.Background(), nil); err != nil {
		t.Errorf("WriteRecords(nil) error = %v", err)
	}
}

func TestNewReader_Validation(t *testing.T) {
	tests := []struct {
		name    string
		brokers []string
		topic   string
		group   string
		wantErr error
	}{
		{"no brokers", nil, "dtu-frames", "g", ErrNoBrokers},
		{"no topic", []string{"localhost:9092"}, "", "g", ErrNoTopic},
		{"no group", []string{"localhost:9092"}, "dtu-frames", "", ErrNoGroup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewReader(tt.brokers, tt.topic, tt.group); !errors.Is(err, tt.wantErr) {
				t.Errorf("NewReader() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageConversion(t *testing.T) {
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := Record{
		Key:     []byte("inverter/INV01"),
		Value:   []byte(`{"powerFactor":950}`),
		Headers: map[string]string{"entity-kind": "inverter"},
		Time:    ts,
	}

	msg := toMessage(rec)
	if string(msg.Key) != "inverter/INV01" || !msg.Time.Equal(ts) {
		t.Errorf("toMessage() = %+v", msg)
	}
	if len(msg.Headers) != 1 || msg.Headers[0].Key != "entity-kind" || string(msg.Headers[0].Value) != "inverter" {
		t.Errorf("Headers = %+v", msg.Headers)
	}

	msg.Partition = 3
	msg.Offset = 42
	back := fromMessage(msg)
	if string(back.Value) != string(rec.Value) || back.Headers["entity-kind"] != "inverter" {
		t.Errorf("fromMessage() = %+v", back)
	}
	if back.Partition != 3 || back.Offset != 42 {
		t.Errorf("Partition/Offset = %d/%d, want 3/42", back.Partition, back.Offset)
	}
}
