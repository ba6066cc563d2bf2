package ingest

import (
	"context"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/protocol"
)

// Source names stamped on frames that do not name their own source.
const (
	SourceMQTT  = "mqtt"
	SourceKafka = "kafka"
	SourceHTTP  = "http"
)

// Submitter accepts decoded frames. *dtu.Bridge satisfies it.
type Submitter interface {
	Submit(ctx context.Context, f protocol.Frame) error
}

// Logger is the structured logger used by sources.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Decode parses data as a frame envelope and fills in source when the
// envelope does not carry one.
func Decode(data []byte, source string) (protocol.Frame, error) {
	f, err := protocol.DecodeFrame(data)
	if err != nil {
		return protocol.Frame{}, err
	}
	if f.Source == "" {
		f.Source = source
	}
	return f, nil
}
