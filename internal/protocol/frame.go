package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frame is one decoded protocol message on its way into the bridge.
//
// Payload holds *RealDataMessage or *AppInfoMessage for known tags and
// json.RawMessage for anything else.
type Frame struct {
	ID         string
	Tag        uint16
	Source     string
	ReceivedAt time.Time
	Payload    any
}

// Stamp sets the receive time of f, and of its typed message, where it is
// still zero.
func (f *Frame) Stamp(t time.Time) {
	if f.ReceivedAt.IsZero() {
		f.ReceivedAt = t
	}
	switch msg := f.Payload.(type) {
	case *RealDataMessage:
		if msg.ReceivedAt.IsZero() {
			msg.ReceivedAt = f.ReceivedAt
		}
	case *AppInfoMessage:
		if msg.ReceivedAt.IsZero() {
			msg.ReceivedAt = f.ReceivedAt
		}
	}
}

// envelope is the JSON form of a Frame.
type envelope struct {
	ID         string          `json:"id,omitempty"`
	Tag        uint16          `json:"tag"`
	Source     string          `json:"source,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// DecodeFrame parses a JSON frame envelope.
func DecodeFrame(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	if env.Tag == 0 {
		return Frame{}, fmt.Errorf("%w: missing tag", ErrInvalidFrame)
	}

	f := Frame{
		ID:         env.ID,
		Tag:        env.Tag,
		Source:     env.Source,
		ReceivedAt: env.ReceivedAt,
	}

	switch {
	case IsRealData(env.Tag):
		var msg RealDataMessage
		if err := decodePayload(env.Payload, &msg); err != nil {
			return Frame{}, fmt.Errorf("%w: tag %d: %w", ErrInvalidPayload, env.Tag, err)
		}
		msg.ReceivedAt = env.ReceivedAt
		f.Payload = &msg
	case env.Tag == TagAppInfo:
		var msg AppInfoMessage
		if err := decodePayload(env.Payload, &msg); err != nil {
			return Frame{}, fmt.Errorf("%w: tag %d: %w", ErrInvalidPayload, env.Tag, err)
		}
		msg.ReceivedAt = env.ReceivedAt
		f.Payload = &msg
	default:
		f.Payload = env.Payload
	}

	return f, nil
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(raw, v)
}

// EncodeFrame renders f as a JSON envelope. It is the inverse of DecodeFrame.
func EncodeFrame(f Frame) ([]byte, error) {
	payload, err := json.Marshal(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return json.Marshal(envelope{
		ID:         f.ID,
		Tag:        f.Tag,
		Source:     f.Source,
		ReceivedAt: f.ReceivedAt,
		Payload:    payload,
	})
}
