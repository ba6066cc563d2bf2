package protocol

import "errors"

// Domain-specific errors for frame decoding.
var (
	// ErrInvalidFrame indicates the envelope is not valid JSON or lacks a tag.
	ErrInvalidFrame = errors.New("protocol: invalid frame")

	// ErrInvalidPayload indicates the payload of a known tag could not be decoded.
	ErrInvalidPayload = errors.New("protocol: invalid payload")
)
