package mqtt

import (
	"fmt"
	"strings"
)

// maxTopicLength is the MQTT limit on a UTF-8 encoded topic name.
const maxTopicLength = 65535

// ValidatePublishTopic checks that topic can be used in a PUBLISH packet.
//
// Publish topics must be non-empty, must not contain the wildcard
// characters '+' or '#', and must not contain a NUL byte.
func ValidatePublishTopic(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(topic) > maxTopicLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidTopic, len(topic), maxTopicLength)
	}
	if strings.ContainsAny(topic, "+#\x00") {
		return fmt.Errorf("%w: %q contains a wildcard or NUL", ErrInvalidTopic, topic)
	}
	return nil
}

// ValidateFilter checks that filter is a well-formed subscription filter.
//
// '+' must occupy a whole level and '#' must occupy the whole last level.
func ValidateFilter(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	if strings.ContainsRune(filter, '\x00') {
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidTopic, filter)
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, "+") && level != "+" {
			return fmt.Errorf("%w: %q has '+' inside a level", ErrInvalidTopic, filter)
		}
		if strings.Contains(level, "#") && (level != "#" || i != len(levels)-1) {
			return fmt.Errorf("%w: %q has '#' outside the last level", ErrInvalidTopic, filter)
		}
	}
	return nil
}
