package fanout

import (
	"errors"
	"fmt"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/normalize"
)

// Domain-specific errors for fan-out publishing.
var (
	// ErrPublishFailed is matched by every *PublishError.
	ErrPublishFailed = errors.New("fanout: publish failed")

	// ErrInvalidOptions is returned by New for a nil client or empty namespace.
	ErrInvalidOptions = errors.New("fanout: invalid options")

	// ErrInvalidState is returned for availability states other than
	// online and offline.
	ErrInvalidState = errors.New("fanout: invalid availability state")

	// ErrInvalidTopicID is reported for an entity identifier that contains
	// a topic separator or wildcard.
	ErrInvalidTopicID = errors.New("fanout: identifier not usable in topic")

	// ErrInvalidDiscoveryKey is returned for an empty or multi-level key.
	ErrInvalidDiscoveryKey = errors.New("fanout: invalid discovery key")
)

// PublishError reports one rejected or timed-out publish.
type PublishError struct {
	Topic string
	Kind  normalize.EntityKind
	Key   string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("fanout: publish %s %q to %s: %v", e.Kind, e.Key, e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPublishFailed) match.
func (e *PublishError) Is(target error) bool {
	return target == ErrPublishFailed
}
