package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/protocol"
)

// defaultMQTTBuffer is the number of decoded frames held between the MQTT
// callback and Submit.
const defaultMQTTBuffer = 256

// Subscriber manages MQTT subscriptions. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// MQTTSourceOptions configures an MQTTSource.
type MQTTSourceOptions struct {
	// Topic is the subscription filter for frame envelopes.
	Topic string

	// QoS is the subscription QoS. Default: 1.
	QoS byte

	// Buffer is the number of frames waiting for Submit. Default: 256.
	Buffer int

	// Logger is optional.
	Logger Logger
}

// MQTTSource submits frames received on an MQTT topic.
//
// The MQTT callback only decodes and hands the frame to a single forwarding
// goroutine, so delivery order is kept and a full bridge queue never blocks
// the client. When the hand-off buffer is full the frame is dropped and
// counted.
type MQTTSource struct {
	sub       Subscriber
	submitter Submitter
	topic     string
	qos       byte
	logger    Logger

	pending chan protocol.Frame
	dropped atomic.Uint64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewMQTTSource creates a source. Call Start to subscribe.
func NewMQTTSource(sub Subscriber, submitter Submitter, opts MQTTSourceOptions) (*MQTTSource, error) {
	if sub == nil || submitter == nil {
		return nil, ErrMissingDependency
	}
	if opts.Topic == "" {
		return nil, ErrNoTopic
	}

	qos := opts.QoS
	if qos == 0 {
		qos = 1
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultMQTTBuffer
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &MQTTSource{
		sub:       sub,
		submitter: submitter,
		topic:     opts.Topic,
		qos:       qos,
		logger:    logger,
		pending:   make(chan protocol.Frame, buffer),
	}, nil
}

// Start begins forwarding and subscribes to the frame topic. Frames are
// submitted with a context derived from ctx.
func (s *MQTTSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	fctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go s.forward(fctx, done)

	if err := s.sub.Subscribe(s.topic, s.qos, s.handle); err != nil {
		cancel()
		<-done
		return fmt.Errorf("subscribing to %s: %w", s.topic, err)
	}

	s.cancel = cancel
	s.done = done
	s.running = true
	return nil
}

// Stop unsubscribes and waits for the forwarder to exit. Frames still
// buffered are discarded. Safe to call multiple times.
func (s *MQTTSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	err := s.sub.Unsubscribe(s.topic)
	s.cancel()
	<-s.done
	return err
}

// Dropped returns the number of frames discarded because the buffer was full.
func (s *MQTTSource) Dropped() uint64 {
	return s.dropped.Load()
}

// handle decodes one message and queues it for forwarding without blocking.
// Decode failures and drops are logged and swallowed so the client does not
// report them again.
func (s *MQTTSource) handle(topic string, payload []byte) error {
	f, err := Decode(payload, SourceMQTT)
	if err != nil {
		s.logger.Warn("dropping undecodable frame", "topic", topic, "bytes", len(payload), "error", err)
		return nil
	}

	select {
	case s.pending <- f:
	default:
		n := s.dropped.Add(1)
		s.logger.Warn("ingest buffer full, dropping frame", "topic", topic, "tag", f.Tag, "dropped_total", n)
	}
	return nil
}

// forward submits buffered frames in arrival order until ctx ends.
func (s *MQTTSource) forward(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-s.pending:
			if err := s.submitter.Submit(ctx, f); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error("submitting frame failed", "topic", s.topic, "tag", f.Tag, "error", err)
				continue
			}
			s.logger.Debug("frame received", "topic", s.topic, "tag", f.Tag)
		}
	}
}
