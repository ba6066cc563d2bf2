package fanout

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/normalize"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/telemetry"
)

// QoS and retain settings per message class.
const (
	telemetryQoS    byte = 1
	availabilityQoS byte = 1
	healthQoS       byte = 1
	discoveryQoS    byte = 0
)

// Availability states.
const (
	StateOnline  = "online"
	StateOffline = "offline"
)

// DefaultDiscoveryPrefix is the Home Assistant discovery root.
const DefaultDiscoveryPrefix = "homeassistant"

// MessagePublisher is the broker capability the publisher needs.
// *mqtt.Client satisfies it.
type MessagePublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging interface used by the publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Options configures a Publisher.
type Options struct {
	Namespace         string
	LoggerTopicPrefix string
	DiscoveryPrefix   string

	// Location for calendar times in payloads. Nil means time.Local.
	Location *time.Location

	Logger Logger
}

// Publisher fans snapshots out to per-entity topics.
//
// A Publisher holds no mutable state; it is called from the single bridge
// worker.
type Publisher struct {
	client MessagePublisher
	topics Topics
	loc    *time.Location
	logger Logger
}

// New creates a Publisher.
func New(client MessagePublisher, opts Options) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil client", ErrInvalidOptions)
	}
	ns := strings.Trim(opts.Namespace, "/")
	if ns == "" {
		return nil, fmt.Errorf("%w: namespace is required", ErrInvalidOptions)
	}
	if strings.ContainsAny(ns, "+#") {
		return nil, fmt.Errorf("%w: namespace %q contains wildcards", ErrInvalidOptions, ns)
	}

	discovery := opts.DiscoveryPrefix
	if discovery == "" {
		discovery = DefaultDiscoveryPrefix
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	return &Publisher{
		client: client,
		topics: Topics{
			Namespace:       ns,
			LoggerPrefix:    opts.LoggerTopicPrefix,
			DiscoveryPrefix: strings.Trim(discovery, "/"),
		},
		loc:    loc,
		logger: logger,
	}, nil
}

// Topics returns the topic builder in use.
func (p *Publisher) Topics() Topics {
	return p.topics
}

// Report summarises one PublishSnapshot call.
type Report struct {
	// Topics lists every topic a publish was attempted on, in order.
	Topics []string

	Attempted int
	Published int

	// Skipped holds entities that failed normalization or encoding.
	Skipped []*normalize.EntityError

	// Failures holds rejected or timed-out publishes.
	Failures []*PublishError

	Batch normalize.Batch
}

// Err joins every skip and failure, or returns nil.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Skipped)+len(r.Failures))
	for _, e := range r.Skipped {
		errs = append(errs, e)
	}
	for _, e := range r.Failures {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// PublishSnapshot normalizes snap and publishes the logger DTO followed by
// every inverter, panel and meter DTO. Every entity is attempted regardless
// of earlier failures.
func (p *Publisher) PublishSnapshot(snap telemetry.Snapshot) Report {
	for _, dup := range snap.DuplicateIdentities() {
		p.logger.Warn("duplicate entity identity in snapshot", "logger_id", snap.LoggerID, "entity", dup)
	}

	batch := normalize.Snapshot(snap, p.loc)
	r := Report{
		Batch:   batch,
		Skipped: append([]*normalize.EntityError(nil), batch.Errors...),
		Topics:  make([]string, 0, batch.Len()),
	}

	if batch.Logger != nil {
		p.publishEntity(&r, normalize.KindLogger, batch.Logger.LoggerID, batch.Logger.LoggerID, 0, p.topics.Logger(batch.Logger.LoggerID), batch.Logger)
	}
	for i := range batch.Inverters {
		dto := &batch.Inverters[i]
		p.publishEntity(&r, normalize.KindInverter, dto.SerialNumber, dto.SerialNumber, i, p.topics.Inverter(dto.SerialNumber), dto)
	}
	for i := range batch.Panels {
		dto := &batch.Panels[i]
		key := telemetry.PanelKey(dto.SerialNumber, dto.Port)
		p.publishEntity(&r, normalize.KindPanel, dto.SerialNumber, key, i, p.topics.Panel(dto.SerialNumber, dto.Port), dto)
	}
	for i := range batch.Meters {
		dto := &batch.Meters[i]
		p.publishEntity(&r, normalize.KindMeter, dto.SerialNumber, dto.SerialNumber, i, p.topics.Meter(dto.SerialNumber), dto)
	}

	p.logger.Debug("snapshot published",
		"logger_id", snap.LoggerID,
		"attempted", r.Attempted,
		"published", r.Published,
		"skipped", len(r.Skipped),
		"failed", len(r.Failures),
	)
	return r
}

// publishEntity publishes one DTO. id is the identifier embedded in topic;
// one that would add topic levels or wildcards skips the entity.
func (p *Publisher) publishEntity(r *Report, kind normalize.EntityKind, id, key string, index int, topic string, dto any) {
	if !validTopicID(id) {
		r.Skipped = append(r.Skipped, &normalize.EntityError{Kind: kind, Key: key, Index: index, Err: fmt.Errorf("%w: %q", ErrInvalidTopicID, id)})
		return
	}

	payload, err := json.Marshal(dto)
	if err != nil {
		r.Skipped = append(r.Skipped, &normalize.EntityError{Kind: kind, Key: key, Index: index, Err: err})
		return
	}

	r.Attempted++
	r.Topics = append(r.Topics, topic)
	if err := p.client.Publish(topic, payload, telemetryQoS, false); err != nil {
		r.Failures = append(r.Failures, &PublishError{Topic: topic, Kind: kind, Key: key, Err: err})
		return
	}
	r.Published++
}

// PublishAvailability publishes state ("online" or "offline") retained to
// <ns>/bridge/state. Repeating the same state is harmless.
func (p *Publisher) PublishAvailability(state string) error {
	if state != StateOnline && state != StateOffline {
		return fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	topic := p.topics.Availability()
	if err := p.client.Publish(topic, []byte(state), availabilityQoS, true); err != nil {
		return &PublishError{Topic: topic, Kind: "availability", Key: state, Err: err}
	}
	return nil
}

// PublishHealth publishes a retained health document to <ns>/bridge/health.
func (p *Publisher) PublishHealth(payload []byte) error {
	topic := p.topics.Health()
	if err := p.client.Publish(topic, payload, healthQoS, true); err != nil {
		return &PublishError{Topic: topic, Kind: "health", Err: err}
	}
	return nil
}

// PublishDiscovery publishes payload unchanged, retained at QoS 0, to
// <prefix>/sensor/<ns>/<key>/config.
func (p *Publisher) PublishDiscovery(key string, payload []byte) error {
	if key == "" || strings.ContainsAny(key, "/+#") {
		return fmt.Errorf("%w: %q", ErrInvalidDiscoveryKey, key)
	}
	topic := p.topics.Discovery(key)
	if err := p.client.Publish(topic, payload, discoveryQoS, true); err != nil {
		return &PublishError{Topic: topic, Kind: "discovery", Key: key, Err: err}
	}
	return nil
}
