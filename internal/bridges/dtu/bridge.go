package dtu

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/fanout"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/history"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/config"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/normalize"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/pipeline"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/protocol"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/router"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/telemetry"
)

// Dispatch outcome labels reported to Metrics.
const (
	outcomeOK        = "ok"
	outcomeUnhandled = "unhandled"
	outcomeInvalid   = "invalid"
)

// recordTimeout bounds each SQLite write made by the worker.
const recordTimeout = 5 * time.Second

// Bridge moves DTU frames from the ingest queue to MQTT and the sinks.
//
// Thread Safety: Submit, Stats and LatestBatch are safe for concurrent use.
// Frames are handled by exactly one worker goroutine.
type Bridge struct {
	cfg       *config.Config
	version   string
	mqtt      MQTTClient
	router    Dispatcher
	publisher SnapshotPublisher
	sinks     []Sink
	failures  FailureRecorder   // May be nil
	inventory InventoryRecorder // May be nil
	metrics   Metrics
	discovery map[string][]byte
	queue     *pipeline.Queue[protocol.Frame]
	health    *HealthReporter

	// Counters
	received   atomic.Uint64
	processed  atomic.Uint64
	unhandled  atomic.Uint64
	invalid    atomic.Uint64
	published  atomic.Uint64
	failed     atomic.Uint64
	skipped    atomic.Uint64
	sinkErrors atomic.Uint64

	// Worker-owned state, read by Stats and the API
	stateMu             sync.RWMutex
	latest              normalize.Batch
	hasLatest           bool
	lastSnapshot        time.Time
	consecutiveFailures int

	// Shutdown coordination
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	stopped   atomic.Bool
	ctx       context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel context.CancelFunc // Cancel function for ctx

	// Logger
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is the structured logger used by the bridge.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MQTTClient reports broker connectivity for health status.
type MQTTClient interface {
	IsConnected() bool
}

// Dispatcher turns a frame payload into a domain event by tag.
// *router.Registry satisfies it.
type Dispatcher interface {
	Dispatch(tag uint16, payload any) (telemetry.Event, error)
}

// SnapshotPublisher fans snapshots and bridge status out to MQTT.
// *fanout.Publisher satisfies it.
type SnapshotPublisher interface {
	PublishSnapshot(snap telemetry.Snapshot) fanout.Report
	PublishAvailability(state string) error
	PublishHealth(payload []byte) error
	PublishDiscovery(key string, payload []byte) error
}

// Sink receives every normalized batch after it has been published.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// WriteBatch stores or forwards one batch. Errors are logged by the
	// bridge and never stop the worker.
	WriteBatch(ctx context.Context, batch normalize.Batch) error
}

// FailureRecorder persists per-entity publish failures.
// *history.FailureRepository satisfies it.
type FailureRecorder interface {
	Record(ctx context.Context, f history.Failure) error
}

// InventoryRecorder persists the devices seen in telemetry.
// *history.DeviceRepository satisfies it.
type InventoryRecorder interface {
	UpsertAll(ctx context.Context, devices []history.Device) error
}

// Metrics receives bridge activity. *metrics.Collectors satisfies it.
type Metrics interface {
	FrameReceived(source string)
	DispatchOutcome(outcome string)
	PublishResults(published, failed, skipped int)
	SinkError(sink string)
	QueueDepth(n int)
	QueueDropped()
	ObserveFrameLatency(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) FrameReceived(string)              {}
func (noopMetrics) DispatchOutcome(string)            {}
func (noopMetrics) PublishResults(int, int, int)      {}
func (noopMetrics) SinkError(string)                  {}
func (noopMetrics) QueueDepth(int)                    {}
func (noopMetrics) QueueDropped()                     {}
func (noopMetrics) ObserveFrameLatency(time.Duration) {}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config is the loaded application configuration.
	Config *config.Config

	// Version is reported in health messages.
	Version string

	// MQTT reports broker connectivity.
	MQTT MQTTClient

	// Router dispatches frames by tag. It should be frozen.
	Router Dispatcher

	// Publisher fans snapshots out to MQTT.
	Publisher SnapshotPublisher

	// Sinks receive each normalized batch, in order.
	Sinks []Sink

	// Failures records publish failures. Optional.
	Failures FailureRecorder

	// Inventory records the devices seen. Optional.
	Inventory InventoryRecorder

	// Metrics receives activity counters. Optional.
	Metrics Metrics

	// Discovery maps discovery keys to retained payloads published on
	// Start when discovery is enabled. See LoadDiscovery.
	Discovery map[string][]byte

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a new bridge instance. Frames may be submitted before
// Start; they wait in the queue.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: config", ErrMissingDependency)
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("%w: MQTT client", ErrMissingDependency)
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("%w: router", ErrMissingDependency)
	}
	if opts.Publisher == nil {
		return nil, fmt.Errorf("%w: publisher", ErrMissingDependency)
	}

	policy, err := pipeline.ParsePolicy(opts.Config.Queue.Overflow)
	if err != nil {
		return nil, fmt.Errorf("queue overflow policy: %w", err)
	}
	queue, err := pipeline.New[protocol.Frame](pipeline.Options{
		Capacity: opts.Config.Queue.Capacity,
		Overflow: policy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating queue: %w", err)
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:       opts.Config,
		version:   opts.Version,
		mqtt:      opts.MQTT,
		router:    opts.Router,
		publisher: opts.Publisher,
		sinks:     opts.Sinks,
		failures:  opts.Failures,  // May be nil (optional)
		inventory: opts.Inventory, // May be nil (optional)
		metrics:   metrics,
		discovery: opts.Discovery,
		queue:     queue,
		ctx:       ctx,
		ctxCancel: ctxCancel,
		logger:    opts.Logger,
	}

	queue.OnDrop(func(f protocol.Frame) {
		b.metrics.QueueDropped()
		b.logWarn("queue full, dropped oldest frame", "frame_id", f.ID, "tag", f.Tag, "source", f.Source)
	})

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.Config.Bridge.ID,
		Version:   opts.Version,
		Interval:  opts.Config.GetHealthInterval(),
		Publisher: opts.Publisher,
		Source:    b,
	})
	b.health.SetLogger(opts.Logger)

	return b, nil
}

// SetLogger sets the logger for the bridge and its health reporter.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
	b.health.SetLogger(logger)
}

// Start announces the bridge and begins draining the queue.
//
// Discovery blobs are published first, then availability "online", then
// health reporting starts, then the single worker. A failure to announce
// is logged; the worker runs regardless so telemetry is not lost while the
// broker reconnects.
func (b *Bridge) Start(ctx context.Context) error {
	started := false
	b.startOnce.Do(func() {
		started = true

		if b.cfg.Discovery.Enabled {
			b.publishDiscovery()
		}

		if err := b.publisher.PublishAvailability(fanout.StateOnline); err != nil {
			b.logError("failed to publish availability", err)
		}

		b.health.Start(ctx)

		b.wg.Add(1)
		go b.runWorker()

		b.logInfo("bridge started",
			"queue_capacity", b.queue.Capacity(),
			"queue_policy", b.queue.Policy().String(),
			"sinks", len(b.sinks),
		)
	})
	if !started {
		return fmt.Errorf("bridge already started")
	}
	return nil
}

// Stop closes the queue, waits for the worker to finish every queued frame,
// then publishes availability "offline". Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.stopped.Store(true)
		b.queue.Close()

		b.wg.Wait()

		b.health.Stop()

		if err := b.publisher.PublishAvailability(fanout.StateOffline); err != nil {
			b.logError("failed to publish availability", err)
		}

		b.ctxCancel()
		b.logInfo("bridge stopped", "frames_processed", b.processed.Load())
	})
}

// Submit queues f for the worker. It assigns an ID and receive time when
// they are missing, and blocks only under the block overflow policy when
// the queue is full.
func (b *Bridge) Submit(ctx context.Context, f protocol.Frame) error {
	if b.stopped.Load() {
		return ErrBridgeStopped
	}

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.Stamp(time.Now())

	if err := b.queue.Push(ctx, f); err != nil {
		if errors.Is(err, pipeline.ErrClosed) {
			return ErrBridgeStopped
		}
		return fmt.Errorf("queueing frame %s: %w", f.ID, err)
	}

	b.received.Add(1)
	b.metrics.FrameReceived(f.Source)
	b.metrics.QueueDepth(b.queue.Len())
	return nil
}

// runWorker drains the queue until it is closed and empty.
func (b *Bridge) runWorker() {
	defer b.wg.Done()

	err := pipeline.Drain(b.ctx, b.queue, b.handleFrame, func(f protocol.Frame, recovered any) {
		b.invalid.Add(1)
		b.metrics.DispatchOutcome(outcomeInvalid)
		b.logError("frame handler panicked", fmt.Errorf("%v", recovered), "frame_id", f.ID, "tag", f.Tag)
	})
	if err != nil {
		b.logError("worker stopped", err)
	}
}

// handleFrame processes one frame to completion.
func (b *Bridge) handleFrame(ctx context.Context, f protocol.Frame) {
	start := time.Now()
	defer func() {
		b.metrics.ObserveFrameLatency(time.Since(start))
		b.metrics.QueueDepth(b.queue.Len())
	}()

	ev, err := b.router.Dispatch(f.Tag, f.Payload)
	if err != nil {
		if errors.Is(err, router.ErrUnhandledTag) {
			b.unhandled.Add(1)
			b.metrics.DispatchOutcome(outcomeUnhandled)
			b.logWarn("unhandled frame tag", "frame_id", f.ID, "tag", f.Tag, "source", f.Source)
			return
		}
		b.invalid.Add(1)
		b.metrics.DispatchOutcome(outcomeInvalid)
		b.logWarn("invalid frame payload", "frame_id", f.ID, "tag", f.Tag, "error", err)
		return
	}
	b.metrics.DispatchOutcome(outcomeOK)

	switch e := ev.(type) {
	case *telemetry.RealDataEvent:
		b.handleRealData(ctx, f, e.Snapshot)
	case *telemetry.AppInfoEvent:
		b.handleAppInfo(ctx, e.Info)
	default:
		b.logDebug("ignoring event", "frame_id", f.ID, "tag", ev.Tag())
	}

	b.processed.Add(1)
}

// handleRealData publishes one snapshot and feeds the sinks.
func (b *Bridge) handleRealData(ctx context.Context, f protocol.Frame, snap telemetry.Snapshot) {
	report := b.publisher.PublishSnapshot(snap)

	b.published.Add(uint64(report.Published))
	b.failed.Add(uint64(len(report.Failures)))
	b.skipped.Add(uint64(len(report.Skipped)))
	b.metrics.PublishResults(report.Published, len(report.Failures), len(report.Skipped))

	for _, s := range report.Skipped {
		b.logWarn("entity skipped", "frame_id", f.ID, "kind", s.Kind, "key", s.Key, "error", s.Err)
	}
	for _, pe := range report.Failures {
		b.logError("entity publish failed", pe.Err, "frame_id", f.ID, "topic", pe.Topic, "kind", pe.Kind, "key", pe.Key)
		b.recordFailure(ctx, f.ID, pe)
	}

	b.trackFailures(len(report.Failures) > 0)

	b.stateMu.Lock()
	b.latest = report.Batch
	b.hasLatest = true
	b.lastSnapshot = snap.Timestamp
	b.stateMu.Unlock()

	for _, sink := range b.sinks {
		if err := sink.WriteBatch(ctx, report.Batch); err != nil {
			b.sinkErrors.Add(1)
			b.metrics.SinkError(sink.Name())
			b.logError("sink write failed", err, "sink", sink.Name(), "frame_id", f.ID)
		}
	}

	b.upsertInventory(ctx, snapshotDevices(snap))

	b.logDebug("snapshot processed",
		"frame_id", f.ID,
		"logger_id", snap.LoggerID,
		"published", report.Published,
		"failed", len(report.Failures),
		"skipped", len(report.Skipped),
	)
}

// handleAppInfo records firmware versions and connection state.
func (b *Bridge) handleAppInfo(ctx context.Context, info telemetry.AppInfo) {
	b.upsertInventory(ctx, appInfoDevices(info))
	b.logDebug("app info processed", "logger_id", info.LoggerID, "inverters", len(info.Inverters))
}

// trackFailures updates the run of consecutive snapshots with publish
// failures and pushes a health update when the degraded state changes.
func (b *Bridge) trackFailures(failed bool) {
	threshold := b.failureThreshold()

	b.stateMu.Lock()
	before := b.consecutiveFailures
	if failed {
		b.consecutiveFailures++
	} else {
		b.consecutiveFailures = 0
	}
	after := b.consecutiveFailures
	b.stateMu.Unlock()

	switch {
	case before < threshold && after >= threshold:
		b.logWarn("publish failures reached threshold", "consecutive", after, "threshold", threshold)
	case before >= threshold && after == 0:
		b.logInfo("publishing recovered", "after", before)
	default:
		return
	}
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish health", err)
	}
}

func (b *Bridge) recordFailure(ctx context.Context, frameID string, pe *fanout.PublishError) {
	if b.failures == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	err := b.failures.Record(ctx, history.Failure{
		FrameID:    frameID,
		Topic:      pe.Topic,
		EntityKind: string(pe.Kind),
		EntityKey:  pe.Key,
		Error:      pe.Err.Error(),
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		b.logError("failed to record publish failure", err, "topic", pe.Topic)
	}
}

func (b *Bridge) upsertInventory(ctx context.Context, devices []history.Device) {
	if b.inventory == nil || len(devices) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if err := b.inventory.UpsertAll(ctx, devices); err != nil {
		b.logError("failed to update device inventory", err, "devices", len(devices))
	}
}

// publishDiscovery publishes the discovery blobs in key order.
func (b *Bridge) publishDiscovery() {
	keys := make([]string, 0, len(b.discovery))
	for k := range b.discovery {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := b.publisher.PublishDiscovery(k, b.discovery[k]); err != nil {
			b.logError("failed to publish discovery", err, "key", k)
		}
	}
	if len(keys) > 0 {
		b.logInfo("discovery published", "count", len(keys))
	}
}

func (b *Bridge) failureThreshold() int {
	if n := b.cfg.Bridge.FailureThreshold; n > 0 {
		return n
	}
	return 1
}

// Stats is a point-in-time view of bridge activity.
type Stats struct {
	FramesReceived      uint64         `json:"framesReceived"`
	FramesProcessed     uint64         `json:"framesProcessed"`
	FramesUnhandled     uint64         `json:"framesUnhandled"`
	FramesInvalid       uint64         `json:"framesInvalid"`
	EntitiesPublished   uint64         `json:"entitiesPublished"`
	EntitiesFailed      uint64         `json:"entitiesFailed"`
	EntitiesSkipped     uint64         `json:"entitiesSkipped"`
	SinkErrors          uint64         `json:"sinkErrors"`
	ConsecutiveFailures int            `json:"consecutiveFailures"`
	LastSnapshot        *time.Time     `json:"lastSnapshot,omitempty"`
	Queue               pipeline.Stats `json:"queue"`
}

// Stats returns current counters.
func (b *Bridge) Stats() Stats {
	s := Stats{
		FramesReceived:    b.received.Load(),
		FramesProcessed:   b.processed.Load(),
		FramesUnhandled:   b.unhandled.Load(),
		FramesInvalid:     b.invalid.Load(),
		EntitiesPublished: b.published.Load(),
		EntitiesFailed:    b.failed.Load(),
		EntitiesSkipped:   b.skipped.Load(),
		SinkErrors:        b.sinkErrors.Load(),
		Queue:             b.queue.Stats(),
	}

	b.stateMu.RLock()
	s.ConsecutiveFailures = b.consecutiveFailures
	if !b.lastSnapshot.IsZero() {
		t := b.lastSnapshot
		s.LastSnapshot = &t
	}
	b.stateMu.RUnlock()

	return s
}

// LatestBatch returns the most recently published batch.
func (b *Bridge) LatestBatch() (normalize.Batch, bool) {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.latest, b.hasLatest
}

// HealthStatus implements HealthSource.
func (b *Bridge) HealthStatus() (HealthStatus, string) {
	if !b.mqtt.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}

	b.stateMu.RLock()
	consecutive := b.consecutiveFailures
	b.stateMu.RUnlock()

	if consecutive >= b.failureThreshold() {
		return HealthDegraded, fmt.Sprintf("%d consecutive snapshots with publish failures", consecutive)
	}
	return HealthHealthy, ""
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, args...)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, args...)
	}
}

func (b *Bridge) logError(msg string, err error, args ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, append([]any{"error", err}, args...)...)
	}
}
