// Package metrics holds the bridge's Prometheus collectors.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "dtubridge_"

	resultPublished = "published"
	resultFailed    = "failed"
	resultSkipped   = "skipped"
)

// Dispatch outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeUnhandled = "unhandled"
	OutcomeInvalid   = "invalid"
)

var (
	defaultOnce       sync.Once
	defaultCollectors *Collectors
)

// Collectors records bridge activity.
type Collectors struct {
	framesReceived   *prometheus.CounterVec
	dispatchOutcomes *prometheus.CounterVec
	publishes        *prometheus.CounterVec
	sinkErrors       *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	queueDropped     prometheus.Counter
	workerLatency    prometheus.Histogram
}

// Default returns collectors registered once with the default registry.
func Default() *Collectors {
	defaultOnce.Do(func() {
		defaultCollectors = New(prometheus.DefaultRegisterer)
	})
	return defaultCollectors
}

// New creates collectors and registers them with reg. It panics if they are
// already registered there.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		framesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "frames_received_total",
				Help: "Frames accepted into the dispatch queue by source",
			},
			[]string{"source"},
		),
		dispatchOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dispatch_total",
				Help: "Dispatched frames by outcome",
			},
			[]string{"outcome"},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "entity_publishes_total",
				Help: "Per-entity telemetry publishes by result",
			},
			[]string{"result"},
		),
		sinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sink_errors_total",
				Help: "Failed sink writes by sink",
			},
			[]string{"sink"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "queue_depth",
				Help: "Frames waiting for the worker",
			},
		),
		queueDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "queue_dropped_total",
				Help: "Frames evicted by the drop_oldest overflow policy",
			},
		),
		workerLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "frame_processing_seconds",
				Help:    "Time to dispatch, normalize, publish and sink one frame",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(
		c.framesReceived,
		c.dispatchOutcomes,
		c.publishes,
		c.sinkErrors,
		c.queueDepth,
		c.queueDropped,
		c.workerLatency,
	)
	return c
}

// FrameReceived counts a frame accepted from source.
func (c *Collectors) FrameReceived(source string) {
	if source == "" {
		source = "unknown"
	}
	c.framesReceived.WithLabelValues(source).Inc()
}

// DispatchOutcome counts one dispatch result (OutcomeOK, OutcomeUnhandled,
// OutcomeInvalid).
func (c *Collectors) DispatchOutcome(outcome string) {
	c.dispatchOutcomes.WithLabelValues(outcome).Inc()
}

// PublishResults adds the entity counts of one snapshot fan-out.
func (c *Collectors) PublishResults(published, failed, skipped int) {
	c.publishes.WithLabelValues(resultPublished).Add(float64(published))
	c.publishes.WithLabelValues(resultFailed).Add(float64(failed))
	c.publishes.WithLabelValues(resultSkipped).Add(float64(skipped))
}

// SinkError counts a failed write to sink.
func (c *Collectors) SinkError(sink string) {
	c.sinkErrors.WithLabelValues(sink).Inc()
}

// QueueDepth sets the current queue length.
func (c *Collectors) QueueDepth(n int) {
	c.queueDepth.Set(float64(n))
}

// QueueDropped counts one evicted frame.
func (c *Collectors) QueueDropped() {
	c.queueDropped.Inc()
}

// ObserveFrameLatency records how long the worker spent on one frame.
func (c *Collectors) ObserveFrameLatency(d time.Duration) {
	c.workerLatency.Observe(d.Seconds())
}
