package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.FrameReceived("mqtt")
	c.FrameReceived("mqtt")
	c.FrameReceived("")
	c.DispatchOutcome(OutcomeOK)
	c.DispatchOutcome(OutcomeUnhandled)
	c.PublishResults(5, 1, 2)
	c.PublishResults(3, 0, 0)
	c.SinkError("influxdb")
	c.QueueDepth(7)
	c.QueueDropped()
	c.ObserveFrameLatency(15 * time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"frames mqtt", testutil.ToFloat64(c.framesReceived.WithLabelValues("mqtt")), 2},
		{"frames unknown", testutil.ToFloat64(c.framesReceived.WithLabelValues("unknown")), 1},
		{"dispatch ok", testutil.ToFloat64(c.dispatchOutcomes.WithLabelValues(OutcomeOK)), 1},
		{"dispatch unhandled", testutil.ToFloat64(c.dispatchOutcomes.WithLabelValues(OutcomeUnhandled)), 1},
		{"published", testutil.ToFloat64(c.publishes.WithLabelValues(resultPublished)), 8},
		{"failed", testutil.ToFloat64(c.publishes.WithLabelValues(resultFailed)), 1},
		{"skipped", testutil.ToFloat64(c.publishes.WithLabelValues(resultSkipped)), 2},
		{"sink errors", testutil.ToFloat64(c.sinkErrors.WithLabelValues("influxdb")), 1},
		{"queue depth", testutil.ToFloat64(c.queueDepth), 7},
		{"queue dropped", testutil.ToFloat64(c.queueDropped), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(c.workerLatency); n != 1 {
		t.Errorf("latency series = %d, want 1", n)
	}
}

func TestDefault_RegistersOnce(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() returned different collectors")
	}
}
