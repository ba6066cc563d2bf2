package dtu

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockHealthPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (m *mockHealthPublisher) PublishHealth(payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return m.err
}

func (m *mockHealthPublisher) decoded(t *testing.T) []HealthMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HealthMessage, 0, len(m.payloads))
	for _, p := range m.payloads {
		var msg HealthMessage
		if err := json.Unmarshal(p, &msg); err != nil {
			t.Fatalf("health payload %s: %v", p, err)
		}
		out = append(out, msg)
	}
	return out
}

type fixedSource struct {
	status HealthStatus
	reason string
	stats  Stats
}

func (s fixedSource) HealthStatus() (HealthStatus, string) { return s.status, s.reason }
func (s fixedSource) Stats() Stats                         { return s.stats }

func TestHealthReporter_PublishNow(t *testing.T) {
	tests := []struct {
		name   string
		source HealthSource
		want   HealthStatus
		reason string
	}{
		{"no source", nil, HealthHealthy, ""},
		{"healthy", fixedSource{status: HealthHealthy}, HealthHealthy, ""},
		{"degraded", fixedSource{status: HealthDegraded, reason: "MQTT disconnected"}, HealthDegraded, "MQTT disconnected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockHealthPublisher{}
			h := NewHealthReporter(HealthReporterConfig{
				BridgeID:  "dtubridge",
				Version:   "1.2.3",
				Publisher: pub,
				Source:    tt.source,
			})

			if err := h.PublishNow(); err != nil {
				t.Fatalf("PublishNow() error = %v", err)
			}
			msgs := pub.decoded(t)
			if len(msgs) != 1 {
				t.Fatalf("published %d messages, want 1", len(msgs))
			}
			got := msgs[0]
			if got.Status != tt.want || got.Reason != tt.reason {
				t.Errorf("PublishNow() status = %q reason = %q, want %q and %q", got.Status, got.Reason, tt.want, tt.reason)
			}
			if got.Bridge != "dtubridge" || got.Version != "1.2.3" {
				t.Errorf("PublishNow() bridge = %q version = %q", got.Bridge, got.Version)
			}
		})
	}
}

func TestHealthReporter_MessageCarriesStats(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID: "dtubridge",
		Source:   fixedSource{status: HealthHealthy, stats: Stats{FramesProcessed: 42}},
	})
	msg := h.Message(HealthHealthy, "")
	if msg.Statistics.FramesProcessed != 42 {
		t.Errorf("Message().Statistics.FramesProcessed = %d, want 42", msg.Statistics.FramesProcessed)
	}
	if msg.UptimeSeconds < 0 {
		t.Errorf("Message().UptimeSeconds = %d, want >= 0", msg.UptimeSeconds)
	}
}

func TestHealthReporter_StartStop(t *testing.T) {
	pub := &mockHealthPublisher{}
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "dtubridge",
		Interval:  10 * time.Millisecond,
		Publisher: pub,
		Source:    fixedSource{status: HealthHealthy},
	})

	h.Start(context.Background())
	h.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	h.Stop()
	h.Stop()

	msgs := pub.decoded(t)
	if len(msgs) < 2 {
		t.Fatalf("published %d messages, want at least 2", len(msgs))
	}
	if msgs[0].Status != HealthHealthy {
		t.Errorf("first status = %q, want %q", msgs[0].Status, HealthHealthy)
	}
	if last := msgs[len(msgs)-1]; last.Status != HealthStopping {
		t.Errorf("last status = %q, want %q", last.Status, HealthStopping)
	}
}

func TestHealthReporter_PublishStarting(t *testing.T) {
	pub := &mockHealthPublisher{err: errors.New("offline")}
	h := NewHealthReporter(HealthReporterConfig{Publisher: pub})

	if err := h.PublishStarting(); err == nil {
		t.Error("PublishStarting() error = nil, want publisher error")
	}
	if msgs := pub.decoded(t); len(msgs) != 1 || msgs[0].Status != HealthStarting {
		t.Errorf("PublishStarting() published %+v, want one starting message", msgs)
	}
}

func TestNewHealthReporter_DefaultInterval(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{})
	if h.interval != defaultHealthInterval {
		t.Errorf("interval = %v, want %v", h.interval, defaultHealthInterval)
	}
}
