package mqtt

import (
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "dtubridge-test",
		},
		Auth: config.MQTTAuthConfig{
			Username: "bridge",
			Password: "secret",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func testAvailability() Availability {
	return Availability{
		Topic:   "hoymiles-dtu/bridge/state",
		Online:  "online",
		Offline: "offline",
	}
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg, "dtubridge-test_abc")

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "dtubridge-test_abc" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "dtubridge-test_abc")
	}
	if opts.Username != "bridge" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want bridge/secret", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Error("TLSConfig set for plain tcp broker")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg, "id")

	if opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
		t.Errorf("Servers[0] = %v, want ssl://127.0.0.1:8883", opts.Servers[0])
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Errorf("TLSConfig = %+v, want MinVersion TLS1.2", opts.TLSConfig)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig(), "id")
	configureLWT(opts, testAvailability())

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != "hoymiles-dtu/bridge/state" {
		t.Errorf("WillTopic = %q, want hoymiles-dtu/bridge/state", opts.WillTopic)
	}
	if string(opts.WillPayload) != "offline" {
		t.Errorf("WillPayload = %q, want offline", opts.WillPayload)
	}
	if !opts.WillRetained || opts.WillQos != 1 {
		t.Errorf("Will retained=%v qos=%d, want retained QoS 1", opts.WillRetained, opts.WillQos)
	}
}

func TestUniqueClientID(t *testing.T) {
	a := uniqueClientID("mqtt_hoymiles_dtu")
	b := uniqueClientID("mqtt_hoymiles_dtu")

	if !strings.HasPrefix(a, "mqtt_hoymiles_dtu_") {
		t.Errorf("uniqueClientID() = %q, want prefix mqtt_hoymiles_dtu_", a)
	}
	if a == b {
		t.Error("uniqueClientID() returned the same id twice")
	}
	if got := uniqueClientID(""); !strings.HasPrefix(got, "dtubridge_") {
		t.Errorf("uniqueClientID(\"\") = %q, want prefix dtubridge_", got)
	}
}

// =============================================================================
// Topic Validation Tests
// =============================================================================

func TestValidatePublishTopic(t *testing.T) {
	tests := []struct {
		topic   string
		wantErr bool
	}{
		{"hoymiles-dtu/DTU001", false},
		{"hoymiles-dtu/pv_PANEL01_1", false},
		{"homeassistant/sensor/hoymiles-dtu/power/config", false},
		{"", true},
		{"hoymiles-dtu/+", true},
		{"hoymiles-dtu/#", true},
		{"bad\x00topic", true},
	}

	for _, tt := range tests {
		err := ValidatePublishTopic(tt.topic)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePublishTopic(%q) error = %v, wantErr %v", tt.topic, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("ValidatePublishTopic(%q) error = %v, want ErrInvalidTopic", tt.topic, err)
		}
	}
}

func TestValidateFilter(t *testing.T) {
	tests := []struct {
		filter  string
		wantErr bool
	}{
		{"hoymiles-dtu/frames", false},
		{"hoymiles-dtu/frames/+", false},
		{"hoymiles-dtu/#", false},
		{"#", false},
		{"+/frames/#", false},
		{"", true},
		{"hoymiles-dtu/fr+mes", true},
		{"hoymiles-dtu/#/frames", true},
		{"hoymiles-dtu/a#", true},
	}

	for _, tt := range tests {
		if err := ValidateFilter(tt.filter); (err != nil) != tt.wantErr {
			t.Errorf("ValidateFilter(%q) error = %v, wantErr %v", tt.filter, err, tt.wantErr)
		}
	}
}

// =============================================================================
// Validation Before Connection
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}

	if err := c.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("a/b", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	big := make([]byte, maxPayloadSize+1)
	if err := c.Publish("a/b", big, 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish(oversized) error = %v, want ErrPublishFailed", err)
	}
	if err := c.Publish("a/b", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish(disconnected) error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	if err := c.Subscribe("a/#/b", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(bad filter) error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("a/b", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("a/b", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v, want ErrNotConnected", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
}

func TestConnect_InvalidAvailabilityTopic(t *testing.T) {
	_, err := Connect(testConfig(), Availability{Topic: "bad/#"})
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Connect() error = %v, want ErrInvalidTopic", err)
	}
}

func TestClose_NeverConnected(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true for never-connected client")
	}
}
