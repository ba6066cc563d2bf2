package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
bridge:
  namespace: "solar"
  logger_topic_prefix: "dtu_"
queue:
  capacity: 64
  overflow: "drop_oldest"
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
  qos: 1
api:
  port: 9090
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.Namespace != "solar" {
		t.Errorf("Bridge.Namespace = %q, want %q", cfg.Bridge.Namespace, "solar")
	}
	if cfg.Bridge.LoggerTopicPrefix != "dtu_" {
		t.Errorf("Bridge.LoggerTopicPrefix = %q, want %q", cfg.Bridge.LoggerTopicPrefix, "dtu_")
	}
	if cfg.Queue.Capacity != 64 || cfg.Queue.Overflow != OverflowDropOldest {
		t.Errorf("Queue = %+v, want capacity 64 drop_oldest", cfg.Queue)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	// Untouched defaults survive the merge.
	if cfg.Bridge.FailureThreshold != 5 {
		t.Errorf("Bridge.FailureThreshold = %d, want 5", cfg.Bridge.FailureThreshold)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
queue:
  capacity: 10
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for bounded queue without policy, got nil")
	}
	if !strings.Contains(err.Error(), "queue.overflow") {
		t.Errorf("Load() error = %v, want mention of queue.overflow", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantErr: false},
		{name: "missing namespace", mutate: func(c *Config) { c.Bridge.Namespace = "" }, wantErr: true},
		{name: "wildcard namespace", mutate: func(c *Config) { c.Bridge.Namespace = "solar/#" }, wantErr: true},
		{name: "unknown timezone", mutate: func(c *Config) { c.Bridge.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "known timezone", mutate: func(c *Config) { c.Bridge.Timezone = "UTC" }, wantErr: false},
		{name: "zero failure threshold", mutate: func(c *Config) { c.Bridge.FailureThreshold = 0 }, wantErr: true},
		{name: "negative capacity", mutate: func(c *Config) { c.Queue.Capacity = -1 }, wantErr: true},
		{name: "bounded without policy", mutate: func(c *Config) { c.Queue.Capacity = 8 }, wantErr: true},
		{
			name: "bounded with block",
			mutate: func(c *Config) {
				c.Queue.Capacity = 8
				c.Queue.Overflow = OverflowBlock
			},
			wantErr: false,
		},
		{name: "policy without capacity", mutate: func(c *Config) { c.Queue.Overflow = OverflowBlock }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "kafka ingest without brokers", mutate: func(c *Config) { c.Ingest.Kafka.Enabled = true }, wantErr: true},
		{name: "influx without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: true},
		{name: "invalid port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "api disabled ignores port", mutate: func(c *Config) { c.API.Enabled = false; c.API.Port = 0 }, wantErr: false},
		{name: "JWT secret too short", mutate: func(c *Config) { c.Security.JWT.Secret = "short" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Location(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Location() != time.Local {
		t.Errorf("Location() = %v, want time.Local", cfg.Location())
	}

	cfg.Bridge.Timezone = "UTC"
	if cfg.Location().String() != "UTC" {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		Bridge: BridgeConfig{HealthInterval: 15},
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetHealthInterval().Seconds(); got != 15 {
		t.Errorf("GetHealthInterval() = %v, want 15", got)
	}
	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("DTUBRIDGE_BRIDGE_NAMESPACE", "pv")
	t.Setenv("DTUBRIDGE_QUEUE_CAPACITY", "32")
	t.Setenv("DTUBRIDGE_QUEUE_OVERFLOW", "block")
	t.Setenv("DTUBRIDGE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("DTUBRIDGE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("DTUBRIDGE_MQTT_USERNAME", "testuser")
	t.Setenv("DTUBRIDGE_MQTT_PASSWORD", "testpass")
	t.Setenv("DTUBRIDGE_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DTUBRIDGE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("DTUBRIDGE_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	if cfg.Bridge.Namespace != "pv" {
		t.Errorf("Bridge.Namespace = %q, want %q", cfg.Bridge.Namespace, "pv")
	}
	if cfg.Queue.Capacity != 32 || cfg.Queue.Overflow != "block" {
		t.Errorf("Queue = %+v, want capacity 32 block", cfg.Queue)
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" || cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth = %+v, want testuser/testpass", cfg.MQTT.Auth)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v, want [k1:9092 k2:9092]", cfg.Kafka.Brokers)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Bridge.Namespace != "hoymiles-dtu" {
		t.Errorf("defaultConfig Bridge.Namespace = %q, want %q", cfg.Bridge.Namespace, "hoymiles-dtu")
	}
	if cfg.Queue.Capacity != 0 || cfg.Queue.Overflow != "" {
		t.Errorf("defaultConfig Queue = %+v, want unbounded", cfg.Queue)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig Validate() error = %v", err)
	}
}
