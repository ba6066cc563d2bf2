package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Queue overflow policies accepted in queue.overflow.
const (
	OverflowBlock      = "block"
	OverflowDropOldest = "drop_oldest"
)

// Config is the root configuration structure for the DTU bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	Queue     QueueConfig     `yaml:"queue"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Database  DatabaseConfig  `yaml:"database"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Export    ExportConfig    `yaml:"export"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// BridgeConfig contains the topic namespace and bridge behaviour settings.
type BridgeConfig struct {
	// ID identifies this bridge instance in logs and health messages.
	ID string `yaml:"id"`

	// Namespace is the first topic segment of every telemetry topic.
	// Default: "hoymiles-dtu"
	Namespace string `yaml:"namespace"`

	// LoggerTopicPrefix is prepended to the logger id in the logger topic.
	// Installations migrating from "<ns>/dtu_<sn>" topics set this to "dtu_".
	LoggerTopicPrefix string `yaml:"logger_topic_prefix"`

	// Timezone used to render calendar times in published payloads.
	// Empty means the host's local zone.
	Timezone string `yaml:"timezone"`

	// FailureThreshold is the number of consecutive snapshots with publish
	// failures after which the bridge reports itself degraded.
	FailureThreshold int `yaml:"failure_threshold"`

	// HealthInterval is the health publish period in seconds.
	HealthInterval int `yaml:"health_interval"`
}

// QueueConfig contains ordered dispatch queue settings.
type QueueConfig struct {
	// Capacity limits queued frames. 0 means unbounded.
	Capacity int `yaml:"capacity"`

	// Overflow selects what producers do when a bounded queue is full:
	// "block" or "drop_oldest". Required when Capacity > 0.
	Overflow string `yaml:"overflow"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// DiscoveryConfig contains Home Assistant discovery passthrough settings.
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`

	// Prefix is the discovery topic root. Default: "homeassistant"
	Prefix string `yaml:"prefix"`

	// Dir holds one "<key>.json" file per discovery config. File contents
	// are published unchanged.
	Dir string `yaml:"dir"`
}

// IngestConfig selects the frame producers.
type IngestConfig struct {
	MQTT  MQTTIngestConfig  `yaml:"mqtt"`
	Kafka KafkaIngestConfig `yaml:"kafka"`
	HTTP  HTTPIngestConfig  `yaml:"http"`
}

// MQTTIngestConfig subscribes to decoded frame envelopes on the broker.
type MQTTIngestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"`
}

// KafkaIngestConfig consumes decoded frame envelopes from a Kafka topic.
type KafkaIngestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"`
	GroupID string `yaml:"group_id"`
}

// HTTPIngestConfig enables POST /api/v1/frames.
type HTTPIngestConfig struct {
	Enabled bool `yaml:"enabled"`
}

// KafkaConfig contains Kafka broker settings shared by ingest and mirror.
type KafkaConfig struct {
	Brokers []string          `yaml:"brokers"`
	Mirror  KafkaMirrorConfig `yaml:"mirror"`
}

// KafkaMirrorConfig mirrors every normalized DTO to a Kafka topic.
type KafkaMirrorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// ExportConfig contains file export settings.
type ExportConfig struct {
	Spreadsheet SpreadsheetConfig `yaml:"spreadsheet"`
}

// SpreadsheetConfig writes one xlsx workbook per day.
type SpreadsheetConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket live feed settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains bearer token settings for frame ingest.
// An empty secret leaves the ingest endpoint unauthenticated.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DTUBRIDGE_SECTION_KEY
// For example: DTUBRIDGE_MQTT_HOST, DTUBRIDGE_QUEUE_CAPACITY
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:               "dtubridge",
			Namespace:        "hoymiles-dtu",
			FailureThreshold: 5,
			HealthInterval:   30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "mqtt_hoymiles_dtu",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Discovery: DiscoveryConfig{
			Prefix: "homeassistant",
			Dir:    "./discovery",
		},
		Ingest: IngestConfig{
			MQTT: MQTTIngestConfig{
				Topic: "hoymiles-dtu/frames",
			},
			Kafka: KafkaIngestConfig{
				Topic:   "dtu-frames",
				GroupID: "dtubridge",
			},
		},
		Kafka: KafkaConfig{
			Mirror: KafkaMirrorConfig{
				Topic: "dtu-telemetry",
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/dtubridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Export: ExportConfig{
			Spreadsheet: SpreadsheetConfig{
				Dir: "./data/export",
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DTUBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Bridge
	if v := os.Getenv("DTUBRIDGE_BRIDGE_NAMESPACE"); v != "" {
		cfg.Bridge.Namespace = v
	}
	if v := os.Getenv("DTUBRIDGE_BRIDGE_TIMEZONE"); v != "" {
		cfg.Bridge.Timezone = v
	}

	// Queue
	if v := os.Getenv("DTUBRIDGE_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Queue.Capacity = n
		}
	}
	if v := os.Getenv("DTUBRIDGE_QUEUE_OVERFLOW"); v != "" {
		cfg.Queue.Overflow = v
	}

	// Database
	if v := os.Getenv("DTUBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("DTUBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DTUBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DTUBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Kafka
	if v := os.Getenv("DTUBRIDGE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}

	// API
	if v := os.Getenv("DTUBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("DTUBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security
	if v := os.Getenv("DTUBRIDGE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.Namespace == "" {
		errs = append(errs, "bridge.namespace is required")
	} else if strings.ContainsAny(c.Bridge.Namespace, "+#") {
		errs = append(errs, "bridge.namespace must not contain MQTT wildcards")
	}
	if c.Bridge.Timezone != "" {
		if _, err := time.LoadLocation(c.Bridge.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("bridge.timezone %q is not a known zone", c.Bridge.Timezone))
		}
	}
	if c.Bridge.FailureThreshold < 1 {
		errs = append(errs, "bridge.failure_threshold must be at least 1")
	}

	// Queue validation: a bounded queue needs an explicit overflow policy.
	switch {
	case c.Queue.Capacity < 0:
		errs = append(errs, "queue.capacity must not be negative")
	case c.Queue.Capacity > 0 && c.Queue.Overflow != OverflowBlock && c.Queue.Overflow != OverflowDropOldest:
		errs = append(errs, "queue.overflow must be \"block\" or \"drop_oldest\" when queue.capacity is set")
	case c.Queue.Capacity == 0 && c.Queue.Overflow != "":
		errs = append(errs, "queue.overflow requires queue.capacity > 0")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}

	if c.Discovery.Enabled && c.Discovery.Dir == "" {
		errs = append(errs, "discovery.dir is required when discovery is enabled")
	}

	if c.Ingest.MQTT.Enabled && c.Ingest.MQTT.Topic == "" {
		errs = append(errs, "ingest.mqtt.topic is required when mqtt ingest is enabled")
	}
	if (c.Ingest.Kafka.Enabled || c.Kafka.Mirror.Enabled) && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, "kafka.brokers is required when kafka ingest or mirror is enabled")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	const minJWTSecretLength = 32
	if c.Security.JWT.Secret != "" && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location returns the zone used for published calendar times.
func (c *Config) Location() *time.Location {
	if c.Bridge.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Bridge.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// GetHealthInterval returns the health publish period as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
