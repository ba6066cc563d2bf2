package fanout

import (
	"strconv"
	"strings"
)

// Topic suffixes and prefixes.
const (
	inverterPrefix = "inv_"
	panelPrefix    = "pv_"
	meterPrefix    = "met_"

	availabilitySuffix = "bridge/state"
	healthSuffix       = "bridge/health"
)

// Topics builds the bridge's MQTT topics.
type Topics struct {
	Namespace string

	// LoggerPrefix is prepended to the logger id ("" by default).
	LoggerPrefix string

	// DiscoveryPrefix is the Home Assistant discovery root.
	DiscoveryPrefix string
}

// Logger returns <ns>/<prefix><id>.
func (t Topics) Logger(id string) string {
	return t.Namespace + "/" + t.LoggerPrefix + id
}

// Inverter returns <ns>/inv_<id>.
func (t Topics) Inverter(id string) string {
	return t.Namespace + "/" + inverterPrefix + id
}

// Panel returns <ns>/pv_<sn>_<port>.
func (t Topics) Panel(sn string, port int) string {
	return t.Namespace + "/" + panelPrefix + sn + "_" + strconv.Itoa(port)
}

// Meter returns <ns>/met_<id>.
func (t Topics) Meter(id string) string {
	return t.Namespace + "/" + meterPrefix + id
}

// Availability returns <ns>/bridge/state.
func (t Topics) Availability() string {
	return t.Namespace + "/" + availabilitySuffix
}

// Health returns <ns>/bridge/health.
func (t Topics) Health() string {
	return t.Namespace + "/" + healthSuffix
}

// Discovery returns <prefix>/sensor/<ns>/<key>/config.
func (t Topics) Discovery(key string) string {
	return t.DiscoveryPrefix + "/sensor/" + t.Namespace + "/" + key + "/config"
}

// validTopicID reports whether id fits in a single topic level.
func validTopicID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/+#\x00")
}
