package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names for per-entity telemetry history.
const (
	MeasurementLogger   = "dtu_logger"
	MeasurementInverter = "dtu_inverter"
	MeasurementPanel    = "dtu_panel"
	MeasurementMeter    = "dtu_meter"
)

// EntityPoint is one normalized entity reading to record.
//
// Nil field values are absent readings and are left out of the point;
// InfluxDB has no null, and writing zero would misreport the device.
type EntityPoint struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Time        time.Time
}

// WriteEntity queues one entity reading. Non-blocking; a point with no
// present fields is dropped since InfluxDB rejects it.
func (c *Client) WriteEntity(e EntityPoint) {
	if !c.IsConnected() {
		return
	}

	point, ok := buildPoint(e)
	if !ok {
		return
	}
	c.writeAPI.WritePoint(point)
}

// buildPoint converts e into a line-protocol point, dropping absent fields.
// A zero Time is replaced with the current time.
func buildPoint(e EntityPoint) (*write.Point, bool) {
	fields := make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		if v = deref(v); v != nil {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return nil, false
	}

	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(e.Measurement, e.Tags, fields, ts), true
}

// deref unwraps the optional pointer types used by normalized DTOs.
func deref(v any) any {
	switch p := v.(type) {
	case nil:
		return nil
	case *float64:
		if p == nil {
			return nil
		}
		return *p
	case *int:
		if p == nil {
			return nil
		}
		return int64(*p)
	case *int64:
		if p == nil {
			return nil
		}
		return *p
	case *bool:
		if p == nil {
			return nil
		}
		return *p
	default:
		return v
	}
}
