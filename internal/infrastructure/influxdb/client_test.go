package influxdb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := &Client{}

	if c.IsConnected() {
		t.Error("IsConnected() = true for zero client")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	// Writes and flushes on a disconnected client are silent no-ops.
	c.WriteEntity(EntityPoint{Measurement: MeasurementLogger, Fields: map[string]any{"x": 1.0}})
	c.Flush()
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestBuildPoint(t *testing.T) {
	power := 1532.0
	var absent *float64
	pf := 950
	ts := time.Unix(1700000000, 0)

	point, ok := buildPoint(EntityPoint{
		Measurement: MeasurementInverter,
		Tags:        map[string]string{"sn": "INV01"},
		Fields: map[string]any{
			"powerW":      &power,
			"temperature": absent,
			"powerFactor": &pf,
			"connected":   true,
		},
		Time: ts,
	})
	if !ok {
		t.Fatal("buildPoint() ok = false, want true")
	}

	if point.Name() != MeasurementInverter {
		t.Errorf("Name() = %q, want %q", point.Name(), MeasurementInverter)
	}
	if !point.Time().Equal(ts) {
		t.Errorf("Time() = %v, want %v", point.Time(), ts)
	}

	fields := map[string]any{}
	for _, f := range point.FieldList() {
		fields[f.Key] = f.Value
	}
	if _, found := fields["temperature"]; found {
		t.Error("absent temperature written as a field")
	}
	if fields["powerW"] != 1532.0 {
		t.Errorf("powerW = %v, want 1532", fields["powerW"])
	}
	if fields["powerFactor"] != int64(950) {
		t.Errorf("powerFactor = %v (%T), want int64 950", fields["powerFactor"], fields["powerFactor"])
	}

	tags := point.TagList()
	if len(tags) != 1 || tags[0].Key != "sn" || tags[0].Value != "INV01" {
		t.Errorf("TagList() = %v, want [sn=INV01]", tags)
	}
}

func TestBuildPoint_AllAbsent(t *testing.T) {
	var absent *float64
	_, ok := buildPoint(EntityPoint{
		Measurement: MeasurementMeter,
		Fields:      map[string]any{"powerTotalW": absent},
	})
	if ok {
		t.Error("buildPoint() ok = true for point without fields")
	}
}

func TestBuildPoint_DefaultsTime(t *testing.T) {
	before := time.Now()
	point, ok := buildPoint(EntityPoint{Measurement: "m", Fields: map[string]any{"v": 1.0}})
	if !ok {
		t.Fatal("buildPoint() ok = false")
	}
	if point.Time().Before(before) {
		t.Errorf("Time() = %v, want >= %v", point.Time(), before)
	}
}

func TestErrorsWrap(t *testing.T) {
	var got error
	c := &Client{}
	c.SetOnError(func(err error) { got = err })

	ch := make(chan error, 1)
	ch <- errors.New("partial write: field type conflict")
	close(ch)
	c.handleWriteErrors(ch)

	if !errors.Is(got, ErrWriteFailed) || !strings.Contains(got.Error(), "field type conflict") {
		t.Errorf("callback error = %v, want wrapped ErrWriteFailed", got)
	}
}
