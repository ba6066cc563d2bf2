package dtu

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/kafka"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/normalize"
)

// Sink names used in logs and metrics.
const (
	SinkInflux = "influxdb"
	SinkMirror = "kafka_mirror"
)

// EntityWriter queues InfluxDB points. *influxdb.Client satisfies it.
type EntityWriter interface {
	WriteEntity(e influxdb.EntityPoint)
}

// InfluxSink records each normalized entity as one InfluxDB point.
type InfluxSink struct {
	writer EntityWriter
}

// NewInfluxSink creates a sink over w.
func NewInfluxSink(w EntityWriter) *InfluxSink {
	return &InfluxSink{writer: w}
}

// Name implements Sink.
func (s *InfluxSink) Name() string { return SinkInflux }

// WriteBatch implements Sink. Writes are queued by the client and never
// fail here; write errors surface through the client's error callback.
func (s *InfluxSink) WriteBatch(_ context.Context, batch normalize.Batch) error {
	for _, p := range influxPoints(batch) {
		s.writer.WriteEntity(p)
	}
	return nil
}

func influxPoints(batch normalize.Batch) []influxdb.EntityPoint {
	points := make([]influxdb.EntityPoint, 0, batch.Len())
	loggerID := batchLoggerID(batch)

	if l := batch.Logger; l != nil {
		points = append(points, influxdb.EntityPoint{
			Measurement: influxdb.MeasurementLogger,
			Tags:        map[string]string{"logger_id": l.LoggerID},
			Fields: map[string]any{
				"power_w":         l.PowerTotalW,
				"energy_today_wh": l.EnergyTodayWh,
				"energy_total_wh": l.EnergyTotalWh,
			},
			Time: pointTime(l.LastSeen, batch.Timestamp),
		})
	}

	for _, inv := range batch.Inverters {
		points = append(points, influxdb.EntityPoint{
			Measurement: influxdb.MeasurementInverter,
			Tags:        map[string]string{"logger_id": loggerID, "serial": inv.SerialNumber},
			Fields: map[string]any{
				"connected":      inv.Connected,
				"voltage":        inv.Voltage,
				"frequency":      inv.Frequency,
				"current":        inv.Current,
				"power_w":        inv.PowerW,
				"power_a_w":      inv.PowerAW,
				"power_b_w":      inv.PowerBW,
				"power_c_w":      inv.PowerCW,
				"reactive_power": inv.ReactivePower,
				"power_factor":   inv.PowerFactor,
				"temperature":    inv.Temperature,
				"warning_count":  inv.WarningCount,
			},
			Time: pointTime(inv.LastSeen, batch.Timestamp),
		})
	}

	for _, pv := range batch.Panels {
		points = append(points, influxdb.EntityPoint{
			Measurement: influxdb.MeasurementPanel,
			Tags: map[string]string{
				"logger_id": loggerID,
				"serial":    pv.SerialNumber,
				"port":      strconv.Itoa(pv.Port),
			},
			Fields: map[string]any{
				"voltage":         pv.Voltage,
				"current":         pv.Current,
				"power_w":         pv.PowerW,
				"energy_today_wh": pv.EnergyTodayWh,
				"energy_total_wh": pv.EnergyTotalWh,
				"error_code":      pv.ErrorCode,
			},
			Time: pointTime(pv.LastSeen, batch.Timestamp),
		})
	}

	for _, m := range batch.Meters {
		points = append(points, influxdb.EntityPoint{
			Measurement: influxdb.MeasurementMeter,
			Tags:        map[string]string{"logger_id": loggerID, "serial": m.SerialNumber},
			Fields: map[string]any{
				"power_a_w":                m.PowerAW,
				"power_b_w":                m.PowerBW,
				"power_c_w":                m.PowerCW,
				"power_total_w":            m.PowerTotalW,
				"energy_imported_total_wh": m.EnergyImportedTotalWh,
				"energy_exported_total_wh": m.EnergyExportedTotalWh,
			},
			Time: pointTime(m.LastSeen, batch.Timestamp),
		})
	}

	return points
}

// RecordWriter produces Kafka records. *kafka.Writer satisfies it.
type RecordWriter interface {
	WriteRecords(ctx context.Context, records []kafka.Record) error
}

// MirrorSink republishes each normalized DTO to Kafka, keyed by entity so
// one entity's readings stay on one partition.
type MirrorSink struct {
	writer RecordWriter
}

// NewMirrorSink creates a sink over w.
func NewMirrorSink(w RecordWriter) *MirrorSink {
	return &MirrorSink{writer: w}
}

// Name implements Sink.
func (s *MirrorSink) Name() string { return SinkMirror }

// WriteBatch implements Sink.
func (s *MirrorSink) WriteBatch(ctx context.Context, batch normalize.Batch) error {
	records, err := mirrorRecords(batch)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	return s.writer.WriteRecords(ctx, records)
}

func mirrorRecords(batch normalize.Batch) ([]kafka.Record, error) {
	records := make([]kafka.Record, 0, batch.Len())
	loggerID := batchLoggerID(batch)

	var ts time.Time
	if batch.Timestamp != nil {
		ts = *batch.Timestamp
	}

	add := func(kind normalize.EntityKind, key string, dto any) error {
		value, err := json.Marshal(dto)
		if err != nil {
			return fmt.Errorf("encoding %s %q: %w", kind, key, err)
		}
		records = append(records, kafka.Record{
			Key:   []byte(string(kind) + "/" + key),
			Value: value,
			Headers: map[string]string{
				"entity_kind": string(kind),
				"logger_id":   loggerID,
			},
			Time: ts,
		})
		return nil
	}

	if batch.Logger != nil {
		if err := add(normalize.KindLogger, batch.Logger.LoggerID, batch.Logger); err != nil {
			return nil, err
		}
	}
	for _, inv := range batch.Inverters {
		if err := add(normalize.KindInverter, inv.SerialNumber, inv); err != nil {
			return nil, err
		}
	}
	for _, pv := range batch.Panels {
		key := pv.SerialNumber + "_" + strconv.Itoa(pv.Port)
		if err := add(normalize.KindPanel, key, pv); err != nil {
			return nil, err
		}
	}
	for _, m := range batch.Meters {
		if err := add(normalize.KindMeter, m.SerialNumber, m); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func batchLoggerID(batch normalize.Batch) string {
	if batch.Logger != nil {
		return batch.Logger.LoggerID
	}
	return ""
}

func pointTime(seen, fallback *time.Time) time.Time {
	switch {
	case seen != nil:
		return *seen
	case fallback != nil:
		return *fallback
	default:
		return time.Time{}
	}
}
