// Package influxdb records normalized DTU telemetry in InfluxDB v2.
//
// Each processed snapshot becomes one point per entity in the dtu_logger,
// dtu_inverter, dtu_panel, and dtu_meter measurements, tagged with the
// entity identity. Absent readings are omitted rather than written as zero.
//
// Writes are batched and non-blocking. Batch failures are delivered to the
// SetOnError callback and never reach the publish pipeline.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // history is optional
//	}
package influxdb
