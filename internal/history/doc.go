// Package history persists what the bridge has seen in SQLite.
//
// DeviceRepository keeps an inventory of every logger, inverter, panel and
// meter reported by the DTU: when it was first and last seen, its firmware
// versions, connection state and (for meters) the static descriptor.
//
// FailureRepository logs every telemetry publish the broker rejected, so
// operators can see what was lost; failed publishes are never retried.
//
// Both repositories expect the schema from the migrations package.
package history
