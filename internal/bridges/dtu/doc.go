// Package dtu runs the Hoymiles DTU telemetry bridge.
//
// Frames from every ingest source are submitted to one ordered queue. A single
// worker drains it: each frame is dispatched by tag, real-data snapshots are
// normalized and fanned out to MQTT, and the normalized batch is then handed
// to the configured sinks (InfluxDB, Kafka mirror, spreadsheet, websocket
// feed). The device inventory and publish failures are kept in SQLite.
//
// Frame F1 always completes before F2 begins, whatever source produced them.
//
// The bridge also publishes its availability (online/offline), optional Home
// Assistant discovery blobs, and a periodic health message:
//
//	<namespace>/bridge/state   online | offline
//	<namespace>/bridge/health  {"bridge":"dtubridge","status":"healthy",...}
package dtu
