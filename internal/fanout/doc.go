// Package fanout expands one telemetry snapshot into per-entity MQTT
// messages.
//
// For a snapshot with N inverters, M panels and K meters the Publisher makes
// N+M+K+1 publish calls, one per normalized DTO, on topics derived only from
// entity identity:
//
//	<ns>/<prefix><logger-id>
//	<ns>/inv_<inverter-id>
//	<ns>/pv_<serial>_<port>
//	<ns>/met_<meter-id>
//
// Telemetry is published at QoS 1 without retain. A failed publish is
// recorded in the Report and the remaining entities are still attempted.
// Availability (<ns>/bridge/state) and health (<ns>/bridge/health) are
// retained; discovery configs pass through unchanged, retained at QoS 0.
package fanout
