// Package telemetry defines the domain model of the DTU bridge.
//
// A Snapshot is one aggregated reading from a DTU data logger: installation
// totals plus the inverters, panels, and meters attached to it, all in raw
// units (W, Wh, implied-decimal power factor, epoch seconds). Events wrap a
// snapshot, or the DTU's device information, together with the protocol tag
// that produced them.
//
// Optional raw values are pointers; nil means the DTU did not report the
// value. Nothing in this package converts units. That is the job of the
// normalize package.
package telemetry
