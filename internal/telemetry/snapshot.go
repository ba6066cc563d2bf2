package telemetry

import (
	"fmt"
	"time"
)

// Snapshot is one telemetry reading covering a logger and its devices.
//
// A Snapshot is built once per frame and never mutated afterwards; the
// worker owns it until it has been normalized and published.
type Snapshot struct {
	// Timestamp is the calendar time of the reading.
	Timestamp time.Time

	// LoggerID is the DTU serial number.
	LoggerID string

	Logger    LoggerInfo
	Inverters []InverterReading
	Panels    []PanelReading
	Meters    []MeterReading
}

// LoggerInfo holds installation-wide totals.
type LoggerInfo struct {
	PowerTotal  *float64 // W
	EnergyToday *float64 // Wh
	EnergyTotal *float64 // Wh
}

// InverterReading is one inverter's sample.
type InverterReading struct {
	SerialNumber string

	Voltage   *float64 // V
	Frequency *float64 // Hz
	Current   *float64 // A

	Power  *float64 // W, total
	PowerA *float64 // W, three-phase models only
	PowerB *float64
	PowerC *float64

	ReactivePower *float64 // var

	// PowerFactor is raw with one implied decimal digit; it is scaled up
	// by 10 when normalized.
	PowerFactor *int

	Temperature  *float64 // °C
	WarningCount *int

	// Link is non-zero while the inverter is connected to the DTU.
	Link int

	// Time is the sample time in epoch seconds.
	Time int64
}

// Connected reports whether the inverter is linked to the DTU.
func (r InverterReading) Connected() bool {
	return r.Link != 0
}

// PanelReading is one PV input of an inverter.
//
// Port numbers are only unique per serial, so (SerialNumber, Port) is the
// identity.
type PanelReading struct {
	SerialNumber string
	Port         int

	Voltage     *float64 // V
	Current     *float64 // A
	Power       *float64 // W
	EnergyToday *float64 // Wh
	EnergyTotal *float64 // Wh
	ErrorCode   *int

	Time int64
}

// MeterReading is one energy meter's sample.
type MeterReading struct {
	SerialNumber string

	PowerA     *float64 // W
	PowerB     *float64
	PowerC     *float64
	PowerTotal *float64

	EnergyImportedA     *float64 // Wh
	EnergyImportedB     *float64
	EnergyImportedC     *float64
	EnergyImportedTotal *float64

	EnergyExportedA     *float64 // Wh
	EnergyExportedB     *float64
	EnergyExportedC     *float64
	EnergyExportedTotal *float64

	Time int64

	Descriptor MeterDescriptor
}

// MeterDescriptor holds static meter properties. They are published as-is.
type MeterDescriptor struct {
	DeviceKind       int `json:"deviceKind"`
	Model            int `json:"model"`
	CTRatio          int `json:"ctRatio"`
	CommunicationWay int `json:"communicationWay"`
	AccessMode       int `json:"accessMode"`
	FirmwareVersion  int `json:"firmwareVersion"`
}

// PanelKey returns the identity of a panel reading as "<sn>_<port>".
func PanelKey(sn string, port int) string {
	return fmt.Sprintf("%s_%d", sn, port)
}

// DuplicateIdentities returns every entity identity that occurs more than
// once within its own sequence, prefixed by kind ("inverter:INV01").
//
// Duplicates are still published; callers use this to warn about them.
func (s *Snapshot) DuplicateIdentities() []string {
	var dups []string
	seen := make(map[string]int)
	note := func(key string) {
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, key)
		}
	}

	for _, inv := range s.Inverters {
		note("inverter:" + inv.SerialNumber)
	}
	for _, pv := range s.Panels {
		note("panel:" + PanelKey(pv.SerialNumber, pv.Port))
	}
	for _, m := range s.Meters {
		note("meter:" + m.SerialNumber)
	}
	return dups
}

// EntityCount returns 1 (the logger) plus the number of attached devices.
func (s *Snapshot) EntityCount() int {
	return 1 + len(s.Inverters) + len(s.Panels) + len(s.Meters)
}
