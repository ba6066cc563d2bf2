package normalize

import (
	"time"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/telemetry"
)

// LoggerDTO is the normalized installation totals of one DTU.
type LoggerDTO struct {
	LoggerID       string     `json:"loggerId"`
	PowerTotalW    *float64   `json:"powerTotalW"`
	PowerTotalKW   *float64   `json:"powerTotalKW"`
	EnergyTodayWh  *float64   `json:"energyTodayWh"`
	EnergyTodayKWh *float64   `json:"energyTodayKWh"`
	EnergyTotalWh  *float64   `json:"energyTotalWh"`
	EnergyTotalKWh *float64   `json:"energyTotalKWh"`
	LastSeen       *time.Time `json:"lastSeen"`
}

// InverterDTO is one normalized inverter reading.
type InverterDTO struct {
	SerialNumber  string     `json:"serialNumber"`
	Connected     bool       `json:"connected"`
	Voltage       *float64   `json:"voltage"`
	Frequency     *float64   `json:"frequency"`
	Current       *float64   `json:"current"`
	PowerW        *float64   `json:"powerW"`
	PowerKW       *float64   `json:"powerKW"`
	PowerAW       *float64   `json:"powerAW"`
	PowerBW       *float64   `json:"powerBW"`
	PowerCW       *float64   `json:"powerCW"`
	ReactivePower *float64   `json:"reactivePower"`
	PowerFactor   *int       `json:"powerFactor"`
	Temperature   *float64   `json:"temperature"`
	WarningCount  *int       `json:"warningCount"`
	LastSeen      *time.Time `json:"lastSeen"`
}

// PanelDTO is one normalized PV port reading.
type PanelDTO struct {
	SerialNumber   string     `json:"serialNumber"`
	Port           int        `json:"port"`
	Voltage        *float64   `json:"voltage"`
	Current        *float64   `json:"current"`
	PowerW         *float64   `json:"powerW"`
	PowerKW        *float64   `json:"powerKW"`
	EnergyTodayWh  *float64   `json:"energyTodayWh"`
	EnergyTodayKWh *float64   `json:"energyTodayKWh"`
	EnergyTotalWh  *float64   `json:"energyTotalWh"`
	EnergyTotalKWh *float64   `json:"energyTotalKWh"`
	ErrorCode      *int       `json:"errorCode"`
	LastSeen       *time.Time `json:"lastSeen"`
}

// MeterDTO is one normalized meter reading.
//
// The kW/kWh JSON keys keep the names existing Home Assistant discovery
// configs reference.
type MeterDTO struct {
	SerialNumber string `json:"serialNumber"`

	PowerAW     *float64 `json:"powerAW"`
	PowerBW     *float64 `json:"powerBW"`
	PowerCW     *float64 `json:"powerCW"`
	PowerTotalW *float64 `json:"powerTotalW"`

	PowerAKW     *float64 `json:"powerAKWh"`
	PowerBKW     *float64 `json:"powerBKWh"`
	PowerCKW     *float64 `json:"powerCKWh"`
	PowerTotalKW *float64 `json:"powerTotalKWh"`

	EnergyImportedAWh      *float64 `json:"energyImportedAWh"`
	EnergyImportedBWh      *float64 `json:"energyImportedBWh"`
	EnergyImportedCWh      *float64 `json:"energyImportedCWh"`
	EnergyImportedTotalWh  *float64 `json:"energyImportedTotalWh"`
	EnergyImportedAKWh     *float64 `json:"energyImportedAKWh"`
	EnergyImportedBKWh     *float64 `json:"energyImportedBKWh"`
	EnergyImportedCKWh     *float64 `json:"energyImportedCKWh"`
	EnergyImportedTotalKWh *float64 `json:"energyImportedTotalKWh"`

	EnergyExportedAWh      *float64 `json:"energyExportedAWh"`
	EnergyExportedBWh      *float64 `json:"energyExportedBWh"`
	EnergyExportedCWh      *float64 `json:"energyExportedCWh"`
	EnergyExportedTotalWh  *float64 `json:"energyExportedTotalWh"`
	EnergyExportedAKWh     *float64 `json:"energyExportedAKWh"`
	EnergyExportedBKWh     *float64 `json:"energyExportedBKWh"`
	EnergyExportedCKWh     *float64 `json:"energyExportedCKWh"`
	EnergyExportedTotalKWh *float64 `json:"energyExportedTotalKWh"`

	telemetry.MeterDescriptor

	LastSeen *time.Time `json:"lastSeen"`
}

// Batch holds every DTO normalized from one snapshot, in snapshot order.
// Entities that failed normalization are in Errors instead.
type Batch struct {
	Timestamp *time.Time    `json:"timestamp"`
	Logger    *LoggerDTO    `json:"logger"`
	Inverters []InverterDTO `json:"inverters"`
	Panels    []PanelDTO    `json:"panels"`
	Meters    []MeterDTO    `json:"meters"`

	Errors []*EntityError `json:"-"`
}

// Len returns the number of normalized entities.
func (b Batch) Len() int {
	n := len(b.Inverters) + len(b.Panels) + len(b.Meters)
	if b.Logger != nil {
		n++
	}
	return n
}
