package normalize

import (
	"fmt"
	"time"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/telemetry"
)

// Logger normalizes the installation totals of logger id, last seen at ts.
func Logger(id string, info telemetry.LoggerInfo, ts time.Time, loc *time.Location) (LoggerDTO, error) {
	if id == "" {
		return LoggerDTO{}, ErrMissingIdentity
	}
	return LoggerDTO{
		LoggerID:       id,
		PowerTotalW:    watts(info.PowerTotal),
		PowerTotalKW:   kilowatts(info.PowerTotal),
		EnergyTodayWh:  wattHours(info.EnergyToday),
		EnergyTodayKWh: kilowattHours(info.EnergyToday),
		EnergyTotalWh:  wattHours(info.EnergyTotal),
		EnergyTotalKWh: kilowattHours(info.EnergyTotal),
		LastSeen:       calendarTime(ts, loc),
	}, nil
}

// Inverter normalizes one inverter reading.
func Inverter(r telemetry.InverterReading, loc *time.Location) (InverterDTO, error) {
	if r.SerialNumber == "" {
		return InverterDTO{}, ErrMissingIdentity
	}
	return InverterDTO{
		SerialNumber:  r.SerialNumber,
		Connected:     r.Connected(),
		Voltage:       display(r.Voltage),
		Frequency:     display(r.Frequency),
		Current:       display(r.Current),
		PowerW:        watts(r.Power),
		PowerKW:       kilowatts(r.Power),
		PowerAW:       watts(r.PowerA),
		PowerBW:       watts(r.PowerB),
		PowerCW:       watts(r.PowerC),
		ReactivePower: display(r.ReactivePower),
		PowerFactor:   powerFactor(r.PowerFactor),
		Temperature:   display(r.Temperature),
		WarningCount:  copyInt(r.WarningCount),
		LastSeen:      epochTime(r.Time, loc),
	}, nil
}

// Panel normalizes one PV port reading.
func Panel(r telemetry.PanelReading, loc *time.Location) (PanelDTO, error) {
	if r.SerialNumber == "" {
		return PanelDTO{}, ErrMissingIdentity
	}
	if r.Port < 0 {
		return PanelDTO{}, fmt.Errorf("%w: %d", ErrInvalidPort, r.Port)
	}
	return PanelDTO{
		SerialNumber:   r.SerialNumber,
		Port:           r.Port,
		Voltage:        display(r.Voltage),
		Current:        display(r.Current),
		PowerW:         watts(r.Power),
		PowerKW:        kilowatts(r.Power),
		EnergyTodayWh:  wattHours(r.EnergyToday),
		EnergyTodayKWh: kilowattHours(r.EnergyToday),
		EnergyTotalWh:  wattHours(r.EnergyTotal),
		EnergyTotalKWh: kilowattHours(r.EnergyTotal),
		ErrorCode:      copyInt(r.ErrorCode),
		LastSeen:       epochTime(r.Time, loc),
	}, nil
}

// Meter normalizes one meter reading. Descriptors pass through unchanged.
func Meter(r telemetry.MeterReading, loc *time.Location) (MeterDTO, error) {
	if r.SerialNumber == "" {
		return MeterDTO{}, ErrMissingIdentity
	}
	return MeterDTO{
		SerialNumber: r.SerialNumber,

		PowerAW:     watts(r.PowerA),
		PowerBW:     watts(r.PowerB),
		PowerCW:     watts(r.PowerC),
		PowerTotalW: watts(r.PowerTotal),

		PowerAKW:     kilowatts(r.PowerA),
		PowerBKW:     kilowatts(r.PowerB),
		PowerCKW:     kilowatts(r.PowerC),
		PowerTotalKW: kilowatts(r.PowerTotal),

		EnergyImportedAWh:      wattHours(r.EnergyImportedA),
		EnergyImportedBWh:      wattHours(r.EnergyImportedB),
		EnergyImportedCWh:      wattHours(r.EnergyImportedC),
		EnergyImportedTotalWh:  wattHours(r.EnergyImportedTotal),
		EnergyImportedAKWh:     kilowattHours(r.EnergyImportedA),
		EnergyImportedBKWh:     kilowattHours(r.EnergyImportedB),
		EnergyImportedCKWh:     kilowattHours(r.EnergyImportedC),
		EnergyImportedTotalKWh: kilowattHours(r.EnergyImportedTotal),

		EnergyExportedAWh:      wattHours(r.EnergyExportedA),
		EnergyExportedBWh:      wattHours(r.EnergyExportedB),
		EnergyExportedCWh:      wattHours(r.EnergyExportedC),
		EnergyExportedTotalWh:  wattHours(r.EnergyExportedTotal),
		EnergyExportedAKWh:     kilowattHours(r.EnergyExportedA),
		EnergyExportedBKWh:     kilowattHours(r.EnergyExportedB),
		EnergyExportedCKWh:     kilowattHours(r.EnergyExportedC),
		EnergyExportedTotalKWh: kilowattHours(r.EnergyExportedTotal),

		MeterDescriptor: r.Descriptor,
		LastSeen:        epochTime(r.Time, loc),
	}, nil
}

// Snapshot normalizes every entity of snap. An entity that fails is recorded
// in Batch.Errors and the rest are still normalized.
func Snapshot(snap telemetry.Snapshot, loc *time.Location) Batch {
	b := Batch{
		Timestamp: calendarTime(snap.Timestamp, loc),
		Inverters: make([]InverterDTO, 0, len(snap.Inverters)),
		Panels:    make([]PanelDTO, 0, len(snap.Panels)),
		Meters:    make([]MeterDTO, 0, len(snap.Meters)),
	}

	if dto, err := Logger(snap.LoggerID, snap.Logger, snap.Timestamp, loc); err != nil {
		b.Errors = append(b.Errors, &EntityError{Kind: KindLogger, Key: snap.LoggerID, Err: err})
	} else {
		b.Logger = &dto
	}

	for i, r := range snap.Inverters {
		dto, err := Inverter(r, loc)
		if err != nil {
			b.Errors = append(b.Errors, &EntityError{Kind: KindInverter, Key: r.SerialNumber, Index: i, Err: err})
			continue
		}
		b.Inverters = append(b.Inverters, dto)
	}

	for i, r := range snap.Panels {
		dto, err := Panel(r, loc)
		if err != nil {
			b.Errors = append(b.Errors, &EntityError{Kind: KindPanel, Key: telemetry.PanelKey(r.SerialNumber, r.Port), Index: i, Err: err})
			continue
		}
		b.Panels = append(b.Panels, dto)
	}

	for i, r := range snap.Meters {
		dto, err := Meter(r, loc)
		if err != nil {
			b.Errors = append(b.Errors, &EntityError{Kind: KindMeter, Key: r.SerialNumber, Index: i, Err: err})
			continue
		}
		b.Meters = append(b.Meters, dto)
	}

	return b
}
