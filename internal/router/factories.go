package router

import (
	"fmt"
	"time"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/protocol"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/telemetry"
)

// Wire scaling divisors.
const (
	tenths     = 10.0
	hundredths = 100.0
)

// RealDataFactory returns a factory that builds a RealDataEvent from a
// *protocol.RealDataMessage.
func RealDataFactory(tag uint16) Factory {
	return func(payload any) (telemetry.Event, error) {
		var msg *protocol.RealDataMessage
		switch p := payload.(type) {
		case *protocol.RealDataMessage:
			msg = p
		case protocol.RealDataMessage:
			msg = &p
		default:
			return nil, fmt.Errorf("unexpected payload type %T", payload)
		}
		if msg == nil {
			return nil, fmt.Errorf("nil real-data message")
		}
		if msg.DTUSerial == "" {
			return nil, fmt.Errorf("real-data message without DTU serial")
		}
		return telemetry.NewRealDataEvent(tag, buildSnapshot(msg)), nil
	}
}

// AppInfoFactory returns a factory that builds an AppInfoEvent from a
// *protocol.AppInfoMessage.
func AppInfoFactory(tag uint16) Factory {
	return func(payload any) (telemetry.Event, error) {
		var msg *protocol.AppInfoMessage
		switch p := payload.(type) {
		case *protocol.AppInfoMessage:
			msg = p
		case protocol.AppInfoMessage:
			msg = &p
		default:
			return nil, fmt.Errorf("unexpected payload type %T", payload)
		}
		if msg == nil {
			return nil, fmt.Errorf("nil app-info message")
		}
		if msg.DTUSerial == "" {
			return nil, fmt.Errorf("app-info message without DTU serial")
		}
		return telemetry.NewAppInfoEvent(tag, buildAppInfo(msg)), nil
	}
}

func buildSnapshot(msg *protocol.RealDataMessage) telemetry.Snapshot {
	snap := telemetry.Snapshot{
		Timestamp: messageTime(msg.Time, msg.ReceivedAt),
		LoggerID:  msg.DTUSerial,
		Logger: telemetry.LoggerInfo{
			PowerTotal:  scaled(msg.DTUPower, tenths),
			EnergyToday: scaled(msg.DTUDailyEnergy, 1),
			EnergyTotal: scaled(msg.DTUTotalEnergy, 1),
		},
		Inverters: make([]telemetry.InverterReading, 0, len(msg.Inverters)),
		Panels:    make([]telemetry.PanelReading, 0, len(msg.Panels)),
		Meters:    make([]telemetry.MeterReading, 0, len(msg.Meters)),
	}

	for _, s := range msg.Inverters {
		snap.Inverters = append(snap.Inverters, telemetry.InverterReading{
			SerialNumber:  s.SerialNumber,
			Voltage:       scaled(s.Voltage, tenths),
			Frequency:     scaled(s.Frequency, hundredths),
			Current:       scaled(s.Current, hundredths),
			Power:         scaled(s.ActivePower, tenths),
			PowerA:        scaled(s.ActivePowerA, tenths),
			PowerB:        scaled(s.ActivePowerB, tenths),
			PowerC:        scaled(s.ActivePowerC, tenths),
			ReactivePower: scaled(s.ReactivePower, tenths),
			PowerFactor:   copyInt(s.PowerFactor),
			Temperature:   scaled(s.Temperature, tenths),
			WarningCount:  copyInt(s.WarningNumber),
			Link:          s.LinkStatus,
			Time:          s.Time,
		})
	}

	for _, p := range msg.Panels {
		snap.Panels = append(snap.Panels, telemetry.PanelReading{
			SerialNumber: p.SerialNumber,
			Port:         p.PortNumber,
			Voltage:      scaled(p.Voltage, tenths),
			Current:      scaled(p.Current, hundredths),
			Power:        scaled(p.Power, tenths),
			EnergyToday:  scaled(p.EnergyDaily, 1),
			EnergyTotal:  scaled(p.EnergyTotal, 1),
			ErrorCode:    copyInt(p.ErrorCode),
			Time:         p.Time,
		})
	}

	for _, m := range msg.Meters {
		snap.Meters = append(snap.Meters, telemetry.MeterReading{
			SerialNumber:        m.SerialNumber,
			PowerA:              copyFloat(m.PhaseAPower),
			PowerB:              copyFloat(m.PhaseBPower),
			PowerC:              copyFloat(m.PhaseCPower),
			PowerTotal:          copyFloat(m.PhaseTotalPower),
			EnergyImportedA:     copyFloat(m.EnergyPhaseAImport),
			EnergyImportedB:     copyFloat(m.EnergyPhaseBImport),
			EnergyImportedC:     copyFloat(m.EnergyPhaseCImport),
			EnergyImportedTotal: copyFloat(m.EnergyTotalImport),
			EnergyExportedA:     copyFloat(m.EnergyPhaseAExport),
			EnergyExportedB:     copyFloat(m.EnergyPhaseBExport),
			EnergyExportedC:     copyFloat(m.EnergyPhaseCExport),
			EnergyExportedTotal: copyFloat(m.EnergyTotalExport),
			Time:                m.Time,
			Descriptor: telemetry.MeterDescriptor{
				DeviceKind:       m.DeviceType,
				Model:            m.Model,
				CTRatio:          m.CTRatio,
				CommunicationWay: m.CommunicationWay,
				AccessMode:       m.AccessMode,
				FirmwareVersion:  m.FirmwareVersion,
			},
		})
	}

	return snap
}

func buildAppInfo(msg *protocol.AppInfoMessage) telemetry.AppInfo {
	info := telemetry.AppInfo{
		Timestamp: messageTime(msg.Time, msg.ReceivedAt),
		LoggerID:  msg.DTUSerial,
		Logger: telemetry.LoggerVersion{
			SoftwareVersion: msg.DTUSoftwareVersion,
			HardwareVersion: msg.DTUHardwareVersion,
		},
		Inverters: make([]telemetry.InverterInfo, 0, len(msg.Inverters)),
		Meters:    make([]telemetry.MeterInfo, 0, len(msg.Meters)),
	}
	for _, s := range msg.Inverters {
		info.Inverters = append(info.Inverters, telemetry.InverterInfo{
			SerialNumber:    s.SerialNumber,
			SoftwareVersion: s.SoftwareVersion,
			HardwareVersion: s.HardwareVersion,
			Link:            s.LinkStatus,
		})
	}
	for _, m := range msg.Meters {
		info.Meters = append(info.Meters, telemetry.MeterInfo{
			SerialNumber: m.SerialNumber,
			Descriptor: telemetry.MeterDescriptor{
				DeviceKind:       m.DeviceKind,
				Model:            m.Model,
				CTRatio:          m.CTRatio,
				CommunicationWay: m.CommunicationWay,
				AccessMode:       m.AccessMode,
				FirmwareVersion:  m.FirmwareVersion,
			},
		})
	}
	return info
}

// messageTime prefers the DTU clock and falls back to the receive time.
// Both absent yields the zero time.
func messageTime(epoch int64, received time.Time) time.Time {
	if epoch > 0 {
		return time.Unix(epoch, 0)
	}
	return received
}

func scaled(v *int64, divisor float64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v) / divisor
	return &f
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
