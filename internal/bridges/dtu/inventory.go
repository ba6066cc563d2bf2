package dtu

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/history"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/telemetry"
)

// snapshotDevices lists the devices present in snap for the inventory.
// Entities without an identity are left out; normalization reports them.
func snapshotDevices(snap telemetry.Snapshot) []history.Device {
	devices := make([]history.Device, 0, snap.EntityCount())

	if snap.LoggerID != "" {
		devices = append(devices, history.Device{
			Kind:     history.KindLogger,
			ID:       snap.LoggerID,
			LastSeen: snap.Timestamp,
		})
	}

	for _, inv := range snap.Inverters {
		if inv.SerialNumber == "" {
			continue
		}
		connected := inv.Connected()
		devices = append(devices, history.Device{
			Kind:      history.KindInverter,
			ID:        inv.SerialNumber,
			ParentID:  snap.LoggerID,
			Connected: &connected,
			LastSeen:  seenAt(inv.Time, snap.Timestamp),
		})
	}

	for _, pv := range snap.Panels {
		if pv.SerialNumber == "" || pv.Port <= 0 {
			continue
		}
		devices = append(devices, history.Device{
			Kind:     history.KindPanel,
			ID:       telemetry.PanelKey(pv.SerialNumber, pv.Port),
			ParentID: pv.SerialNumber,
			LastSeen: seenAt(pv.Time, snap.Timestamp),
		})
	}

	for _, m := range snap.Meters {
		if m.SerialNumber == "" {
			continue
		}
		devices = append(devices, history.Device{
			Kind:       history.KindMeter,
			ID:         m.SerialNumber,
			ParentID:   snap.LoggerID,
			Descriptor: descriptorJSON(m.Descriptor),
			LastSeen:   seenAt(m.Time, snap.Timestamp),
		})
	}

	return devices
}

// appInfoDevices lists the firmware and connection facts in info.
func appInfoDevices(info telemetry.AppInfo) []history.Device {
	devices := make([]history.Device, 0, 1+len(info.Inverters)+len(info.Meters))

	if info.LoggerID != "" {
		devices = append(devices, history.Device{
			Kind:            history.KindLogger,
			ID:              info.LoggerID,
			SoftwareVersion: telemetry.SoftwareVersionString(info.Logger.SoftwareVersion),
			HardwareVersion: telemetry.HardwareVersionString(info.Logger.HardwareVersion),
			LastSeen:        info.Timestamp,
		})
	}

	for _, inv := range info.Inverters {
		if inv.SerialNumber == "" {
			continue
		}
		connected := inv.Connected()
		devices = append(devices, history.Device{
			Kind:            history.KindInverter,
			ID:              inv.SerialNumber,
			ParentID:        info.LoggerID,
			Connected:       &connected,
			SoftwareVersion: telemetry.SoftwareVersionString(inv.SoftwareVersion),
			HardwareVersion: telemetry.HardwareVersionString(inv.HardwareVersion),
			LastSeen:        info.Timestamp,
		})
	}

	for _, m := range info.Meters {
		if m.SerialNumber == "" {
			continue
		}
		devices = append(devices, history.Device{
			Kind:       history.KindMeter,
			ID:         m.SerialNumber,
			ParentID:   info.LoggerID,
			Descriptor: descriptorJSON(m.Descriptor),
			LastSeen:   info.Timestamp,
		})
	}

	return devices
}

func seenAt(epoch int64, fallback time.Time) time.Time {
	if epoch > 0 {
		return time.Unix(epoch, 0)
	}
	return fallback
}

func descriptorJSON(d telemetry.MeterDescriptor) string {
	data, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	return string(data)
}
