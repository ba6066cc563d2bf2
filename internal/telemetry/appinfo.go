package telemetry

import (
	"fmt"
	"time"
)

// AppInfo is the DTU's device information: firmware and hardware versions
// of the logger and of every attached inverter and meter.
type AppInfo struct {
	Timestamp time.Time
	LoggerID  string

	Logger    LoggerVersion
	Inverters []InverterInfo
	Meters    []MeterInfo
}

// LoggerVersion holds the DTU's raw version words.
type LoggerVersion struct {
	SoftwareVersion int
	HardwareVersion int
}

// InverterInfo describes one inverter as reported in AppInfo.
type InverterInfo struct {
	SerialNumber    string
	SoftwareVersion int
	HardwareVersion int
	Link            int
}

// Connected reports whether the inverter is linked to the DTU.
func (i InverterInfo) Connected() bool {
	return i.Link != 0
}

// MeterInfo describes one meter as reported in AppInfo.
type MeterInfo struct {
	SerialNumber string
	Descriptor   MeterDescriptor
}

// SoftwareVersionString renders a software version word, e.g. 520 as
// "V00.02.08" and 527 as "V00.02.15".
func SoftwareVersionString(word int) string {
	return formatVersion('V', word)
}

// HardwareVersionString renders a hardware version word, e.g. 37122 as
// "H09.01.02".
func HardwareVersionString(word int) string {
	return formatVersion('H', word)
}

func formatVersion(prefix byte, word int) string {
	return fmt.Sprintf("%c%02d.%02d.%02d", prefix, (word>>12)&0xF, (word>>8)&0xF, word&0xFF)
}
