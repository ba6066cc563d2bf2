package protocol

import "time"

// RealDataMessage is a decoded real-data message.
//
// Pointer fields are optional on the wire; nil means the DTU omitted them.
type RealDataMessage struct {
	DTUSerial string `json:"dtu_sn"`

	// Time is the DTU clock in epoch seconds. Zero when the DTU did not set it.
	Time int64 `json:"time,omitempty"`

	// DTUPower is the installation power in tenths of a watt.
	DTUPower *int64 `json:"dtu_power,omitempty"`

	// DTUDailyEnergy and DTUTotalEnergy are in Wh.
	DTUDailyEnergy *int64 `json:"dtu_daily_energy,omitempty"`
	DTUTotalEnergy *int64 `json:"dtu_total_energy,omitempty"`

	Inverters []InverterState `json:"sgs_data,omitempty"`
	Panels    []PanelState    `json:"pv_data,omitempty"`
	Meters    []MeterState    `json:"meter_data,omitempty"`

	// ReceivedAt is copied from the envelope by DecodeFrame.
	ReceivedAt time.Time `json:"-"`
}

// InverterState is one inverter entry in a real-data message.
type InverterState struct {
	SerialNumber string `json:"serial_number"`

	Voltage       *int64 `json:"voltage,omitempty"`        // 0.1 V
	Frequency     *int64 `json:"frequency,omitempty"`      // 0.01 Hz
	ActivePower   *int64 `json:"active_power,omitempty"`   // 0.1 W
	ActivePowerA  *int64 `json:"active_power_a,omitempty"` // 0.1 W
	ActivePowerB  *int64 `json:"active_power_b,omitempty"`
	ActivePowerC  *int64 `json:"active_power_c,omitempty"`
	ReactivePower *int64 `json:"reactive_power,omitempty"` // 0.1 var
	Current       *int64 `json:"current,omitempty"`        // 0.01 A
	PowerFactor   *int   `json:"power_factor,omitempty"`   // one implied decimal
	Temperature   *int64 `json:"temperature,omitempty"`    // 0.1 °C
	WarningNumber *int   `json:"warning_number,omitempty"`
	LinkStatus    int    `json:"link_status"`
	Time          int64  `json:"time,omitempty"`
}

// PanelState is one PV port entry in a real-data message.
type PanelState struct {
	SerialNumber string `json:"serial_number"`
	PortNumber   int    `json:"port_number"`

	Voltage     *int64 `json:"voltage,omitempty"`      // 0.1 V
	Current     *int64 `json:"current,omitempty"`      // 0.01 A
	Power       *int64 `json:"power,omitempty"`        // 0.1 W
	EnergyDaily *int64 `json:"energy_daily,omitempty"` // Wh
	EnergyTotal *int64 `json:"energy_total,omitempty"` // Wh
	ErrorCode   *int   `json:"error_code,omitempty"`
	Time        int64  `json:"time,omitempty"`
}

// MeterState is one meter entry in a real-data message. Values are W and Wh.
type MeterState struct {
	SerialNumber string `json:"serial_number"`
	DeviceType   int    `json:"device_type"`

	PhaseTotalPower *float64 `json:"phase_total_power,omitempty"`
	PhaseAPower     *float64 `json:"phase_a_power,omitempty"`
	PhaseBPower     *float64 `json:"phase_b_power,omitempty"`
	PhaseCPower     *float64 `json:"phase_c_power,omitempty"`

	EnergyTotalImport  *float64 `json:"energy_total_import,omitempty"`
	EnergyPhaseAImport *float64 `json:"energy_phase_a_import,omitempty"`
	EnergyPhaseBImport *float64 `json:"energy_phase_b_import,omitempty"`
	EnergyPhaseCImport *float64 `json:"energy_phase_c_import,omitempty"`

	EnergyTotalExport  *float64 `json:"energy_total_export,omitempty"`
	EnergyPhaseAExport *float64 `json:"energy_phase_a_export,omitempty"`
	EnergyPhaseBExport *float64 `json:"energy_phase_b_export,omitempty"`
	EnergyPhaseCExport *float64 `json:"energy_phase_c_export,omitempty"`

	Model            int   `json:"model,omitempty"`
	CTRatio          int   `json:"ct_ratio,omitempty"`
	CommunicationWay int   `json:"communication_way,omitempty"`
	AccessMode       int   `json:"access_mode,omitempty"`
	FirmwareVersion  int   `json:"firmware_version,omitempty"`
	Time             int64 `json:"time,omitempty"`
}

// AppInfoMessage is a decoded device-information message.
type AppInfoMessage struct {
	DTUSerial string `json:"dtu_sn"`
	Time      int64  `json:"time,omitempty"`

	DTUSoftwareVersion int `json:"dtu_sw_version"`
	DTUHardwareVersion int `json:"dtu_hw_version"`

	Inverters []InverterInfo `json:"sgs_info,omitempty"`
	Meters    []MeterInfo    `json:"meter_info,omitempty"`

	ReceivedAt time.Time `json:"-"`
}

// InverterInfo is one inverter entry in an AppInfoMessage.
type InverterInfo struct {
	SerialNumber    string `json:"serial_number"`
	SoftwareVersion int    `json:"sw_version"`
	HardwareVersion int    `json:"hw_version"`
	LinkStatus      int    `json:"link_status"`
}

// MeterInfo is one meter entry in an AppInfoMessage.
type MeterInfo struct {
	SerialNumber     string `json:"serial_number"`
	DeviceKind       int    `json:"device_kind"`
	Model            int    `json:"model"`
	CTRatio          int    `json:"ct_ratio"`
	CommunicationWay int    `json:"communication_way"`
	AccessMode       int    `json:"access_mode"`
	FirmwareVersion  int    `json:"firmware_version"`
}
