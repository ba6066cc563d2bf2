package telemetry

import (
	"reflect"
	"testing"
)

func TestSoftwareVersionString(t *testing.T) {
	tests := []struct {
		word int
		want string
	}{
		{520, "V00.02.08"},
		{522, "V00.02.10"},
		{527, "V00.02.15"},
		{0, "V00.00.00"},
	}
	for _, tt := range tests {
		if got := SoftwareVersionString(tt.word); got != tt.want {
			t.Errorf("SoftwareVersionString(%d) = %q, want %q", tt.word, got, tt.want)
		}
	}
}

func TestHardwareVersionString(t *testing.T) {
	if got := HardwareVersionString(37122); got != "H09.01.02" {
		t.Errorf("HardwareVersionString(37122) = %q, want %q", got, "H09.01.02")
	}
}

func TestConnected(t *testing.T) {
	if (InverterReading{Link: 0}).Connected() {
		t.Error("InverterReading{Link: 0}.Connected() = true")
	}
	if !(InverterReading{Link: 3}).Connected() {
		t.Error("InverterReading{Link: 3}.Connected() = false")
	}
	if !(InverterInfo{Link: 1}).Connected() {
		t.Error("InverterInfo{Link: 1}.Connected() = false")
	}
}

func TestSnapshot_DuplicateIdentities(t *testing.T) {
	snap := Snapshot{
		LoggerID: "DTU001",
		Inverters: []InverterReading{
			{SerialNumber: "INV01"},
			{SerialNumber: "INV02"},
			{SerialNumber: "INV01"},
			{SerialNumber: "INV01"},
		},
		Panels: []PanelReading{
			{SerialNumber: "INV01", Port: 1},
			{SerialNumber: "INV01", Port: 2},
			{SerialNumber: "INV02", Port: 1},
		},
		Meters: []MeterReading{
			{SerialNumber: "MET01"},
			{SerialNumber: "MET01"},
		},
	}

	got := snap.DuplicateIdentities()
	want := []string{"inverter:INV01", "meter:MET01"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DuplicateIdentities() = %v, want %v", got, want)
	}
	if n := snap.EntityCount(); n != 10 {
		t.Errorf("EntityCount() = %d, want 10", n)
	}
}

func TestEvents(t *testing.T) {
	var ev Event = NewRealDataEvent(8717, Snapshot{LoggerID: "DTU001"})
	if ev.Tag() != 8717 {
		t.Errorf("Tag() = %d, want 8717", ev.Tag())
	}
	rd, ok := ev.(*RealDataEvent)
	if !ok || rd.Snapshot.LoggerID != "DTU001" {
		t.Errorf("RealDataEvent snapshot = %+v", rd)
	}

	ev = NewAppInfoEvent(8705, AppInfo{LoggerID: "DTU001"})
	if _, ok := ev.(*AppInfoEvent); !ok || ev.Tag() != 8705 {
		t.Errorf("AppInfoEvent = %#v", ev)
	}
}
