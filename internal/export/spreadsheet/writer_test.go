package spreadsheet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/normalize"
)

func ptr[T any](v T) *T { return &v }

func batchAt(ts time.Time) normalize.Batch {
	return normalize.Batch{
		Timestamp: &ts,
		Logger:    &normalize.LoggerDTO{LoggerID: "DTU001", PowerTotalW: ptr(1532.0), EnergyTotalWh: ptr(123456.0)},
		Inverters: []normalize.InverterDTO{
			{SerialNumber: "INV01", Connected: true, Voltage: ptr(230.1), PowerFactor: ptr(950)},
		},
		Panels: []normalize.PanelDTO{
			{SerialNumber: "INV01", Port: 1, Voltage: ptr(30.5)},
			{SerialNumber: "INV01", Port: 2},
		},
	}
}

func readRows(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile(%s) error = %v", path, err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", sheet, err)
	}
	return rows
}

func TestWriter_WriteBatch(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, time.UTC)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if w.Name() != Name {
		t.Errorf("Name() = %q, want %q", w.Name(), Name)
	}

	ts := time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC)
	if err := w.WriteBatch(context.Background(), batchAt(ts)); err != nil {
		t.Fatalf("WriteBatch() error = %v", err)
	}
	if err := w.WriteBatch(context.Background(), batchAt(ts.Add(time.Minute))); err != nil {
		t.Fatalf("WriteBatch() error = %v", err)
	}

	wantPath := filepath.Join(dir, "dtu-2026-04-15.xlsx")
	if w.Path() != wantPath {
		t.Errorf("Path() = %q, want %q", w.Path(), wantPath)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	tests := []struct {
		sheet string
		rows  int
	}{
		{SheetLogger, 3},
		{SheetInverters, 3},
		{SheetPanels, 5},
		{SheetMeters, 1},
	}
	for _, tt := range tests {
		rows := readRows(t, wantPath, tt.sheet)
		if len(rows) != tt.rows {
			t.Errorf("%s rows = %d, want %d", tt.sheet, len(rows), tt.rows)
		}
		if len(rows) > 0 && rows[0][0] != "Timestamp" {
			t.Errorf("%s header = %v, want Timestamp first", tt.sheet, rows[0])
		}
	}

	logger := readRows(t, wantPath, SheetLogger)
	if got := logger[1]; got[0] != "2026-04-15T09:00:00Z" || got[1] != "DTU001" || got[2] != "1532" {
		t.Errorf("logger row = %v, want timestamp, DTU001, 1532", got)
	}
	inv := readRows(t, wantPath, SheetInverters)
	if got := inv[1][8]; got != "950" {
		t.Errorf("inverter power factor cell = %q, want 950", got)
	}
}

func TestWriter_RotatesDaily(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, time.UTC)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	day1 := time.Date(2026, 4, 15, 23, 59, 0, 0, time.UTC)
	day2 := day1.Add(2 * time.Minute)
	for _, ts := range []time.Time{day1, day2} {
		if err := w.WriteBatch(context.Background(), batchAt(ts)); err != nil {
			t.Fatalf("WriteBatch(%v) error = %v", ts, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	for _, day := range []string{"2026-04-15", "2026-04-16"} {
		rows := readRows(t, filepath.Join(dir, "dtu-"+day+".xlsx"), SheetLogger)
		if len(rows) != 2 {
			t.Errorf("dtu-%s Logger rows = %d, want 2", day, len(rows))
		}
	}
}

func TestWriter_AppendsToExistingDay(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		w, err := New(dir, time.UTC)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := w.WriteBatch(context.Background(), batchAt(ts.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("WriteBatch() error = %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}

	rows := readRows(t, filepath.Join(dir, "dtu-2026-04-15.xlsx"), SheetPanels)
	if len(rows) != 5 {
		t.Errorf("Panels rows after reopen = %d, want 5", len(rows))
	}
}

func TestWriter_Closed(t *testing.T) {
	w, err := New(t.TempDir(), time.UTC)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	ts := time.Now()
	if err := w.WriteBatch(context.Background(), batchAt(ts)); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteBatch() after Close error = %v, want %v", err, ErrClosed)
	}
}

func TestWriter_EmptyBatchIgnored(t *testing.T) {
	w, err := New(t.TempDir(), time.UTC)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()
	if err := w.WriteBatch(context.Background(), normalize.Batch{}); err != nil {
		t.Errorf("WriteBatch(empty) error = %v", err)
	}
	if w.Path() != "" {
		t.Errorf("Path() = %q after empty batch, want empty", w.Path())
	}
}
