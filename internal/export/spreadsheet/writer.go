package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/normalize"
)

// Name identifies the writer as a bridge sink.
const Name = "spreadsheet"

// Sheet names.
const (
	SheetLogger    = "Logger"
	SheetInverters = "Inverters"
	SheetPanels    = "Panels"
	SheetMeters    = "Meters"
)

const dayLayout = "2006-01-02"

var headers = map[string][]any{
	SheetLogger: {"Timestamp", "Logger ID", "Power (W)", "Energy Today (Wh)", "Energy Total (Wh)"},
	SheetInverters: {"Timestamp", "Serial Number", "Connected", "Voltage (V)", "Frequency (Hz)", "Current (A)",
		"Power (W)", "Reactive Power (var)", "Power Factor", "Temperature (°C)", "Warnings"},
	SheetPanels: {"Timestamp", "Serial Number", "Port", "Voltage (V)", "Current (A)", "Power (W)",
		"Energy Today (Wh)", "Energy Total (Wh)", "Error Code"},
	SheetMeters: {"Timestamp", "Serial Number", "Power Total (W)", "Power A (W)", "Power B (W)", "Power C (W)",
		"Imported Total (Wh)", "Exported Total (Wh)"},
}

var sheetOrder = []string{SheetLogger, SheetInverters, SheetPanels, SheetMeters}

// ErrClosed is returned by WriteBatch after Close.
var ErrClosed = errors.New("spreadsheet: writer closed")

// Writer appends batches to the current day's workbook.
//
// Thread Safety: all methods are safe for concurrent use.
type Writer struct {
	dir string
	loc *time.Location

	mu     sync.Mutex
	file   *excelize.File
	day    string
	path   string
	next   map[string]int // next free row per sheet
	closed bool
}

// New creates a writer storing workbooks in dir, creating it if needed.
// Days roll over in loc; nil means time.Local.
func New(dir string, loc *time.Location) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Writer{dir: dir, loc: loc}, nil
}

// Name implements the bridge sink interface.
func (w *Writer) Name() string { return Name }

// Path returns the current workbook path, or "" before the first batch.
func (w *Writer) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// WriteBatch appends one row per entity in batch and saves the workbook.
func (w *Writer) WriteBatch(_ context.Context, batch normalize.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	ts := time.Now()
	if batch.Timestamp != nil {
		ts = *batch.Timestamp
	}
	ts = ts.In(w.loc)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.rotate(ts.Format(dayLayout)); err != nil {
		return err
	}

	stamp := ts.Format(time.RFC3339)

	if l := batch.Logger; l != nil {
		if err := w.appendRow(SheetLogger, []any{stamp, l.LoggerID, val(l.PowerTotalW), val(l.EnergyTodayWh), val(l.EnergyTotalWh)}); err != nil {
			return err
		}
	}
	for _, inv := range batch.Inverters {
		row := []any{stamp, inv.SerialNumber, inv.Connected, val(inv.Voltage), val(inv.Frequency), val(inv.Current),
			val(inv.PowerW), val(inv.ReactivePower), val(inv.PowerFactor), val(inv.Temperature), val(inv.WarningCount)}
		if err := w.appendRow(SheetInverters, row); err != nil {
			return err
		}
	}
	for _, pv := range batch.Panels {
		row := []any{stamp, pv.SerialNumber, pv.Port, val(pv.Voltage), val(pv.Current), val(pv.PowerW),
			val(pv.EnergyTodayWh), val(pv.EnergyTotalWh), val(pv.ErrorCode)}
		if err := w.appendRow(SheetPanels, row); err != nil {
			return err
		}
	}
	for _, m := range batch.Meters {
		row := []any{stamp, m.SerialNumber, val(m.PowerTotalW), val(m.PowerAW), val(m.PowerBW), val(m.PowerCW),
			val(m.EnergyImportedTotalWh), val(m.EnergyExportedTotalWh)}
		if err := w.appendRow(SheetMeters, row); err != nil {
			return err
		}
	}

	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving %s: %w", w.path, err)
	}
	return nil
}

// Close saves and closes the current workbook. Safe to call multiple times.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.closeFile()
}

// rotate makes day's workbook current, opening or creating it.
func (w *Writer) rotate(day string) error {
	if w.file != nil && w.day == day {
		return nil
	}
	if err := w.closeFile(); err != nil {
		return err
	}

	path := filepath.Join(w.dir, "dtu-"+day+".xlsx")
	f, next, err := openWorkbook(path)
	if err != nil {
		return err
	}

	w.file, w.day, w.path, w.next = f, day, path, next
	return nil
}

func (w *Writer) closeFile() error {
	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil

	saveErr := f.SaveAs(w.path)
	closeErr := f.Close()
	if saveErr != nil {
		return fmt.Errorf("saving %s: %w", w.path, saveErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", w.path, closeErr)
	}
	return nil
}

func (w *Writer) appendRow(sheet string, values []any) error {
	row := w.next[sheet]
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	w.next[sheet] = row + 1
	return nil
}

// openWorkbook opens path, or creates a workbook with header rows when it
// does not exist. It returns the next free row for each sheet.
func openWorkbook(path string) (*excelize.File, map[string]int, error) {
	next := make(map[string]int, len(sheetOrder))

	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", path, err)
		}
		for _, sheet := range sheetOrder {
			if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
				if err := addSheet(f, sheet); err != nil {
					f.Close() //nolint:errcheck // already failing
					return nil, nil, err
				}
				next[sheet] = 2
				continue
			}
			rows, err := f.GetRows(sheet)
			if err != nil {
				f.Close() //nolint:errcheck // already failing
				return nil, nil, fmt.Errorf("reading %s: %w", sheet, err)
			}
			next[sheet] = len(rows) + 1
		}
		return f, next, nil
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetOrder[0]); err != nil {
		f.Close() //nolint:errcheck // already failing
		return nil, nil, err
	}
	if err := writeHeader(f, sheetOrder[0]); err != nil {
		f.Close() //nolint:errcheck // already failing
		return nil, nil, err
	}
	for _, sheet := range sheetOrder[1:] {
		if err := addSheet(f, sheet); err != nil {
			f.Close() //nolint:errcheck // already failing
			return nil, nil, err
		}
	}
	for _, sheet := range sheetOrder {
		next[sheet] = 2
	}
	return f, next, nil
}

func addSheet(f *excelize.File, sheet string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet %s: %w", sheet, err)
	}
	return writeHeader(f, sheet)
}

func writeHeader(f *excelize.File, sheet string) error {
	header := headers[sheet]
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing %s header: %w", sheet, err)
	}
	return nil
}

// val unwraps optional DTO values; absent readings become empty cells.
func val[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
