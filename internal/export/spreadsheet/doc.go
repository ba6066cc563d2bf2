// Package spreadsheet keeps a daily XLSX workbook of normalized telemetry.
//
// Each day gets <dir>/dtu-<YYYY-MM-DD>.xlsx with one sheet per entity kind
// (Logger, Inverters, Panels, Meters). Every batch appends one row per
// entity and the workbook is saved after each batch, so the file on disk is
// always complete. A batch dated on a new day closes the previous workbook
// and starts the next; reopening an existing day's file appends to it.
package spreadsheet
