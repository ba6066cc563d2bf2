// Package normalize converts raw telemetry readings into display-ready DTOs.
//
// Every function here is pure: the same reading and location always give the
// same DTO. Conversion rules:
//
//   - power in W is rounded to 1 decimal; kW is W/1000 rounded to 3 decimals
//   - energy in Wh passes through; kWh is Wh/1000 rounded to 3 decimals
//   - power factor is raw x 10 (raw 82 becomes 820)
//   - epoch seconds become calendar time in the configured location
//
// Rounding is half away from zero. Values that cannot be trusted (NaN, Inf,
// negative energy, a raw power factor beyond +/-100) are absent: nil
// pointers that encode as JSON null, never 0.
package normalize
