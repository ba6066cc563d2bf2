package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// maxRawPowerFactor bounds the raw power factor (one implied decimal).
const maxRawPowerFactor = 100

// Round1 rounds v to 1 decimal place, half away from zero.
func Round1(v float64) float64 {
	return roundDecimal(v, 0, 1)
}

// Round3 rounds v to 3 decimal places, half away from zero.
func Round3(v float64) float64 {
	return roundDecimal(v, 0, 3)
}

// roundDecimal returns v*10^shift rounded half away from zero to places
// decimals. It works on the shortest decimal form of v, so 500.5 scaled by
// 10^-3 rounds to 0.501 even though 0.5005 has no exact binary form.
func roundDecimal(v float64, shift, places int) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}

	// d.ddde±XX
	mant, expStr, _ := strings.Cut(strconv.FormatFloat(math.Abs(v), 'e', -1, 64), "e")
	exp, err := strconv.Atoi(expStr)
	if err != nil {
		return v
	}
	digits := []byte(strings.Replace(mant, ".", "", 1))

	// |v|*10^shift == 0.<digits> * 10^point
	point := exp + 1 + shift
	keep := point + places
	if keep < 0 {
		return 0
	}
	if keep < len(digits) {
		up := digits[keep] >= '5'
		digits = digits[:keep]
		if up {
			i := len(digits) - 1
			for ; i >= 0 && digits[i] == '9'; i-- {
				digits[i] = '0'
			}
			if i >= 0 {
				digits[i]++
			} else {
				digits = append([]byte{'1'}, digits...)
				point++
			}
		}
	}
	if len(digits) == 0 {
		return 0
	}

	r, err := strconv.ParseFloat("0."+string(digits)+"e"+strconv.Itoa(point), 64)
	if err != nil {
		return v
	}
	if v < 0 {
		r = -r
	}
	return r
}

func finite(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

// watts returns v rounded to 1 decimal.
func watts(v *float64) *float64 {
	f, ok := finite(v)
	if !ok {
		return nil
	}
	r := Round1(f)
	return &r
}

// kilowatts returns v/1000 rounded to 3 decimals.
func kilowatts(v *float64) *float64 {
	f, ok := finite(v)
	if !ok {
		return nil
	}
	r := roundDecimal(f, -3, 3)
	return &r
}

// display rounds a value shown as-is (V, A, Hz, °C, var) to 1 decimal.
func display(v *float64) *float64 {
	return watts(v)
}

// wattHours passes an energy value through unchanged.
func wattHours(v *float64) *float64 {
	f, ok := finite(v)
	if !ok || f < 0 {
		return nil
	}
	return &f
}

// kilowattHours returns Wh/1000 rounded to 3 decimals.
func kilowattHours(v *float64) *float64 {
	f, ok := finite(v)
	if !ok || f < 0 {
		return nil
	}
	r := roundDecimal(f, -3, 3)
	return &r
}

// powerFactor scales the raw value up by 10.
func powerFactor(raw *int) *int {
	if raw == nil || *raw > maxRawPowerFactor || *raw < -maxRawPowerFactor {
		return nil
	}
	pf := *raw * 10
	return &pf
}

// epochTime converts whole seconds since the Unix epoch. Zero and negative
// values are absent.
func epochTime(sec int64, loc *time.Location) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).In(location(loc))
	return &t
}

// calendarTime re-expresses t in loc. The zero time is absent.
func calendarTime(t time.Time, loc *time.Location) *time.Time {
	if t.IsZero() {
		return nil
	}
	c := t.In(location(loc))
	return &c
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
