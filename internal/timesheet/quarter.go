package timesheet

import (
	"fmt"
	"time"
)

const quarterHour = 15 * time.Minute

// RoundToQuarter snaps a minute value (0-59) to 0, 15, 30, 45 or 60.
// A result of 60 means the caller has to carry one hour and reset the minutes.
func RoundToQuarter(minutes int) int {
	tens := minutes / 10
	ones := minutes % 10

	switch tens {
	case 0:
		if ones <= 7 {
			return 0
		}
		return 15
	case 1:
		return 15
	case 2:
		if ones <= 3 {
			return 15
		}
		return 30
	case 3:
		if ones <= 7 {
			return 30
		}
		return 45
	case 4:
		return 45
	default:
		if ones <= 3 {
			return 45
		}
		return 60
	}
}

// MinutesToFraction maps a rounded quarter to the decimal digits used in
// report text: 15 -> 25, 30 -> 5, 45 -> 75.
func MinutesToFraction(quarter int) int {
	switch quarter {
	case 15:
		return 25
	case 30:
		return 5
	case 45:
		return 75
	default:
		return 0
	}
}

// Hours is an amount of worked time counted in quarter hours.
type Hours int

// HoursBetween returns the quarter hours from in to out, truncated.
func HoursBetween(in, out time.Time) Hours {
	return Hours(out.Sub(in) / quarterHour)
}

// Float64 returns h as decimal hours.
func (h Hours) Float64() float64 {
	return float64(h) / 4
}

// Duration returns h as a time.Duration.
func (h Hours) Duration() time.Duration {
	return time.Duration(h) * quarterHour
}

// String renders h the way reports have always shown it: "8.0", "8.25", "8.5", "8.75".
func (h Hours) String() string {
	sign := ""
	if h < 0 {
		sign = "-"
		h = -h
	}
	return fmt.Sprintf("%s%d.%d", sign, int(h)/4, MinutesToFraction(int(h)%4*15))
}
