package timesheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidAnchorDate = errors.New("anchor date must be MM/DD/YY")

// Position of a date relative to a pay period.
type Position int

const (
	Before Position = iota
	WeekOne
	WeekTwo
	After
)

func (p Position) String() string {
	switch p {
	case Before:
		return "before"
	case WeekOne:
		return "week 1"
	case WeekTwo:
		return "week 2"
	default:
		return "after"
	}
}

// ParseAnchorDate parses a pay period start given as MM/DD/YY.
func ParseAnchorDate(text string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(text), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidAnchorDate, text)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		if len(p) != 2 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidAnchorDate, text)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidAnchorDate, text)
		}
		nums[i] = n
	}

	// two-digit years follow time.Parse: 69-99 are 19xx, 00-68 are 20xx
	year := 2000 + nums[2]
	if nums[2] >= 69 {
		year = 1900 + nums[2]
	}
	t := time.Date(year, time.Month(nums[0]), nums[1], 0, 0, 0, 0, loc)
	if int(t.Month()) != nums[0] || t.Day() != nums[1] {
		return time.Time{}, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidAnchorDate, text)
	}
	return t, nil
}

// Week is one of the two seven-day halves of a pay period, both ends inclusive.
type Week struct {
	Number int
	Start  time.Time
	End    time.Time
}

// PayPeriod is a fourteen day window starting at the anchor date.
type PayPeriod struct {
	Start        time.Time
	WeekOneEnd   time.Time
	WeekTwoStart time.Time
	End          time.Time
}

func NewPayPeriod(anchor time.Time) PayPeriod {
	start := startOfDay(anchor)
	return PayPeriod{
		Start:        start,
		WeekOneEnd:   start.AddDate(0, 0, 6),
		WeekTwoStart: start.AddDate(0, 0, 7),
		End:          start.AddDate(0, 0, 13),
	}
}

// Classify places the calendar date of t, taken in the period's location.
func (p PayPeriod) Classify(t time.Time) Position {
	day := startOfDay(t.In(p.Start.Location()))
	switch {
	case between(p.Start, p.WeekOneEnd, day):
		return WeekOne
	case between(p.WeekTwoStart, p.End, day):
		return WeekTwo
	case day.Before(p.Start):
		return Before
	default:
		return After
	}
}

// Contains reports whether t falls in either week.
func (p PayPeriod) Contains(t time.Time) bool {
	pos := p.Classify(t)
	return pos == WeekOne || pos == WeekTwo
}

func (p PayPeriod) Weeks() [2]Week {
	return [2]Week{
		{Number: 1, Start: p.Start, End: p.WeekOneEnd},
		{Number: 2, Start: p.WeekTwoStart, End: p.End},
	}
}

// between is inclusive on both ends: the bounds are widened by a day so a
// date sitting exactly on a bound at midnight is not excluded.
func between(lo, hi, day time.Time) bool {
	return day.After(lo.AddDate(0, 0, -1)) && day.Before(hi.AddDate(0, 0, 1))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
