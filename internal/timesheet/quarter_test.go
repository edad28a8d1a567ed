package timesheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundToQuarter(t *testing.T) {
	expected := func(minutes int) int {
		tens, ones := minutes/10, minutes%10
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
		}
		if ones <= 3 {
			return 45
		}
		return 60
	}

	for minutes := 0; minutes < 60; minutes++ {
		assert.Equal(t, expected(minutes), RoundToQuarter(minutes), "minute %d", minutes)
	}
}

func TestRoundToQuarter_Boundaries(t *testing.T) {
	tests := []struct {
		minutes int
		want    int
	}{
		{0, 0},
		{7, 0},
		{8, 15},
		{19, 15},
		{23, 15},
		{24, 30},
		{37, 30},
		{38, 45},
		{49, 45},
		{53, 45},
		{54, 60},
		{58, 60},
		{59, 60},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundToQuarter(tt.minutes), "minute %d", tt.minutes)
	}
}

func TestMinutesToFraction(t *testing.T) {
	assert.Equal(t, 0, MinutesToFraction(0))
	assert.Equal(t, 25, MinutesToFraction(15))
	assert.Equal(t, 5, MinutesToFraction(30))
	assert.Equal(t, 75, MinutesToFraction(45))
	assert.Equal(t, 0, MinutesToFraction(20))
}

func TestHours_String(t *testing.T) {
	tests := []struct {
		hours Hours
		want  string
	}{
		{0, "0.0"},
		{1, "0.25"},
		{2, "0.5"},
		{3, "0.75"},
		{32, "8.0"},
		{33, "8.25"},
		{34, "8.5"},
		{35, "8.75"},
		{-2, "-0.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.hours.String())
	}
}

func TestHoursBetween(t *testing.T) {
	in := time.Date(2023, time.January, 9, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, Hours(32), HoursBetween(in, in.Add(8*time.Hour)))
	assert.Equal(t, Hours(33), HoursBetween(in, in.Add(8*time.Hour+15*time.Minute)))
	assert.Equal(t, 8.25, HoursBetween(in, in.Add(8*time.Hour+15*time.Minute)).Float64())
	assert.Equal(t, 90*time.Minute, Hours(6).Duration())
}
