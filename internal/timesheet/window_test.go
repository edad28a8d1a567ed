package timesheet

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnchorDate(t *testing.T) {
	t.Run("valid date", func(t *testing.T) {
		anchor, err := ParseAnchorDate("01/07/23", denver)

		require.NoError(t, err)
		assert.Equal(t, time.Date(2023, time.January, 7, 0, 0, 0, 0, denver), anchor)
	})

	for _, text := range []string{"", "1/7/23", "01-07-23", "01/07", "01/07/2023", "aa/07/23", "13/01/23", "02/30/23", "-1/07/23"} {
		t.Run("rejects "+text, func(t *testing.T) {
			_, err := ParseAnchorDate(text, denver)

			assert.True(t, errors.Is(err, ErrInvalidAnchorDate), "got %v", err)
		})
	}
}

func TestNewPayPeriod(t *testing.T) {
	// 01/07/23 is a Saturday
	anchor := time.Date(2023, time.January, 7, 0, 0, 0, 0, denver)

	period := NewPayPeriod(anchor)

	assert.Equal(t, anchor, period.Start)
	assert.Equal(t, time.Date(2023, time.January, 13, 0, 0, 0, 0, denver), period.WeekOneEnd)
	assert.Equal(t, time.Date(2023, time.January, 14, 0, 0, 0, 0, denver), period.WeekTwoStart)
	assert.Equal(t, time.Date(2023, time.January, 20, 0, 0, 0, 0, denver), period.End)
	assert.Equal(t, time.Friday, period.End.Weekday())
}

func TestNewPayPeriod_LengthInvariant(t *testing.T) {
	// every anchor of a year, including both DST switches
	anchor := time.Date(2023, time.January, 1, 0, 0, 0, 0, denver)
	for i := 0; i < 366; i++ {
		period := NewPayPeriod(anchor.AddDate(0, 0, i))

		assert.Equal(t, period.Start.AddDate(0, 0, 6), period.WeekOneEnd)
		assert.Equal(t, period.Start.AddDate(0, 0, 13), period.End)
		assert.Equal(t, 6, daysBetween(period.Start, period.WeekOneEnd))
		assert.Equal(t, 13, daysBetween(period.Start, period.End))
	}
}

func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func TestPayPeriod_Classify(t *testing.T) {
	period := NewPayPeriod(time.Date(2023, time.January, 7, 0, 0, 0, 0, denver))

	tests := []struct {
		name string
		at   time.Time
		want Position
	}{
		{"day before the period", time.Date(2023, time.January, 6, 23, 59, 0, 0, denver), Before},
		{"first minute of the period", time.Date(2023, time.January, 7, 0, 0, 0, 0, denver), WeekOne},
		{"last day of week one", time.Date(2023, time.January, 13, 23, 59, 0, 0, denver), WeekOne},
		{"first day of week two", time.Date(2023, time.January, 14, 0, 0, 0, 0, denver), WeekTwo},
		{"last day of the period", time.Date(2023, time.January, 20, 18, 0, 0, 0, denver), WeekTwo},
		{"day after the period", time.Date(2023, time.January, 21, 0, 0, 0, 0, denver), After},
		{"utc time compared in the period zone", time.Date(2023, time.January, 14, 3, 0, 0, 0, time.UTC), WeekOne},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, period.Classify(tt.at))
		})
	}

	assert.True(t, period.Contains(time.Date(2023, time.January, 10, 12, 0, 0, 0, denver)))
	assert.False(t, period.Contains(time.Date(2023, time.January, 25, 12, 0, 0, 0, denver)))
}

func TestPayPeriod_Weeks(t *testing.T) {
	period := NewPayPeriod(time.Date(2023, time.January, 7, 0, 0, 0, 0, denver))

	weeks := period.Weeks()

	assert.Equal(t, 1, weeks[0].Number)
	assert.Equal(t, period.Start, weeks[0].Start)
	assert.Equal(t, period.WeekOneEnd, weeks[0].End)
	assert.Equal(t, 2, weeks[1].Number)
	assert.Equal(t, period.WeekTwoStart, weeks[1].Start)
	assert.Equal(t, period.End, weeks[1].End)
}
