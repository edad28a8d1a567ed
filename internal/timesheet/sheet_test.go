package timesheet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(month time.Month, day, hour, minute int) time.Time {
	return time.Date(2023, month, day, hour, minute, 0, 0, denver)
}

func channelHistory() []RawMessage {
	return []RawMessage{
		// newest first, the way channel history comes back
		clockMessage(alice, "is out at 04:30 PM", at(time.January, 16, 16, 31)),
		clockMessage(alice, "is in at 08:05 AM", at(time.January, 16, 8, 6)),
		clockMessage(bob, "is out at 5:00 PM", at(time.January, 9, 17, 1)),
		{ID: "chatter", Mentions: []Member{bob}, Content: "<@100> thanks for the tea", CreatedAt: at(time.January, 9, 12, 0)},
		{ID: "nomention", Content: "everyone is in at 9:00 AM", CreatedAt: at(time.January, 9, 9, 0)},
		clockMessage(bob, "is in at 9:00", at(time.January, 9, 8, 59)),
		clockMessage(bob, "is in at 08:58 AM", at(time.January, 9, 8, 58)),
		clockMessage(bob, "is in at 08:00 AM", at(time.January, 5, 8, 0)),
	}
}

func TestSheet_Build(t *testing.T) {
	sheet := NewSheet(defaultClassifier(), period)
	carol := Member{ID: "300", Name: "Carol"}

	// when
	reports, err := sheet.Build(context.Background(), channelHistory(), []Member{bob, carol})

	// then
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, []string{reports[0].Member.Name, reports[1].Member.Name, reports[2].Member.Name})

	aliceReport := reports[0]
	assert.Equal(t, Hours(0), aliceReport.Weeks[0].Subtotal)
	assert.Equal(t, "8.5", aliceReport.Weeks[1].Subtotal.String())
	assert.Equal(t, "8.5", aliceReport.Total.String())

	bobReport := reports[1]
	assert.Equal(t, Hours(32), bobReport.Total)
	require.Len(t, bobReport.Invalid, 1)
	assert.ErrorIs(t, bobReport.Invalid[0].Reason, ErrNoMeridiem)
	require.Len(t, bobReport.Entries, 3)
	assert.Equal(t, at(time.January, 9, 8, 58), bobReport.Entries[0].Message.CreatedAt)
	assert.Empty(t, bobReport.Orphans)

	carolReport := reports[2]
	assert.Equal(t, Hours(0), carolReport.Total)
	assert.Empty(t, carolReport.Entries)
	assert.False(t, carolReport.HasAnomalies())
}

func TestSheet_Build_Deterministic(t *testing.T) {
	sheet := NewSheet(defaultClassifier(), period)

	first, err := sheet.Build(context.Background(), channelHistory(), nil)
	require.NoError(t, err)
	second, err := sheet.Build(context.Background(), channelHistory(), nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSheet_Build_Cancelled(t *testing.T) {
	sheet := NewSheet(defaultClassifier(), period)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sheet.Build(ctx, channelHistory(), []Member{bob})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSheet_Build_Empty(t *testing.T) {
	sheet := NewSheet(defaultClassifier(), period)

	reports, err := sheet.Build(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestSheet_Clocks(t *testing.T) {
	sheet := NewSheet(defaultClassifier(), period)

	entries := sheet.Clocks(channelHistory(), bob)

	require.Len(t, entries, 3)
	assert.True(t, entries[0].Valid)
	assert.False(t, entries[1].Valid)
	assert.True(t, entries[2].Valid)
	for _, e := range entries {
		assert.Equal(t, WeekOne, e.Position)
	}
	assert.Empty(t, sheet.Clocks(channelHistory(), Member{ID: "404"}))
}
