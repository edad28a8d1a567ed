package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"timetracker/internal/config"
	"timetracker/internal/db/models"
	"timetracker/internal/timesheet"

	"github.com/bwmarrin/discordgo"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var denver, _ = time.LoadLocation("America/Denver")

func defaults() config.Tracker {
	return config.Tracker{
		Role:     config.DefaultRole,
		Timezone: config.DefaultTimezone,
		InWords:  config.DefaultInWords,
		OutWords: config.DefaultOutWords,
	}
}

func TestResolveSettings(t *testing.T) {
	t.Run("defaults without stored settings", func(t *testing.T) {
		settings := resolveSettings(defaults(), nil)

		assert.Equal(t, config.DefaultRole, settings.Role)
		assert.Equal(t, "America/Denver", settings.Location.String())
		assert.Equal(t, config.DefaultInWords, settings.InWords)
		assert.Equal(t, config.DefaultOutWords, settings.OutWords)
	})

	t.Run("stored overrides win", func(t *testing.T) {
		stored := &models.ServerSettings{
			TrackerRole: "Payroll",
			Timezone:    "Europe/London",
			InWords:     pq.StringArray{"start"},
			OutWords:    pq.StringArray{"stop"},
		}

		settings := resolveSettings(defaults(), stored)

		assert.Equal(t, "Payroll", settings.Role)
		assert.Equal(t, "Europe/London", settings.Location.String())
		assert.Equal(t, []string{"start"}, settings.InWords)
		assert.Equal(t, []string{"stop"}, settings.OutWords)
	})

	t.Run("unknown stored timezone falls back", func(t *testing.T) {
		settings := resolveSettings(defaults(), &models.ServerSettings{Timezone: "Mars/Olympus"})

		assert.Equal(t, "America/Denver", settings.Location.String())
		assert.Equal(t, config.DefaultRole, settings.Role)
	})
}

func TestParseWordList(t *testing.T) {
	assert.Equal(t, []string{"In", "Clocked in", "Back"}, parseWordList(" In, Clocked in ,,Back "))
	assert.Empty(t, parseWordList(" , "))
}

func pageOf(start int, count int, newest time.Time) []*discordgo.Message {
	msgs := make([]*discordgo.Message, 0, count)
	for n := 0; n < count; n++ {
		msgs = append(msgs, &discordgo.Message{
			ID:        strconv.Itoa(start + n),
			Timestamp: newest.Add(-time.Duration(n) * time.Hour),
			Author:    &discordgo.User{ID: "1", Username: "payroll"},
		})
	}
	return msgs
}

func TestFetchHistory(t *testing.T) {
	now := time.Date(2023, time.January, 20, 12, 0, 0, 0, time.UTC)

	t.Run("stops at the page limit", func(t *testing.T) {
		var befores []string
		pager := func(channelID, beforeID string) ([]*discordgo.Message, error) {
			befores = append(befores, beforeID)
			return pageOf(len(befores)*1000, historyPageSize, now), nil
		}

		history, err := fetchHistory(context.Background(), pager, "c", time.Time{}, 3)

		require.NoError(t, err)
		assert.Len(t, history, 3*historyPageSize)
		assert.Equal(t, []string{"", "1099", "2099"}, befores)
	})

	t.Run("stops once older than the window", func(t *testing.T) {
		calls := 0
		pager := func(channelID, beforeID string) ([]*discordgo.Message, error) {
			calls++
			return pageOf(calls*1000, historyPageSize, now), nil
		}

		history, err := fetchHistory(context.Background(), pager, "c", now.Add(-24*time.Hour), 5)

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Len(t, history, historyPageSize)
	})

	t.Run("stops on a short page", func(t *testing.T) {
		calls := 0
		pager := func(channelID, beforeID string) ([]*discordgo.Message, error) {
			calls++
			return pageOf(0, 10, now), nil
		}

		history, err := fetchHistory(context.Background(), pager, "c", time.Time{}, 5)

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Len(t, history, 10)
	})

	t.Run("returns pager errors", func(t *testing.T) {
		boom := errors.New("boom")
		pager := func(channelID, beforeID string) ([]*discordgo.Message, error) {
			return nil, boom
		}

		_, err := fetchHistory(context.Background(), pager, "c", time.Time{}, 5)

		assert.ErrorIs(t, err, boom)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := fetchHistory(ctx, nil, "c", time.Time{}, 5)

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func staticNames(nicks map[string]string) nameResolver {
	return func(u *discordgo.User) string {
		var member *discordgo.Member
		if nick, ok := nicks[u.ID]; ok {
			member = &discordgo.Member{Nick: nick}
		}
		return displayName(member, u)
	}
}

func TestToRawMessage(t *testing.T) {
	created := time.Date(2023, time.January, 9, 16, 5, 0, 0, time.UTC)
	msg := &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		Content:   "<@200> is in at 9:00 AM, thanks <@!300>",
		Timestamp: created,
		Author:    &discordgo.User{ID: "1", Username: "payroll"},
		Mentions: []*discordgo.User{
			{ID: "300", Username: "carol"},
			{ID: "200", Username: "bob"},
		},
	}

	raw := toRawMessage(msg, "g1", staticNames(map[string]string{"200": "Bobby"}))

	assert.Equal(t, "m1", raw.ID)
	assert.Equal(t, "g1", raw.GuildID)
	assert.Equal(t, "c1", raw.ChannelID)
	assert.Equal(t, "1", raw.AuthorID)
	assert.Equal(t, "payroll", raw.AuthorName)
	assert.Equal(t, created, raw.CreatedAt)
	require.Len(t, raw.Mentions, 2)
	first, ok := raw.Member()
	require.True(t, ok)
	assert.Equal(t, timesheet.Member{ID: "200", Name: "Bobby"}, first)
	assert.Equal(t, timesheet.Member{ID: "300", Name: "carol"}, raw.Mentions[1])
}

func TestToRawMessages_SkipsAuthorless(t *testing.T) {
	msgs := []*discordgo.Message{
		{ID: "a", Author: &discordgo.User{ID: "1", Username: "x"}},
		{ID: "b"},
	}

	raws := toRawMessages(msgs, "g", staticNames(nil))

	require.Len(t, raws, 1)
	assert.Equal(t, "a", raws[0].ID)
}

func TestOwnMessageIDs(t *testing.T) {
	msgs := []*discordgo.Message{
		{ID: "1", Author: &discordgo.User{ID: "bot"}},
		{ID: "2", Author: &discordgo.User{ID: "human"}},
		{ID: "3"},
		{ID: "4", Author: &discordgo.User{ID: "bot"}},
	}

	assert.Equal(t, []string{"1", "4"}, ownMessageIDs(msgs, "bot"))
}

func TestNeedsClockWarning(t *testing.T) {
	classifier := resolveSettings(defaults(), nil).classifier()
	bob := timesheet.Member{ID: "200", Name: "Bob"}
	alice := timesheet.Member{ID: "300", Name: "Alice"}

	tests := []struct {
		name     string
		content  string
		mentions []timesheet.Member
		want     bool
	}{
		{name: "valid clock", content: "<@200> is in at 9:00 AM", mentions: []timesheet.Member{bob}, want: false},
		{name: "missing meridiem", content: "<@200> is in at 9:00", mentions: []timesheet.Member{bob}, want: true},
		{name: "missing direction", content: "<@200> at 9:00 AM", mentions: []timesheet.Member{bob}, want: false},
		{name: "unknown word with clock word inside", content: "<@200> is online at 9:00", mentions: []timesheet.Member{bob}, want: true},
		{name: "no colon", content: "<@200> is out at 5pm", mentions: []timesheet.Member{bob}, want: false},
		{name: "no mention", content: "in at 9:00", want: false},
		{name: "two mentions", content: "<@200> <@300> in at 9:00", mentions: []timesheet.Member{bob, alice}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := timesheet.RawMessage{
				Content:   tt.content,
				Mentions:  tt.mentions,
				CreatedAt: time.Date(2023, time.January, 9, 16, 0, 0, 0, time.UTC),
			}

			assert.Equal(t, tt.want, needsClockWarning(classifier, msg, denver))
		})
	}
}

func TestIsAdmin(t *testing.T) {
	assert.False(t, isAdmin(nil))
	assert.False(t, isAdmin(&discordgo.Member{Permissions: discordgo.PermissionViewChannel}))
	assert.True(t, isAdmin(&discordgo.Member{Permissions: discordgo.PermissionManageServer}))
	assert.True(t, isAdmin(&discordgo.Member{Permissions: discordgo.PermissionAdministrator}))
}

func TestHasRole(t *testing.T) {
	guild := &discordgo.Guild{Roles: []*discordgo.Role{
		{ID: "r1", Name: "Tracker"},
		{ID: "r2", Name: "Staff"},
	}}

	assert.True(t, hasRole(guild, &discordgo.Member{Roles: []string{"r2", "r1"}}, "tracker"))
	assert.False(t, hasRole(guild, &discordgo.Member{Roles: []string{"r2"}}, "Tracker"))
	assert.False(t, hasRole(guild, &discordgo.Member{Roles: []string{"r1"}}, ""))
	assert.False(t, hasRole(nil, &discordgo.Member{Roles: []string{"r1"}}, "Tracker"))
}

func TestAnomalyRecords(t *testing.T) {
	period := timesheet.NewPayPeriod(time.Date(2023, time.January, 7, 0, 0, 0, 0, denver))
	bob := timesheet.Member{ID: "200", Name: "Bob"}
	at := time.Date(2023, time.January, 9, 9, 0, 0, 0, denver)
	single := timesheet.ClockEvent{
		Direction: timesheet.In,
		At:        at,
		Member:    bob,
		Source:    timesheet.RawMessage{ID: "s", AuthorName: "payroll", Content: "<@200> in 9:00 AM", CreatedAt: at},
	}
	bad := timesheet.RawMessage{ID: "i", AuthorName: "payroll", Content: "<@200> in 9", CreatedAt: at.Add(time.Hour)}
	report := timesheet.BuildReport(period, bob, []timesheet.ClockEvent{single},
		[]timesheet.InvalidClock{{Message: bad, Reason: timesheet.ErrNoMeridiem}})

	records := anomalyRecords([]timesheet.MemberReport{report})

	require.Len(t, records, 2)
	assert.Equal(t, models.AnomalyInvalid, records[0].Kind)
	assert.Equal(t, "i", records[0].MessageID)
	assert.Equal(t, timesheet.ErrNoMeridiem.Error(), records[0].Reason)
	assert.Equal(t, models.AnomalySingle, records[1].Kind)
	assert.Equal(t, "s", records[1].MessageID)
	assert.Equal(t, "missing clock out", records[1].Reason)
	assert.Equal(t, "Bob", records[1].MemberName)
	assert.Equal(t, "payroll", records[1].Author)
	assert.Equal(t, at, records[1].PostedAt)
}

func TestLogLink(t *testing.T) {
	assert.Empty(t, logLink("", "g", "c"))
	assert.Equal(t, "https://logs.example.com/logs/g/c", logLink("https://logs.example.com/", "g", "c"))
}

func TestClocksText(t *testing.T) {
	period := timesheet.NewPayPeriod(time.Date(2023, time.January, 7, 0, 0, 0, 0, denver))
	bob := timesheet.Member{ID: "200", Name: "Bob"}
	at := time.Date(2023, time.January, 16, 9, 1, 0, 0, denver)
	entries := []timesheet.Entry{{
		Message: timesheet.RawMessage{
			AuthorName: "payroll",
			Mentions:   []timesheet.Member{bob},
			Content:    "<@200> in 9:00 AM",
			CreatedAt:  at,
		},
		Position: timesheet.WeekTwo,
		Valid:    true,
	}}

	text := clocksText(bob, "clocks", period, entries, config.DefaultTimestampFormat)

	assert.True(t, strings.HasPrefix(text, "__**Bob** (clocks):__\n\n"))
	assert.Contains(t, text, "01/07/23 (Saturday) to 01/13/23 (Friday):\n\nN/A\n\n")
	assert.Contains(t, text, "01/14/23 (Saturday) to 01/20/23 (Friday):\n\n01/16/23 (Mon) @ 09:01 AM | payroll: @Bob in 9:00 AM")
}

func TestHelpText(t *testing.T) {
	help := helpText()
	for _, cmd := range commands {
		assert.Contains(t, help, "/"+cmd.Name)
	}
	assert.Contains(t, help, "@Name is in/out at XX:XX AM/PM")
	assert.True(t, dmAllowedCommands["timetracker"])
}
