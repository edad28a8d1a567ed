package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"timetracker/internal/db/models"
	"timetracker/internal/present"
	"timetracker/internal/timesheet"

	"github.com/bwmarrin/discordgo"
)

// handleTimes DMs the invoker the timesheet of every member who clocked in
// the channel during the requested pay period.
func (b *Bot) handleTimes(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	serverName := getServerName(s, i.GuildID)
	logger := guildLogger(i.GuildID, serverName, user.Username)
	settings := b.settingsFor(ctx, i.GuildID)

	if !b.canReport(s, i, settings.Role) {
		respondWithError(s, i, "You do not have permissions to use this command.")
		return
	}

	args := commandOptions(i.ApplicationCommandData().Options)
	anchor, err := timesheet.ParseAnchorDate(args["date"].StringValue(), settings.Location)
	if err != nil {
		respondWithError(s, i, "Usage: /times mm/dd/yy")
		return
	}
	period := timesheet.NewPayPeriod(anchor)

	history, err := fetchHistory(ctx, sessionPager(s), i.ChannelID, period.Start, b.config.Tracker.MessageRecall)
	if err != nil {
		logger.Errorf("Error reading channel history: %v", err)
		respondWithError(s, i, "Could not read the channel history")
		return
	}
	messages := toRawMessages(history, i.GuildID, guildNames(s, i.GuildID))

	sheet := timesheet.NewSheet(settings.classifier(), period)
	reports, err := sheet.Build(ctx, messages, nil)
	if err != nil {
		logger.Errorf("Error building timesheets: %v", err)
		respondWithError(s, i, "Could not build the timesheets")
		return
	}
	if len(reports) == 0 {
		respondWithSuccess(s, i, "No clocks found for that pay period.")
		return
	}

	channel := channelName(s, i.ChannelID)
	logURL := ""
	run := &models.AnomalyRun{
		ServerID:    i.GuildID,
		ChannelID:   i.ChannelID,
		ChannelName: channel,
		PeriodStart: period.Start,
		RequestedBy: user.Username,
	}
	if err := b.db.SaveAnomalyLog(ctx, run, anomalyRecords(reports)); err != nil {
		logger.Errorf("Error saving anomaly log: %v", err)
	} else {
		logURL = logLink(b.config.Tracker.LogURL, i.GuildID, i.ChannelID)
	}

	var chunks []string
	for _, report := range reports {
		text := present.MemberText(report, channel, logURL, b.config.Tracker.TimestampFormat, settings.Location)
		chunks = append(chunks, present.Split(text, present.MessageLimit)...)
	}
	dmChannelID, err := sendDM(s, user.ID, chunks)
	if err != nil {
		logger.Errorf("Error sending timesheets: %v", err)
		respondWithError(s, i, "Could not send you a DM. Check that direct messages are allowed.")
		return
	}

	if err := sendSummary(s, dmChannelID, reports, period); err != nil {
		logger.Warnf("Error sending CSV summary: %v", err)
	}

	logger.Infof("Sent %d timesheets for the period starting %s", len(reports), period.Start.Format("01/02/06"))
	respondWithSuccess(s, i, fmt.Sprintf("Sent %d timesheets to your DMs.", len(reports)))
}

// handleClocks DMs the invoker the clock messages of one member.
func (b *Bot) handleClocks(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	logger := guildLogger(i.GuildID, getServerName(s, i.GuildID), user.Username)
	settings := b.settingsFor(ctx, i.GuildID)

	args := commandOptions(i.ApplicationCommandData().Options)
	target := args["member"].UserValue(s)
	anchor, err := timesheet.ParseAnchorDate(args["date"].StringValue(), settings.Location)
	if target == nil || err != nil {
		respondWithError(s, i, "Usage: /clocks @name mm/dd/yy")
		return
	}
	period := timesheet.NewPayPeriod(anchor)

	history, err := fetchHistory(ctx, sessionPager(s), i.ChannelID, period.Start, b.config.Tracker.MessageRecall)
	if err != nil {
		logger.Errorf("Error reading channel history: %v", err)
		respondWithError(s, i, "Could not read the channel history")
		return
	}
	names := guildNames(s, i.GuildID)
	messages := toRawMessages(history, i.GuildID, names)
	member := timesheet.Member{ID: target.ID, Name: names(target)}

	entries := timesheet.NewSheet(settings.classifier(), period).Clocks(messages, member)
	text := clocksText(member, channelName(s, i.ChannelID), period, entries, b.config.Tracker.TimestampFormat)

	if _, err := sendDM(s, user.ID, present.Split(text, present.MessageLimit)); err != nil {
		logger.Errorf("Error sending clocks: %v", err)
		respondWithError(s, i, "Could not send you a DM. Check that direct messages are allowed.")
		return
	}
	respondWithSuccess(s, i, fmt.Sprintf("Sent the clocks of %s to your DMs.", member.Name))
}

// clocksText renders the /clocks reply, listing each week's clocks in turn.
func clocksText(member timesheet.Member, channel string, period timesheet.PayPeriod, entries []timesheet.Entry, layout string) string {
	loc := period.Start.Location()
	var b strings.Builder
	fmt.Fprintf(&b, "__**%s** (%s):__\n\n", member.Name, channel)
	for _, week := range period.Weeks() {
		position := timesheet.WeekOne
		if week.Number == 2 {
			position = timesheet.WeekTwo
		}
		var inWeek []timesheet.Entry
		for _, e := range entries {
			if e.Position == position {
				inWeek = append(inWeek, e)
			}
		}
		fmt.Fprintf(&b, "%s to %s:\n\n%s\n\n",
			week.Start.Format("01/02/06 (Monday)"), week.End.Format("01/02/06 (Monday)"),
			present.ClockList(inWeek, layout, loc))
	}
	return strings.TrimRight(b.String(), "\n")
}

// sendSummary attaches the CSV summary of all reports to the DM channel.
func sendSummary(s *discordgo.Session, channelID string, reports []timesheet.MemberReport, period timesheet.PayPeriod) error {
	data, err := present.CSV(reports)
	if err != nil {
		return err
	}
	_, err = s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: "Summary",
		Files: []*discordgo.File{{
			Name:        fmt.Sprintf("timesheet_%s.csv", period.Start.Format("2006-01-02")),
			ContentType: "text/csv",
			Reader:      bytes.NewReader(data),
		}},
	})
	return err
}

// anomalyRecords flattens the invalid and single clocks of all reports.
func anomalyRecords(reports []timesheet.MemberReport) []models.Anomaly {
	var out []models.Anomaly
	for _, r := range reports {
		for _, inv := range r.Invalid {
			out = append(out, anomalyRecord(r.Member, models.AnomalyInvalid, fmt.Sprint(inv.Reason), inv.Message))
		}
		for _, o := range r.Orphans {
			out = append(out, anomalyRecord(r.Member, models.AnomalySingle, o.Reason.String(), o.Event.Source))
		}
	}
	return out
}

func anomalyRecord(member timesheet.Member, kind models.AnomalyKind, reason string, msg timesheet.RawMessage) models.Anomaly {
	return models.Anomaly{
		MemberID:   member.ID,
		MemberName: member.Name,
		Kind:       kind,
		Reason:     reason,
		MessageID:  msg.ID,
		Author:     msg.AuthorName,
		Content:    msg.Content,
		PostedAt:   msg.CreatedAt,
	}
}

// logLink is the log server page of a channel, or empty without a base URL.
func logLink(base, guildID, channelID string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/logs/" + guildID + "/" + channelID
}

func channelName(s *discordgo.Session, channelID string) string {
	if s.State != nil {
		if c, err := s.State.Channel(channelID); err == nil {
			return c.Name
		}
	}
	if c, err := s.Channel(channelID); err == nil {
		return c.Name
	}
	return channelID
}
