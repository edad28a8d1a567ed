package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"timetracker/internal/timesheet"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const clockFormatHint = "That clock in/out may be incorrect! Please check that it is in the format:\n" +
	"@Name is in/out at XX:XX AM/PM"

var (
	commands = []*discordgo.ApplicationCommand{
		{
			Name:        "times",
			Description: "DM yourself the hours of every member for a pay period",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "date",
					Description: "First day of the pay period (mm/dd/yy)",
					Required:    true,
				},
			},
		},
		{
			Name:        "clocks",
			Description: "DM yourself the clocks of a member for a pay period",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "Member whose clocks to list",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "date",
					Description: "First day of the pay period (mm/dd/yy)",
					Required:    true,
				},
			},
		},
		{
			Name:        "clear",
			Description: "Delete the bot's messages in this channel",
		},
		{
			Name:        "timetracker",
			Description: "List the time tracker commands",
		},
		{
			Name:                     "settings",
			Description:              "Show or change the time tracker settings of this server (admin only)",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "show",
					Description: "Show the current settings",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "words",
					Description: "Set the clock in and clock out words",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "in",
							Description: "Comma separated clock in words (e.g. In, On, Back)",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "out",
							Description: "Comma separated clock out words (e.g. Out, Off)",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "role",
					Description: "Set the role allowed to use /times",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "Role name",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "timezone",
					Description: "Set the time zone clocks are read in",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "zone",
							Description: "Timezone (e.g., America/Denver, Europe/London)",
							Required:    true,
						},
					},
				},
			},
		},
	}

	// Permission for admin commands (Manage Server permission)
	adminPermission = int64(discordgo.PermissionManageServer)
)

// helpText lists the commands for /timetracker.
func helpText() string {
	return "__**Commands:**__\n```" +
		"/clear | Clears all messages from the bot in the channel the command was sent from.\n" +
		"/clocks @name mm/dd/yy | Sends you the clocks of the mentioned member.\n" +
		"/times mm/dd/yy | Sends you the clocks and times of all members.\n" +
		"/settings | Shows or changes the clock words, tracker role and time zone.\n" +
		"/timetracker | Sends you this list of commands.\n" +
		"```\nClocks look like: @Name is in/out at XX:XX AM/PM"
}

func (b *Bot) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondWithSuccess(s, i, helpText())
}

// needsClockWarning reports whether msg looks like a clock for a single member
// but cannot be read as one.
func needsClockWarning(c *timesheet.Classifier, msg timesheet.RawMessage, loc *time.Location) bool {
	if len(msg.Mentions) != 1 || !c.MentionsClockWord(msg.Content) || !strings.Contains(msg.Content, ":") {
		return false
	}
	_, err := c.Classify(msg, loc)
	return err != nil
}

// isAdmin reports whether the member may manage the server.
func isAdmin(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	return member.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0
}

// hasRole reports whether the member holds a guild role named roleName.
func hasRole(guild *discordgo.Guild, member *discordgo.Member, roleName string) bool {
	if guild == nil || member == nil || roleName == "" {
		return false
	}
	for _, roleID := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID == roleID && strings.EqualFold(role.Name, roleName) {
				return true
			}
		}
	}
	return false
}

// canReport reports whether the invoker may run /times.
func (b *Bot) canReport(s *discordgo.Session, i *discordgo.InteractionCreate, roleName string) bool {
	if isAdmin(i.Member) {
		return true
	}
	guild, err := s.State.Guild(i.GuildID)
	if err != nil {
		if guild, err = s.Guild(i.GuildID); err != nil {
			log.Printf("Error getting guild: %v", err)
			return false
		}
	}
	return hasRole(guild, i.Member, roleName)
}

// handleClear deletes the bot's own messages from the recent channel history.
func (b *Bot) handleClear(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	logger := guildLogger(i.GuildID, getServerName(s, i.GuildID), interactionUsername(i))

	history, err := fetchHistory(ctx, sessionPager(s), i.ChannelID, time.Time{}, b.config.Tracker.MessageRecall)
	if err != nil {
		logger.Errorf("Error reading channel history: %v", err)
		respondWithError(s, i, "Could not read the channel history")
		return
	}

	ids := ownMessageIDs(history, s.State.User.ID)
	deleted := 0
	for _, id := range ids {
		if err := s.ChannelMessageDelete(i.ChannelID, id); err != nil {
			logger.Warnf("Failed to delete message %s: %v", id, err)
			continue
		}
		deleted++
	}

	logger.Infof("Deleted %d of %d bot messages", deleted, len(ids))
	respondWithSuccess(s, i, fmt.Sprintf("Deleted %d messages.", deleted))
}

func (b *Bot) handleSettings(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !isAdmin(i.Member) {
		respondWithError(s, i, "You do not have permissions to use this command.")
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		respondWithError(s, i, "Invalid command options")
		return
	}
	subcommand := options[0]
	args := commandOptions(subcommand.Options)
	logger := guildLogger(i.GuildID, getServerName(s, i.GuildID), interactionUsername(i))

	// Updates only touch an existing row.
	if _, err := b.db.GetOrCreateServerSettings(ctx, i.GuildID, b.config.Tracker); err != nil {
		logger.Errorf("Error loading settings: %v", err)
		respondWithError(s, i, "Could not load the settings")
		return
	}

	var err error
	switch subcommand.Name {
	case "show":
		respondWithSuccess(s, i, formatSettings(b.settingsFor(ctx, i.GuildID)))
		return
	case "words":
		inWords, outWords := parseWordList(args["in"].StringValue()), parseWordList(args["out"].StringValue())
		if len(inWords) == 0 || len(outWords) == 0 {
			respondWithError(s, i, "Both word lists need at least one word")
			return
		}
		err = b.db.UpdateClockWords(ctx, i.GuildID, inWords, outWords)
	case "role":
		role := strings.TrimSpace(args["name"].StringValue())
		if role == "" {
			respondWithError(s, i, "Role name cannot be empty")
			return
		}
		err = b.db.UpdateTrackerRole(ctx, i.GuildID, role)
	case "timezone":
		zone := strings.TrimSpace(args["zone"].StringValue())
		if _, lerr := time.LoadLocation(zone); lerr != nil || zone == "" {
			respondWithError(s, i, "Invalid timezone. Please use a valid IANA timezone name (e.g., America/Denver)")
			return
		}
		err = b.db.UpdateTimezone(ctx, i.GuildID, zone)
	default:
		respondWithError(s, i, "Unknown subcommand")
		return
	}

	if err != nil {
		logger.Errorf("Error updating settings: %v", err)
		respondWithError(s, i, "Could not save the settings")
		return
	}

	b.forgetSettings(i.GuildID)
	respondWithSuccess(s, i, "Settings updated.\n"+formatSettings(b.settingsFor(ctx, i.GuildID)))
}

func formatSettings(settings guildSettings) string {
	return fmt.Sprintf("Tracker role: %s\nTime zone: %s\nIn words: %s\nOut words: %s",
		settings.Role,
		settings.Location,
		strings.Join(settings.InWords, ", "),
		strings.Join(settings.OutWords, ", "),
	)
}
