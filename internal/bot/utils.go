package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// guildLogger returns a logger tagged with the guild and the acting user.
func guildLogger(guildID, serverName, user string) *log.Entry {
	return log.WithFields(log.Fields{
		"guild_id": guildID,
		"server":   serverName,
		"user":     user,
	})
}

// getServerName returns the guild name from the state cache, falling back to
// the API. Direct messages have no guild.
func getServerName(s *discordgo.Session, guildID string) string {
	if guildID == "" {
		return "DM"
	}
	if s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil {
			return g.Name
		}
	}
	if g, err := s.Guild(guildID); err == nil {
		return g.Name
	}
	return guildID
}

// interactionUser returns the invoking user in both guild and DM contexts.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func interactionUsername(i *discordgo.InteractionCreate) string {
	if u := interactionUser(i); u != nil {
		return u.Username
	}
	return "unknown"
}

// respond replaces the deferred ephemeral reply of an interaction.
func respond(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &msg}); err != nil {
		log.Printf("Error responding to interaction: %v", err)
	}
}

func respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, errMsg string) {
	respond(s, i, "Error: "+errMsg)
}

func respondWithSuccess(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	respond(s, i, msg)
}

// logCommand logs a command invocation with its options.
func logCommand(s *discordgo.Session, i *discordgo.InteractionCreate, commandName string) {
	var params []string
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionSubCommand:
			params = append(params, opt.Name)
			for _, subOpt := range opt.Options {
				params = append(params, fmt.Sprintf("%s:%v", subOpt.Name, subOpt.Value))
			}
		default:
			params = append(params, fmt.Sprintf("%s:%v", opt.Name, opt.Value))
		}
	}

	entry := guildLogger(i.GuildID, getServerName(s, i.GuildID), interactionUsername(i))
	if len(params) > 0 {
		entry = entry.WithField("options", strings.Join(params, ", "))
	}
	entry.Infof("executed /%s", commandName)
}

// sendDM sends text to a user's DM channel, split to fit the message limit.
func sendDM(s *discordgo.Session, userID string, chunks []string) (string, error) {
	channel, err := s.UserChannelCreate(userID)
	if err != nil {
		return "", fmt.Errorf("error opening DM channel: %w", err)
	}
	for _, chunk := range chunks {
		if _, err := s.ChannelMessageSend(channel.ID, chunk); err != nil {
			return channel.ID, fmt.Errorf("error sending DM: %w", err)
		}
	}
	return channel.ID, nil
}

// commandOptions indexes the options of a command or subcommand by name.
func commandOptions(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		out[opt.Name] = opt
	}
	return out
}
