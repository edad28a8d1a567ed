package bot

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"timetracker/internal/timesheet"

	"github.com/bwmarrin/discordgo"
)

// historyPageSize is the most messages Discord returns per request.
const historyPageSize = 100

// messagePager returns up to one page of messages older than beforeID,
// newest first. An empty beforeID starts at the latest message.
type messagePager func(channelID, beforeID string) ([]*discordgo.Message, error)

func sessionPager(s *discordgo.Session) messagePager {
	return func(channelID, beforeID string) ([]*discordgo.Message, error) {
		return s.ChannelMessages(channelID, historyPageSize, beforeID, "", "")
	}
}

// fetchHistory reads at most pages pages of channel history, stopping early
// once a page reaches messages older than since.
func fetchHistory(ctx context.Context, next messagePager, channelID string, since time.Time, pages int) ([]*discordgo.Message, error) {
	var (
		history  []*discordgo.Message
		beforeID string
	)
	for page := 0; page < pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgs, err := next(channelID, beforeID)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			break
		}
		history = append(history, msgs...)

		oldest := msgs[len(msgs)-1]
		if oldest.Timestamp.Before(since) || len(msgs) < historyPageSize {
			break
		}
		beforeID = oldest.ID
	}
	return history, nil
}

// nameResolver returns the display name of a user in the guild being reported.
type nameResolver func(u *discordgo.User) string

// guildNames resolves nicknames through the state cache, then the API, and
// remembers every lookup.
func guildNames(s *discordgo.Session, guildID string) nameResolver {
	names := make(map[string]string)
	return func(u *discordgo.User) string {
		if name, ok := names[u.ID]; ok {
			return name
		}
		var member *discordgo.Member
		if s.State != nil {
			member, _ = s.State.Member(guildID, u.ID)
		}
		if member == nil && guildID != "" {
			member, _ = s.GuildMember(guildID, u.ID)
		}
		name := displayName(member, u)
		names[u.ID] = name
		return name
	}
}

// displayName prefers the guild nickname over the account name.
func displayName(member *discordgo.Member, u *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	return u.Username
}

// toRawMessages converts fetched messages, skipping those without an author.
func toRawMessages(msgs []*discordgo.Message, guildID string, names nameResolver) []timesheet.RawMessage {
	out := make([]timesheet.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Author == nil {
			continue
		}
		out = append(out, toRawMessage(m, guildID, names))
	}
	return out
}

func toRawMessage(m *discordgo.Message, guildID string, names nameResolver) timesheet.RawMessage {
	raw := timesheet.RawMessage{
		ID:        m.ID,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
		ChannelID: m.ChannelID,
		GuildID:   guildID,
	}
	if m.Author != nil {
		raw.AuthorID = m.Author.ID
		raw.AuthorName = names(m.Author)
		if m.Member != nil && m.Member.Nick != "" {
			raw.AuthorName = m.Member.Nick
		}
	}
	for _, u := range m.Mentions {
		raw.Mentions = append(raw.Mentions, timesheet.Member{ID: u.ID, Name: names(u)})
	}
	// Discord does not keep mentions in message order.
	sort.SliceStable(raw.Mentions, func(i, j int) bool {
		return mentionIndex(m.Content, raw.Mentions[i].ID) < mentionIndex(m.Content, raw.Mentions[j].ID)
	})
	return raw
}

// mentionIndex is the position of a user mention in content.
func mentionIndex(content, userID string) int {
	best := math.MaxInt
	for _, token := range []string{"<@" + userID + ">", "<@!" + userID + ">"} {
		if idx := strings.Index(content, token); idx >= 0 && idx < best {
			best = idx
		}
	}
	return best
}

// ownMessageIDs returns the IDs of messages written by the bot.
func ownMessageIDs(msgs []*discordgo.Message, botID string) []string {
	var ids []string
	for _, m := range msgs {
		if m.Author != nil && m.Author.ID == botID {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
