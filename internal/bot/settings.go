package bot

import (
	"context"
	"strings"
	"time"

	"timetracker/internal/config"
	"timetracker/internal/db/models"
	"timetracker/internal/timesheet"
)

// guildSettings is the effective tracker configuration of one guild.
type guildSettings struct {
	Role     string
	Location *time.Location
	InWords  []string
	OutWords []string
}

func (g guildSettings) classifier() *timesheet.Classifier {
	return timesheet.NewClassifier(g.InWords, g.OutWords)
}

// resolveSettings overlays the stored guild overrides on the config defaults.
// A stored time zone that no longer loads is ignored.
func resolveSettings(defaults config.Tracker, stored *models.ServerSettings) guildSettings {
	settings := guildSettings{
		Role:     defaults.Role,
		InWords:  defaults.InWords,
		OutWords: defaults.OutWords,
	}
	settings.Location, _ = defaults.Location()
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if stored == nil {
		return settings
	}

	if stored.TrackerRole != "" {
		settings.Role = stored.TrackerRole
	}
	if stored.Timezone != "" {
		if loc, err := time.LoadLocation(stored.Timezone); err == nil {
			settings.Location = loc
		}
	}
	if len(stored.InWords) > 0 {
		settings.InWords = []string(stored.InWords)
	}
	if len(stored.OutWords) > 0 {
		settings.OutWords = []string(stored.OutWords)
	}
	return settings
}

// settingsFor returns the cached settings of a guild, loading them on first use.
func (b *Bot) settingsFor(ctx context.Context, guildID string) guildSettings {
	b.mu.Lock()
	cached, ok := b.settings[guildID]
	b.mu.Unlock()
	if ok {
		return cached
	}

	stored, err := b.db.GetOrCreateServerSettings(ctx, guildID, b.config.Tracker)
	if err != nil {
		guildLogger(guildID, "", "BOT").Errorf("Error loading settings: %v", err)
		return resolveSettings(b.config.Tracker, nil)
	}

	settings := resolveSettings(b.config.Tracker, stored)
	b.mu.Lock()
	b.settings[guildID] = settings
	b.mu.Unlock()
	return settings
}

func (b *Bot) forgetSettings(guildID string) {
	b.mu.Lock()
	delete(b.settings, guildID)
	b.mu.Unlock()
}

// parseWordList splits a comma separated option into trimmed words.
func parseWordList(value string) []string {
	var words []string
	for _, w := range strings.Split(value, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}
