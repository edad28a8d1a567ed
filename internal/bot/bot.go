package bot

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"timetracker/internal/config"
	"timetracker/internal/db/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

var (
	dmAllowedCommands = map[string]bool{
		"timetracker": true,
		"clear":       true,
	}
)

// Store is the persistence used by the bot. *db.DB implements it.
type Store interface {
	GetOrCreateServerSettings(ctx context.Context, serverID string, defaults config.Tracker) (*models.ServerSettings, error)
	UpdateClockWords(ctx context.Context, serverID string, inWords, outWords []string) error
	UpdateTrackerRole(ctx context.Context, serverID, role string) error
	UpdateTimezone(ctx context.Context, serverID, timezone string) error
	SaveAnomalyLog(ctx context.Context, run *models.AnomalyRun, anomalies []models.Anomaly) error
	Close()
}

type Bot struct {
	config     *config.Config
	db         Store
	session    *discordgo.Session
	settings   map[string]guildSettings
	shutdownCh chan struct{}
	isShutdown bool
	mu         sync.Mutex
	wg         sync.WaitGroup
}

func New(config *config.Config, database Store) (*Bot, error) {
	session, err := discordgo.New("Bot " + config.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	// Clocks are read from message content and mentions resolve to nicknames
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	requiredPermissions := int64(
		discordgo.PermissionViewChannel |
			discordgo.PermissionSendMessages |
			discordgo.PermissionReadMessageHistory |
			discordgo.PermissionManageMessages |
			discordgo.PermissionUseSlashCommands)

	config.Discord.Permissions = requiredPermissions

	log.Printf("Bot intents: %d", session.Identify.Intents)
	log.Printf("Bot permissions: %d", config.Discord.Permissions)

	return &Bot{
		db:         database,
		session:    session,
		config:     config,
		settings:   make(map[string]guildSettings),
		shutdownCh: make(chan struct{}),
	}, nil
}

// Helper function to register commands for a guild
func (b *Bot) registerGuildCommands(guildID string) error {
	maxRetries := 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := b.registerGuildCommandsOnce(guildID)
		if err == nil {
			return nil
		}
		lastErr = err
		log.Printf("Attempt %d to register commands failed: %v", i+1, err)
		time.Sleep(time.Second * time.Duration(i+1))
	}
	return fmt.Errorf("failed to register commands after %d attempts: %w", maxRetries, lastErr)
}

func (b *Bot) registerGuildCommandsOnce(guildID string) error {
	logger := guildLogger(guildID, getServerName(b.session, guildID), "BOT")
	logger.Info("Registering commands")

	existing, err := b.session.ApplicationCommands(b.config.Discord.ClientID, guildID)
	if err != nil {
		return fmt.Errorf("error getting existing commands: %w", err)
	}

	for _, v := range existing {
		if err := b.session.ApplicationCommandDelete(b.config.Discord.ClientID, guildID, v.ID); err != nil {
			logger.Warnf("%s: Failed to delete command (%v)", v.Name, err)
		} else {
			logger.Debugf("%s: Successfully removed command", v.Name)
		}
	}

	// Wait a moment to ensure all deletions are processed
	time.Sleep(time.Second)

	for _, v := range commands {
		if _, err := b.session.ApplicationCommandCreate(b.config.Discord.ClientID, guildID, v); err != nil {
			return fmt.Errorf("error creating command %s: %w", v.Name, err)
		}
		logger.Debugf("%s: Registered command", v.Name)
	}

	return nil
}

// retry calls fn every five seconds until it succeeds or ctx is done.
func retry(ctx context.Context, what string, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}
		log.Printf("%s: %v. Retrying in 5 seconds...", what, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

func (b *Bot) Start(ctx context.Context) error {
	log.Printf("Starting %s...", b.config.Tracker.BotName)

	log.Println("Testing Discord API connection...")
	err := retry(ctx, "Failed to connect to Discord API", func() error {
		_, err := b.session.User("@me")
		return err
	})
	if err != nil {
		return err
	}
	log.Println("Successfully connected to Discord API")

	// Handlers are added before the session opens so no event is missed.
	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.handleMessageCreate)
	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type == discordgo.InteractionApplicationCommand {
			b.handleCommand(s, i)
		}
	})

	if err := retry(ctx, "Error opening Discord session", b.session.Open); err != nil {
		return err
	}
	log.Printf("Session opened successfully (Session ID: %s)", b.session.State.SessionID)

	log.Println("Force re-registering commands for all guilds...")
	for _, guild := range b.session.State.Guilds {
		if err := b.registerGuildCommands(guild.ID); err != nil {
			log.Printf("Error registering commands for guild %s: %v", guild.ID, err)
		}
	}

	// Now add the guild create handler for future guilds
	b.session.AddHandler(b.handleGuildCreate)

	log.Println("Bot is now running. Press CTRL-C to exit.")

	<-ctx.Done()
	return b.Shutdown()
}

// Shutdown performs a graceful shutdown of the bot
func (b *Bot) Shutdown() error {
	log.Println("Initiating graceful shutdown...")

	b.mu.Lock()
	if b.isShutdown {
		b.mu.Unlock()
		return nil
	}
	b.isShutdown = true
	close(b.shutdownCh)
	b.mu.Unlock()

	log.Println("Waiting for active handlers to complete...")
	b.wg.Wait()

	for _, guild := range b.session.State.Guilds {
		logger := guildLogger(guild.ID, getServerName(b.session, guild.ID), "BOT")
		logger.Info("Removing commands")

		registeredCommands, err := b.session.ApplicationCommands(b.config.Discord.ClientID, guild.ID)
		if err != nil {
			logger.Errorf("Error getting commands: %v", err)
			continue
		}
		for _, cmd := range registeredCommands {
			if err := b.session.ApplicationCommandDelete(b.config.Discord.ClientID, guild.ID, cmd.ID); err != nil {
				logger.Warnf("%s: Failed to remove command (%v)", cmd.Name, err)
			}
		}
	}

	log.Println("Closing Discord session...")
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("error closing Discord session: %w", err)
	}

	log.Println("Closing database connection...")
	b.db.Close()

	log.Println("Shutdown completed successfully")
	return nil
}

// track registers a running handler. It reports false once shutdown began.
func (b *Bot) track() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isShutdown {
		return false
	}
	b.wg.Add(1)
	return true
}

// handlerContext is cancelled when the bot shuts down or after timeout.
func (b *Bot) handlerContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	go func() {
		select {
		case <-b.shutdownCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("Bot is ready! Connected to %d guilds", len(r.Guilds))

	ctx, cancel := b.handlerContext(30 * time.Second)
	defer cancel()
	for _, guild := range r.Guilds {
		log.Debugf("Initializing settings for guild: %s", guild.ID)
		b.settingsFor(ctx, guild.ID)
	}
}

func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	logger := guildLogger(g.ID, g.Name, "BOT")
	logger.Info("Bot joined new guild")

	ctx, cancel := b.handlerContext(10 * time.Second)
	defer cancel()
	b.settingsFor(ctx, g.ID)

	if err := b.registerGuildCommands(g.ID); err != nil {
		logger.Errorf("Error registering commands: %v", err)
	} else {
		logger.Info("Successfully registered all commands")
	}
}

// handleMessageCreate warns the author of a clock that will not be counted.
func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" || len(m.Mentions) != 1 {
		return
	}
	if !b.track() {
		return
	}
	defer b.wg.Done()

	ctx, cancel := b.handlerContext(10 * time.Second)
	defer cancel()
	settings := b.settingsFor(ctx, m.GuildID)

	raw := toRawMessage(m.Message, m.GuildID, guildNames(s, m.GuildID))
	if !needsClockWarning(settings.classifier(), raw, settings.Location) {
		return
	}

	logger := guildLogger(m.GuildID, getServerName(s, m.GuildID), m.Author.Username)
	logger.Debugf("Malformed clock %q", m.Content)
	if _, err := sendDM(s, m.Author.ID, []string{clockFormatHint}); err != nil {
		logger.Warnf("Could not warn about malformed clock, the bot may have been blocked: %v", err)
	}
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.track() {
		return
	}
	defer b.wg.Done()

	// Add defer to catch panics with stack trace
	defer func() {
		if r := recover(); r != nil {
			context := "DM"
			if i.GuildID != "" {
				context = fmt.Sprintf("guild %s (%s)", getServerName(s, i.GuildID), i.GuildID)
			}

			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			log.Errorf("Panic in command handler for user %s in %s:\nError: %v\nStack Trace:\n%s",
				interactionUsername(i), context, r, string(buf[:n]))

			respondWithError(s, i, "An internal error occurred")
		}
	}()

	commandName := i.ApplicationCommandData().Name

	// Replies are private and may take a while to build
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		guildLogger(i.GuildID, "", interactionUsername(i)).Errorf("Error acknowledging interaction: %v", err)
		return
	}

	if i.GuildID == "" && !dmAllowedCommands[commandName] {
		respondWithError(s, i, fmt.Sprintf("The `/%s` command can only be used in a server", commandName))
		return
	}
	if i.Member != nil && i.Member.Permissions&discordgo.PermissionViewChannel == 0 {
		respondWithError(s, i, "You don't have permission to use this command here")
		return
	}

	logCommand(s, i, commandName)

	ctx, cancel := b.handlerContext(2 * time.Minute)
	defer cancel()

	switch commandName {
	case "times":
		b.handleTimes(ctx, s, i)
	case "clocks":
		b.handleClocks(ctx, s, i)
	case "clear":
		b.handleClear(ctx, s, i)
	case "timetracker":
		b.handleHelp(s, i)
	case "settings":
		b.handleSettings(ctx, s, i)
	default:
		guildLogger(i.GuildID, "", interactionUsername(i)).Warnf("Unknown command: %s", commandName)
		respondWithError(s, i, "Unknown command")
	}
}
