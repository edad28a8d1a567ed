package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timetracker/internal/bot"
	"timetracker/internal/config"
	"timetracker/internal/db"
	"timetracker/internal/logserver"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	log.Println("Starting TimeTracker application...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	configPath := flag.String("config", envOr("CONFIG_PATH", config.DefaultPath), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	discordBot, err := bot.New(cfg, database)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	// Set up signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var server *http.Server
	if cfg.LogServer.Enabled {
		loc, _ := cfg.Tracker.Location()
		server = logserver.NewServer(cfg.LogServer.Addr, logserver.NewHandler(database, cfg.Tracker.TimestampFormat, loc))
		go func() {
			log.Infof("Starting log server on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Log server stopped: %v", err)
			}
		}()
		// The server stops before the bot closes the database it reads from.
		go func() {
			<-ctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Errorf("Error stopping log server: %v", err)
			}
		}()
	}

	// Start blocks until ctx is cancelled, then shuts the bot down.
	if err := discordBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("Error running bot: %v", err)
	}
	log.Println("Shutdown signal received")

	// Shutdown is a no-op when Start already completed it.
	if err := discordBot.Shutdown(); err != nil {
		log.Errorf("Error during shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Application shutdown complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
