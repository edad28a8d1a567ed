package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath            = "config.yaml"
	DefaultBotName         = "TimeTracker"
	DefaultRole            = "Tracker"
	DefaultTimezone        = "America/Denver"
	DefaultTimestampFormat = "01/02/06 (Mon) @ 03:04 PM | "
	DefaultMessageRecall   = 3
	DefaultLogServerAddr   = ":8080"
)

var (
	DefaultInWords  = []string{"In", "On", "Back"}
	DefaultOutWords = []string{"Out", "Off"}
)

type Discord struct {
	Token       string `yaml:"token" env:"DISCORD_TOKEN,required"`
	ClientID    string `yaml:"client_id" env:"DISCORD_CLIENT_ID,required"`
	Permissions int64  `yaml:"-"`
}

type Database struct {
	Host     string `yaml:"host" env:"DB_HOST,required"`
	Port     int    `yaml:"port" env:"DB_PORT,required"`
	User     string `yaml:"user" env:"DB_USER,required"`
	Password string `yaml:"password" env:"DB_PASSWORD,required"`
	DBName   string `yaml:"dbname" env:"DB_NAME,required"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE,required"`
}

// URL is the postgres connection string for the database.
func (d Database) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, url.QueryEscape(d.Password), d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Tracker holds the clock parsing and reporting settings. Guild settings
// stored in the database override the words, role and timezone.
type Tracker struct {
	BotName         string   `yaml:"bot_name"`
	Role            string   `yaml:"role"`
	Timezone        string   `yaml:"timezone"`
	TimestampFormat string   `yaml:"timestamp_format"`
	InWords         []string `yaml:"in_words"`
	OutWords        []string `yaml:"out_words"`
	// MessageRecall is the number of 100 message pages read from a channel.
	MessageRecall int    `yaml:"message_recall"`
	LogURL        string `yaml:"log_url"`
}

func (t Tracker) Location() (*time.Location, error) {
	return time.LoadLocation(t.Timezone)
}

type LogServer struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type Config struct {
	Discord   Discord   `yaml:"discord"`
	Database  Database  `yaml:"database"`
	Tracker   Tracker   `yaml:"tracker"`
	LogServer LogServer `yaml:"log_server"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Replace environment variables in the YAML content
	content := string(data)
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		placeholder := "${" + pair[0] + "}"
		content = strings.ReplaceAll(content, placeholder, pair[1])
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Convert DB_PORT from string to int if it's an environment variable
	if portStr := os.Getenv("DB_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT value: %w", err)
		}
		cfg.Database.Port = port
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	t := &c.Tracker
	if t.BotName == "" {
		t.BotName = DefaultBotName
	}
	if t.Role == "" {
		t.Role = DefaultRole
	}
	if t.Timezone == "" {
		t.Timezone = DefaultTimezone
	}
	if t.TimestampFormat == "" {
		t.TimestampFormat = DefaultTimestampFormat
	}
	if len(t.InWords) == 0 {
		t.InWords = append([]string(nil), DefaultInWords...)
	}
	if len(t.OutWords) == 0 {
		t.OutWords = append([]string(nil), DefaultOutWords...)
	}
	if t.MessageRecall <= 0 {
		t.MessageRecall = DefaultMessageRecall
	}
	if c.LogServer.Addr == "" {
		c.LogServer.Addr = DefaultLogServerAddr
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Tracker.Location(); err != nil {
		errs = append(errs, fmt.Errorf("invalid tracker timezone %q: %w", c.Tracker.Timezone, err))
	}
	if blank(c.Tracker.InWords) {
		errs = append(errs, errors.New("tracker in_words must contain at least one word"))
	}
	if blank(c.Tracker.OutWords) {
		errs = append(errs, errors.New("tracker out_words must contain at least one word"))
	}
	return errors.Join(errs...)
}

func blank(words []string) bool {
	for _, w := range words {
		if strings.TrimSpace(w) != "" {
			return false
		}
	}
	return true
}
