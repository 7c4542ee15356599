package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultCategoryName is used when TICKET_CATEGORY is unset.
const DefaultCategoryName = "Tickets"

// ErrMissingToken is returned by Validate when no bot token is configured.
var ErrMissingToken = errors.New("DISCORD_TOKEN not set in environment (.env)")

// Config aggregates runtime configuration for the bot.
type Config struct {
	App     AppConfig
	Discord DiscordConfig
	Redis   RedisConfig
	Logger  LoggerConfig
}

// AppConfig controls process level behavior and the health server.
type AppConfig struct {
	Name          string
	Env           string
	Host          string
	Port          string
	Version       string
	HealthEnabled bool
}

// DiscordConfig holds the platform credentials and ticket settings.
// Values are read once at startup and never change for the process lifetime.
type DiscordConfig struct {
	Token        string
	GuildID      string
	StaffRoleID  string
	CategoryName string

	ConfiguratorTimeoutSeconds int
	SelectorTimeoutSeconds     int
	CloseDelaySeconds          int
	SkipCommandSync            bool
}

// RedisConfig holds Redis connection values. An empty Addr keeps ticket
// menu sessions in process memory.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
// Explicit env files must exist; the default .env is optional.
func Load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if strings.TrimSpace(file) == "" {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", file, err)
		}
	}
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:          getEnv("APP_NAME", "ticket-bot"),
			Env:           getEnv("APP_ENV", "development"),
			Host:          getEnv("APP_HOST", "0.0.0.0"),
			Port:          getEnv("APP_PORT", "8080"),
			Version:       getEnv("APP_VERSION", "dev"),
			HealthEnabled: getEnvAsBool("APP_HEALTH_ENABLED", true),
		},
		Discord: DiscordConfig{
			Token:                      strings.TrimSpace(os.Getenv("DISCORD_TOKEN")),
			GuildID:                    strings.TrimSpace(os.Getenv("GUILD_ID")),
			StaffRoleID:                strings.TrimSpace(os.Getenv("STAFF_ROLE_ID")),
			CategoryName:               getEnv("TICKET_CATEGORY", DefaultCategoryName),
			ConfiguratorTimeoutSeconds: getEnvAsInt("TICKET_MENU_TIMEOUT_SECONDS", 120),
			SelectorTimeoutSeconds:     getEnvAsInt("TICKET_SELECT_TIMEOUT_SECONDS", 60),
			CloseDelaySeconds:          getEnvAsInt("TICKET_CLOSE_DELAY_SECONDS", 5),
			SkipCommandSync:            getEnvAsBool("DISCORD_SKIP_COMMAND_SYNC", false),
		},
		Redis: RedisConfig{
			Addr:      os.Getenv("REDIS_ADDR"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "ticketbot:"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Validate reports configuration that makes startup impossible.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// Addr returns the HTTP bind address of the health server.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// HasStaffRole reports whether a staff role is configured.
func (d DiscordConfig) HasStaffRole() bool {
	return d.StaffRoleID != ""
}

// ConfiguratorTimeout is the lifetime of an open-ticket menu.
func (d DiscordConfig) ConfiguratorTimeout() time.Duration {
	return secondsOr(d.ConfiguratorTimeoutSeconds, 120)
}

// SelectorTimeout is the lifetime of an add/remove user picker.
func (d DiscordConfig) SelectorTimeout() time.Duration {
	return secondsOr(d.SelectorTimeoutSeconds, 60)
}

// CloseDelay is the grace period between acknowledging a close and deleting the channel.
func (d DiscordConfig) CloseDelay() time.Duration {
	if d.CloseDelaySeconds < 0 {
		return 0
	}
	return time.Duration(d.CloseDelaySeconds) * time.Second
}

// Enabled reports whether a Redis session store was requested.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

func secondsOr(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
