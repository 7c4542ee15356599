package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// unset clears key for the duration of the test.
func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

var allKeys = []string{
	"DISCORD_TOKEN", "GUILD_ID", "STAFF_ROLE_ID", "TICKET_CATEGORY",
	"TICKET_MENU_TIMEOUT_SECONDS", "TICKET_SELECT_TIMEOUT_SECONDS", "TICKET_CLOSE_DELAY_SECONDS",
	"DISCORD_SKIP_COMMAND_SYNC", "REDIS_ADDR", "REDIS_DB", "REDIS_KEY_PREFIX", "LOG_LEVEL",
	"APP_HEALTH_ENABLED", "APP_PORT",
}

func TestLoadDefaults(t *testing.T) {
	unset(t, allKeys...)
	t.Setenv("DISCORD_TOKEN", " secret ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Discord.Token != "secret" {
		t.Errorf("token = %q", cfg.Discord.Token)
	}
	if cfg.Discord.CategoryName != "Tickets" {
		t.Errorf("category = %q", cfg.Discord.CategoryName)
	}
	if cfg.Discord.HasStaffRole() {
		t.Error("no staff role expected")
	}
	if cfg.Discord.ConfiguratorTimeout() != 120*time.Second ||
		cfg.Discord.SelectorTimeout() != 60*time.Second ||
		cfg.Discord.CloseDelay() != 5*time.Second {
		t.Errorf("unexpected timings %+v", cfg.Discord)
	}
	if cfg.Redis.Enabled() {
		t.Error("redis must be disabled without REDIS_ADDR")
	}
	if !cfg.App.HealthEnabled || cfg.App.Addr() != "0.0.0.0:8080" {
		t.Errorf("app = %+v", cfg.App)
	}
}

func TestLoadOverrides(t *testing.T) {
	unset(t, allKeys...)
	t.Setenv("DISCORD_TOKEN", "secret")
	t.Setenv("STAFF_ROLE_ID", "500")
	t.Setenv("TICKET_CATEGORY", "Support")
	t.Setenv("TICKET_CLOSE_DELAY_SECONDS", "0")
	t.Setenv("TICKET_MENU_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DISCORD_SKIP_COMMAND_SYNC", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Discord.HasStaffRole() || cfg.Discord.CategoryName != "Support" {
		t.Errorf("discord = %+v", cfg.Discord)
	}
	if cfg.Discord.CloseDelay() != 0 {
		t.Errorf("close delay = %v", cfg.Discord.CloseDelay())
	}
	if cfg.Discord.ConfiguratorTimeout() != 120*time.Second {
		t.Errorf("invalid timeout should fall back, got %v", cfg.Discord.ConfiguratorTimeout())
	}
	if !cfg.Redis.Enabled() || !cfg.Discord.SkipCommandSync {
		t.Errorf("redis/sync flags not applied: %+v %+v", cfg.Redis, cfg.Discord)
	}
}

func TestLoadInvalidRedisDB(t *testing.T) {
	unset(t, allKeys...)
	t.Setenv("REDIS_DB", "zero")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric REDIS_DB")
	}
}

func TestLoadEnvFile(t *testing.T) {
	unset(t, allKeys...)
	path := filepath.Join(t.TempDir(), "bot.env")
	if err := os.WriteFile(path, []byte("DISCORD_TOKEN=from-file\nGUILD_ID=42\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "from-file" || cfg.Discord.GuildID != "42" {
		t.Errorf("discord = %+v", cfg.Discord)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected error for a missing explicit env file")
	}
}

func TestValidateMissingToken(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("Validate() = %v, want ErrMissingToken", err)
	}
}
