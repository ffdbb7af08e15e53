// Package config loads static configuration from a TOML file with
// HERALD_-prefixed environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	SQLite    SQLiteConfig    `koanf:"sqlite"`
	Logging   LoggingConfig   `koanf:"logging"`
	Reminders RemindersConfig `koanf:"reminders"`
	Channels  ChannelsConfig  `koanf:"channels"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `koanf:"host"`
	Port        int      `koanf:"port"`
	AdminEmails []string `koanf:"admin_emails"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SQLiteConfig holds metadata store settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// RemindersConfig controls the reminder scheduler.
type RemindersConfig struct {
	Enabled bool `koanf:"enabled"`
	// IntervalMinutes is the "every N minutes" sweep cadence, converted to
	// a calendar-aligned recurrence by the scheduler.
	IntervalMinutes int `koanf:"interval_minutes"`
	// DispatchBatchSize bounds per-batch send concurrency.
	DispatchBatchSize int `koanf:"dispatch_batch_size"`
	// DispatchBatchPause throttles channel load between batches.
	DispatchBatchPause time.Duration `koanf:"dispatch_batch_pause"`
}

// ChannelsConfig holds per-channel delivery settings.
type ChannelsConfig struct {
	Email EmailConfig `koanf:"email"`
	SMS   SMSConfig   `koanf:"sms"`
}

// EmailConfig holds the SMTP identity used by the email channel.
type EmailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	SMTPHost string `koanf:"smtp_host"`
	SMTPPort int    `koanf:"smtp_port"`
	From     string `koanf:"from"`
}

// SMSConfig holds settings for the placeholder SMS channel.
type SMSConfig struct {
	Enabled bool   `koanf:"enabled"`
	Sender  string `koanf:"sender"`
}

// Default returns the baseline configuration used when a key is absent
// from both the config file and the environment.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8125,
		},
		SQLite: SQLiteConfig{
			Path: "herald.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Reminders: RemindersConfig{
			Enabled:            true,
			IntervalMinutes:    15,
			DispatchBatchSize:  10,
			DispatchBatchPause: 100 * time.Millisecond,
		},
		Channels: ChannelsConfig{
			Email: EmailConfig{SMTPPort: 587},
		},
	}
}

// Load reads configuration from the given TOML file (optional) and
// applies HERALD_ environment overrides (HERALD_SERVER__PORT=9000 maps to
// server.port).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config file %q: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("HERALD_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "HERALD_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment config: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}
