// Package config loads and validates the mailwatch configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Error is a configuration error. It is fatal to scheduler start: no
// cycle ever runs with a partially applied config.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// SourceGmail and SourceIMAP select the mail source adapter.
const (
	SourceGmail = "gmail"
	SourceIMAP  = "imap"
)

// GmailConfig holds Gmail adapter settings.
type GmailConfig struct {
	// CredentialsFile points to the OAuth credentials.json; token.json is
	// expected next to it.
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
}

// IMAPConfig holds IMAP adapter settings.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Mailbox  string `mapstructure:"mailbox" yaml:"mailbox"`
}

// Config is the full mailwatch configuration.
type Config struct {
	// Keyword is the case-insensitive substring searched for inside
	// extracted attachment text.
	Keyword string `mapstructure:"keyword" yaml:"keyword"`

	// LookbackDays is the trailing window, in whole days from now, within
	// which messages are fetched.
	LookbackDays int `mapstructure:"lookback_days" yaml:"lookback_days"`

	// IntervalSeconds is the poll cadence.
	IntervalSeconds int `mapstructure:"interval_seconds" yaml:"interval_seconds"`

	// FetchTimeoutSeconds bounds one mail-source fetch so a hung fetch
	// cannot wedge a cycle forever.
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds"`

	// MaxConcurrency caps how many messages are evaluated in parallel
	// within one cycle.
	MaxConcurrency int `mapstructure:"max_concurrency" yaml:"max_concurrency"`

	// Source selects the adapter: "gmail" or "imap".
	Source string `mapstructure:"source" yaml:"source"`

	Gmail GmailConfig `mapstructure:"gmail" yaml:"gmail"`
	IMAP  IMAPConfig  `mapstructure:"imap" yaml:"imap"`

	// WebhookURL, when set, receives each new match record as JSON.
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`

	// LogLevel is a zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LookbackDays:        1,
		IntervalSeconds:     300,
		FetchTimeoutSeconds: 60,
		MaxConcurrency:      4,
		Source:              SourceGmail,
		Gmail:               GmailConfig{CredentialsFile: "credentials.json"},
		IMAP:                IMAPConfig{Port: "993", Mailbox: "INBOX"},
		LogLevel:            "info",
	}
}

// DiscoverPath finds the config file by walking up from cwd, returning
// the path to .mailwatch/config.yaml or "" if not found.
func DiscoverPath() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".mailwatch", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load reads configuration from the given YAML file. A missing file
// yields the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("lookback_days", cfg.LookbackDays)
	v.SetDefault("interval_seconds", cfg.IntervalSeconds)
	v.SetDefault("fetch_timeout_seconds", cfg.FetchTimeoutSeconds)
	v.SetDefault("max_concurrency", cfg.MaxConcurrency)
	v.SetDefault("source", cfg.Source)
	v.SetDefault("gmail.credentials_file", cfg.Gmail.CredentialsFile)
	v.SetDefault("imap.port", cfg.IMAP.Port)
	v.SetDefault("imap.mailbox", cfg.IMAP.Mailbox)
	v.SetDefault("log_level", cfg.LogLevel)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the polling surface. It runs before any cycle: an
// invalid config is rejected whole.
func (c *Config) Validate() error {
	if c.Keyword == "" {
		return &Error{Field: "keyword", Reason: "must not be empty"}
	}
	if c.IntervalSeconds < 1 {
		return &Error{Field: "interval_seconds", Reason: "must be at least 1"}
	}
	if c.LookbackDays < 0 {
		return &Error{Field: "lookback_days", Reason: "must not be negative"}
	}
	if c.FetchTimeoutSeconds < 1 {
		return &Error{Field: "fetch_timeout_seconds", Reason: "must be at least 1"}
	}
	if c.MaxConcurrency < 1 {
		return &Error{Field: "max_concurrency", Reason: "must be at least 1"}
	}
	switch c.Source {
	case SourceGmail, SourceIMAP:
	default:
		return &Error{Field: "source", Reason: fmt.Sprintf("unknown source %q", c.Source)}
	}
	return nil
}
