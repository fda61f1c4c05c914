// Package config provides YAML-based configuration loading for cardbridge.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Poll interval bounds. Values outside the range are clamped rather than
// rejected.
const (
	defaultPollInterval = time.Minute
	minPollInterval     = 30 * time.Second
	maxPollInterval     = 15 * time.Minute

	defaultRetryDelay = time.Minute
)

// Config is the top-level cardbridge configuration, loaded from
// cardbridge.yaml.
type Config struct {
	Trello  TrelloConfig  `yaml:"trello"`
	Notion  NotionConfig  `yaml:"notion"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	History HistoryConfig `yaml:"history"`
	Notify  NotifyConfig  `yaml:"notify"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// TrelloConfig holds the API credentials and the board the bridge operates on.
type TrelloConfig struct {
	Key   string `yaml:"key"`
	Token string `yaml:"token"`
	Board string `yaml:"board"`
}

// NotionConfig holds the integration token and the target database.
type NotionConfig struct {
	Token    string `yaml:"token"`
	Database string `yaml:"database"`
}

// DaemonConfig controls the sync loop: how often board activity is polled,
// an optional cron schedule for full passes, and how long to wait before
// retrying a failed pass. Durations are written as Go duration strings
// ("90s", "5m").
type DaemonConfig struct {
	PollInterval string `yaml:"poll_interval"`
	Schedule     string `yaml:"schedule"`
	RetryDelay   string `yaml:"retry_delay"`
}

// Interval returns the activity poll interval, clamped to the allowed range.
func (d DaemonConfig) Interval() time.Duration {
	v, err := time.ParseDuration(d.PollInterval)
	if err != nil {
		return defaultPollInterval
	}
	if v < minPollInterval {
		return minPollInterval
	}
	if v > maxPollInterval {
		return maxPollInterval
	}
	return v
}

// Retry returns the delay before a failed pass is retried.
func (d DaemonConfig) Retry() time.Duration {
	v, err := time.ParseDuration(d.RetryDelay)
	if err != nil || v <= 0 {
		return defaultRetryDelay
	}
	return v
}

// HistoryConfig selects where sync runs are recorded. The mysql fields are
// ignored when the driver is sqlite.
type HistoryConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// NotifyConfig enables run summaries on whichever channels have a token set.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig posts run summaries to a Slack channel.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordConfig posts run summaries to a Discord channel.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// WebhookConfig configures the webhook receiver and Trello webhook
// registration.
type WebhookConfig struct {
	Port        int    `yaml:"port"`
	Secret      string `yaml:"secret"`
	CallbackURL string `yaml:"callback_url"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config. Credential fields may
// reference environment variables as ${VAR} so secrets can stay out of the
// file.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.expandEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnv resolves environment references in the fields that carry secrets.
// An unset variable expands to empty, which validation then reports as a
// missing field.
func (c *Config) expandEnv() {
	for _, f := range []*string{
		&c.Trello.Key,
		&c.Trello.Token,
		&c.Notion.Token,
		&c.History.Password,
		&c.Notify.Slack.Token,
		&c.Notify.Discord.Token,
		&c.Webhook.Secret,
	} {
		*f = os.ExpandEnv(*f)
	}
}

// applyDefaults fills in default values.
func (c *Config) applyDefaults() {
	if c.History.Driver == "" {
		c.History.Driver = "sqlite"
	}
	if c.History.Path == "" {
		c.History.Path = "cardbridge.db"
	}
	if c.History.Host == "" {
		c.History.Host = "127.0.0.1"
	}
	if c.History.Port == 0 {
		c.History.Port = 3306
	}
	if c.History.User == "" {
		c.History.User = "root"
	}
	if c.History.Database == "" {
		c.History.Database = "cardbridge"
	}
	if c.Webhook.Port == 0 {
		c.Webhook.Port = 8090
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Trello.Key == "" {
		errs = append(errs, "trello.key is required")
	}
	if c.Trello.Token == "" {
		errs = append(errs, "trello.token is required")
	}
	if c.Trello.Board == "" {
		errs = append(errs, "trello.board is required")
	}
	if c.Notion.Token == "" {
		errs = append(errs, "notion.token is required")
	}
	if c.Notion.Database == "" {
		errs = append(errs, "notion.database is required")
	}
	switch c.History.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("history.driver must be sqlite or mysql, got %q", c.History.Driver))
	}
	if c.Daemon.PollInterval != "" {
		if _, err := time.ParseDuration(c.Daemon.PollInterval); err != nil {
			errs = append(errs, fmt.Sprintf("daemon.poll_interval: invalid duration %q", c.Daemon.PollInterval))
		}
	}
	if c.Daemon.RetryDelay != "" {
		if _, err := time.ParseDuration(c.Daemon.RetryDelay); err != nil {
			errs = append(errs, fmt.Sprintf("daemon.retry_delay: invalid duration %q", c.Daemon.RetryDelay))
		}
	}
	if c.Notify.Slack.Token != "" && c.Notify.Slack.Channel == "" {
		errs = append(errs, "notify.slack.channel is required when a token is set")
	}
	if c.Notify.Discord.Token != "" && c.Notify.Discord.Channel == "" {
		errs = append(errs, "notify.discord.channel is required when a token is set")
	}
	if c.Webhook.Secret != "" && c.Webhook.CallbackURL == "" {
		errs = append(errs, "webhook.callback_url is required when a secret is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
