package config

import (
	"fmt"
	"strings"
	"time"

	"loggingbot/internal/archive"
	"loggingbot/internal/heartbeat"
	"loggingbot/pkg/botlog"
	"loggingbot/pkg/botlog/telegram"
	logx "loggingbot/pkg/logx"
)

// TokenEnv overrides telegram.token when set (directly or through .env).
const TokenEnv = "LOGGINGBOT_TOKEN"

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Handler   HandlerConfig   `json:"handler"`
	Logging   LoggingConfig   `json:"logging"`
	Archive   ArchiveConfig   `json:"archive,omitempty"`
	Metrics   MetricsConfig   `json:"metrics,omitempty"`
	Heartbeat HeartbeatConfig `json:"heartbeat,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// Client is "telebot" (default) or "go-telegram".
	Client     string  `json:"client,omitempty"`
	Recipients []int64 `json:"recipients"`
	APIURL     string  `json:"api_url,omitempty"`
	// Timeout is a Go duration string (e.g. "10s") applied per HTTP request.
	Timeout string `json:"timeout,omitempty"`
}

// HandlerConfig controls how records are rendered for the bot.
//
// Format is one of "message" (default), "basic" or "detailed".
type HandlerConfig struct {
	FigureWidth int    `json:"figure_width,omitempty"`
	Format      string `json:"format,omitempty"`
	LoggerName  string `json:"logger_name,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// ArchiveConfig controls the optional local record archive.
//
// Example:
//
//	"archive": { "driver": "folder", "path": "~/.logmessages" }
type ArchiveConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
	Retention   string `json:"retention,omitempty"`    // sqlite, e.g. "720h"
}

// MetricsConfig controls the /metrics and /healthz listener.
//
// Prefer binding to localhost (e.g. "127.0.0.1:9464").
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address,omitempty"`
}

// HeartbeatConfig sends a routed record on a cron schedule.
// An empty schedule disables it.
type HeartbeatConfig struct {
	Schedule string `json:"schedule"`
	Message  string `json:"message,omitempty"`
}

// Validate checks fields that would otherwise fail late.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if len(c.Telegram.Recipients) == 0 {
		return fmt.Errorf("telegram.recipients: at least one recipient is required")
	}
	if _, err := ParseDurationField("telegram.timeout", c.Telegram.Timeout); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Telegram.Client)) {
	case "", telegram.DriverTelebot, telegram.DriverGoTelegram:
	default:
		return fmt.Errorf("telegram.client: unknown client %q", c.Telegram.Client)
	}
	if c.Handler.FigureWidth < 0 {
		return fmt.Errorf("handler.figure_width must be >= 0")
	}
	if _, ok := botlog.FormatterByName(c.Handler.Format); !ok {
		return fmt.Errorf("handler.format: unknown format %q", c.Handler.Format)
	}
	if _, err := ParseDurationField("archive.busy_timeout", c.Archive.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("archive.retention", c.Archive.Retention); err != nil {
		return err
	}
	return heartbeat.Validate(c.Heartbeat.Schedule)
}

// HandlerOptions maps the config onto botlog.Config. OnError is left unset.
func (c *Config) HandlerOptions() botlog.Config {
	f, _ := botlog.FormatterByName(c.Handler.Format)
	rs := make([]botlog.Recipient, 0, len(c.Telegram.Recipients))
	for _, id := range c.Telegram.Recipients {
		rs = append(rs, botlog.Recipient(id))
	}
	return botlog.Config{
		Token:       c.Telegram.Token,
		Recipients:  rs,
		FigureWidth: c.Handler.FigureWidth,
		Formatter:   f,
	}
}

func (c *Config) TransportOptions() telegram.Config {
	timeout, _ := ParseDurationField("telegram.timeout", c.Telegram.Timeout)
	return telegram.Config{
		Driver:  c.Telegram.Client,
		APIURL:  c.Telegram.APIURL,
		Timeout: timeout,
	}
}

func (c *Config) LogOptions() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File:    logx.FileConfig{Enabled: c.Logging.File.Enabled, Path: c.Logging.File.Path},
		Telegram: logx.TelegramConfig{
			Enabled:    c.Logging.Telegram.Enabled,
			MinLevel:   c.Logging.Telegram.MinLevel,
			RatePerSec: c.Logging.Telegram.RatePerSec,
		},
	}
}

func (c *Config) ArchiveOptions() archive.Config {
	busy, _ := ParseDurationField("archive.busy_timeout", c.Archive.BusyTimeout)
	keep, _ := ParseDurationField("archive.retention", c.Archive.Retention)
	return archive.Config{
		Driver:      c.Archive.Driver,
		Path:        c.Archive.Path,
		BusyTimeout: busy,
		Retention:   keep,
	}
}

func (c *Config) HeartbeatOptions() heartbeat.Config {
	return heartbeat.Config{Schedule: c.Heartbeat.Schedule, Message: c.Heartbeat.Message}
}

// ParseDurationField parses an optional non-negative duration; empty is 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
