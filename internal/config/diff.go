package config

import (
	"slices"
	"sort"
	"strings"

	logx "loggingbot/pkg/logx"
)

// SummarizeChange returns the changed top-level sections and log fields
// describing the new values. The bot token is reported only as set/changed.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	tokenChanged := strings.TrimSpace(ot.Token) != strings.TrimSpace(nt.Token)
	if tokenChanged ||
		!strings.EqualFold(strings.TrimSpace(ot.Client), strings.TrimSpace(nt.Client)) ||
		!slices.Equal(ot.Recipients, nt.Recipients) ||
		strings.TrimSpace(ot.APIURL) != strings.TrimSpace(nt.APIURL) ||
		strings.TrimSpace(ot.Timeout) != strings.TrimSpace(nt.Timeout) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.client", strings.TrimSpace(nt.Client)),
			logx.Int("telegram.recipient_count", len(nt.Recipients)),
			logx.Bool("telegram.token_set", strings.TrimSpace(nt.Token) != ""),
			logx.Bool("telegram.token_changed", tokenChanged),
			logx.Bool("telegram.api_url_set", strings.TrimSpace(nt.APIURL) != ""),
		)
	}

	if oldCfg.Handler != newCfg.Handler {
		changed = append(changed, "handler")
		attrs = append(attrs,
			logx.Int("handler.figure_width", newCfg.Handler.FigureWidth),
			logx.String("handler.format", newCfg.Handler.Format),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Archive != newCfg.Archive {
		changed = append(changed, "archive")
		attrs = append(attrs,
			logx.String("archive.driver", strings.TrimSpace(newCfg.Archive.Driver)),
			logx.Bool("archive.path_set", strings.TrimSpace(newCfg.Archive.Path) != ""),
		)
	}

	if oldCfg.Metrics != newCfg.Metrics {
		changed = append(changed, "metrics")
		attrs = append(attrs,
			logx.Bool("metrics.enabled", newCfg.Metrics.Enabled),
			logx.String("metrics.address", strings.TrimSpace(newCfg.Metrics.Address)),
		)
	}

	if oldCfg.Heartbeat != newCfg.Heartbeat {
		changed = append(changed, "heartbeat")
		attrs = append(attrs, logx.String("heartbeat.schedule", strings.TrimSpace(newCfg.Heartbeat.Schedule)))
	}

	sort.Strings(changed)
	return changed, attrs
}

// HandlerChanged reports whether the bot handler must be rebuilt.
func HandlerChanged(oldCfg, newCfg *Config) bool {
	if oldCfg == nil || newCfg == nil {
		return oldCfg != newCfg
	}
	ot, nt := oldCfg.Telegram, newCfg.Telegram
	return ot.Token != nt.Token ||
		ot.Client != nt.Client ||
		ot.APIURL != nt.APIURL ||
		ot.Timeout != nt.Timeout ||
		!slices.Equal(ot.Recipients, nt.Recipients) ||
		oldCfg.Handler != newCfg.Handler
}
