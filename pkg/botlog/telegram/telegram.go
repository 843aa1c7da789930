// Package telegram provides botlog transports backed by Telegram bot clients.
package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"loggingbot/pkg/botlog"
)

// Driver names accepted by Config.Driver.
const (
	DriverTelebot    = "telebot"
	DriverGoTelegram = "go-telegram"
)

const defaultTimeout = 10 * time.Second

// ErrEmptyToken is returned when dialing without a token.
var ErrEmptyToken = errors.New("telegram token is empty")

// Config selects and tunes the bot client.
type Config struct {
	// Driver is "telebot" (default) or "go-telegram".
	Driver string
	// APIURL overrides https://api.telegram.org (self-hosted Bot API servers, tests).
	APIURL string
	// Timeout bounds each HTTP request made by the client.
	Timeout time.Duration
}

// Dial returns a botlog.Dialer for cfg. Dialing verifies the token with
// getMe, so an invalid token or an unreachable API fails construction.
func Dial(cfg Config) botlog.Dialer {
	return func(token string) (botlog.Transport, error) {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, ErrEmptyToken
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client := &http.Client{Timeout: timeout}
		apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")

		switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
		case "", DriverTelebot:
			return newTelebot(token, apiURL, client)
		case DriverGoTelegram, "gotelegram":
			return newGoTelegram(token, apiURL, client)
		default:
			return nil, fmt.Errorf("unknown telegram driver %q", cfg.Driver)
		}
	}
}
