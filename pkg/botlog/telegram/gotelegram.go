package telegram

import (
	"bytes"
	"context"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"loggingbot/pkg/botlog"
)

// goTelegramTransport sends through github.com/go-telegram/bot.
type goTelegramTransport struct {
	bot *bot.Bot
}

func newGoTelegram(token, apiURL string, client *http.Client) (*goTelegramTransport, error) {
	opts := []bot.Option{bot.WithHTTPClient(client.Timeout, client)}
	if apiURL != "" {
		opts = append(opts, bot.WithServerURL(apiURL))
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, err
	}
	return &goTelegramTransport{bot: b}, nil
}

func (t *goTelegramTransport) SendMessage(ctx context.Context, to botlog.Recipient, text string) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: int64(to),
		Text:   text,
	})
	return err
}

func (t *goTelegramTransport) SendPhoto(ctx context.Context, to botlog.Recipient, png []byte) error {
	_, err := t.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: int64(to),
		Photo:  &models.InputFileUpload{Filename: "figure.png", Data: bytes.NewReader(png)},
	})
	return err
}

func (t *goTelegramTransport) SendDocument(ctx context.Context, to botlog.Recipient, name string, data []byte) error {
	_, err := t.bot.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   int64(to),
		Document: &models.InputFileUpload{Filename: name, Data: bytes.NewReader(data)},
	})
	return err
}
