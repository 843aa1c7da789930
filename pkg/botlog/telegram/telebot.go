package telegram

import (
	"bytes"
	"context"
	"net/http"

	tele "gopkg.in/telebot.v4"

	"loggingbot/pkg/botlog"
)

// telebotTransport sends through gopkg.in/telebot.v4. It never polls for
// updates; the bot is used for outgoing calls only.
type telebotTransport struct {
	bot *tele.Bot
}

func newTelebot(token, apiURL string, client *http.Client) (*telebotTransport, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		URL:    apiURL,
		Client: client,
	})
	if err != nil {
		return nil, err
	}
	return &telebotTransport{bot: b}, nil
}

func (t *telebotTransport) SendMessage(_ context.Context, to botlog.Recipient, text string) error {
	_, err := t.bot.Send(tele.ChatID(to), text, &tele.SendOptions{DisableWebPagePreview: true})
	return err
}

func (t *telebotTransport) SendPhoto(_ context.Context, to botlog.Recipient, png []byte) error {
	photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(png))}
	_, err := t.bot.Send(tele.ChatID(to), photo)
	return err
}

func (t *telebotTransport) SendDocument(_ context.Context, to botlog.Recipient, name string, data []byte) error {
	doc := &tele.Document{File: tele.FromReader(bytes.NewReader(data)), FileName: name}
	_, err := t.bot.Send(tele.ChatID(to), doc)
	return err
}
