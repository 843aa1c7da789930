// Package botlog forwards selected log records to the chats of a Telegram bot.
//
// A [Handler] receives [Record] values and, when a record carries the routing
// flag, relays its text and attachments to every configured recipient:
//   - Message text is formatted and truncated to Telegram's 4096 character limit
//   - A [Figure] is exported to PNG at a DPI matching the target pixel width
//   - Image and file [Source] values are read and uploaded as photo or document
//
// Transport (the bot API client) is injected through a [Dialer]; see the
// telegram subpackage for the telebot and go-telegram drivers. If dialing
// fails the handler degrades to a no-op sink and [Handler.Ready] reports false.
//
// [NewSlogHandler] adapts any [Sink] to log/slog:
//
//	h := botlog.New(botlog.Config{Token: tok, Recipients: ids}, telegram.Dial(telegram.Config{}))
//	logger := slog.New(botlog.NewSlogHandler(h, nil))
//	logger.Warn("build failed", botlog.AttrRoute(), botlog.AttrFile("./build.log"))
package botlog
