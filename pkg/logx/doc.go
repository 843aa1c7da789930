// Package logx configures loggingbot's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Optional Telegram bridge (bot=true field or min-level, optional rate limit)
//
// The Telegram bridge turns zerolog lines into botlog records and hands them
// to a botlog.Sink on a worker goroutine, so logging never waits on the network.
package logx
