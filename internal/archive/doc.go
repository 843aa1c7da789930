// Package archive keeps a local copy of log records next to the bot relay.
//
// It currently supports:
//   - "folder": one JSON document per record, uuid-named, in a directory
//   - "sqlite": a single SQLite database file (modernc.org/sqlite, no cgo)
package archive
