package archive

import (
	"errors"
	"time"
)

var (
	ErrDisabled      = errors.New("archive disabled")
	ErrNotDirectory  = errors.New("archive path is not a directory")
	ErrUnknownDriver = errors.New("unknown archive driver")
)

// Config configures the archive.
//
// Driver values:
//   - "folder": directory of JSON files
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", the archive is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	// Retention drops sqlite rows older than this. 0 keeps everything.
	Retention time.Duration
}

// Entry is the persisted form of a record. Keep it flat and schema-stable.
type Entry struct {
	ID      string         `json:"id"`
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Logger  string         `json:"logger,omitempty"`
	Message string         `json:"message"`
	Routed  bool           `json:"bot"`
	Figure  bool           `json:"figure,omitempty"`
	Image   string         `json:"image,omitempty"`
	File    string         `json:"file,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}
