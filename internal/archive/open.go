package archive

import (
	"context"
	"fmt"
	"strings"

	logx "loggingbot/pkg/logx"
)

// Store is the persistence API used by Sink.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if the archive is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "folder", "dir":
		return openFolder(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
