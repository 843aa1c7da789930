package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	logx "loggingbot/pkg/logx"
)

// folderStore writes each entry to <dir>/<uuid>.json.
type folderStore struct {
	log logx.Logger
	dir string

	mu     sync.Mutex
	closed bool
}

func openFolder(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("archive.path is required for folder driver")
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	dir, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		// MkdirAll fails with ENOTDIR when a file is in the way.
		if st, serr := os.Stat(dir); serr == nil && !st.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
		}
		return nil, err
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	return &folderStore{log: log, dir: dir}, nil
}

func (s *folderStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("archive folder closed")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	b, err := json.MarshalIndent(e, "", " ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, e.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *folderStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
