package botlog

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source is an attachment payload: either a filesystem path or an already
// open stream. Build it with [Path] or [Stream].
type Source struct {
	path string
	r    io.Reader
	name string
}

// Path returns a Source that opens the named file when the record is handled.
func Path(p string) *Source {
	return &Source{path: p, name: filepath.Base(p)}
}

// Stream returns a Source backed by r. If r implements [io.Seeker] it is
// rewound to the start before reading. name is used as the document file
// name and may be empty.
func Stream(r io.Reader, name string) *Source {
	return &Source{r: r, name: name}
}

// IsPath reports whether s was built with [Path].
func (s *Source) IsPath() bool { return s != nil && s.r == nil }

// PathName returns the path for path sources and "" for streams.
func (s *Source) PathName() string {
	if !s.IsPath() {
		return ""
	}
	return s.path
}

// Name returns the file name used for uploads.
func (s *Source) Name() string {
	if s == nil {
		return ""
	}
	if n := strings.TrimSpace(s.name); n != "" && n != "." && n != string(filepath.Separator) {
		return n
	}
	return "file"
}

// ReadAll resolves the source and returns its whole content. A leading
// "~/" in a path is expanded to the user's home directory.
func (s *Source) ReadAll() ([]byte, error) {
	if s.IsPath() {
		f, err := os.Open(expandHome(s.path))
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return io.ReadAll(f)
	}
	if sk, ok := s.r.(io.Seeker); ok {
		if _, err := sk.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}
	return io.ReadAll(s.r)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// sourceOf converts a loosely typed attribute value into a Source.
// It returns nil for values that cannot be an attachment.
func sourceOf(v any) *Source {
	switch x := v.(type) {
	case *Source:
		return x
	case Source:
		return &x
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		return Path(x)
	case *os.File:
		return Stream(x, filepath.Base(x.Name()))
	case io.Reader:
		return Stream(x, "")
	default:
		return nil
	}
}
