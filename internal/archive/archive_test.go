package archive

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"loggingbot/pkg/botlog"
	logx "loggingbot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "mongo", Path: t.TempDir()}, logx.Nop())
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err = %v, want ErrUnknownDriver", err)
	}
}

func TestFolderRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Open(Config{Driver: "folder", Path: path}, logx.Nop())
	if !errors.Is(err, ErrNotDirectory) {
		t.Fatalf("err = %v, want ErrNotDirectory", err)
	}
}

func TestFolderSinkWritesOneFilePerRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "records")
	st, err := Open(Config{Driver: "folder", Path: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	sink := NewSink(st, logx.Nop())
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sink.Handle(context.Background(), botlog.Record{
		Time:    at,
		Level:   slog.LevelError,
		Logger:  "ci",
		Message: "build failed",
		Route:   true,
		File:    botlog.Path("/var/log/build.log"),
		Image:   botlog.Stream(strings.NewReader("x"), "chart.png"),
		Attrs:   []slog.Attr{slog.Int("job", 7), slog.Any("err", errors.New("exit 1"))},
	})
	sink.Handle(context.Background(), botlog.Record{Message: "quiet"})

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %d, want 2", len(files))
	}

	var found bool
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			t.Fatalf("decode %s: %v", f, err)
		}
		if filepath.Base(f) != e.ID+".json" {
			t.Fatalf("file %s does not match id %s", f, e.ID)
		}
		if e.Message != "build failed" {
			continue
		}
		found = true
		if !e.Routed || e.Level != "ERROR" || e.Logger != "ci" || !e.Time.Equal(at) {
			t.Fatalf("unexpected entry: %+v", e)
		}
		if e.File != "/var/log/build.log" || e.Image != "stream:chart.png" {
			t.Fatalf("attachments = %q, %q", e.File, e.Image)
		}
		if e.Attrs["err"] != "exit 1" || e.Attrs["job"] != float64(7) {
			t.Fatalf("attrs = %v", e.Attrs)
		}
	}
	if !found {
		t.Fatal("routed record not archived")
	}
}

func TestSQLiteAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive", "records.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	sink := NewSink(st, logx.Nop())
	for i := 0; i < 3; i++ {
		sink.Handle(ctx, botlog.Record{Level: slog.LevelInfo, Message: "line", Route: i%2 == 0})
	}

	sq, ok := st.(*sqliteStore)
	if !ok {
		t.Fatalf("store type = %T", st)
	}
	n, err := sq.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
}

func TestSQLitePrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, Retention: time.Hour}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	sq := st.(*sqliteStore)

	ctx := context.Background()
	if err := sq.Append(ctx, Entry{Time: time.Now().Add(-2 * time.Hour), Level: "INFO", Message: "old"}); err != nil {
		t.Fatal(err)
	}
	if err := sq.Append(ctx, Entry{Level: "INFO", Message: "new"}); err != nil {
		t.Fatal(err)
	}
	if err := sq.pruneExpired(ctx); err != nil {
		t.Fatal(err)
	}
	n, err := sq.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count after prune = %d, want 1", n)
	}
}
