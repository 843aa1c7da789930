package heartbeat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"loggingbot/pkg/botlog"
	logx "loggingbot/pkg/logx"
)

type capture struct {
	mu   sync.Mutex
	recs []botlog.Record
}

func (c *capture) Handle(_ context.Context, r botlog.Record) {
	c.mu.Lock()
	c.recs = append(c.recs, r)
	c.mu.Unlock()
}

func (c *capture) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.recs)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	for _, spec := range []string{"", "*/5 * * * *", "0 */5 * * * *", "@hourly", "@every 30m"} {
		if err := Validate(spec); err != nil {
			t.Fatalf("Validate(%q) error: %v", spec, err)
		}
	}
	if err := Validate("not-a-schedule"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestBeatRoutesRecord(t *testing.T) {
	t.Parallel()
	sink := &capture{}
	s := New(sink, logx.Nop())
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	if err := s.Apply(Config{Message: "relay ok"}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	s.Beat()
	if sink.len() != 1 {
		t.Fatalf("records = %d, want 1", sink.len())
	}
	r := sink.recs[0]
	if !r.Route || r.Message != "relay ok" || r.Logger != "heartbeat" || !r.Time.Equal(fixed) {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestDefaultMessage(t *testing.T) {
	t.Parallel()
	sink := &capture{}
	New(sink, logx.Nop()).Beat()
	if sink.len() != 1 || !strings.HasPrefix(sink.recs[0].Message, "loggingbot is alive") {
		t.Fatalf("unexpected records: %+v", sink.recs)
	}
}

func TestScheduleFires(t *testing.T) {
	t.Parallel()
	sink := &capture{}
	s := New(sink, logx.Nop())
	t.Cleanup(s.Stop)

	if err := s.Apply(Config{Schedule: "* * * * * *", Message: "tick"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for sink.len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("heartbeat never fired")
		}
		time.Sleep(50 * time.Millisecond)
	}

	s.Stop()
	n := sink.len()
	time.Sleep(1200 * time.Millisecond)
	if sink.len() != n {
		t.Fatalf("heartbeat fired after Stop: %d -> %d", n, sink.len())
	}
}

func TestApplyRejectsBadSpec(t *testing.T) {
	t.Parallel()
	s := New(&capture{}, logx.Nop())
	if err := s.Apply(Config{Schedule: "every tuesday"}); err == nil {
		t.Fatal("expected error")
	}
}
