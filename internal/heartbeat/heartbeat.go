// Package heartbeat periodically routes an "alive" record to the bot so
// operators notice when the relay goes silent.
package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"loggingbot/pkg/botlog"
	logx "loggingbot/pkg/logx"
)

const loggerName = "heartbeat"

type Config struct {
	// Schedule is a cron spec with optional seconds field, or a descriptor
	// such as "@hourly" or "@every 30m". Empty disables the heartbeat.
	Schedule string
	Message  string
}

// parser accepts both 5-field and 6-field (with seconds) specs.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate parses a schedule without starting anything.
func Validate(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("heartbeat schedule %q: %w", spec, err)
	}
	return nil
}

type Service struct {
	sink botlog.Sink
	log  logx.Logger
	now  func() time.Time

	mu  sync.Mutex
	cfg Config
	c   *cron.Cron
}

func New(sink botlog.Sink, log logx.Logger) *Service {
	return &Service{sink: sink, log: log.With(logx.String("comp", loggerName)), now: time.Now}
}

// Apply (re)starts the schedule. An unchanged config is a no-op; a bad
// spec stops the heartbeat and returns the parse error.
func (s *Service) Apply(cfg Config) error {
	cfg.Schedule = strings.TrimSpace(cfg.Schedule)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.c != nil && cfg == s.cfg {
		return nil
	}
	s.stopLocked()
	s.cfg = cfg
	if cfg.Schedule == "" {
		return nil
	}

	sched, err := parser.Parse(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("heartbeat schedule %q: %w", cfg.Schedule, err)
	}
	c := cron.New(cron.WithParser(parser))
	c.Schedule(sched, cron.FuncJob(s.Beat))
	c.Start()
	s.c = c
	s.log.Info("heartbeat scheduled", logx.String("schedule", cfg.Schedule))
	return nil
}

// Beat emits one heartbeat record immediately.
func (s *Service) Beat() {
	s.mu.Lock()
	msg := s.cfg.Message
	s.mu.Unlock()
	if msg == "" {
		msg = defaultMessage()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.sink.Handle(ctx, botlog.Record{
		Time:    s.now(),
		Level:   slog.LevelInfo,
		Logger:  loggerName,
		Message: msg,
		Route:   true,
	})
	s.log.Debug("heartbeat sent")
}

// Stop halts the schedule and waits for a running beat to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *Service) stopLocked() {
	if s.c == nil {
		return
	}
	// Beat takes s.mu; do not wait for it here.
	s.c.Stop()
	s.c = nil
}

func defaultMessage() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "loggingbot is alive"
	}
	return "loggingbot is alive on " + host
}
