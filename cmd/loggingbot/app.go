package main

import (
	"context"
	"fmt"
	"sync"

	"loggingbot/internal/archive"
	"loggingbot/internal/config"
	"loggingbot/internal/metrics"
	"loggingbot/pkg/botlog"
	"loggingbot/pkg/botlog/telegram"
	logx "loggingbot/pkg/logx"
)

// app bundles what every subcommand needs after the config is loaded.
type app struct {
	mgr  *config.Manager
	cfg  *config.Config
	logs *logx.Service
	log  logx.Logger
}

func loadApp(g *globalFlags) (*app, error) {
	mgr := config.NewManager(g.Config)
	if err := mgr.LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", g.Config, err)
	}

	logs, log := logx.New(logOptions(cfg, g), nil)
	mgr.SetLogger(log.With(logx.String("comp", "config")))
	return &app{mgr: mgr, cfg: cfg, logs: logs, log: log}, nil
}

func logOptions(cfg *config.Config, g *globalFlags) logx.Config {
	opts := cfg.LogOptions()
	if g.LogLevel != "" {
		opts.Level = g.LogLevel
	}
	return opts
}

func (a *app) Close() {
	_ = a.logs.Close()
}

// newHandler dials the bot for cfg. Delivery failures are logged at warn so
// a min_level=error bridge cannot feed them back into the bot.
// Failures are also passed to onErr when it is non-nil.
func newHandler(cfg *config.Config, m *metrics.Metrics, log logx.Logger, onErr botlog.ErrorFunc) *botlog.Handler {
	opts := cfg.HandlerOptions()
	opts.OnError = func(r botlog.Record, err error) {
		log.Warn("bot delivery failed", logx.String("logger", r.Logger), logx.Err(err))
		if onErr != nil {
			onErr(r, err)
		}
	}
	dial := telegram.Dial(cfg.TransportOptions())
	if m != nil {
		dial = m.Dialer(dial)
	}
	h := botlog.New(opts, dial)
	if !h.Ready() {
		log.Warn("bot handler not ready; routed records will be dropped", logx.Err(h.Err()))
	}
	return h
}

// relay is the Sink handed to loggers. It forwards to the current bot
// handler and archive, both of which can be replaced on config reload.
// Handle holds the read lock for the whole delivery, so a swap waits for
// in-flight records before the previous handler or store is closed.
type relay struct {
	mu      sync.RWMutex
	handler *botlog.Handler
	archive archive.Store
	sink    botlog.Sink
	log     logx.Logger
}

var _ botlog.Sink = (*relay)(nil)

func newRelay(log logx.Logger) *relay { return &relay{log: log} }

func (r *relay) Handle(ctx context.Context, rec botlog.Record) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.sink != nil {
		r.sink.Handle(ctx, rec)
	}
}

// Ready reports whether the current handler can deliver.
func (r *relay) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handler != nil && r.handler.Ready()
}

// SetHandler installs h and closes the previous handler.
func (r *relay) SetHandler(h *botlog.Handler) {
	r.mu.Lock()
	old := r.handler
	r.handler = h
	r.rebuildLocked()
	r.mu.Unlock()
	if old != nil && old != h {
		_ = old.Close()
	}
}

// SetArchive installs store (nil disables archiving) and closes the previous one.
func (r *relay) SetArchive(store archive.Store) {
	r.mu.Lock()
	old := r.archive
	r.archive = store
	r.rebuildLocked()
	r.mu.Unlock()
	if old != nil && old != store {
		_ = old.Close()
	}
}

func (r *relay) rebuildLocked() {
	var fan botlog.Fanout
	if r.handler != nil {
		fan = append(fan, r.handler)
	}
	if r.archive != nil {
		fan = append(fan, archive.NewSink(r.archive, r.log.With(logx.String("comp", "archive"))))
	}
	r.sink = fan
}

func (r *relay) Close() {
	r.SetHandler(nil)
	r.SetArchive(nil)
}
