package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"loggingbot/internal/archive"
	"loggingbot/internal/config"
	"loggingbot/internal/heartbeat"
	"loggingbot/internal/metrics"
	"loggingbot/internal/supervisor"
	"loggingbot/pkg/botlog"
	logx "loggingbot/pkg/logx"
)

const maxLineBytes = 1 << 20

type pipeFlags struct {
	Level     string
	SkipEmpty bool
	Watch     bool
}

func (f *pipeFlags) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.Level, "level", "info", "level assigned to every line")
	flags.BoolVar(&f.SkipEmpty, "skip-empty", true, "ignore blank lines")
	flags.BoolVar(&f.Watch, "watch", true, "reload the config file when it changes")
}

func newPipeCmd(g *globalFlags) *cobra.Command {
	f := &pipeFlags{}
	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Forward stdin lines to the bot until EOF or a signal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPipe(ctx, g, f, cmd.InOrStdin())
		},
	}
	f.RegisterFlags(cmd.Flags())
	return cmd
}

// pipeline owns the long-running pieces so a reload can adjust each one.
type pipeline struct {
	g       *globalFlags
	app     *app
	relay   *relay
	metrics *metrics.Metrics
	server  *metrics.Server
	beat    *heartbeat.Service
}

func runPipe(ctx context.Context, g *globalFlags, f *pipeFlags, in io.Reader) error {
	level, err := parseSlogLevel(f.Level)
	if err != nil {
		return err
	}
	a, err := loadApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	p := &pipeline{g: g, app: a, relay: newRelay(a.log), metrics: metrics.New()}
	p.server = metrics.NewServer(p.metrics, a.log)
	p.server.SetReady(p.relay.Ready)
	p.beat = heartbeat.New(p.relay, a.log)
	defer p.shutdown()

	p.apply(ctx, nil, a.cfg)
	a.logs.SetSink(p.relay)

	sup := supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sup.Stop(sctx); err != nil {
			a.log.Warn("background tasks did not stop cleanly", logx.Err(err))
		}
	}()
	if f.Watch {
		updates := a.mgr.Subscribe(1)
		defer a.mgr.Unsubscribe(updates)
		sup.Go("config-watch", a.mgr.Watch)
		sup.Go("config-apply", func(ctx context.Context) error {
			p.follow(ctx, updates)
			return nil
		})
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}
	a.log.Info("pipe started", logx.Int("recipients", len(a.cfg.Telegram.Recipients)))

	logger := slog.New(botlog.NewSlogHandler(p.relay, &botlog.SlogOptions{Name: a.cfg.Handler.LoggerName}))
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() { readErr <- scanLines(ctx, in, lines) }()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("pipe interrupted")
			return nil
		case err := <-readErr:
			// scanLines sends unbuffered, so every line has been forwarded.
			if err != nil {
				return err
			}
			a.log.Info("pipe finished")
			return nil
		case line := <-lines:
			p.forward(ctx, logger, level, line, f.SkipEmpty)
		}
	}
}

// scanLines sends each line of in to out until EOF or ctx is done.
func scanLines(ctx context.Context, in io.Reader, out chan<- string) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		select {
		case out <- sc.Text():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return sc.Err()
}

func (p *pipeline) forward(ctx context.Context, logger *slog.Logger, level slog.Level, line string, skipEmpty bool) {
	line = strings.TrimRight(line, "\r")
	if skipEmpty && strings.TrimSpace(line) == "" {
		return
	}
	logger.Log(ctx, level, line, botlog.AttrRoute())
}

func (p *pipeline) follow(ctx context.Context, updates <-chan *config.Config) {
	prev := p.app.cfg
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			p.apply(ctx, prev, cfg)
			prev = cfg
		}
	}
}

// apply brings every component in line with next. prev is nil on startup.
func (p *pipeline) apply(ctx context.Context, prev, next *config.Config) {
	log := p.app.log
	if prev != nil {
		p.app.logs.Apply(logOptions(next, p.g))
	}
	if prev == nil || config.HandlerChanged(prev, next) {
		p.relay.SetHandler(newHandler(next, p.metrics, log, nil))
	}
	if prev == nil || prev.Archive != next.Archive {
		store, err := archive.Open(next.ArchiveOptions(), log)
		if err != nil {
			log.Warn("archive disabled", logx.Err(err))
		}
		p.relay.SetArchive(store)
	}
	p.server.Apply(ctx, metrics.ServerConfig{Enabled: next.Metrics.Enabled, Address: next.Metrics.Address})
	if err := p.beat.Apply(next.HeartbeatOptions()); err != nil {
		log.Warn("heartbeat disabled", logx.Err(err))
	}
}

func (p *pipeline) shutdown() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	p.beat.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.server.Stop(ctx)
	p.app.logs.SetSink(nil)
	p.relay.Close()
}
