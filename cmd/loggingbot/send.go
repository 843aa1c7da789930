package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"loggingbot/internal/archive"
	"loggingbot/pkg/botlog"
	"loggingbot/pkg/figure"
	logx "loggingbot/pkg/logx"
)

type sendFlags struct {
	Image     string
	File      string
	Figure    string
	FigureDPI float64
	Level     string
	Timeout   time.Duration
}

func (f *sendFlags) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.Image, "image", "", "image file sent as a photo")
	flags.StringVar(&f.File, "file", "", "file sent as a document")
	flags.StringVar(&f.Figure, "figure", "", "chart image re-exported at handler.figure_width")
	flags.Float64Var(&f.FigureDPI, "figure-dpi", figure.DefaultDPI, "native DPI of --figure")
	flags.StringVar(&f.Level, "level", "info", "record level")
	flags.DurationVar(&f.Timeout, "timeout", time.Minute, "overall delivery timeout")
}

func newSendCmd(g *globalFlags) *cobra.Command {
	f := &sendFlags{}
	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: "Send one record to every recipient",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd.Context(), g, f, strings.Join(args, " "))
		},
	}
	f.RegisterFlags(cmd.Flags())
	return cmd
}

func runSend(ctx context.Context, g *globalFlags, f *sendFlags, msg string) error {
	if msg == "" && f.Image == "" && f.File == "" && f.Figure == "" {
		return errors.New("nothing to send: pass a message or an attachment")
	}
	level, err := parseSlogLevel(f.Level)
	if err != nil {
		return err
	}

	attrs := []any{botlog.AttrRoute()}
	if f.Figure != "" {
		fig, err := figure.Load(f.Figure, f.FigureDPI)
		if err != nil {
			return err
		}
		attrs = append(attrs, botlog.AttrFigure(fig))
	}
	if f.Image != "" {
		attrs = append(attrs, botlog.AttrImage(f.Image))
	}
	if f.File != "" {
		attrs = append(attrs, botlog.AttrFile(f.File))
	}

	a, err := loadApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	var failed *multierror.Error
	h := newHandler(a.cfg, nil, a.log, func(_ botlog.Record, err error) {
		failed = multierror.Append(failed, err)
	})
	if !h.Ready() {
		return fmt.Errorf("bot not ready: %w", h.Err())
	}

	rl := newRelay(a.log)
	rl.SetHandler(h)
	if store, err := archive.Open(a.cfg.ArchiveOptions(), a.log); err != nil {
		a.log.Warn("archive disabled", logx.Err(err))
	} else if store != nil {
		rl.SetArchive(store)
	}
	defer rl.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	logger := slog.New(botlog.NewSlogHandler(rl, &botlog.SlogOptions{Name: a.cfg.Handler.LoggerName}))
	logger.Log(ctx, level, msg, attrs...)
	return failed.ErrorOrNil()
}

func parseSlogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid level %q: %w", s, err)
	}
	return l, nil
}
