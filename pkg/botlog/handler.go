package botlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

const (
	// DefaultFigureWidth is the default exported figure width in pixels.
	DefaultFigureWidth = 800

	// tightBBoxCorrection compensates for the margin removed by a tight
	// bounding box so the final PNG lands on the target width.
	tightBBoxCorrection = 1.065
)

// Recipient identifies a chat the bot delivers to.
type Recipient int64

// Transport is the bot API client used for delivery.
type Transport interface {
	SendMessage(ctx context.Context, to Recipient, text string) error
	SendPhoto(ctx context.Context, to Recipient, png []byte) error
	SendDocument(ctx context.Context, to Recipient, name string, data []byte) error
}

// Dialer builds a Transport from a bot token.
type Dialer func(token string) (Transport, error)

// ErrorFunc receives delivery failures.
type ErrorFunc func(r Record, err error)

// Config configures a Handler.
type Config struct {
	Token      string
	Recipients []Recipient
	// FigureWidth is the target pixel width of exported figures (default 800).
	FigureWidth int
	// Formatter renders message text (default MessageFormatter).
	Formatter Formatter
	// OnError receives delivery failures (default: one line on stderr).
	OnError ErrorFunc
}

// SendError is reported when a branch of Handle fails for one or more recipients.
type SendError struct {
	Op  string // message, figure, image or file
	Err error
}

func (e *SendError) Error() string { return "botlog: send " + e.Op + ": " + e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }

// ErrNoTransport is returned by Dial when no dialer was given.
var ErrNoTransport = errors.New("botlog: no transport dialer")

// Handler relays routed records to the bot's recipients.
//
// Handle and Close share one mutex: a send in progress always completes
// against the client it started with, and nothing is sent after Close.
type Handler struct {
	recipients  []Recipient
	figureWidth int
	formatter   Formatter
	onError     ErrorFunc

	mu      sync.Mutex
	client  Transport
	dialErr error
}

// New dials the transport and returns the handler. A dial failure is not
// returned: the handler becomes a no-op and Ready reports false.
func New(cfg Config, dial Dialer) *Handler {
	h := &Handler{
		recipients:  append([]Recipient(nil), cfg.Recipients...),
		figureWidth: cfg.FigureWidth,
		formatter:   cfg.Formatter,
		onError:     cfg.OnError,
	}
	if h.figureWidth <= 0 {
		h.figureWidth = DefaultFigureWidth
	}
	if h.formatter == nil {
		h.formatter = MessageFormatter
	}
	if h.onError == nil {
		h.onError = stderrReporter()
	}

	if dial == nil {
		h.dialErr = ErrNoTransport
		return h
	}
	client, err := dial(cfg.Token)
	if err != nil {
		h.dialErr = err
		return h
	}
	if client == nil {
		h.dialErr = ErrNoTransport
		return h
	}
	h.client = client
	return h
}

// Ready reports whether the transport was constructed and the handler is
// still open. It does not check network reachability.
func (h *Handler) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client != nil
}

// Err returns the dial error, if any.
func (h *Handler) Err() error { return h.dialErr }

// Recipients returns a copy of the configured recipients.
func (h *Handler) Recipients() []Recipient {
	return append([]Recipient(nil), h.recipients...)
}

// Close drops the transport. Later Handle calls are no-ops.
func (h *Handler) Close() error {
	h.mu.Lock()
	h.client = nil
	h.mu.Unlock()
	return nil
}

// Handle delivers r if it carries the routing flag. Text, figure, image and
// file are sent independently; a failure in one does not stop the others.
func (h *Handler) Handle(ctx context.Context, r Record) {
	if !r.Route {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		return
	}

	if r.Message != "" {
		text := Truncate(h.formatter.Format(r))
		h.report(r, "message", h.each(func(to Recipient) error {
			return h.client.SendMessage(ctx, to, text)
		}))
	}

	if r.Figure != nil {
		png, err := h.exportFigure(r.Figure)
		if err != nil {
			h.report(r, "figure", err)
		} else {
			h.report(r, "figure", h.each(func(to Recipient) error {
				return h.client.SendPhoto(ctx, to, png)
			}))
		}
	}

	if r.Image != nil {
		// Unreadable attachments are dropped without a report.
		if data, err := r.Image.ReadAll(); err == nil {
			h.report(r, "image", h.each(func(to Recipient) error {
				return h.client.SendPhoto(ctx, to, data)
			}))
		}
	}

	if r.File != nil {
		if data, err := r.File.ReadAll(); err == nil {
			name := r.File.Name()
			h.report(r, "file", h.each(func(to Recipient) error {
				return h.client.SendDocument(ctx, to, name, data)
			}))
		}
	}
}

// each calls send for every recipient in order and collects the failures.
func (h *Handler) each(send func(to Recipient) error) error {
	var errs *multierror.Error
	for _, to := range h.recipients {
		if err := send(to); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("recipient %d: %w", to, err))
		}
	}
	return errs.ErrorOrNil()
}

func (h *Handler) report(r Record, op string, err error) {
	if err == nil {
		return
	}
	h.onError(r, &SendError{Op: op, Err: err})
}

func (h *Handler) exportFigure(fig Figure) ([]byte, error) {
	dpi, err := FigureDPI(h.figureWidth, fig.WidthInches())
	if err != nil {
		return nil, err
	}
	face, edge := fig.Colors()
	var buf bytes.Buffer
	err = fig.RenderPNG(&buf, RenderOptions{
		DPI:       dpi,
		FaceColor: face,
		EdgeColor: edge,
		Tight:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("render figure: %w", err)
	}
	return buf.Bytes(), nil
}

// FigureDPI returns the export resolution that makes a figure widthInches
// wide come out targetWidth pixels wide after a tight bounding box.
func FigureDPI(targetWidth int, widthInches float64) (float64, error) {
	if widthInches <= 0 {
		return 0, fmt.Errorf("figure width must be positive, got %v", widthInches)
	}
	if targetWidth <= 0 {
		targetWidth = DefaultFigureWidth
	}
	return float64(targetWidth) / widthInches * tightBBoxCorrection, nil
}

func stderrReporter() ErrorFunc {
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()
	return func(r Record, err error) {
		zl.Error().
			Err(err).
			Str("logger", r.Logger).
			Str("record_level", r.Level.String()).
			Msg("botlog: delivery failed")
	}
}
