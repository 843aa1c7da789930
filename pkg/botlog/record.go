package botlog

import (
	"context"
	"image/color"
	"io"
	"log/slog"
	"time"
)

// Record is a log event as seen by a [Sink].
//
// Optional fields are nil/zero when absent. Sinks must treat a Record as
// read-only; the same value may be handed to several sinks by [Fanout].
type Record struct {
	Time    time.Time
	Level   slog.Level
	Logger  string
	Message string

	// Route gates delivery to the bot. Records without it are ignored by Handler.
	Route bool

	Figure Figure
	Image  *Source
	File   *Source

	Attrs []slog.Attr
}

// Figure is a chart that can render itself as PNG.
type Figure interface {
	// WidthInches is the figure's physical width.
	WidthInches() float64
	// Colors returns the figure's own face and edge colors.
	Colors() (face, edge color.Color)
	RenderPNG(w io.Writer, opts RenderOptions) error
}

// RenderOptions controls figure export.
type RenderOptions struct {
	DPI       float64
	FaceColor color.Color
	EdgeColor color.Color
	// Tight trims the face-colored margin around the drawing.
	Tight bool
}

// Sink consumes records. Handle never returns an error: failures are
// reported out of band by the sink itself.
type Sink interface {
	Handle(ctx context.Context, r Record)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(ctx context.Context, r Record)

func (f SinkFunc) Handle(ctx context.Context, r Record) { f(ctx, r) }

// Fanout hands every record to each sink in order.
type Fanout []Sink

func (f Fanout) Handle(ctx context.Context, r Record) {
	for _, s := range f {
		if s != nil {
			s.Handle(ctx, r)
		}
	}
}
