package botlog

import (
	"context"
	"log/slog"
	"slices"
)

// Attribute keys lifted out of slog records into Record fields.
const (
	KeyRoute  = "bot"
	KeyFigure = "figure"
	KeyImage  = "image"
	KeyFile   = "file"
)

// AttrRoute marks a slog record for delivery to the bot.
func AttrRoute() slog.Attr { return slog.Bool(KeyRoute, true) }

// AttrFigure attaches a figure.
func AttrFigure(f Figure) slog.Attr { return slog.Any(KeyFigure, f) }

// AttrImage attaches an image: a path string, an io.Reader or a *Source.
func AttrImage(v any) slog.Attr { return slog.Any(KeyImage, v) }

// AttrFile attaches a document: a path string, an io.Reader or a *Source.
func AttrFile(v any) slog.Attr { return slog.Any(KeyFile, v) }

// SlogOptions configures the slog adapter.
type SlogOptions struct {
	// Level is the minimum level passed on. Nil passes everything.
	Level slog.Leveler
	// Name is reported as Record.Logger.
	Name string
}

type slogHandler struct {
	sink   Sink
	opts   SlogOptions
	attrs  []slog.Attr
	groups []string
}

// NewSlogHandler returns a slog.Handler that converts records and hands them to sink.
// Reserved keys (bot, figure, image, file) are only recognized outside groups.
func NewSlogHandler(sink Sink, opts *SlogOptions) slog.Handler {
	h := &slogHandler{sink: sink}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.opts.Level == nil {
		return true
	}
	return level >= h.opts.Level.Level()
}

func (h *slogHandler) Handle(ctx context.Context, sr slog.Record) error {
	r := Record{
		Time:    sr.Time,
		Level:   sr.Level,
		Logger:  h.opts.Name,
		Message: sr.Message,
	}

	var own []slog.Attr
	sr.Attrs(func(a slog.Attr) bool {
		own = append(own, a)
		return true
	})

	// Attributes added while groups were open are already nested under a group key.
	for _, a := range h.attrs {
		h.lift(&r, a)
	}
	if len(h.groups) == 0 {
		for _, a := range own {
			h.lift(&r, a)
		}
	} else {
		r.Attrs = append(r.Attrs, nest(h.groups, own)...)
	}

	h.sink.Handle(ctx, r)
	return nil
}

// lift moves a top-level reserved attribute into its Record field and keeps
// anything else as a plain attribute.
func (h *slogHandler) lift(r *Record, a slog.Attr) {
	v := a.Value.Resolve()
	switch a.Key {
	case KeyRoute:
		r.Route = truthy(v)
		return
	case KeyFigure:
		if f, ok := v.Any().(Figure); ok {
			r.Figure = f
			return
		}
	case KeyImage:
		if s := sourceOf(v.Any()); s != nil {
			r.Image = s
			return
		}
	case KeyFile:
		if s := sourceOf(v.Any()); s != nil {
			r.File = s
			return
		}
	}
	r.Attrs = append(r.Attrs, a)
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	cp := *h
	if len(h.groups) == 0 {
		cp.attrs = append(slices.Clip(h.attrs), attrs...)
	} else {
		cp.attrs = append(slices.Clip(h.attrs), nest(h.groups, attrs)...)
	}
	return &cp
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.groups = append(slices.Clip(h.groups), name)
	return &cp
}

func nest(groups []string, attrs []slog.Attr) []slog.Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := attrs
	for i := len(groups) - 1; i >= 0; i-- {
		out = []slog.Attr{{Key: groups[i], Value: slog.GroupValue(out...)}}
	}
	return out
}

func truthy(v slog.Value) bool {
	switch v.Kind() {
	case slog.KindBool:
		return v.Bool()
	case slog.KindInt64:
		return v.Int64() != 0
	case slog.KindUint64:
		return v.Uint64() != 0
	case slog.KindString:
		switch v.String() {
		case "", "0", "false", "False", "FALSE":
			return false
		}
		return true
	default:
		return v.Any() != nil
	}
}
