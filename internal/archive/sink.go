package archive

import (
	"context"
	"log/slog"

	"loggingbot/pkg/botlog"
	logx "loggingbot/pkg/logx"
)

// Sink persists every record it receives, routed or not.
type Sink struct {
	store Store
	log   logx.Logger
}

var _ botlog.Sink = (*Sink)(nil)

func NewSink(store Store, log logx.Logger) *Sink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sink{store: store, log: log}
}

func (s *Sink) Handle(ctx context.Context, r botlog.Record) {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Append(ctx, EntryFromRecord(r)); err != nil {
		s.log.Warn("archive append failed", logx.Err(err))
	}
}

// EntryFromRecord flattens r. Stream attachments are recorded by name only.
func EntryFromRecord(r botlog.Record) Entry {
	e := Entry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Logger:  r.Logger,
		Message: r.Message,
		Routed:  r.Route,
		Figure:  r.Figure != nil,
	}
	if r.Image != nil {
		e.Image = attachmentName(r.Image)
	}
	if r.File != nil {
		e.File = attachmentName(r.File)
	}
	if len(r.Attrs) > 0 {
		e.Attrs = make(map[string]any, len(r.Attrs))
		for _, a := range r.Attrs {
			e.Attrs[a.Key] = attrValue(a.Value)
		}
	}
	return e
}

func attachmentName(s *botlog.Source) string {
	if p := s.PathName(); p != "" {
		return p
	}
	return "stream:" + s.Name()
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	if v.Kind() != slog.KindGroup {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	}
	m := make(map[string]any)
	for _, a := range v.Group() {
		m[a.Key] = attrValue(a.Value)
	}
	return m
}
