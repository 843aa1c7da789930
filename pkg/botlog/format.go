package botlog

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is Telegram's text message limit in characters.
const MaxMessageLength = 4096

// Formatter renders the text part of a record.
type Formatter interface {
	Format(r Record) string
}

// FormatterFunc adapts a function to [Formatter].
type FormatterFunc func(r Record) string

func (f FormatterFunc) Format(r Record) string { return f(r) }

// MessageFormatter sends the record message as is.
var MessageFormatter Formatter = FormatterFunc(func(r Record) string { return r.Message })

// BasicFormatter renders "LEVEL:logger:message".
var BasicFormatter Formatter = FormatterFunc(func(r Record) string {
	name := r.Logger
	if name == "" {
		name = "root"
	}
	return r.Level.String() + ":" + name + ":" + r.Message
})

// DetailedFormatter renders "[LEVEL] message" followed by one "- key=value"
// line per attribute.
var DetailedFormatter Formatter = FormatterFunc(func(r Record) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(r.Level.String())
	b.WriteString("] ")
	b.WriteString(r.Message)
	for _, a := range r.Attrs {
		writeAttr(&b, "", a)
	}
	return b.String()
})

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}
	b.WriteString("\n- ")
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(truncateRunes(fmt.Sprint(a.Value.Any()), 600))
}

// FormatterByName returns the formatter registered under name
// ("message", "basic", "detailed"). Unknown names yield false.
func FormatterByName(name string) (Formatter, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "message":
		return MessageFormatter, true
	case "basic":
		return BasicFormatter, true
	case "detailed":
		return DetailedFormatter, true
	default:
		return nil, false
	}
}

// truncateRunes returns s cut to at most n characters.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Truncate cuts text to [MaxMessageLength] characters.
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxMessageLength {
		return text
	}
	return truncateRunes(text, MaxMessageLength)
}
