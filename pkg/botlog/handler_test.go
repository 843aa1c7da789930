package botlog_test

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loggingbot/pkg/botlog"
)

type call struct {
	Op   string
	To   botlog.Recipient
	Text string
	Name string
	Data []byte
}

type fakeTransport struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]error
}

func (f *fakeTransport) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.fail[c.Op]
}

func (f *fakeTransport) SendMessage(_ context.Context, to botlog.Recipient, text string) error {
	return f.record(call{Op: "message", To: to, Text: text})
}

func (f *fakeTransport) SendPhoto(_ context.Context, to botlog.Recipient, png []byte) error {
	return f.record(call{Op: "photo", To: to, Data: png})
}

func (f *fakeTransport) SendDocument(_ context.Context, to botlog.Recipient, name string, data []byte) error {
	return f.record(call{Op: "document", To: to, Name: name, Data: data})
}

func (f *fakeTransport) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func dialer(t botlog.Transport) botlog.Dialer {
	return func(string) (botlog.Transport, error) { return t, nil }
}

type errSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errSink) report(_ botlog.Record, err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

func newHandler(t *testing.T, ft *fakeTransport, es *errSink, recipients ...botlog.Recipient) *botlog.Handler {
	t.Helper()
	cfg := botlog.Config{Token: "123:abc", Recipients: recipients}
	if es != nil {
		cfg.OnError = es.report
	}
	h := botlog.New(cfg, dialer(ft))
	require.True(t, h.Ready())
	return h
}

type stubFigure struct {
	width      float64
	face, edge color.Color
	got        botlog.RenderOptions
	err        error
}

func (f *stubFigure) WidthInches() float64               { return f.width }
func (f *stubFigure) Colors() (color.Color, color.Color) { return f.face, f.edge }
func (f *stubFigure) RenderPNG(w io.Writer, opts botlog.RenderOptions) error {
	f.got = opts
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("png"))
	return err
}

func TestHandleSendsToRecipientsInOrder(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	h := newHandler(t, ft, nil, 111, 222)

	h.Handle(context.Background(), botlog.Record{Route: true, Message: "build failed"})

	assert.Equal(t, []call{
		{Op: "message", To: 111, Text: "build failed"},
		{Op: "message", To: 222, Text: "build failed"},
	}, ft.Calls())
}

func TestHandleIgnoresUnroutedRecords(t *testing.T) {
	t.Parallel()

	tcs := map[string]botlog.Record{
		"message only": {Message: "hello"},
		"all attachments": {
			Message: "hello",
			Figure:  &stubFigure{width: 8},
			Image:   botlog.Stream(strings.NewReader("img"), ""),
			File:    botlog.Stream(strings.NewReader("doc"), "a.txt"),
		},
	}

	for name, rec := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ft := &fakeTransport{}
			h := newHandler(t, ft, nil, 1)
			h.Handle(context.Background(), rec)
			assert.Empty(t, ft.Calls())
		})
	}
}

func TestHandleTruncatesLongMessages(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input string
		want  string
	}{
		"ascii over limit": {
			input: strings.Repeat("a", 5000),
			want:  strings.Repeat("a", botlog.MaxMessageLength),
		},
		"exactly at limit": {
			input: strings.Repeat("b", botlog.MaxMessageLength),
			want:  strings.Repeat("b", botlog.MaxMessageLength),
		},
		"multibyte counted as characters": {
			input: strings.Repeat("é", 4100),
			want:  strings.Repeat("é", botlog.MaxMessageLength),
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ft := &fakeTransport{}
			h := newHandler(t, ft, nil, 1)
			h.Handle(context.Background(), botlog.Record{Route: true, Message: tc.input})

			calls := ft.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tc.want, calls[0].Text)
		})
	}
}

func TestFigureDPI(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		target int
		width  float64
		want   float64
	}{
		"default target": {target: 800, width: 8, want: 106.5},
		"zero target uses default": {target: 0, width: 4, want: 213},
		"wide figure": {target: 1200, width: 12.5, want: 1200 / 12.5 * 1.065},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := botlog.FigureDPI(tc.target, tc.width)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}

	_, err := botlog.FigureDPI(800, 0)
	require.Error(t, err)
}

func TestHandleExportsFigure(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	fig := &stubFigure{width: 10, face: color.White, edge: color.Black}
	h := botlog.New(botlog.Config{Recipients: []botlog.Recipient{7}, FigureWidth: 1000}, dialer(ft))

	h.Handle(context.Background(), botlog.Record{Route: true, Figure: fig})

	assert.InDelta(t, 1000.0/10*1.065, fig.got.DPI, 1e-9)
	assert.True(t, fig.got.Tight)
	assert.Equal(t, color.White, fig.got.FaceColor)
	assert.Equal(t, color.Black, fig.got.EdgeColor)
	assert.Equal(t, []call{{Op: "photo", To: 7, Data: []byte("png")}}, ft.Calls())
}

func TestHandleMissingImageStillSendsText(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	es := &errSink{}
	h := newHandler(t, ft, es, 5)

	missing := filepath.Join(t.TempDir(), "nope.png")
	h.Handle(context.Background(), botlog.Record{
		Route:   true,
		Message: "see attachment",
		Image:   botlog.Path(missing),
		File:    botlog.Path(missing),
	})

	assert.Equal(t, []call{{Op: "message", To: 5, Text: "see attachment"}}, ft.Calls())
	assert.Empty(t, es.errs)
}

func TestHandleAttachments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600))

	stream := bytes.NewReader([]byte("image-bytes"))
	_, err := stream.Seek(4, io.SeekStart)
	require.NoError(t, err)

	ft := &fakeTransport{}
	h := newHandler(t, ft, nil, 1, 2)
	h.Handle(context.Background(), botlog.Record{
		Route: true,
		Image: botlog.Stream(stream, ""),
		File:  botlog.Path(path),
	})

	assert.Equal(t, []call{
		{Op: "photo", To: 1, Data: []byte("image-bytes")},
		{Op: "photo", To: 2, Data: []byte("image-bytes")},
		{Op: "document", To: 1, Name: "report.csv", Data: []byte("a,b\n1,2\n")},
		{Op: "document", To: 2, Name: "report.csv", Data: []byte("a,b\n1,2\n")},
	}, ft.Calls())
}

func TestPathExpandsHomeDirectory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "chart.png"), []byte("png-bytes"), 0o600))

	src := botlog.Path("~/chart.png")
	assert.Equal(t, "chart.png", src.Name())

	data, err := src.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	ft := &fakeTransport{}
	h := newHandler(t, ft, nil, 9)
	h.Handle(context.Background(), botlog.Record{Route: true, File: botlog.Path("~/chart.png")})
	assert.Equal(t, []call{{Op: "document", To: 9, Name: "chart.png", Data: []byte("png-bytes")}}, ft.Calls())
}

func TestHandleBranchFailuresAreIndependent(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	ft := &fakeTransport{fail: map[string]error{"message": boom}}
	es := &errSink{}
	h := newHandler(t, ft, es, 1, 2)

	h.Handle(context.Background(), botlog.Record{
		Route:   true,
		Message: "hi",
		File:    botlog.Stream(strings.NewReader("x"), "x.txt"),
	})

	// Both recipients are attempted even though the first failed.
	calls := ft.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "document", calls[3].Op)

	require.Len(t, es.errs, 1)
	var se *botlog.SendError
	require.ErrorAs(t, es.errs[0], &se)
	assert.Equal(t, "message", se.Op)
	require.ErrorIs(t, es.errs[0], boom)
}

func TestHandleReportsFigureRenderError(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	es := &errSink{}
	h := newHandler(t, ft, es, 1)

	h.Handle(context.Background(), botlog.Record{
		Route:   true,
		Message: "chart",
		Figure:  &stubFigure{width: 0},
	})

	assert.Len(t, ft.Calls(), 1)
	require.Len(t, es.errs, 1)
	var se *botlog.SendError
	require.ErrorAs(t, es.errs[0], &se)
	assert.Equal(t, "figure", se.Op)
}

func TestDialFailureDegradesToNoop(t *testing.T) {
	t.Parallel()

	dialErr := errors.New("unauthorized")
	called := false
	h := botlog.New(botlog.Config{Recipients: []botlog.Recipient{1}}, func(string) (botlog.Transport, error) {
		called = true
		return nil, dialErr
	})

	assert.True(t, called)
	assert.False(t, h.Ready())
	require.ErrorIs(t, h.Err(), dialErr)

	// Nothing to observe beyond not panicking: there is no client.
	h.Handle(context.Background(), botlog.Record{Route: true, Message: "x"})

	nilDial := botlog.New(botlog.Config{}, nil)
	assert.False(t, nilDial.Ready())
	require.ErrorIs(t, nilDial.Err(), botlog.ErrNoTransport)
}

func TestCloseStopsDelivery(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	h := newHandler(t, ft, nil, 1)

	require.NoError(t, h.Close())
	assert.False(t, h.Ready())

	h.Handle(context.Background(), botlog.Record{Route: true, Message: "late"})
	assert.Empty(t, ft.Calls())
}

func TestConcurrentHandleAndClose(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	h := newHandler(t, ft, nil, 1)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Handle(context.Background(), botlog.Record{Route: true, Message: strings.Repeat("x", i+1)})
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = h.Close()
	}()
	wg.Wait()

	n := len(ft.Calls())
	h.Handle(context.Background(), botlog.Record{Route: true, Message: "after"})
	assert.Len(t, ft.Calls(), n)
	assert.LessOrEqual(t, n, 16)
}

func TestFormatters(t *testing.T) {
	t.Parallel()

	rec := botlog.Record{Level: -4, Message: "disk full"}
	assert.Equal(t, "disk full", botlog.MessageFormatter.Format(rec))
	assert.Equal(t, "DEBUG:root:disk full", botlog.BasicFormatter.Format(rec))

	rec.Logger = "backup"
	assert.Equal(t, "DEBUG:backup:disk full", botlog.BasicFormatter.Format(rec))

	f, ok := botlog.FormatterByName("Detailed")
	require.True(t, ok)
	assert.Equal(t, "[DEBUG] disk full", f.Format(rec))

	_, ok = botlog.FormatterByName("xml")
	assert.False(t, ok)
}

func TestTruncateKeepsShortText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", botlog.Truncate("short"))
	assert.Equal(t, botlog.MaxMessageLength, len([]rune(botlog.Truncate(strings.Repeat("ж", math.MaxInt16)))))
}
