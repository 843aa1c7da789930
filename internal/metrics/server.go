package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logx "loggingbot/pkg/logx"
)

const DefaultAddress = "127.0.0.1:9464"

type ServerConfig struct {
	Enabled bool
	Address string
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	return c
}

// Server runs the /metrics and /healthz listener. Apply may be called on
// every config reload; it only restarts the listener when the address moves.
type Server struct {
	m   *Metrics
	log logx.Logger

	ready atomic.Pointer[func() bool]

	mu   sync.Mutex
	srv  *http.Server
	ln   net.Listener
	addr string
	want string
}

func NewServer(m *Metrics, log logx.Logger) *Server {
	return &Server{m: m, log: log.With(logx.String("comp", "metrics"))}
}

// SetReady installs the health probe. A nil probe reports healthy.
func (s *Server) SetReady(fn func() bool) {
	if fn == nil {
		s.ready.Store(nil)
		return
	}
	s.ready.Store(&fn)
}

func (s *Server) healthy() bool {
	fn := s.ready.Load()
	return fn == nil || (*fn)()
}

// Router builds the HTTP routes. Exposed so tests can use httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(s.m.Registry(), promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if !s.healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}

// Apply starts or stops the listener according to cfg.
func (s *Server) Apply(ctx context.Context, cfg ServerConfig) {
	cfg = cfg.withDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !cfg.Enabled {
		s.stopLocked(ctx)
		return
	}
	if s.srv != nil && s.want == cfg.Address {
		return
	}
	s.stopLocked(ctx)
	s.startLocked(cfg)
}

func (s *Server) startLocked(cfg ServerConfig) {
	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		s.log.Warn("metrics listen failed", logx.String("addr", cfg.Address), logx.Err(err))
		return
	}
	srv := &http.Server{Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}

	s.srv = srv
	s.ln = ln
	s.addr = ln.Addr().String()
	s.want = cfg.Address

	addr := s.addr
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("metrics server error", logx.String("addr", addr), logx.Err(err))
		}
	}()
	s.log.Info("metrics enabled", logx.String("addr", addr))
}

func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(ctx)
}

func (s *Server) stopLocked(ctx context.Context) {
	if s.srv == nil {
		return
	}
	srv, ln, addr := s.srv, s.ln, s.addr
	s.srv, s.ln, s.addr, s.want = nil, nil, "", ""

	if ctx == nil {
		ctx = context.Background()
	}
	sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("metrics shutdown error", logx.String("addr", addr), logx.Err(err))
	}
	_ = ln.Close()
	s.log.Info("metrics disabled", logx.String("addr", addr))
}

// Addr reports the bound address, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
