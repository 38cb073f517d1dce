package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jonwraymond/edgetag/auth"
	"github.com/jonwraymond/edgetag/emitter"
	"github.com/jonwraymond/edgetag/health"
	"github.com/jonwraymond/edgetag/hooks"
	"github.com/jonwraymond/edgetag/observe"
)

// Config configures the HTTP server.
type Config struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string

	// Upstream is the origin URL. Empty disables the proxy.
	Upstream string

	// UpstreamTagHeader is the origin response header carrying tags.
	// Default: "X-Render-Cache-Tags"
	UpstreamTagHeader string

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 10 seconds
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown in Run.
	// Default: 15 seconds
	ShutdownTimeout time.Duration
}

// Publisher sends invalidation events to every edgetag instance.
type Publisher interface {
	Publish(ctx context.Context, ev hooks.InvalidationEvent) (int64, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAdmin enables POST /admin/invalidate behind a.
func WithAdmin(a auth.Authenticator) Option {
	return func(s *Server) { s.admin = a }
}

// WithPublisher routes admin invalidations through the event bus instead
// of firing the local hooks directly.
func WithPublisher(p Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithHealth mounts the health endpoints.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) { s.health = agg }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHandler mounts an in-process handler behind the render hooks.
func WithHandler(pattern string, h http.Handler) Option {
	return func(s *Server) { s.pages = append(s.pages, route{pattern, h}) }
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) {
		if fn != nil {
			s.newID = fn
		}
	}
}

type route struct {
	pattern string
	handler http.Handler
}

// Server routes edgetag's HTTP traffic.
type Server struct {
	cfg       Config
	hooks     *hooks.Table
	logger    observe.Logger
	admin     auth.Authenticator
	publisher Publisher
	health    *health.Aggregator
	metrics   http.Handler
	pages     []route
	newID     func() string

	router chi.Router
}

// New builds the router. The hook table is shared with the rest of the
// process: render hooks run for proxied and in-process responses and
// invalidation hooks run for admin requests.
func New(cfg Config, table *hooks.Table, opts ...Option) (*Server, error) {
	if table == nil {
		return nil, ErrMissingHooks
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.UpstreamTagHeader == "" {
		cfg.UpstreamTagHeader = "X-Render-Cache-Tags"
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}

	s := &Server{
		cfg:    cfg,
		hooks:  table,
		logger: observe.NopLogger(),
		newID:  defaultID,
	}
	for _, opt := range opts {
		opt(s)
	}

	var upstream *url.URL
	if cfg.Upstream != "" {
		u, err := url.Parse(cfg.Upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidUpstream, cfg.Upstream)
		}
		upstream = u
	}

	s.router = s.routes(upstream)
	return s, nil
}

func (s *Server) routes(upstream *url.URL) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if s.health != nil {
		health.RegisterHandlers(r, s.health)
	}
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.admin != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.Middleware(s.admin, s.logger))
			r.Post("/invalidate", s.handleInvalidate)
		})
	}

	render := s.hooks.FireBeforeOutputRendered
	for _, p := range s.pages {
		r.With(emitter.Middleware(render)).Handle(p.pattern, p.handler)
	}
	if upstream != nil {
		r.Handle("/*", newProxy(upstream, s.cfg.UpstreamTagHeader, render, s.logger))
	}
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.Addr }

// Run serves on the configured address until ctx ends, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info(ctx, "http server listening", observe.F("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info(ctx, "http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
