package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"FinScope/pkg/http/middleware"
	applogger "FinScope/pkg/logger"
)

type ServerOption func(*ServerConfig)

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// CORSOrigins lists dashboard origins; empty sends no CORS headers.
	CORSOrigins []string
	// MetricsPath is served from Gatherer; empty disables the endpoint.
	MetricsPath   string
	Registerer    prometheus.Registerer
	Gatherer      prometheus.Gatherer
	SlowThreshold time.Duration
	Logger        *applogger.Logger
}

// Server is the echo instance serving the analysis API.
type Server struct {
	echo   *echo.Echo
	cfg    *ServerConfig
	logger *applogger.Logger
	addr   net.Addr
}

func NewServer(handlers []Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MetricsPath:     "/metrics",
		Registerer:      prometheus.DefaultRegisterer,
		Gatherer:        prometheus.DefaultGatherer,
		SlowThreshold:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	lgr := cfg.Logger
	if lgr == nil {
		lgr = applogger.Nop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogging(lgr))
	e.Use(middleware.Metrics(lgr, cfg.Registerer, cfg.SlowThreshold))
	// inside Metrics so a panic is counted as the 500 it becomes
	e.Use(middleware.Recover(lgr))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORS(cfg.CORSOrigins))
	}

	for _, h := range handlers {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
	if cfg.MetricsPath != "" && cfg.Gatherer != nil {
		e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return &Server{echo: e, cfg: cfg, logger: lgr}
}

// Start binds the listener synchronously, so a busy port is reported to the
// caller, then serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.addr = ln.Addr()
	s.echo.Listener = ln

	go func() {
		s.logger.Info("http server listening", applogger.String("addr", s.addr.String()))
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", applogger.Error(err))
		}
	}()
	return nil
}

// Addr is the bound address once Start has returned.
func (s *Server) Addr() net.Addr { return s.addr }

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) Echo() *echo.Echo { return s.echo }

// WithHost sets the listen address. An empty host keeps the default of all interfaces.
func WithHost(host string) ServerOption {
	return func(c *ServerConfig) {
		if host != "" {
			c.Host = host
		}
	}
}

func WithPort(port int) ServerOption {
	return func(c *ServerConfig) { c.Port = port }
}

// WithTimeouts overrides the non-zero durations.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		if read > 0 {
			c.ReadTimeout = read
		}
		if write > 0 {
			c.WriteTimeout = write
		}
		if shutdown > 0 {
			c.ShutdownTimeout = shutdown
		}
	}
}

func WithCORS(origins []string) ServerOption {
	return func(c *ServerConfig) { c.CORSOrigins = origins }
}

// WithMetrics sets where request series are registered and scraped from. A nil
// registerer keeps the series unregistered and path "" hides the endpoint.
func WithMetrics(path string, reg prometheus.Registerer, g prometheus.Gatherer) ServerOption {
	return func(c *ServerConfig) {
		c.MetricsPath = path
		c.Registerer = reg
		c.Gatherer = g
	}
}

func WithSlowThreshold(d time.Duration) ServerOption {
	return func(c *ServerConfig) { c.SlowThreshold = d }
}

func WithLogger(l *applogger.Logger) ServerOption {
	return func(c *ServerConfig) { c.Logger = l }
}
