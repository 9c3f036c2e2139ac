package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"acvcharts/internal/core"
	applog "acvcharts/internal/log"
	"acvcharts/internal/middleware/ratelimit"
	"acvcharts/internal/middleware/security"
	"acvcharts/internal/middleware/trace"
	"acvcharts/internal/services"
)

// ChartsReporter is the part of services.ChartsService the API needs.
type ChartsReporter interface {
	Report(ctx context.Context) (core.Report, error)
	Compute(ctx context.Context, recs []core.RawRecord) (core.Report, error)
	Ready(ctx context.Context) error
	Stats() services.Stats
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	ReadyTimeout       time.Duration
	MaxBodyBytes       int64
	Logger             *applog.Logger
}

const (
	defaultReadyTimeout = 5 * time.Second
	defaultMaxBodyBytes = 1 << 20
)

type Server struct {
	http.Server
	charts     ChartsReporter
	logger     *applog.Logger
	structured *applog.StructuredLogger

	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter

	readyTimeout time.Duration
	maxBodyBytes int64
	startedAt    time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around charts, returning a
// ready-to-run http.Server.
func NewServer(addr string, charts ChartsReporter, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaultReadyTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	detector := security.NewDetector(logger)
	s := &Server{
		charts:       charts,
		logger:       logger,
		structured:   applog.NewStructuredLogger(logger),
		tracer:       trace.NewMiddleware(detector.ExtractClientIP, logger),
		detector:     detector,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		readyTimeout: opts.ReadyTimeout,
		maxBodyBytes: opts.MaxBodyBytes,
		startedAt:    time.Now(),
	}

	limit := s.limiter.Middleware(detector.ExtractClientIP, s.handleRateLimited)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware, chimw.Recoverer, headers.Middleware, detector.Middleware)
	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.With(limit).Get("/api/charts", s.handleGetCharts)
	r.With(limit).Post("/api/charts", s.handlePostCharts)
	r.HandleFunc("/healthz", handleHealth)
	r.HandleFunc("/readyz", s.handleReady)
	r.HandleFunc("/metrics", s.handleMetrics)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the listener.
// Later calls return nil.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
