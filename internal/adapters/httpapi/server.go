package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/kateb7566/system-health-monitor-etl/internal/app/records"
	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PollTimeout     time.Duration `yaml:"poll_timeout"`
	WriteWait       time.Duration `yaml:"write_wait"`
}

func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 100
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 200
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
}

// Fetcher runs one collection cycle on demand.
type Fetcher interface {
	FetchNow(ctx context.Context) (*domain.Sample, bool)
}

type Deps struct {
	Records *records.Service
	Bus     ports.Bus
	Channel string
	Fetcher Fetcher
	Obs     ports.Observability
	Logger  *slog.Logger
	// Metrics serves /metrics; promhttp.Handler() when nil.
	Metrics http.Handler
}

type Server struct {
	cfg         Config
	deps        Deps
	logger      *slog.Logger
	rateLimiter *rate.Limiter
	upgrader    websocket.Upgrader
	httpServer  *http.Server
}

func New(cfg Config, deps Deps) *Server {
	cfg.ApplyDefaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Channel == "" {
		deps.Channel = ports.DefaultMetricsChannel
	}
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}

	s := &Server{
		cfg:         cfg,
		deps:        deps,
		logger:      deps.Logger,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.httpServer = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.Handler(),
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
	}
	return s
}

// Handler returns the routed API, usable without ListenAndServe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.deps.Metrics)

	mux.HandleFunc("GET /records", s.withMiddleware(s.handleRecords))
	mux.HandleFunc("GET /record/{id}", s.withMiddleware(s.handleRecord))
	mux.HandleFunc("GET /cache", s.withMiddleware(s.handleCache))
	mux.HandleFunc("GET /cache/{index}", s.withMiddleware(s.handleCacheEntry))
	mux.HandleFunc("DELETE /cache", s.withMiddleware(s.handleCacheClear))
	mux.HandleFunc("POST /fetch", s.withMiddleware(s.handleFetch))

	// The viewer needs the raw writer for the upgrade hijack.
	mux.HandleFunc("GET /ws/metrics", s.requestIDMiddleware(s.handleLiveMetrics))

	return mux
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
