// Package twincore provides the base HTTP server, CLI flags, middleware chain,
// and response helpers shared by the JWT Pizza twin and the mock-route server.
package twincore

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds the common server configuration, parsed from CLI flags.
type Config struct {
	Port     int
	Latency  time.Duration
	FailRate float64
	SeedFile string
	Verbose  bool
	Name     string // server name for logging and metrics
}

// ParseFlags parses common CLI flags and returns a Config.
func ParseFlags(name string) *Config {
	return ParseFlagSet(flag.CommandLine, name, os.Args[1:])
}

// ParseFlagSet is ParseFlags on an explicit flag set and argument list.
func ParseFlagSet(fs *flag.FlagSet, name string, args []string) *Config {
	cfg := &Config{Name: name}
	fs.IntVar(&cfg.Port, "port", 0, "HTTP listen port (default: $PORT)")
	fs.DurationVar(&cfg.Latency, "latency", 0, "Base simulated latency")
	fs.Float64Var(&cfg.FailRate, "fail-rate", 0.0, "Random failure rate 0.0-1.0")
	fs.StringVar(&cfg.SeedFile, "seed-file", "", "Path to JSON fixture for initial state")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Enable request/response logging")
	_ = fs.Parse(args)

	if cfg.Port == 0 {
		if p := os.Getenv("PORT"); p != "" {
			cfg.Port, _ = strconv.Atoi(p)
		}
	}
	return cfg
}

// Server wraps a chi router with the common middleware and lifecycle management.
type Server struct {
	Config  *Config
	Router  *chi.Mux
	Logger  *slog.Logger
	Metrics *Metrics
	mw      *Middleware
	level   *slog.LevelVar
}

// NewLogger returns the JSON slog logger used by every server.
func NewLogger(verbose bool) *slog.Logger {
	return newLogger(levelFor(verbose))
}

func newLogger(level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func levelFor(verbose bool) *slog.LevelVar {
	lv := new(slog.LevelVar)
	if verbose {
		lv.Set(slog.LevelDebug)
	}
	return lv
}

// New creates a Server with the given config.
func New(cfg *Config) *Server {
	level := levelFor(cfg.Verbose)
	logger := newLogger(level)
	metrics := NewMetrics(prometheus.NewRegistry(), cfg.Name)

	r := chi.NewRouter()
	mw := NewMiddleware(cfg, logger, metrics)

	r.Use(chimw.RequestID, chimw.RealIP, mw.CORS, mw.Observe, mw.Slowdown, mw.Chaos)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return &Server{
		Config:  cfg,
		Router:  r,
		Logger:  logger,
		Metrics: metrics,
		mw:      mw,
		level:   level,
	}
}

// Middleware exposes the chain so the admin plane can reach faults and traffic.
func (s *Server) Middleware() *Middleware {
	return s.mw
}

// GetConfig reports the startup settings with the live Tuning applied.
func (s *Server) GetConfig() map[string]any {
	t := s.mw.Tuning()
	return map[string]any{
		"name":      s.Config.Name,
		"port":      s.Config.Port,
		"latency":   t.Latency.String(),
		"fail_rate": t.FailRate,
		"verbose":   t.Verbose,
	}
}

// UpdateConfig changes latency, fail_rate or verbose at runtime. The whole
// batch is validated first; on error nothing changes.
func (s *Server) UpdateConfig(updates map[string]any) error {
	next := s.mw.Tuning()
	for key, raw := range updates {
		if err := applySetting(&next, key, raw); err != nil {
			return err
		}
	}
	s.mw.Tune(next)
	if next.Verbose {
		s.level.Set(slog.LevelDebug)
	} else {
		s.level.Set(slog.LevelInfo)
	}
	s.Logger.Info("config updated", "latency", next.Latency, "fail_rate", next.FailRate, "verbose", next.Verbose)
	return nil
}

func applySetting(t *Tuning, key string, raw any) error {
	switch key {
	case "latency":
		str, ok := raw.(string)
		if !ok {
			return fmt.Errorf("latency must be a duration string")
		}
		d, err := time.ParseDuration(str)
		if err != nil {
			return fmt.Errorf("invalid latency duration: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("latency must not be negative")
		}
		t.Latency = d
	case "fail_rate":
		f, ok := raw.(float64)
		if !ok {
			return fmt.Errorf("fail_rate must be a number")
		}
		if f < 0 || f > 1 {
			return fmt.Errorf("fail_rate must be between 0.0 and 1.0")
		}
		t.FailRate = f
	case "verbose":
		b, ok := raw.(bool)
		if !ok {
			return fmt.Errorf("verbose must be a boolean")
		}
		t.Verbose = b
	case "name", "port":
		return fmt.Errorf("%s cannot be changed at runtime", key)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Serve starts the HTTP server and blocks until ctx is cancelled or an
// interrupt arrives, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Config.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("starting server", "name", s.Config.Name, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}
	s.Logger.Info("shutting down server", "name", s.Config.Name)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ServeHTTP implements http.Handler so Server can be used directly in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Error writes an error in the JWT Pizza service format: {"message": "..."}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{"message": message})
}
