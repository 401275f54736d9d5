package channelservice

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jihwankim/wireless-emulator/pkg/channelengine"
)

// Server hosts the channel service's HTTP API: the compute/visualization
// endpoints on the primary address and a Prometheus /metrics endpoint on a
// separate listener, matching the teacher's habit of keeping metrics
// traffic off the request-serving port.
type Server struct {
	http    *http.Server
	metrics *http.Server
	log     zerolog.Logger
}

// ServerConfig configures addresses and the ray tracer backing the service.
type ServerConfig struct {
	Addr        string
	MetricsAddr string
	Tracer      channelengine.RayTracer
	Log         zerolog.Logger
}

// NewServer builds a Server ready to be started with Run.
func NewServer(cfg ServerConfig) *Server {
	state := NewState(cfg.Tracer)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, state)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Log))

	NewHandlers(state, cfg.Log, m).Routes(r)

	s := &Server{
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: cfg.Log,
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		s.metrics = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	}

	return s
}

// requestLogger logs each request at debug level via the teacher's zerolog
// setup, mirroring chi's middleware.Logger shape without its stdlib-log output.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("elapsed", time.Since(start)).
				Msg("channelservice request")
		})
	}
}

// Run starts the HTTP and metrics listeners; it blocks until ctx is
// cancelled, then shuts both down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		s.log.Info().Str("addr", s.http.Addr).Msg("channel service listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if s.metrics != nil {
		go func() {
			s.log.Info().Str("addr", s.metrics.Addr).Msg("channel service metrics listening")
			if err := s.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if s.metrics != nil {
		return s.metrics.Shutdown(shutdownCtx)
	}
	return nil
}
