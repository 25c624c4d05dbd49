// Package httpserver exposes the ops surface for a running rankfeed
// process: /health, /metrics, and a /progress WebSocket feed
// (SPEC_FULL "Observability"). Grounded on the teacher's
// internal/interfaces/http/server.go (gorilla/mux router, timeout and
// request-id middleware, graceful Shutdown) and its
// cmd/cryptorun/monitor_main.go (health/metrics mux wiring), adapted
// to zerolog logging instead of the teacher's stdlib log.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/feedstudy/rankfeed/internal/progress"
)

// Config configures the HTTP server's listen address and timeouts.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns the teacher's timeout defaults on 127.0.0.1:8080.
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8080",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// HealthFunc reports whether the process is ready to serve (e.g. no
// session lock held by a dead process, dependent stores reachable).
type HealthFunc func(ctx context.Context) error

// Server is the ops HTTP server: health check, Prometheus metrics, and
// a progress.Hub WebSocket endpoint.
type Server struct {
	router *mux.Router
	server *http.Server
	hub    *progress.Hub
	health HealthFunc
	log    zerolog.Logger
	cfg    Config
	upgrad websocket.Upgrader
}

// New builds a Server. health may be nil (the endpoint always reports
// healthy). registerer is the Prometheus gatherer whose metrics
// /metrics serves.
func New(cfg Config, registerer prometheus.Gatherer, hub *progress.Hub, health HealthFunc, log zerolog.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		hub:    hub,
		health: health,
		log:    log.With().Str("component", "httpserver").Logger(),
		cfg:    cfg,
		upgrad: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/progress", s.handleProgress).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// ListenAndServe starts the server; it blocks until Shutdown is called
// or a fatal listener error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.cfg.Addr).Msg("ops server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unhealthy","error":%q}`, err.Error())
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"healthy"}`)
}

// handleProgress upgrades the connection and registers it with the
// progress.Hub; the hub owns all subsequent writes, so this handler's
// only job after upgrading is to keep reading (and discarding) frames
// until the client disconnects, detecting that disconnect promptly.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "progress reporting disabled", http.StatusNotImplemented)
		return
	}

	conn, err := s.upgrad.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("progress websocket upgrade failed")
		return
	}
	s.hub.Register(conn)
	defer s.hub.Unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("ops request")
	})
}
