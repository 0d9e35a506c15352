// Package gateway exposes the chat orchestrator and conversation store over
// a thin HTTP surface. All /v1 routes require a bearer token; the
// authenticated identity is the owner for every operation behind them.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/taskpilot/internal/agent"
	"github.com/haasonsaas/taskpilot/internal/auth"
	"github.com/haasonsaas/taskpilot/internal/conversations"
	"github.com/haasonsaas/taskpilot/internal/observability"
)

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Host string
	Port int

	// ShutdownTimeout bounds graceful shutdown. Defaults to 10s.
	ShutdownTimeout time.Duration

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Server is the HTTP gateway.
type Server struct {
	orchestrator *agent.Orchestrator
	convs        conversations.Store
	jwt          *auth.JWTService
	config       ServerConfig
	logger       *slog.Logger
	metrics      *observability.Metrics

	httpServer *http.Server
}

// NewServer wires the gateway routes.
func NewServer(orchestrator *agent.Orchestrator, convs conversations.Store, jwt *auth.JWTService, config ServerConfig) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		orchestrator: orchestrator,
		convs:        convs,
		jwt:          jwt,
		config:       config,
		logger:       logger,
		metrics:      config.Metrics,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	api := http.NewServeMux()
	api.HandleFunc("POST /v1/chat", s.handleChat)
	api.HandleFunc("GET /v1/conversations", s.handleListConversations)
	api.HandleFunc("GET /v1/conversations/{id}", s.handleGetConversation)
	api.HandleFunc("DELETE /v1/conversations/{id}", s.handleDeleteConversation)
	mux.Handle("/v1/", auth.Middleware(jwt, api))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           s.instrument(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves HTTP until Shutdown is called. It blocks.
func (s *Server) Start() error {
	s.logger.Info("http gateway listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// instrument records per-request metrics using the route pattern, not the
// raw path, to keep label cardinality bounded.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		s.metrics.RecordHTTPRequest(r.Method, pattern, strconv.Itoa(rec.status), time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
