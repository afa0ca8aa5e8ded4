// Package server exposes a skill registry over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/jingkaihe/skillet/pkg/journal"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxInputBytes bounds the size of an invoke request body
const maxInputBytes = 4 << 20

// History is the read side of the invocation journal
type History interface {
	List(ctx context.Context, opts journal.ListOptions) ([]journal.Entry, error)
}

// Config holds the listen address of the server
type Config struct {
	Host string
	Port int
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Address returns host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server serves the skill API
type Server struct {
	router   *mux.Router
	registry *skills.Registry
	history  History
	config   *Config
	server   *http.Server
}

// Option configures a Server
type Option func(*Server)

// WithHistory enables GET /api/invocations backed by h
func WithHistory(h History) Option {
	return func(s *Server) {
		s.history = h
	}
}

// New creates a server for reg
func New(reg *skills.Registry, config *Config, opts ...Option) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router:   mux.NewRouter(),
		registry: reg,
		config:   config,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/skills", s.handleListSkills).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/skills/{name:.+}/invoke", s.handleInvokeSkill).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/api/skills/{name:.+}", s.handleGetSkill).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/invocations", s.handleListInvocations).Methods("GET", "OPTIONS")
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    time.Since(start),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter captures the status code for request logging
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeErrorResponse(r.Context(), w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method), nil)
}

// handleListSkills handles GET /api/skills
func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(r.Context(), w, http.StatusOK, s.registry.Descriptors())
}

// handleGetSkill handles GET /api/skills/{name}
func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	desc, err := s.registry.Describe(name)
	if err != nil {
		s.writeSkillError(r.Context(), w, err)
		return
	}
	s.writeJSONResponse(r.Context(), w, http.StatusOK, desc)
}

// handleInvokeSkill handles POST /api/skills/{name}/invoke
func (s *Server) handleInvokeSkill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := mux.Vars(r)["name"]

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInputBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(ctx, w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil)
			return
		}
		s.writeErrorResponse(ctx, w, http.StatusBadRequest, "failed to read request body", err)
		return
	}

	var input any
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &input); err != nil {
			s.writeErrorResponse(ctx, w, http.StatusBadRequest, "request body must be valid JSON", err)
			return
		}
	}

	result, err := s.registry.Invoke(ctx, name, input)
	if err != nil {
		s.writeSkillError(ctx, w, err)
		return
	}
	s.writeJSONResponse(ctx, w, http.StatusOK, result)
}

// handleListInvocations handles GET /api/invocations
func (s *Server) handleListInvocations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.history == nil {
		s.writeErrorResponse(ctx, w, http.StatusNotFound, "invocation journal is disabled", nil)
		return
	}

	opts := journal.ListOptions{Skill: r.URL.Query().Get("skill")}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			s.writeErrorResponse(ctx, w, http.StatusBadRequest, "limit must be a non-negative integer", nil)
			return
		}
		opts.Limit = limit
	}

	entries, err := s.history.List(ctx, opts)
	if err != nil {
		s.writeErrorResponse(ctx, w, http.StatusInternalServerError, "failed to list invocations", err)
		return
	}
	s.writeJSONResponse(ctx, w, http.StatusOK, entries)
}

// writeSkillError maps registry errors to status codes
func (s *Server) writeSkillError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case skills.IsNotFound(err):
		s.writeErrorResponse(ctx, w, http.StatusNotFound, err.Error(), nil)
	case skills.IsExecutionError(err):
		s.writeErrorResponse(ctx, w, http.StatusUnprocessableEntity, err.Error(), nil)
	default:
		s.writeErrorResponse(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}

func (s *Server) writeJSONResponse(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.writeErrorResponse(ctx, w, http.StatusInternalServerError, "failed to encode response", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(payload)
}

func (s *Server) writeErrorResponse(ctx context.Context, w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		logger.G(ctx).WithError(err).Error(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]any{
		"error":   message,
		"status":  statusCode,
		"success": false,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.G(ctx).WithError(err).Error("failed to encode error response")
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.Address(),
		Handler:           otelhttp.NewHandler(s.router, "skillet.api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	logger.G(ctx).WithField("address", s.config.Address()).Info("skill API listening")

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "skill API server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
