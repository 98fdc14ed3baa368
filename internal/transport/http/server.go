package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"poemboard/internal/app"
	"poemboard/internal/config"
	"poemboard/internal/transport/ws"
)

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	registry *app.Registry
	config   *config.Config
	logger   *slog.Logger
	ws       *ws.Handler
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, registry *app.Registry, logger *slog.Logger) *Server {
	s := &Server{
		registry: registry,
		config:   cfg,
		logger:   logger,
		ws:       ws.NewHandler(registry, cfg.Relay, logger),
	}

	router := httprouter.New()
	s.setupRoutes(router)

	s.server = &http.Server{
		Addr:              cfg.GetAddr(),
		Handler:           s.middleware(router),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(router *httprouter.Router) {
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		s.logger.Error("handler panic", "path", r.URL.Path, "panic", v)
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}

	// WebSocket relay, on the bare origin as well as /ws
	router.GET("/", s.handleRoot)
	router.Handler(http.MethodGet, "/ws", s.ws)

	router.GET("/health", s.handleHealthText)

	// API routes
	router.GET("/api/health", s.handleHealth)
	router.GET("/api/stats", s.handleStats)
	router.POST("/api/boards", s.handleCreateBoard)
	router.GET("/api/boards/:boardId", s.handleGetBoard)
	router.GET("/api/boards/:boardId/qr", s.handleBoardQR)

	if s.config.Server.Profile {
		registerProfileHandlers(router)
	}
}

// Handler returns the root handler, middleware included
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// middleware wraps the handler with CORS and request logging
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		// httpsnoop keeps http.Hijacker available for websocket upgrades
		m := httpsnoop.CaptureMetrics(next, w, r)

		level := slog.LevelInfo
		if r.URL.Path == "/health" || r.URL.Path == "/api/health" {
			level = slog.LevelDebug
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"bytes", m.Written,
			"duration", m.Duration,
		)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.server.Addr, "scheme", s.config.Scheme())
	if s.config.Scheme() == "https" {
		return s.server.ListenAndServeTLS(s.config.Server.TLSCert, s.config.Server.TLSKey)
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server. Hijacked websocket connections
// are not tracked by net/http and must be closed through the registry.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// handleRoot upgrades websocket requests and otherwise identifies the service
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if websocket.IsWebSocketUpgrade(r) {
		s.ws.ServeHTTP(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "poemboard relay\n")
}
