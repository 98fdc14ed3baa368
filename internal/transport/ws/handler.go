package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"poemboard/internal/app"
	"poemboard/internal/config"
)

// Handler upgrades HTTP requests to relay connections
type Handler struct {
	registry *app.Registry
	cfg      config.RelayConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(registry *app.Registry, cfg config.RelayConfig, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Boards are open to anyone holding the id
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests. The connection is not bound
// to any board until it sends JOIN_BOARD.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, h.registry, h.cfg, h.logger)

	h.logger.Info("websocket connected",
		"connId", client.ID(),
		"remote", r.RemoteAddr,
	)

	client.Run()
}
