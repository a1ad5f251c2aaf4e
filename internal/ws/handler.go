package ws

import (
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Handler exposes the snapshot feed WebSocket endpoint.
type Handler struct {
	hub    *Hub
	logger *zap.Logger
}

// NewHandler creates the WebSocket handler around a hub.
func NewHandler(hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/snapshots", h.handleSnapshots)
}

// handleSnapshots upgrades the connection and streams ingestion state until
// the client goes away.
func (h *Handler) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	h.hub.Register(r.Context(), conn)
}
