package gateway

import (
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/turntimer/go/internal/notify"
	"github.com/mcdev12/turntimer/go/internal/turnclock"
	"github.com/rs/zerolog/log"
)

// EventSnapshot is the first message a new connection receives
const EventSnapshot = "snapshot"

// SnapshotSource provides the clock state sent to new connections
type SnapshotSource interface {
	Snapshot() turnclock.Snapshot
}

// WebSocketHandler handles WebSocket upgrade requests for table viewers
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	source            SnapshotSource
	clock             clockwork.Clock
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, source SnapshotSource) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		source:            source,
		clock:             cm.clock,
	}
}

// HandleConnection upgrades the request and sends the current snapshot
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	var initial *notify.Envelope
	if h.source != nil {
		env, err := notify.NewEnvelope(EventSnapshot, h.source.Snapshot(), h.clock.Now())
		if err != nil {
			log.Error().Err(err).Msg("failed to build initial snapshot")
		} else {
			initial = &env
		}
	}

	if err := h.connectionManager.UpgradeConnection(w, r, initial); err != nil {
		// Upgrade has already written the HTTP error
		log.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns the number of active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"total_connections": h.connectionManager.ConnectionCount(),
	})
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.HandleConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
