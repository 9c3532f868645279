// Package relay exposes HTTP handlers for WebSocket upgrades and health checks.
package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

const healthStatusText = "HTL Server Running"

// WebSocketHandler upgrades GET requests to WebSocket connections and hands
// the resulting client to the hub.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg)
	if !s.hub.Register(client) {
		slog.Warn("rejecting connection during shutdown", "addr", r.RemoteAddr)
		_ = conn.Close()
	}
}

// HealthHandler reports that the relay is up and how many rooms are live.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	status := HealthStatus{Status: healthStatusText, Rooms: s.registry.Len()}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		slog.Warn("write health response", "error", err)
	}
}
