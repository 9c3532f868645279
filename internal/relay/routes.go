// Package relay wires HTTP handlers into a ServeMux for the relay.
package relay

import "net/http"

// Routes returns the relay's HTTP handler: health at / and /health, the
// WebSocket endpoint at /ws, all behind the CORS policy.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", s.HealthHandler)
	mux.HandleFunc("/health", s.HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	return s.origins.withCORS(mux)
}
