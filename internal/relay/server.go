// Package relay assembles the registry, hub and HTTP surface into a Server
// and runs it until its context is cancelled.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/htl-relay/internal/config"
	"github.com/Tyrowin/htl-relay/internal/httpserver"
)

// Server owns the room registry and the hub for one relay process.
type Server struct {
	cfg      config.RelayConfig
	registry *Registry
	hub      *Hub
	origins  *originPolicy
	upgrader websocket.Upgrader
}

// NewServer creates a relay server with an empty registry. The hub is not
// started; call Run, or Hub().Run in tests.
func NewServer(cfg config.RelayConfig) *Server {
	registry := NewRegistry()
	s := &Server{
		cfg:      cfg,
		registry: registry,
		hub:      NewHub(registry),
		origins:  newOriginPolicy(cfg.AllowedOrigins),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Registry returns the server's room registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Run serves on ln until ctx is cancelled or the listener fails, then shuts
// down the HTTP server and the hub within the configured timeout.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	httpServer := httpserver.CreateServer(ln.Addr().String(), s.Routes())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.hub.Run()
		return nil
	})

	g.Go(func() error {
		err := httpserver.Run(gctx, httpServer, ln, s.cfg.ShutdownTimeout)
		return errors.Join(err, s.hub.Shutdown(s.cfg.ShutdownTimeout))
	})

	return g.Wait()
}

// ListenAndRun listens on the configured port and calls Run.
func (s *Server) ListenAndRun(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Port, err)
	}
	return s.Run(ctx, ln)
}
