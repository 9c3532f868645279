// Package relay coordinates client registration, room events and connection
// cleanup for the game-state relay via the Hub type.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Hub owns the connected clients and applies every room event against the
// registry from a single goroutine, so events are handled in arrival order.
type Hub struct {
	registry   *Registry
	clients    map[string]*Client
	inbound    chan inboundFrame
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub bound to registry. Run must be started before clients
// are registered.
func NewHub(registry *Registry) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   registry,
		clients:    make(map[string]*Client),
		inbound:    make(chan inboundFrame),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Registry returns the room registry the hub mutates.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Register hands a new client to the hub, which starts its pumps. It returns
// false once the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) requestUnregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) submit(frame inboundFrame) bool {
	select {
	case h.inbound <- frame:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Run starts the hub's event loop. It returns after Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				slog.Warn("received nil client registration; skipping")
				continue
			}
			h.addClient(client)
			h.startPumps(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case frame := <-h.inbound:
			h.dispatch(frame)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	slog.Info("client connected", "conn", client.id, "addr", client.addr, "clients", clientCount)
}

func (h *Hub) startPumps(client *Client) {
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// removeClient drops a client and applies disconnect semantics to the rooms
// it belonged to. Unknown clients are ignored.
func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	close(client.send)

	for _, code := range h.registry.Disconnect(client.id) {
		slog.Info("room deleted", "room", code, "conn", client.id)
	}
	slog.Info("client disconnected", "conn", client.id, "addr", client.addr, "clients", clientCount)
}

func (h *Hub) dispatch(frame inboundFrame) {
	env, err := DecodeEnvelope(frame.raw)
	if err != nil {
		h.sendError(frame.client, err)
		return
	}

	switch env.Event {
	case EventCreateRoom:
		err = h.handleCreateRoom(frame.client, env)
	case EventUpdateGameState:
		err = h.handleUpdateGameState(frame.client, env)
	case EventRequestGameState:
		err = h.handleRequestGameState(frame.client, env)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	if err != nil {
		h.sendError(frame.client, err)
	}
}

func (h *Hub) handleCreateRoom(client *Client, env Envelope) error {
	var payload CreateRoomPayload
	if err := DecodePayload(env, &payload); err != nil {
		return err
	}

	created, err := h.registry.Join(payload.RoomCode, client.id, payload.Role)
	if err != nil {
		return err
	}

	slog.Info("joined room",
		"room", payload.RoomCode,
		"role", payload.Role,
		"conn", client.id,
		"created", created,
	)
	h.sendTo(client, EventRoomJoined, RoomJoinedPayload(payload))
	return nil
}

func (h *Hub) handleUpdateGameState(client *Client, env Envelope) error {
	var payload UpdateGameStatePayload
	if err := DecodePayload(env, &payload); err != nil {
		return err
	}

	recipients, ok := h.registry.UpdateState(payload.RoomCode, client.id, payload.GameState)
	if !ok {
		slog.Debug("state update for unknown room ignored", "room", payload.RoomCode, "conn", client.id)
		return nil
	}

	frame, err := EncodeEvent(EventGameStateUpdated, gameState(payload.GameState))
	if err != nil {
		return err
	}
	h.deliver(recipients, frame)
	return nil
}

func (h *Hub) handleRequestGameState(client *Client, env Envelope) error {
	var payload RequestGameStatePayload
	if err := DecodePayload(env, &payload); err != nil {
		return err
	}

	state, ok := h.registry.State(payload.RoomCode)
	if !ok {
		return nil
	}
	h.sendTo(client, EventGameStateUpdated, gameState(state))
	return nil
}

// gameState keeps an absent state encodable as JSON null.
func gameState(state json.RawMessage) json.RawMessage {
	if len(state) == 0 {
		return json.RawMessage("null")
	}
	return state
}

func (h *Hub) sendTo(client *Client, event string, data any) {
	frame, err := EncodeEvent(event, data)
	if err != nil {
		slog.Error("encode outgoing event", "event", event, "conn", client.id, "error", err)
		return
	}
	h.deliver([]string{client.id}, frame)
}

func (h *Hub) sendError(client *Client, err error) {
	slog.Debug("rejected frame", "conn", client.id, "error", err)
	h.sendTo(client, EventError, ErrorPayload{Message: err.Error()})
}

// deliver pushes frame to each connection ID. Clients whose send buffer is
// full are dropped and treated as disconnected.
func (h *Hub) deliver(ids []string, frame []byte) {
	var failed []*Client
	for _, id := range ids {
		h.mutex.RLock()
		client, ok := h.clients[id]
		h.mutex.RUnlock()
		if !ok {
			continue
		}
		if !h.safeSend(client, frame) {
			failed = append(failed, client)
		}
	}

	for _, client := range failed {
		slog.Warn("dropping client with full send buffer", "conn", client.id, "addr", client.addr)
		h.removeClient(client)
	}
}

func (h *Hub) safeSend(client *Client, frame []byte) bool {
	if client.closed {
		return false
	}
	select {
	case client.send <- frame:
		return true
	default:
		return false
	}
}

// shutdownClients closes every connection and clears the registry.
func (h *Hub) shutdownClients() {
	slog.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		delete(h.clients, id)
		client.closed = true
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				slog.Warn("close client connection", "conn", client.id, "error", err)
			}
		}
	}
	h.registry.Clear()

	slog.Info("closed client connections", "count", len(clients))
}

// Shutdown stops the event loop and waits for all client goroutines to
// finish, or for timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	slog.Info("initiating hub shutdown")

	h.cancel()

	deadline := time.After(timeout)
	select {
	case <-h.done:
	case <-deadline:
		return fmt.Errorf("hub event loop: %w", context.DeadlineExceeded)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("hub shutdown completed")
		return nil
	case <-deadline:
		slog.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return fmt.Errorf("client goroutines: %w", context.DeadlineExceeded)
	}
}
