// Package testhelpers provides common utilities for testing the relay and
// static servers.
//
// It provides functions for creating test servers, making HTTP requests,
// driving WebSocket clients through the relay's event protocol and asserting
// response properties to reduce duplication in test files.
package testhelpers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/htl-relay/internal/relay"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:3000"

// DefaultEventTimeout bounds how long ExpectEvent waits for a frame.
const DefaultEventTimeout = 2 * time.Second

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// WebSocketURL converts an httptest server URL into the relay's ws:// endpoint.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// ConnectWebSocket dials the relay with TestOrigin as the Origin header.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	return ConnectWebSocketWithOrigin(url, TestOrigin)
}

// ConnectWebSocketWithOrigin dials url sending origin, or no Origin header
// when origin is empty.
func ConnectWebSocketWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// MustConnect dials url and registers the connection for cleanup.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, err := ConnectWebSocket(url)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent writes one event envelope.
func SendEvent(conn *websocket.Conn, event string, data any) error {
	return conn.WriteJSON(map[string]any{"event": event, "data": data})
}

// MustSendEvent writes one event envelope and fails the test on error.
func MustSendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	if err := SendEvent(conn, event, data); err != nil {
		t.Fatalf("Failed to send %s: %v", event, err)
	}
}

// ReceiveEvent reads one event envelope, waiting at most timeout.
func ReceiveEvent(conn *websocket.Conn, timeout time.Duration) (relay.Envelope, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return relay.Envelope{}, err
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return relay.Envelope{}, err
	}
	return relay.DecodeEnvelope(raw)
}

// ExpectEvent reads the next envelope and fails unless it carries event.
func ExpectEvent(t *testing.T, conn *websocket.Conn, event string) relay.Envelope {
	t.Helper()
	env, err := ReceiveEvent(conn, DefaultEventTimeout)
	if err != nil {
		t.Fatalf("Expected %s event, got error: %v", event, err)
	}
	if env.Event != event {
		t.Fatalf("Expected %s event, got %s (%s)", event, env.Event, env.Data)
	}
	return env
}

// ExpectNoEvent fails if any frame arrives within timeout.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	env, err := ReceiveEvent(conn, timeout)
	if err == nil {
		t.Fatalf("Expected no event, but received %s (%s)", env.Event, env.Data)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of event: %v", err)
}

// JoinRoom sends createRoom and waits for the roomJoined acknowledgement.
func JoinRoom(t *testing.T, conn *websocket.Conn, roomCode string, role relay.Role) {
	t.Helper()
	MustSendEvent(t, conn, relay.EventCreateRoom, relay.CreateRoomPayload{RoomCode: roomCode, Role: role})
	env := ExpectEvent(t, conn, relay.EventRoomJoined)

	var ack relay.RoomJoinedPayload
	if err := json.Unmarshal(env.Data, &ack); err != nil {
		t.Fatalf("Failed to decode roomJoined: %v", err)
	}
	if ack.RoomCode != roomCode || ack.Role != role {
		t.Fatalf("roomJoined = %+v, want {%s %s}", ack, roomCode, role)
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// WaitFor polls cond every few milliseconds until it holds or timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out after %v waiting for %s", timeout, what)
}

// AssertJSONEqual compares two JSON documents structurally.
func AssertJSONEqual(t *testing.T, got []byte, want string) {
	t.Helper()
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("got is not JSON (%s): %v", got, err)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("want is not JSON (%s): %v", want, err)
	}
	gb, _ := json.Marshal(g)
	wb, _ := json.Marshal(w)
	if string(gb) != string(wb) {
		t.Errorf("JSON mismatch: got %s, want %s", gb, wb)
	}
}
