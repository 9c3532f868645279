// Package relay implements the game-state relay: a WebSocket server where a
// host connection pushes opaque game-state blobs to the stream connections
// that joined the same room.
//
// The implementation is organized into specialized files for the room
// registry, the wire protocol, the hub event loop, clients, routing and HTTP
// handlers.
package relay
