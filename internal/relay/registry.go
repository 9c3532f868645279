// Package relay keeps the room registry that maps room codes to their host,
// stream viewers and last known game state.
package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"
)

// Role is the part a connection plays in a room.
type Role string

// Roles accepted by Join.
const (
	RoleHost   Role = "host"
	RoleStream Role = "stream"
)

// ErrUnknownRole is returned by Join for roles other than host and stream.
var ErrUnknownRole = errors.New("unknown role")

// Valid reports whether r is a role Join understands.
func (r Role) Valid() bool {
	return r == RoleHost || r == RoleStream
}

// Room is a snapshot of one broadcast group. Host is empty until a
// connection joins with RoleHost. Members holds every connection that joined
// and has not disconnected, in join order, including a host that a later host
// join replaced.
type Room struct {
	Code    string
	Host    string
	Streams []string
	Members []string
	State   json.RawMessage
}

func (r *Room) clone() Room {
	return Room{
		Code:    r.Code,
		Host:    r.Host,
		Streams: slices.Clone(r.Streams),
		Members: slices.Clone(r.Members),
		State:   cloneState(r.State),
	}
}

func (r *Room) addMember(connID string) {
	if !slices.Contains(r.Members, connID) {
		r.Members = append(r.Members, connID)
	}
}

// Registry maps room codes to rooms. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// CreateOrGet returns the room stored under code, creating it when absent.
// created reports whether this call made the room.
func (r *Registry) CreateOrGet(code string) (room Room, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, created := r.createOrGetLocked(code)
	return stored.clone(), created
}

func (r *Registry) createOrGetLocked(code string) (*Room, bool) {
	if room, ok := r.rooms[code]; ok {
		return room, false
	}
	room := &Room{Code: code}
	r.rooms[code] = room
	return room, true
}

// Join puts connID into the host slot or the stream set of the room,
// creating the room if needed. A host join replaces any previous host.
// Either role adds connID to the room's members. Joining twice has no
// further effect.
func (r *Registry) Join(code, connID string, role Role) (created bool, err error) {
	if !role.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, created := r.createOrGetLocked(code)
	switch role {
	case RoleHost:
		room.Host = connID
	case RoleStream:
		if !slices.Contains(room.Streams, connID) {
			room.Streams = append(room.Streams, connID)
		}
	}
	room.addMember(connID)
	return created, nil
}

// UpdateState replaces the room's state and returns the members that should
// receive it, which is every joined connection except sender. ok is false when the room
// does not exist, in which case nothing changes.
func (r *Registry) UpdateState(code, sender string, state json.RawMessage) (recipients []string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, false
	}
	room.State = cloneState(state)

	for _, id := range room.Members {
		if id != sender {
			recipients = append(recipients, id)
		}
	}
	return recipients, true
}

// State returns the last stored state of the room. ok is false when the room
// is unknown or holds no state yet.
func (r *Registry) State(code string) (json.RawMessage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[code]
	if !ok || !hasState(room.State) {
		return nil, false
	}
	return cloneState(room.State), true
}

// Disconnect removes connID from every room. Rooms it hosted are deleted
// along with their memberships; a room left with neither host nor members
// is deleted too. The codes of deleted rooms are returned sorted.
func (r *Registry) Disconnect(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted []string
	for code, room := range r.rooms {
		if room.Host == connID {
			delete(r.rooms, code)
			deleted = append(deleted, code)
			continue
		}
		isConn := func(id string) bool { return id == connID }
		room.Streams = slices.DeleteFunc(room.Streams, isConn)
		room.Members = slices.DeleteFunc(room.Members, isConn)
		if room.Host == "" && len(room.Members) == 0 {
			delete(r.rooms, code)
			deleted = append(deleted, code)
		}
	}
	sort.Strings(deleted)
	return deleted
}

// Get returns a snapshot of the room stored under code.
func (r *Registry) Get(code string) (Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[code]
	if !ok {
		return Room{}, false
	}
	return room.clone(), true
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Codes returns the codes of all live rooms, sorted.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Clear drops every room.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.rooms)
}

func cloneState(state json.RawMessage) json.RawMessage {
	if state == nil {
		return nil
	}
	return slices.Clone(state)
}

// hasState reports whether a stored state counts as present. Empty payloads,
// null, false, zero and the empty string do not.
func hasState(state json.RawMessage) bool {
	s := bytes.TrimSpace(state)
	if len(s) == 0 {
		return false
	}
	switch string(s) {
	case "null", "false", `""`:
		return false
	}
	if f, err := strconv.ParseFloat(string(s), 64); err == nil && f == 0 {
		return false
	}
	return true
}
