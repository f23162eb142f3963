package chat

import (
	"sort"
	"sync"
)

// Registry owns the live connections and the room index. All index
// mutations and snapshot reads happen under one lock, so a broadcast
// snapshot either contains a disconnecting connection or it does not.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
	// projectID -> connID -> conn
	rooms map[uint]map[string]Conn
	// connID -> projectIDs, the inverse of rooms
	connRooms map[string]map[uint]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]Conn),
		rooms:     make(map[uint]map[string]Conn),
		connRooms: make(map[string]map[uint]struct{}),
	}
}

// Register adds a connection with no subscriptions
func (r *Registry) Register(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[c.ID()] = c
	if _, ok := r.connRooms[c.ID()]; !ok {
		r.connRooms[c.ID()] = make(map[uint]struct{})
	}
}

// Subscribe adds c to the room. Subscribing twice is a no-op. A connection
// that is not registered, or was already removed, gets ErrConnectionClosed.
func (r *Registry) Subscribe(c Conn, projectID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.ID()]; !ok {
		return ErrConnectionClosed
	}

	room, ok := r.rooms[projectID]
	if !ok {
		room = make(map[string]Conn)
		r.rooms[projectID] = room
	}
	room[c.ID()] = c
	r.connRooms[c.ID()][projectID] = struct{}{}
	return nil
}

// Unsubscribe removes one subscription and reports whether it existed
func (r *Registry) Unsubscribe(c Conn, projectID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.connRooms[c.ID()]
	if !ok {
		return false
	}
	if _, ok := subs[projectID]; !ok {
		return false
	}
	delete(subs, projectID)
	r.removeFromRoom(c.ID(), projectID)
	return true
}

// UnsubscribeAll removes the connection from every room and from the
// registry. It returns the rooms it was in and whether it was registered.
func (r *Registry) UnsubscribeAll(c Conn) ([]uint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	if _, ok := r.conns[id]; !ok {
		return nil, false
	}

	left := make([]uint, 0, len(r.connRooms[id]))
	for projectID := range r.connRooms[id] {
		r.removeFromRoom(id, projectID)
		left = append(left, projectID)
	}
	delete(r.connRooms, id)
	delete(r.conns, id)

	sort.Slice(left, func(i, j int) bool { return left[i] < left[j] })
	return left, true
}

// removeFromRoom drops connID from the room index. Caller holds the lock.
func (r *Registry) removeFromRoom(connID string, projectID uint) {
	room, ok := r.rooms[projectID]
	if !ok {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, projectID)
	}
}

// SubscribersOf returns a snapshot of the room's connections
func (r *Registry) SubscribersOf(projectID uint) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[projectID]
	out := make([]Conn, 0, len(room))
	for _, c := range room {
		out = append(out, c)
	}
	return out
}

// RoomsOf returns the rooms c is subscribed to, ascending
func (r *Registry) RoomsOf(c Conn) []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.connRooms[c.ID()]
	out := make([]uint, 0, len(subs))
	for projectID := range subs {
		out = append(out, projectID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of registered connections
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// RoomCount returns the number of rooms with at least one subscriber
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
