package hub

import "sync"

// Connection is a transport-level handle the hub can deliver to.
type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Registry tracks which connections belong to which rooms. A connection may
// sit in several rooms at once. Rooms exist while they have members.
//
// Registry is safe for concurrent use. Iteration (Each) holds the read lock,
// so a connection removed by RemoveAll is never visited afterwards.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[string]map[string]Connection // room → conn id → conn
	memberships map[string]map[string]struct{}   // conn id → rooms
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[string]map[string]Connection),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Add puts conn into room. It reports whether the membership is new;
// adding an existing member is a no-op.
func (r *Registry) Add(conn Connection, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]Connection)
		r.rooms[room] = members
	}
	if _, dup := members[conn.ID()]; dup {
		return false
	}
	members[conn.ID()] = conn

	joined, ok := r.memberships[conn.ID()]
	if !ok {
		joined = make(map[string]struct{})
		r.memberships[conn.ID()] = joined
	}
	joined[room] = struct{}{}
	return true
}

// RemoveAll drops conn from every room in one step and returns the rooms
// it left. Rooms left empty are deleted.
func (r *Registry) RemoveAll(conn Connection) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.memberships[conn.ID()]
	if !ok {
		return nil
	}
	delete(r.memberships, conn.ID())

	left := make([]string, 0, len(joined))
	for room := range joined {
		members := r.rooms[room]
		delete(members, conn.ID())
		if len(members) == 0 {
			delete(r.rooms, room)
		}
		left = append(left, room)
	}
	return left
}

// MembersOf returns a copy of the connections currently in room.
func (r *Registry) MembersOf(room string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	out := make([]Connection, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// Each calls fn for every member of room while holding the read lock and
// returns the number of members visited. fn must not call back into the
// registry.
func (r *Registry) Each(room string, fn func(Connection)) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	for _, c := range members {
		fn(c)
	}
	return len(members)
}

// RoomsOf returns the rooms conn currently belongs to.
func (r *Registry) RoomsOf(conn Connection) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := r.memberships[conn.ID()]
	out := make([]string, 0, len(joined))
	for room := range joined {
		out = append(out, room)
	}
	return out
}

// Stats returns the number of live rooms and of connections holding at
// least one membership.
func (r *Registry) Stats() (rooms, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.memberships)
}
