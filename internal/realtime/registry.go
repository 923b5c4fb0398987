package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/parceltrack/courier-system/internal/core/domain"
)

// Principal is the authenticated identity bound to a connection. It is
// captured once at admission and never mutated afterwards.
type Principal struct {
	SubjectID string
	Role      string
}

// Conn is the registry's view of a live connection: identity plus a
// non-blocking outbound path. Session is the production implementation.
type Conn interface {
	ID() uuid.UUID
	Principal() Principal
	// Enqueue places a frame on the connection's bounded outbound queue.
	// It returns false when the queue is full and never blocks.
	Enqueue(frame []byte) bool
	// Kill tears the connection down asynchronously. Cleanup still routes
	// through the owner's Remove call, exactly once.
	Kill(reason string)
}

// Registry tracks admitted connections and their room memberships. The
// forward index (connection → rooms) and reverse index (room → connections)
// are always updated under one lock, so a membership snapshot never observes
// a half-applied join or leave.
type Registry struct {
	mu     sync.Mutex
	conns  map[uuid.UUID]Conn
	rooms  map[RoomID]map[uuid.UUID]Conn
	joined map[uuid.UUID]map[RoomID]struct{}
	logger zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		conns:  make(map[uuid.UUID]Conn),
		rooms:  make(map[RoomID]map[uuid.UUID]Conn),
		joined: make(map[uuid.UUID]map[RoomID]struct{}),
		logger: logger.With().Str("component", "registry").Logger(),
	}
}

// Admit registers a new connection. Agents are auto-joined to their personal
// room so agent-directed events have a delivery target from the first moment.
func (r *Registry) Admit(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	r.conns[id] = c
	r.joined[id] = make(map[RoomID]struct{})

	p := c.Principal()
	if p.Role == domain.RoleAgent {
		r.joinLocked(c, AgentRoom(p.SubjectID))
	}

	r.logger.Debug().Str("conn_id", id.String()).Str("subject", p.SubjectID).Str("role", p.Role).Msg("connection admitted")
}

// Join adds the connection to a room. Joining a room twice, or joining after
// the connection has been removed, is a no-op.
func (r *Registry) Join(connID uuid.UUID, room RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return
	}
	r.joinLocked(c, room)
}

func (r *Registry) joinLocked(c Conn, room RoomID) {
	id := c.ID()
	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(map[uuid.UUID]Conn)
	}
	r.rooms[room][id] = c
	r.joined[id][room] = struct{}{}
}

// Leave removes the connection from a room. Leaving a room the connection is
// not a member of is a no-op.
func (r *Registry) Leave(connID uuid.UUID, room RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, room)
}

func (r *Registry) leaveLocked(connID uuid.UUID, room RoomID) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	if joined, ok := r.joined[connID]; ok {
		delete(joined, room)
	}
}

// MembersOf returns a snapshot of the room's current members. The snapshot
// reflects only fully committed joins and leaves.
func (r *Registry) MembersOf(room RoomID) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	out := make([]Conn, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// Rooms returns the rooms the connection is currently a member of.
func (r *Registry) Rooms(connID uuid.UUID) []RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.joined[connID]
	out := make([]RoomID, 0, len(joined))
	for room := range joined {
		out = append(out, room)
	}
	return out
}

// Remove purges the connection from every room it belongs to and forgets the
// handle. A publish racing this call either sees the connection in its
// membership snapshot (taken before removal) or not at all.
func (r *Registry) Remove(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.joined[connID]
	if !ok {
		return
	}
	for room := range joined {
		r.leaveLocked(connID, room)
	}
	delete(r.joined, connID)
	delete(r.conns, connID)

	r.logger.Debug().Str("conn_id", connID.String()).Msg("connection removed")
}

// All returns every admitted connection. Used for shutdown.
func (r *Registry) All() []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Len reports the number of admitted connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
