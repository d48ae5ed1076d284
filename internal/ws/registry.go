package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type room struct {
	conns []*Conn
	exec  *executor
}

// Registry tracks live connections per room and owns each room's
// single-writer executor. Constructed once at startup and passed by
// reference; there is no package-level instance.
type Registry struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[uuid.UUID]*room)}
}

// Register adds conn to its room. An existing connection for the same
// (room, user) is closed with a normal-closure code and removed first, so
// at most one connection per user per room is ever live.
func (r *Registry) Register(conn *Conn) {
	var evicted *Conn

	r.mu.Lock()
	rm := r.rooms[conn.roomID]
	if rm == nil {
		rm = &room{exec: newExecutor()}
		r.rooms[conn.roomID] = rm
	}
	for i, c := range rm.conns {
		if c.userID == conn.userID {
			evicted = c
			rm.conns = append(rm.conns[:i], rm.conns[i+1:]...)
			break
		}
	}
	rm.conns = append(rm.conns, conn)
	r.mu.Unlock()

	if evicted != nil {
		evicted.Close(websocket.CloseNormalClosure, "superseded by a newer connection")
	}
}

// Unregister removes conn if present and reports whether it was. The room
// entry is released (and its executor stopped) once the room is empty.
func (r *Registry) Unregister(conn *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[conn.roomID]
	if rm == nil {
		return false
	}
	for i, c := range rm.conns {
		if c == conn {
			rm.conns = append(rm.conns[:i], rm.conns[i+1:]...)
			if len(rm.conns) == 0 {
				rm.exec.stop()
				delete(r.rooms, conn.roomID)
			}
			return true
		}
	}
	return false
}

// Presence returns the room's connected users. Order is unspecified.
func (r *Registry) Presence(roomID uuid.UUID) []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm := r.rooms[roomID]
	if rm == nil {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(rm.conns))
	users := make([]User, 0, len(rm.conns))
	for _, c := range rm.conns {
		if seen[c.userID] {
			continue
		}
		seen[c.userID] = true
		users = append(users, User{ID: c.userID.String(), DisplayName: c.displayName})
	}
	return users
}

// HasUser reports whether the user still has a live connection in the room.
func (r *Registry) HasUser(roomID, userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm := r.rooms[roomID]
	if rm == nil {
		return false
	}
	for _, c := range rm.conns {
		if c.userID == userID {
			return true
		}
	}
	return false
}

// Do runs a mutating operation on the room's single-writer executor.
func (r *Registry) Do(ctx context.Context, roomID uuid.UUID, fn func() error) error {
	r.mu.RLock()
	rm := r.rooms[roomID]
	var exec *executor
	if rm != nil {
		exec = rm.exec
	}
	r.mu.RUnlock()

	if exec == nil {
		return ErrRoomClosed
	}
	return exec.do(ctx, fn)
}

// Broadcast delivers event to every connection in the room.
func (r *Registry) Broadcast(roomID uuid.UUID, event any) {
	r.fanOut(roomID, nil, event)
}

// BroadcastExcept delivers event to every connection in the room except the
// sender.
func (r *Registry) BroadcastExcept(roomID uuid.UUID, sender *Conn, event any) {
	r.fanOut(roomID, sender, event)
}

// SendDirect delivers event to a single connection.
func (r *Registry) SendDirect(conn *Conn, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if !conn.enqueue(data) {
		r.drop(conn)
	}
}

// fanOut serializes the event once and enqueues it per connection. A
// failure on one connection is an implicit disconnect of that peer and
// never affects delivery to the others.
func (r *Registry) fanOut(roomID uuid.UUID, exclude *Conn, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	r.mu.RLock()
	rm := r.rooms[roomID]
	var targets []*Conn
	if rm != nil {
		targets = make([]*Conn, 0, len(rm.conns))
		targets = append(targets, rm.conns...)
	}
	r.mu.RUnlock()

	var failed []*Conn
	for _, c := range targets {
		if c == exclude {
			continue
		}
		if !c.enqueue(data) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		r.drop(c)
	}
}

// drop evicts a connection that can no longer be written to.
func (r *Registry) drop(conn *Conn) {
	conn.Close(websocket.CloseAbnormalClosure, "")
	r.Unregister(conn)
}
