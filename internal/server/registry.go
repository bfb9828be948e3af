package server

import (
	"net"
	"sync"
)

// Broadcaster is the delivery surface the session loop and the command
// dispatcher write through. Keeping it an interface isolates the
// lock-for-the-whole-fan-out strategy below; a later implementation could
// switch to per-connection outbound queues without touching callers.
type Broadcaster interface {
	// Broadcast sends the line to every registered connection except the
	// given one. Pass nil to reach everyone.
	Broadcast(message string, except net.Conn)

	// SendTo delivers the line to the named user's live connection, if any.
	SendTo(username, message string) bool
}

// Registry is the process-wide table of live, authenticated connections.
// One mutex guards the map, and Broadcast holds it across the entire fan-out.
// A stalled recipient therefore delays everyone behind it. That is a known
/// tradeoff, not an accident: it gives broadcasts a total order relative to
// each other and to join/leave events, which callers rely on.
type Registry struct {
	mu    sync.Mutex
	conns map[net.Conn]string
}

var _ Broadcaster = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{conns: make(map[net.Conn]string)}
}

// Add registers an authenticated connection under its username.
func (r *Registry) Add(conn net.Conn, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn] = username
}

// Remove drops the connection and returns the username that occupied it.
// Removing an unregistered connection is a no-op with ok=false, which is how
// sessions that never finished authenticating terminate.
func (r *Registry) Remove(conn net.Conn) (username string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	username, ok = r.conns[conn]
	if ok {
		delete(r.conns, conn)
	}
	return username, ok
}

func (r *Registry) Broadcast(message string, except net.Conn) {
	line := []byte(message + "\n")
	r.mu.Lock()
	defer r.mu.Unlock()
	for conn := range r.conns {
		if conn == except {
			continue
		}
		conn.Write(line) // best effort; failures surface on that conn's own read loop
	}
}

func (r *Registry) SendTo(username, message string) bool {
	line := []byte(message + "\n")
	r.mu.Lock()
	defer r.mu.Unlock()
	for conn, name := range r.conns {
		if name == username {
			conn.Write(line)
			return true
		}
	}
	return false
}

// Online reports whether the user currently has a live connection.
func (r *Registry) Online(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.conns {
		if name == username {
			return true
		}
	}
	return false
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
