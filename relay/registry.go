package relay

import (
	"context"
	"sync"

	"github.com/andygonzalez6/Bandaid/chats"
)

// Conn is a live client connection able to receive relayed messages.
// ID must be unique per connection; it is the handle used for unbinding.
type Conn interface {
	ID() string
	Send(ctx context.Context, msg *chats.Message) error
}

// Registry maps an online user to their current connection. A user has at
// most one binding; the latest connection wins.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[int64]Conn)}
}

// Bind records conn as userID's connection and returns the connection it
// replaced, if any. The replaced connection is not notified.
func (r *Registry) Bind(userID int64, conn Conn) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.conns[userID]
	r.conns[userID] = conn
	return prev, ok
}

// UnbindByHandle removes the binding that points at conn. It is a no-op when
// conn has already been replaced or removed.
func (r *Registry) UnbindByHandle(conn Conn) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, c := range r.conns {
		if c.ID() == conn.ID() {
			delete(r.conns, userID)
			return userID, true
		}
	}
	return 0, false
}

// Lookup returns the connection bound to userID. ok is false when the user is offline.
func (r *Registry) Lookup(userID int64) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[userID]
	return c, ok
}

// Online returns the number of bound users.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
