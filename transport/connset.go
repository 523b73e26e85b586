package transport

import (
	"net"
	"sync"
)

// ConnSet tracks open connections, so they can be closed at once. After CloseAll, the
// set refuses new connections: a connection accepted concurrently with the shutdown must
// be closed by the caller instead of being leaked.
type ConnSet struct {
	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

func NewConnSet() *ConnSet {
	return &ConnSet{
		conns: make(map[net.Conn]struct{}),
	}
}

// Add registers the connection. It returns false if the set was already closed.
func (c *ConnSet) Add(conn net.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	c.conns[conn] = struct{}{}
	return true
}

// Remove unregisters the connection without closing it. It returns false if the connection
// wasn't in the set, e.g. because CloseAll already took it.
func (c *ConnSet) Remove(conn net.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, found := c.conns[conn]
	delete(c.conns, conn)

	return found
}

// CloseAll closes every registered connection, clears the set and marks it as closed.
// It returns the number of closed connections.
func (c *ConnSet) CloseAll() int {
	c.mu.Lock()
	conns := c.conns
	c.conns = make(map[net.Conn]struct{})
	c.closed = true
	c.mu.Unlock()

	for conn := range conns {
		_ = conn.Close()
	}

	return len(conns)
}

func (c *ConnSet) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.conns)
}
