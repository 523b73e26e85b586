package transport

import (
	"net"
	"time"

	"github.com/indigo-web/serverio/internal/timer"
)

type Client interface {
	Read() ([]byte, error)
	Pushback([]byte)
	Pending() []byte
	Write([]byte) (int, error)
	// ArmWriteDeadline sets the write deadline for writes bypassing the client, e.g. a
	// sendfile through Conn().
	ArmWriteDeadline() error
	Conn() net.Conn
	Remote() net.Addr
	Close() error
}

type client struct {
	conn         net.Conn
	buff         []byte
	pending      []byte
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewClient wraps the connection. Zero timeouts disable the respective deadlines, so a
// read may block until the peer sends something or the connection is closed.
func NewClient(conn net.Conn, readTimeout, writeTimeout time.Duration, buff []byte) Client {
	return &client{
		buff:         buff,
		conn:         conn,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Read reads data into the internal buffer and returns a piece of it back. The returned
// slice is valid until the next call. Timeouts are also handled automatically.
func (c *client) Read() ([]byte, error) {
	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil

		return pending, nil
	}

	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(timer.Deadline(c.readTimeout)); err != nil {
			return nil, &ReadError{Err: err}
		}
	}

	n, err := c.conn.Read(c.buff)
	if err != nil {
		return c.buff[:n], &ReadError{Err: err}
	}

	return c.buff[:n], nil
}

// Pending returns data (if any) preserved via Pushback.
func (c *client) Pending() []byte {
	return c.pending
}

// Pushback preserves a chunk of data from previous read for the next read.
func (c *client) Pushback(b []byte) {
	c.pending = b
}

// Conn unwraps the underlying net.Conn.
func (c *client) Conn() net.Conn {
	return c.conn
}

// Write writes data into the underlying connection.
func (c *client) Write(b []byte) (int, error) {
	if err := c.ArmWriteDeadline(); err != nil {
		return 0, err
	}

	n, err := c.conn.Write(b)
	if err != nil {
		return n, &WriteError{Err: err}
	}

	return n, nil
}

// ArmWriteDeadline starts the write timeout, if set. Every Write does it implicitly.
func (c *client) ArmWriteDeadline() error {
	if c.writeTimeout <= 0 {
		return nil
	}

	if err := c.conn.SetWriteDeadline(timer.Deadline(c.writeTimeout)); err != nil {
		return &WriteError{Err: err}
	}

	return nil
}

// Remote returns the remote address of the connection.
func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the connection.
func (c *client) Close() error {
	return c.conn.Close()
}

// Hijack detaches the raw connection from the client. Deadlines are reset and the bytes
// that were already read but not consumed are replayed by the returned connection before
// reading from the socket again.
func Hijack(c Client) net.Conn {
	conn := c.Conn()
	_ = conn.SetDeadline(time.Time{})

	if pending := c.Pending(); len(pending) > 0 {
		c.Pushback(nil)
		return &hijackedConn{
			Conn:    conn,
			pending: append([]byte(nil), pending...),
		}
	}

	return conn
}

type hijackedConn struct {
	net.Conn
	pending []byte
}

func (h *hijackedConn) Read(b []byte) (int, error) {
	if len(h.pending) > 0 {
		n := copy(b, h.pending)
		h.pending = h.pending[n:]
		return n, nil
	}

	return h.Conn.Read(b)
}
