package dummy

import (
	"io"
	"net"

	"github.com/indigo-web/serverio/transport"
)

var _ transport.Client = new(Client)

// Client returns the data it was initialised with piece by piece, and io.EOF after the
// last one, unless set to loop reads. Everything written, directly or through Conn(), is
// journaled, making it thereby a universal mock suitable for most of the tests.
type Client struct {
	closed  bool
	loop    bool
	pointer int
	tmp     []byte
	data    [][]byte
	conn    *Conn
}

func NewMockClient(data ...[]byte) *Client {
	return &Client{
		data: data,
		conn: new(Conn),
	}
}

func (c *Client) Read() (data []byte, err error) {
	if c.closed {
		return nil, &transport.ReadError{Err: io.EOF}
	}

	if len(c.tmp) > 0 {
		data, c.tmp = c.tmp, nil

		return data, nil
	}

	if c.pointer >= len(c.data) {
		if !c.loop || len(c.data) == 0 {
			return nil, &transport.ReadError{Err: io.EOF}
		}

		c.pointer = 0
	}

	piece := c.data[c.pointer]
	c.pointer++

	return piece, nil
}

func (c *Client) Pushback(takeback []byte) {
	c.tmp = takeback
}

func (c *Client) ArmWriteDeadline() error {
	return nil
}

func (c *Client) Pending() []byte {
	return c.tmp
}

func (c *Client) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

func (c *Client) Conn() net.Conn {
	return c.conn
}

func (c *Client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Client) Close() error {
	c.closed = true
	return c.conn.Close()
}

// LoopReads makes the client start over once the data is exhausted, instead of returning
// io.EOF.
func (c *Client) LoopReads() *Client {
	c.loop = true
	return c
}

// Nop disables journaling, which is useful for benchmarks.
func (c *Client) Nop() *Client {
	c.conn.Nop()
	return c
}

func (c *Client) Written() string {
	return string(c.conn.Data)
}

func (c *Client) Closed() bool {
	return c.closed
}
