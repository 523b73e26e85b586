package http

import (
	"io"
	"net"
	"os"
)

// UnknownLength marks a streamed body. Such responses carry no Content-Length and always
// close the connection after being written.
const UnknownLength int64 = -1

// BodyWriter is the sink a Content writer callback transmits the body into. All the
// methods write straight to the connection.
type BodyWriter interface {
	io.Writer
	// File transmits the file from its current offset till EOF, using zero-copy transfer
	// where possible.
	File(f *os.File) error
	// Bytes writes a contiguous buffer.
	Bytes(b []byte) error
	// Range writes b[from:to].
	Range(b []byte, from, to int) error
	// Blob copies everything from the reader till EOF.
	Blob(r io.Reader) error
}

// Content describes the response body. Length must match exactly the number of bytes the
// Writer produces, unless it's UnknownLength.
type Content struct {
	Length int64
	Writer func(w BodyWriter) error
	// Release frees resources held for the Writer. It's called instead of the Writer, if
	// the response is dropped without being written.
	Release func()
}

// Drop releases the content, that won't be written.
func (c Content) Drop() {
	if c.Release != nil {
		c.Release()
	}
}

// Upgrader takes over a connection after the response is written, e.g. for WebSockets.
// From the moment Takeover is called, the connection is owned by it: the server neither
// reads from, writes to nor closes it anymore.
type Upgrader interface {
	Takeover(conn net.Conn)
}

// UpgraderFunc adapts a plain function to the Upgrader interface.
type UpgraderFunc func(conn net.Conn)

func (u UpgraderFunc) Takeover(conn net.Conn) {
	u(conn)
}
