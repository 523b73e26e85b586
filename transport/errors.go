package transport

import (
	"fmt"
)

// BindError is returned when the listening socket couldn't be created.
type BindError struct {
	Network string
	Addr    string
	Err     error
}

func (b *BindError) Error() string {
	return fmt.Sprintf("bind %s %s: %s", b.Network, b.Addr, b.Err)
}

func (b *BindError) Unwrap() error {
	return b.Err
}

// ReadError wraps a failure of reading from a connection, the peer leaving included.
type ReadError struct {
	Err error
}

func (r *ReadError) Error() string {
	return "read: " + r.Err.Error()
}

func (r *ReadError) Unwrap() error {
	return r.Err
}

// WriteError wraps a failure of writing to a connection. Responses are never retried
// after it.
type WriteError struct {
	Err error
}

func (w *WriteError) Error() string {
	return "write: " + w.Err.Error()
}

func (w *WriteError) Unwrap() error {
	return w.Err
}
