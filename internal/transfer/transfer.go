package transfer

import (
	"io"
	"net"
	"os"
)

// DefaultChunkSize is the size of the buffer files are copied with when zero-copy isn't
// available.
const DefaultChunkSize = 1024

// Strategy moves the file contents, starting from its current offset till EOF, into the
// connection.
type Strategy interface {
	Transfer(dst net.Conn, src *os.File) (int64, error)
}

// TransferError is a failure of a file transfer. The number of bytes already sent is
// unknown to the peer, so the connection must not be reused.
type TransferError struct {
	Op  string
	Err error
}

func (t *TransferError) Error() string {
	return "transfer: " + t.Op + ": " + t.Err.Error()
}

func (t *TransferError) Unwrap() error {
	return t.Err
}

// Select returns the native zero-copy strategy if requested and the platform supports it,
// and the buffered one otherwise. The native strategy still falls back to copying for
// destinations not backed by a file descriptor.
func Select(zeroCopy bool, chunkSize int) Strategy {
	buffered := NewBuffered(chunkSize)
	if zeroCopy && NativeSupported {
		return NewNative(buffered)
	}

	return buffered
}

// Buffered copies the file through a fixed-size buffer in user space. It's not safe for
// concurrent use.
type Buffered struct {
	chunk int
	buff  []byte
}

func NewBuffered(chunkSize int) *Buffered {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Buffered{chunk: chunkSize}
}

func (b *Buffered) Transfer(dst net.Conn, src *os.File) (int64, error) {
	return b.Copy(dst, src)
}

// Copy moves everything from src till EOF into dst. A partial write is continued until
// the whole chunk is written, while a read or write making no progress is an error.
func (b *Buffered) Copy(dst io.Writer, src io.Reader) (total int64, err error) {
	if b.buff == nil {
		b.buff = make([]byte, b.chunk)
	}

	for {
		n, rerr := src.Read(b.buff)
		for written := 0; written < n; {
			w, werr := dst.Write(b.buff[written:n])
			if werr != nil {
				return total, &TransferError{Op: "write", Err: werr}
			}

			if w <= 0 {
				return total, &TransferError{Op: "write", Err: io.ErrShortWrite}
			}

			written += w
			total += int64(w)
		}

		switch {
		case rerr == io.EOF:
			return total, nil
		case rerr != nil:
			return total, &TransferError{Op: "read", Err: rerr}
		case n <= 0:
			return total, &TransferError{Op: "read", Err: io.ErrNoProgress}
		}
	}
}
