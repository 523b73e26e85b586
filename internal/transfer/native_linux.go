//go:build linux

package transfer

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// NativeSupported reports whether the platform provides zero-copy file transfer.
const NativeSupported = true

// maxSendfileChunk is the largest count a single sendfile(2) call is trusted with.
const maxSendfileChunk = 1 << 30

// Native transfers files with sendfile(2), so the data never leaves the kernel.
type Native struct {
	fallback *Buffered
}

func NewNative(fallback *Buffered) *Native {
	return &Native{fallback: fallback}
}

func (n *Native) Transfer(dst net.Conn, src *os.File) (int64, error) {
	sc, ok := dst.(syscall.Conn)
	if !ok {
		return n.fallback.Transfer(dst, src)
	}

	rc, err := sc.SyscallConn()
	if err != nil {
		return n.fallback.Transfer(dst, src)
	}

	stat, err := src.Stat()
	if err != nil {
		return 0, &TransferError{Op: "stat", Err: err}
	}

	offset, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, &TransferError{Op: "seek", Err: err}
	}

	var (
		remaining = stat.Size() - offset
		srcFd     = int(src.Fd())
		total     int64
		sendErr   error
	)

	err = rc.Write(func(fd uintptr) (done bool) {
		for remaining > 0 {
			written, err := unix.Sendfile(int(fd), srcFd, &offset, int(min(remaining, maxSendfileChunk)))
			if written > 0 {
				total += int64(written)
				remaining -= int64(written)
			}

			switch {
			case errors.Is(err, unix.EAGAIN):
				// wait until the socket is writable again
				return false
			case errors.Is(err, unix.EINTR):
			case err != nil:
				sendErr = err
				return true
			case written == 0:
				// the file was truncated while being sent
				sendErr = io.ErrUnexpectedEOF
				return true
			}
		}

		return true
	})

	// sendfile(2) with an explicit offset leaves the file position untouched
	if _, serr := src.Seek(offset, io.SeekStart); serr != nil && err == nil && sendErr == nil {
		sendErr = serr
	}

	if err != nil {
		return total, &TransferError{Op: "sendfile", Err: err}
	}

	if sendErr != nil {
		return total, &TransferError{Op: "sendfile", Err: sendErr}
	}

	return total, nil
}
