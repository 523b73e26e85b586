//go:build !linux

package transfer

import (
	"net"
	"os"
)

// NativeSupported reports whether the platform provides zero-copy file transfer.
const NativeSupported = false

// Native always copies through the buffer on this platform.
type Native struct {
	fallback *Buffered
}

func NewNative(fallback *Buffered) *Native {
	return &Native{fallback: fallback}
}

func (n *Native) Transfer(dst net.Conn, src *os.File) (int64, error) {
	return n.fallback.Transfer(dst, src)
}
