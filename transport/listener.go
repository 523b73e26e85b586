package transport

import (
	"net"
	"strconv"

	"github.com/indigo-web/serverio/config"
)

// Listener is a bound TCP socket.
type Listener struct {
	l    net.Listener
	addr *net.TCPAddr
}

// Bind creates a listening socket on the port. When forceIPv4 is set, the socket is IPv4
// only. Otherwise, a dual-stack socket is preferred, falling back to IPv4 if the system
// can't provide one. Port 0 picks an ephemeral port.
func Bind(cfg config.NET, port uint16, forceIPv4 bool) (*Listener, error) {
	portStr := strconv.Itoa(int(port))
	ipv4Addr := net.JoinHostPort(cfg.ListenAddressIPv4, portStr)

	if forceIPv4 {
		return listen("tcp4", ipv4Addr)
	}

	l, err := listen("tcp", net.JoinHostPort(cfg.ListenAddressIPv6, portStr))
	if err == nil {
		return l, nil
	}

	return listen("tcp4", ipv4Addr)
}

func listen(network, addr string) (*Listener, error) {
	l, err := net.Listen(network, addr)
	if err != nil {
		return nil, &BindError{Network: network, Addr: addr, Err: err}
	}

	return &Listener{
		l:    l,
		addr: l.Addr().(*net.TCPAddr),
	}, nil
}

// Accept blocks until a new connection arrives. It fails once the listener is closed.
func (l *Listener) Accept() (net.Conn, error) {
	return l.l.Accept()
}

func (l *Listener) Close() error {
	return l.l.Close()
}

func (l *Listener) Addr() net.Addr {
	return l.addr
}

// Port returns the actually bound port, which differs from the requested one if it was 0.
func (l *Listener) Port() int {
	return l.addr.Port
}

// IsIPv4 reports whether the socket belongs to the IPv4 family.
func (l *Listener) IsIPv4() bool {
	return l.addr.IP.To4() != nil
}
