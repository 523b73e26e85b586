package transport

import (
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/indigo-web/serverio/config"
	"github.com/stretchr/testify/require"
)

func TestBind(t *testing.T) {
	cfg := config.Default().NET
	cfg.ListenAddressIPv4 = "127.0.0.1"
	cfg.ListenAddressIPv6 = "::1"

	t.Run("ipv4", func(t *testing.T) {
		l, err := Bind(cfg, 0, true)
		require.NoError(t, err)
		defer l.Close()

		require.NotZero(t, l.Port())
		require.True(t, l.IsIPv4())

		conn, err := net.Dial("tcp4", "127.0.0.1:"+strconv.Itoa(l.Port()))
		require.NoError(t, err)
		_ = conn.Close()
	})

	t.Run("dual stack or fallback", func(t *testing.T) {
		l, err := Bind(cfg, 0, false)
		require.NoError(t, err)
		defer l.Close()

		require.NotZero(t, l.Port())
		// depending on whether the host has IPv6, either of families is fine, but it must
		// match the bound address
		require.Equal(t, l.Addr().(*net.TCPAddr).IP.To4() != nil, l.IsIPv4())
	})

	t.Run("port in use", func(t *testing.T) {
		first, err := Bind(cfg, 0, true)
		require.NoError(t, err)
		defer first.Close()

		_, err = Bind(cfg, uint16(first.Port()), true)
		var bindErr *BindError
		require.ErrorAs(t, err, &bindErr)
		require.Equal(t, "tcp4", bindErr.Network)
	})

	t.Run("accept after close", func(t *testing.T) {
		l, err := Bind(cfg, 0, true)
		require.NoError(t, err)
		require.NoError(t, l.Close())

		_, err = l.Accept()
		require.ErrorIs(t, err, net.ErrClosed)
	})
}

func TestConnSet(t *testing.T) {
	t.Run("add and remove", func(t *testing.T) {
		set := NewConnSet()
		a, b := net.Pipe()
		defer b.Close()

		require.True(t, set.Add(a))
		require.Equal(t, 1, set.Len())
		require.True(t, set.Remove(a))
		require.False(t, set.Remove(a))
		require.Zero(t, set.Len())
	})

	t.Run("close all", func(t *testing.T) {
		set := NewConnSet()
		var peers []net.Conn

		for range 3 {
			a, b := net.Pipe()
			require.True(t, set.Add(a))
			peers = append(peers, b)
		}

		require.Equal(t, 3, set.CloseAll())
		require.Zero(t, set.Len())

		for _, peer := range peers {
			_, err := peer.Read(make([]byte, 1))
			require.ErrorIs(t, err, io.EOF)
		}

		a, b := net.Pipe()
		defer a.Close()
		defer b.Close()
		require.False(t, set.Add(a))
		require.Zero(t, set.CloseAll())
	})
}

func TestClient(t *testing.T) {
	t.Run("read and pushback", func(t *testing.T) {
		server, peer := net.Pipe()
		defer peer.Close()
		client := NewClient(server, 0, 0, make([]byte, 64))

		go func() {
			_, _ = peer.Write([]byte("Hello, world!"))
		}()

		data, err := client.Read()
		require.NoError(t, err)
		require.Equal(t, "Hello, world!", string(data))

		client.Pushback(data[7:])
		data, err = client.Read()
		require.NoError(t, err)
		require.Equal(t, "world!", string(data))
	})

	t.Run("read error", func(t *testing.T) {
		server, peer := net.Pipe()
		client := NewClient(server, 0, 0, make([]byte, 64))
		require.NoError(t, peer.Close())

		_, err := client.Read()
		var readErr *ReadError
		require.ErrorAs(t, err, &readErr)
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("read timeout", func(t *testing.T) {
		server, peer := net.Pipe()
		defer peer.Close()
		client := NewClient(server, 10*time.Millisecond, 0, make([]byte, 64))

		_, err := client.Read()
		require.ErrorIs(t, err, os.ErrDeadlineExceeded)
	})

	t.Run("short read timeout", func(t *testing.T) {
		for range 20 {
			server, peer := net.Pipe()
			client := NewClient(server, 100*time.Millisecond, 0, make([]byte, 64))

			go func() {
				_, _ = peer.Write([]byte("ping"))
			}()

			data, err := client.Read()
			require.NoError(t, err)
			require.Equal(t, "ping", string(data))
			_ = peer.Close()
		}
	})

	t.Run("write deadline", func(t *testing.T) {
		conn := new(deadlineConn)
		client := NewClient(conn, 0, 100*time.Millisecond, nil)

		before := time.Now()
		require.NoError(t, client.ArmWriteDeadline())
		require.Len(t, conn.deadlines, 1)
		require.False(t, conn.deadlines[0].Before(before.Add(100*time.Millisecond)))

		_, err := client.Write([]byte("data"))
		require.NoError(t, err)
		require.Len(t, conn.deadlines, 2)
	})

	t.Run("no write timeout", func(t *testing.T) {
		conn := new(deadlineConn)
		client := NewClient(conn, 0, 0, nil)
		require.NoError(t, client.ArmWriteDeadline())
		require.Empty(t, conn.deadlines)
	})

	t.Run("write error", func(t *testing.T) {
		server, peer := net.Pipe()
		client := NewClient(server, 0, 0, make([]byte, 64))
		require.NoError(t, peer.Close())

		_, err := client.Write([]byte("data"))
		var writeErr *WriteError
		require.True(t, errors.As(err, &writeErr))
	})

	t.Run("hijack replays pending", func(t *testing.T) {
		server, peer := net.Pipe()
		defer peer.Close()
		client := NewClient(server, 0, 0, make([]byte, 64))
		client.Pushback([]byte("early"))

		conn := Hijack(client)
		require.Empty(t, client.Pending())

		go func() {
			_, _ = peer.Write([]byte(" bird"))
		}()

		buff := make([]byte, 64)
		n, err := conn.Read(buff)
		require.NoError(t, err)
		require.Equal(t, "early", string(buff[:n]))
		n, err = conn.Read(buff)
		require.NoError(t, err)
		require.Equal(t, " bird", string(buff[:n]))
	})

	t.Run("hijack without pending", func(t *testing.T) {
		server, peer := net.Pipe()
		defer peer.Close()
		client := NewClient(server, 0, 0, make([]byte, 64))
		require.Equal(t, server, Hijack(client))
	})
}

// deadlineConn journals write deadlines and discards the data.
type deadlineConn struct {
	net.Conn
	deadlines []time.Time
}

func (d *deadlineConn) Write(b []byte) (int, error) {
	return len(b), nil
}

func (d *deadlineConn) SetWriteDeadline(t time.Time) error {
	d.deadlines = append(d.deadlines, t)
	return nil
}
