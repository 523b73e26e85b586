package http1

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/indigo-web/serverio/http"
	"github.com/indigo-web/serverio/http/status"
	"github.com/indigo-web/serverio/internal/transfer"
	"github.com/indigo-web/serverio/transport"
	"github.com/indigo-web/serverio/transport/dummy"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func getSerializer(client transport.Client) *Serializer {
	return NewSerializer(
		client,
		make([]byte, 0, 128),
		transfer.Select(true, transfer.DefaultChunkSize),
		transfer.NewBuffered(transfer.DefaultChunkSize),
	)
}

func respond(t *testing.T, resp *http.Response, keepAlive bool) (string, bool) {
	client := dummy.NewMockClient()
	keep, err := getSerializer(client).Respond(resp, keepAlive)
	require.NoError(t, err)

	return client.Written(), keep
}

func TestSerializer(t *testing.T) {
	stdreq, err := stdhttp.NewRequest(stdhttp.MethodGet, "/", nil)
	require.NoError(t, err)

	t.Run("default builder", func(t *testing.T) {
		data, keep := respond(t, http.NewResponse(), true)
		require.True(t, keep)
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\nConnection: keep-alive\r\n\r\n", data)
	})

	t.Run("keep-alive not requested", func(t *testing.T) {
		data, keep := respond(t, http.NewResponse().String("Hello"), false)
		require.False(t, keep)
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nHello", data)
	})

	t.Run("unknown length", func(t *testing.T) {
		resp := http.NewResponse().Stream(strings.NewReader("streamed body"))
		data, keep := respond(t, resp, true)
		require.False(t, keep)
		require.Equal(t, "HTTP/1.1 200 OK\r\n\r\nstreamed body", data)
	})

	t.Run("custom status", func(t *testing.T) {
		data, _ := respond(t, http.NewResponse().Code(status.NotFound), false)
		require.True(t, strings.HasPrefix(data, "HTTP/1.1 404 Not Found\r\n"), data)

		data, _ = respond(t, http.NewResponse().Code(299).Status("Fine"), false)
		require.True(t, strings.HasPrefix(data, "HTTP/1.1 299 Fine\r\n"), data)
	})

	t.Run("headers and body", func(t *testing.T) {
		resp := http.NewResponse().
			Header("Hello", "nether").
			Header("Something", "special", "here").
			String("Hello, world!")

		data, keep := respond(t, resp, true)
		require.True(t, keep)

		parsed, err := stdhttp.ReadResponse(bufio.NewReader(strings.NewReader(data)), stdreq)
		require.NoError(t, err)
		require.Equal(t, 200, parsed.StatusCode)
		require.Equal(t, []string{"nether"}, parsed.Header["Hello"])
		require.Equal(t, []string{"special", "here"}, parsed.Header["Something"])
		require.Equal(t, int64(13), parsed.ContentLength)
		body, err := io.ReadAll(parsed.Body)
		require.NoError(t, err)
		require.Equal(t, "Hello, world!", string(body))
	})

	t.Run("body larger than the buffer", func(t *testing.T) {
		payload := strings.Repeat("abcdefgh", 100)
		data, _ := respond(t, http.NewResponse().String(payload), false)
		require.True(t, strings.HasSuffix(data, "\r\n\r\n"+payload))
	})

	t.Run("range", func(t *testing.T) {
		data, _ := respond(t, http.NewResponse().Range([]byte("0123456789"), 3, 6), false)
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 3\r\n\r\n345", data)
	})

	t.Run("bad range", func(t *testing.T) {
		client := dummy.NewMockClient()
		resp := http.NewResponse().Content(http.Content{
			Length: 4,
			Writer: func(w http.BodyWriter) error {
				return w.Range([]byte("01"), 1, 5)
			},
		})
		_, err := getSerializer(client).Respond(resp, true)
		var writeErr *transport.WriteError
		require.ErrorAs(t, err, &writeErr)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		payload := strings.Repeat("x", 5000)
		require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

		client := dummy.NewMockClient()
		serializer := getSerializer(client)
		keep, err := serializer.Respond(http.NewResponse().File(path), true)
		require.NoError(t, err)
		require.True(t, keep)
		require.Equal(t, int64(5000), serializer.BodySize())

		parsed, err := stdhttp.ReadResponse(bufio.NewReader(strings.NewReader(client.Written())), stdreq)
		require.NoError(t, err)
		require.Equal(t, "text/plain", parsed.Header.Get("Content-Type"))
		body, err := io.ReadAll(parsed.Body)
		require.NoError(t, err)
		require.Equal(t, payload, string(body))
	})

	t.Run("file transfer arms the write deadline", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

		conn := &deadlineConn{Conn: new(dummy.Conn)}
		client := transport.NewClient(conn, 0, time.Second, make([]byte, 64))
		before := time.Now()
		_, err := getSerializer(client).Respond(http.NewResponse().File(path), false)
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(string(conn.Data), "\r\n\r\nhello"))
		// one for flushing the head, one for the file itself
		require.Len(t, conn.deadlines, 2)
		for _, deadline := range conn.deadlines {
			require.False(t, deadline.Before(before.Add(time.Second)))
		}
	})

	t.Run("writer error", func(t *testing.T) {
		client := dummy.NewMockClient()
		resp := http.NewResponse().Content(http.Content{
			Length: 10,
			Writer: func(http.BodyWriter) error {
				return errors.New("generator failed")
			},
		})

		keep, err := getSerializer(client).Respond(resp, true)
		require.False(t, keep)
		var writeErr *transport.WriteError
		require.ErrorAs(t, err, &writeErr)
	})

	t.Run("closed connection", func(t *testing.T) {
		client := dummy.NewMockClient()
		require.NoError(t, client.Close())

		_, err := getSerializer(client).Respond(http.NewResponse().String("hi"), true)
		require.Error(t, err)
	})
}

func TestSerializerProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfN(rapid.StringMatching(`X-[A-Za-z]{1,8}`), 0, 10).Draw(t, "keys")
		values := rapid.SliceOfN(rapid.StringMatching(`[a-z0-9 ]{0,16}`), len(keys), len(keys)).Draw(t, "values")
		length := rapid.Int64Range(-1, 64).Draw(t, "length")
		keepAlive := rapid.Bool().Draw(t, "keepAlive")

		resp := http.NewResponse()
		var want strings.Builder
		for i, key := range keys {
			resp.Header(key, values[i])
			fmt.Fprintf(&want, "%s: %s\r\n", key, values[i])
		}

		content := http.Content{Length: length}
		if length > 0 {
			content.Writer = func(w http.BodyWriter) error {
				return w.Bytes([]byte(strings.Repeat("b", int(length))))
			}
		}
		resp.Content(content)

		client := dummy.NewMockClient()
		keep, err := getSerializer(client).Respond(resp, keepAlive)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if keep != (keepAlive && length >= 0) {
			t.Fatalf("keep-alive decision: got %t", keep)
		}

		data := client.Written()
		head, body, found := strings.Cut(data, "\r\n\r\n")
		if !found {
			t.Fatalf("no head terminator in %q", data)
		}

		statusLine, fields, _ := strings.Cut(head+"\r\n", "\r\n")
		if statusLine != "HTTP/1.1 200 OK" {
			t.Fatalf("bad status line: %q", statusLine)
		}

		var prefix string
		if length >= 0 {
			prefix = fmt.Sprintf("Content-Length: %d\r\n", length)
		}
		if keep {
			prefix += "Connection: keep-alive\r\n"
		}

		if fields != prefix+want.String() {
			t.Fatalf("header section mismatch:\n%q\n%q", fields, prefix+want.String())
		}

		if length > 0 && int64(len(body)) != length {
			t.Fatalf("body length %d, want %d", len(body), length)
		}
	})
}

// deadlineConn journals write deadlines of the underlying dummy connection.
type deadlineConn struct {
	*dummy.Conn
	deadlines []time.Time
}

func (d *deadlineConn) SetWriteDeadline(t time.Time) error {
	d.deadlines = append(d.deadlines, t)
	return nil
}
