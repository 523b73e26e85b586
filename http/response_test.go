package http

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/indigo-web/serverio/http/mime"
	"github.com/indigo-web/serverio/http/status"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	bytes.Buffer
	files int
}

func (r *recordingWriter) File(f *os.File) error {
	r.files++
	_, err := io.Copy(&r.Buffer, f)
	return err
}

func (r *recordingWriter) Bytes(b []byte) error {
	_, err := r.Write(b)
	return err
}

func (r *recordingWriter) Range(b []byte, from, to int) error {
	return r.Bytes(b[from:to])
}

func (r *recordingWriter) Blob(reader io.Reader) error {
	_, err := io.Copy(&r.Buffer, reader)
	return err
}

func render(t *testing.T, resp *Response) string {
	content := resp.Expose().Content
	if content.Writer == nil {
		return ""
	}

	w := new(recordingWriter)
	require.NoError(t, content.Writer(w))
	if content.Length != UnknownLength {
		require.Equal(t, content.Length, int64(w.Len()))
	}

	return w.String()
}

func TestResponse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		fields := NewResponse().Expose()
		require.Equal(t, status.OK, fields.Code)
		require.Empty(t, fields.Status)
		require.Empty(t, fields.Headers)
		require.Zero(t, fields.Content.Length)
		require.Nil(t, fields.Content.Writer)
		require.Nil(t, fields.Upgrader)
	})

	t.Run("headers order", func(t *testing.T) {
		fields := NewResponse().
			Header("X-First", "1").
			Header("Set-Cookie", "a=1", "b=2").
			Header("X-Last", "2").
			Expose()

		require.Equal(t, Headers{
			{"X-First", "1"},
			{"Set-Cookie", "a=1"},
			{"Set-Cookie", "b=2"},
			{"X-Last", "2"},
		}, fields.Headers)
	})

	t.Run("string", func(t *testing.T) {
		resp := NewResponse().String("Hello, world!")
		require.Equal(t, int64(13), resp.Expose().Content.Length)
		require.Equal(t, "Hello, world!", render(t, resp))
	})

	t.Run("range", func(t *testing.T) {
		resp := NewResponse().Range([]byte("0123456789"), 2, 5)
		require.Equal(t, int64(3), resp.Expose().Content.Length)
		require.Equal(t, "234", render(t, resp))
	})

	t.Run("range out of bounds", func(t *testing.T) {
		body := []byte("0123456789")
		for _, bounds := range [][2]int{{5, 2}, {8, 11}, {-1, 3}} {
			resp := NewResponse().Range(body, bounds[0], bounds[1])
			fields := resp.Expose()
			require.Equal(t, status.RequestedRangeNotSatisfiable, fields.Code)
			require.GreaterOrEqual(t, fields.Content.Length, int64(0))
			require.Equal(t, "requested range is out of the body", render(t, resp))
		}
	})

	t.Run("stream", func(t *testing.T) {
		resp := NewResponse().Stream(strings.NewReader("streamed"))
		require.Equal(t, UnknownLength, resp.Expose().Content.Length)
		require.Equal(t, "streamed", render(t, resp))
	})

	t.Run("sized", func(t *testing.T) {
		resp := NewResponse().Sized(strings.NewReader("sized and some more"), 5)
		require.Equal(t, "sized", render(t, resp))
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.html")
		require.NoError(t, os.WriteFile(path, []byte("<h1>hi</h1>"), 0o644))

		resp, err := NewResponse().TryFile(path)
		require.NoError(t, err)
		contentType, _ := resp.Expose().Headers.Value("content-type")
		require.Equal(t, mime.HTML, contentType)
		require.Equal(t, int64(11), resp.Expose().Content.Length)

		w := new(recordingWriter)
		require.NoError(t, resp.Expose().Content.Writer(w))
		require.Equal(t, 1, w.files)
		require.Equal(t, "<h1>hi</h1>", w.String())
	})

	t.Run("dropped file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.html")
		require.NoError(t, os.WriteFile(path, []byte("<h1>hi</h1>"), 0o644))

		resp, err := NewResponse().TryFile(path)
		require.NoError(t, err)
		content := resp.Expose().Content
		content.Drop()

		// the file is closed, so there's nothing left to write
		require.ErrorIs(t, content.Writer(new(recordingWriter)), os.ErrClosed)
	})

	t.Run("drop without release", func(t *testing.T) {
		require.NotPanics(t, NewResponse().String("hi").Expose().Content.Drop)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewResponse().TryFile(filepath.Join(t.TempDir(), "nope"))
		require.ErrorIs(t, err, status.ErrNotFound)

		resp := NewResponse().File(t.TempDir())
		require.Equal(t, status.NotFound, resp.Expose().Code)
	})

	t.Run("json", func(t *testing.T) {
		resp := NewResponse().JSON(map[string]int{"answer": 42})
		contentType, _ := resp.Expose().Headers.Value("Content-Type")
		require.Equal(t, mime.JSON, contentType)
		require.JSONEq(t, `{"answer":42}`, render(t, resp))
	})

	t.Run("bad json", func(t *testing.T) {
		resp := NewResponse().JSON(make(chan int))
		require.Equal(t, status.InternalServerError, resp.Expose().Code)
	})

	t.Run("error", func(t *testing.T) {
		resp := NewResponse().Error(status.ErrBodyTooLarge)
		require.Equal(t, status.RequestEntityTooLarge, resp.Expose().Code)
		require.Equal(t, "request body is too large", render(t, resp))

		resp = NewResponse().Error(errors.New("boom"), status.BadGateway)
		require.Equal(t, status.BadGateway, resp.Expose().Code)
		require.Equal(t, "boom", render(t, resp))

		resp = NewResponse().Error(nil)
		require.Equal(t, status.OK, resp.Expose().Code)
	})

	t.Run("upgrade", func(t *testing.T) {
		var called bool
		resp := NewResponse().Upgrade(UpgraderFunc(func(net.Conn) {
			called = true
		}))

		fields := resp.Expose()
		require.Equal(t, status.SwitchingProtocols, fields.Code)
		require.Equal(t, UnknownLength, fields.Content.Length)
		fields.Upgrader.Takeover(nil)
		require.True(t, called)
	})
}

func TestHeaders(t *testing.T) {
	headers := Headers{
		{"Host", "localhost"},
		{"Accept", "text/html"},
		{"accept", "application/json"},
	}

	value, found := headers.Value("HOST")
	require.True(t, found)
	require.Equal(t, "localhost", value)
	require.Equal(t, []string{"text/html", "application/json"}, headers.Values("Accept"))
	require.False(t, headers.Has("Content-Length"))
	require.Empty(t, headers.Values("Content-Length"))
}
