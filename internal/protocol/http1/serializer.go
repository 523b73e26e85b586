package http1

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/indigo-web/serverio/http"
	"github.com/indigo-web/serverio/http/status"
	"github.com/indigo-web/serverio/internal/transfer"
	"github.com/indigo-web/serverio/transport"
)

const (
	protocol  = "HTTP/1.1 "
	keepAlive = "Connection: keep-alive\r\n"
	crlf      = "\r\n"
)

// Serializer writes responses into a single connection. The response head is accumulated
// in the buffer and flushed together with the body, if the latter fits.
type Serializer struct {
	client   transport.Client
	buff     []byte
	files    transfer.Strategy
	blobs    *transfer.Buffered
	bodySize int64
}

func NewSerializer(client transport.Client, buff []byte, files transfer.Strategy, blobs *transfer.Buffered) *Serializer {
	return &Serializer{
		client: client,
		buff:   buff[:0],
		files:  files,
		blobs:  blobs,
	}
}

// Respond writes the response and returns whether the connection may stay open. That is
// the case only if the caller asked for keep-alive and the body length is known in
// advance, as otherwise the body is delimited by closing the connection.
//
// Any failure is returned as either *transport.WriteError or *transfer.TransferError.
func (s *Serializer) Respond(response *http.Response, keepAliveRequested bool) (keep bool, err error) {
	fields := response.Expose()
	length := fields.Content.Length
	keep = keepAliveRequested && length >= 0
	s.bodySize = 0

	s.buff = s.buff[:0]
	s.appendStatus(fields)

	if length >= 0 {
		s.appendContentLength(length)
	}

	if keep {
		s.buff = append(s.buff, keepAlive...)
	}

	for _, header := range fields.Headers {
		s.appendHeader(header)
	}

	s.crlf()

	if fields.Content.Writer != nil {
		if err = fields.Content.Writer(bodyWriter{s}); err != nil {
			return false, asWriteError(err)
		}
	}

	if err = s.flush(); err != nil {
		return false, err
	}

	return keep, nil
}

// BodySize returns the number of body bytes the last Respond call wrote.
func (s *Serializer) BodySize() int64 {
	return s.bodySize
}

func (s *Serializer) appendStatus(fields *http.Fields) {
	s.buff = append(s.buff, protocol...)

	if code := status.StringCode(fields.Code); len(code) > 0 {
		s.buff = append(s.buff, code...)
	} else {
		// some non-standard code
		s.buff = strconv.AppendUint(s.buff, uint64(fields.Code), 10)
	}

	s.sp()

	statusText := fields.Status
	if len(statusText) == 0 {
		statusText = status.Text(fields.Code)
	}

	s.buff = append(s.buff, statusText...)
	s.crlf()
}

func (s *Serializer) appendContentLength(value int64) {
	s.buff = append(s.buff, "Content-Length: "...)
	s.buff = strconv.AppendInt(s.buff, value, 10)
	s.crlf()
}

func (s *Serializer) appendHeader(header http.Header) {
	s.buff = append(s.buff, header.Key...)
	s.colonsp()
	s.buff = append(s.buff, header.Value...)
	s.crlf()
}

// write appends data to the buffer, if there's enough free space. Otherwise, the buffer
// is flushed and the data is written directly.
func (s *Serializer) write(data []byte) error {
	s.bodySize += int64(len(data))

	if len(data) <= cap(s.buff)-len(s.buff) {
		s.buff = append(s.buff, data...)
		return nil
	}

	if err := s.flush(); err != nil {
		return err
	}

	_, err := s.client.Write(data)
	return err
}

func (s *Serializer) flush() (err error) {
	if len(s.buff) > 0 {
		_, err = s.client.Write(s.buff)
		s.buff = s.buff[:0]
	}

	return err
}

func (s *Serializer) sp() {
	s.buff = append(s.buff, ' ')
}

func (s *Serializer) colonsp() {
	s.buff = append(s.buff, ':', ' ')
}

func (s *Serializer) crlf() {
	s.buff = append(s.buff, crlf...)
}

func asWriteError(err error) error {
	var (
		writeErr    *transport.WriteError
		transferErr *transfer.TransferError
	)

	if errors.As(err, &writeErr) || errors.As(err, &transferErr) {
		return err
	}

	return &transport.WriteError{Err: err}
}

var _ http.BodyWriter = bodyWriter{}

type bodyWriter struct {
	s *Serializer
}

func (b bodyWriter) Write(p []byte) (int, error) {
	if err := b.s.write(p); err != nil {
		return 0, err
	}

	return len(p), nil
}

func (b bodyWriter) Bytes(p []byte) error {
	return b.s.write(p)
}

func (b bodyWriter) Range(p []byte, from, to int) error {
	if from < 0 || to < from || to > len(p) {
		return fmt.Errorf("bad range [%d:%d] of %d bytes", from, to, len(p))
	}

	return b.s.write(p[from:to])
}

func (b bodyWriter) File(f *os.File) error {
	if err := b.s.flush(); err != nil {
		return err
	}

	// the whole transfer shares a single write timeout
	if err := b.s.client.ArmWriteDeadline(); err != nil {
		return err
	}

	n, err := b.s.files.Transfer(b.s.client.Conn(), f)
	b.s.bodySize += n

	return err
}

func (b bodyWriter) Blob(r io.Reader) error {
	if err := b.s.flush(); err != nil {
		return err
	}

	n, err := b.s.blobs.Copy(b.s.client, r)
	b.s.bodySize += n

	return err
}
