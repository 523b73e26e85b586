package http1

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/serverio/config"
	"github.com/indigo-web/serverio/http"
	"github.com/indigo-web/serverio/http/proto"
	"github.com/indigo-web/serverio/http/status"
	"github.com/indigo-web/serverio/transport"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

var crlfcrlf = []byte("\r\n\r\n")

// Parser reads HTTP/1.x requests from a client. It's bound to a single connection, as
// the request head is kept in its buffer: strings of a parsed request reference it and
// stay valid until the next call to Parse.
type Parser struct {
	cfg     *config.Config
	head    []byte
	chunked chunkedbody.Settings
}

func NewParser(cfg *config.Config) *Parser {
	return &Parser{
		cfg:     cfg,
		head:    make([]byte, 0, min(cfg.Headers.MaxSize, 4096)),
		chunked: chunkedbody.DefaultSettings(),
	}
}

// Parse reads exactly one request into req. Bytes beyond the request are pushed back to
// the client. A *transport.ReadError is returned if the peer left or the connection broke,
// and a status.HTTPError if the request is malformed.
func (p *Parser) Parse(client transport.Client, req *http.Request) error {
	req.Reset()

	extra, err := p.readHead(client)
	if err != nil {
		return err
	}

	headEnd := len(p.head) - len(extra)
	if err = p.parseHead(req, p.head[:headEnd]); err != nil {
		return err
	}

	return p.readBody(client, req, extra)
}

// readHead accumulates data until the end of the header section and returns whatever
// follows it.
func (p *Parser) readHead(client transport.Client) ([]byte, error) {
	p.head = p.head[:0]

	for {
		data, err := client.Read()
		if err != nil {
			return nil, err
		}

		if len(p.head) == 0 {
			// RFC 9112 2.2: at least one empty line before the request-line should be ignored
			data = bytes.TrimLeft(data, "\r\n")
			if len(data) == 0 {
				continue
			}
		}

		searchFrom := max(0, len(p.head)-len(crlfcrlf)+1)
		p.head = append(p.head, data...)

		if end := bytes.Index(p.head[searchFrom:], crlfcrlf); end != -1 {
			headEnd := searchFrom + end + len(crlfcrlf)
			if headEnd > p.cfg.Headers.MaxSize {
				return nil, status.ErrHeaderFieldsTooLarge
			}

			return p.head[headEnd:], nil
		}

		if len(p.head) > p.cfg.Headers.MaxSize {
			return nil, status.ErrHeaderFieldsTooLarge
		}
	}
}

func (p *Parser) parseHead(req *http.Request, head []byte) error {
	line, rest, _ := bytes.Cut(head, []byte("\r\n"))
	if err := parseRequestLine(req, line); err != nil {
		return err
	}

	for {
		line, rest, _ = bytes.Cut(rest, []byte("\r\n"))
		if len(line) == 0 {
			return nil
		}

		if len(req.Headers) >= p.cfg.Headers.MaxCount {
			return status.ErrTooManyHeaders
		}

		header, err := parseHeaderLine(line)
		if err != nil {
			return err
		}

		req.Headers = append(req.Headers, header)
	}
}

func parseRequestLine(req *http.Request, line []byte) error {
	method, line, found := bytes.Cut(line, []byte{' '})
	if !found || len(method) == 0 || !isToken(method) {
		return status.ErrBadRequest
	}

	target, protocol, found := bytes.Cut(line, []byte{' '})
	if !found || len(target) == 0 {
		return status.ErrBadRequest
	}

	req.Proto = proto.FromBytes(protocol)
	switch req.Proto {
	case proto.HTTP10, proto.HTTP11:
	case proto.Unknown:
		if bytes.HasPrefix(protocol, []byte("HTTP/")) {
			return status.ErrHTTPVersionNotSupported
		}

		return status.ErrBadRequest
	default:
		return status.ErrHTTPVersionNotSupported
	}

	req.Method = uf.B2S(method)
	path, query, _ := bytes.Cut(target, []byte{'?'})
	req.Path = uf.B2S(path)
	req.Query = uf.B2S(query)

	return nil
}

func parseHeaderLine(line []byte) (http.Header, error) {
	if line[0] == ' ' || line[0] == '\t' {
		// obsolete line folding
		return http.Header{}, status.ErrBadRequest
	}

	key, value, found := bytes.Cut(line, []byte{':'})
	if !found || len(key) == 0 || !isToken(key) {
		return http.Header{}, status.ErrBadRequest
	}

	return http.Header{
		Key:   uf.B2S(key),
		Value: uf.B2S(bytes.Trim(value, " \t")),
	}, nil
}

func (p *Parser) readBody(client transport.Client, req *http.Request, extra []byte) error {
	if te, found := req.Headers.Value("Transfer-Encoding"); found {
		if !isChunked(te) {
			return status.ErrUnsupportedEncoding
		}

		return p.readChunked(client, req, extra)
	}

	length, err := contentLength(req.Headers)
	if err != nil {
		return err
	}

	if length > p.cfg.Body.MaxSize {
		return status.ErrBodyTooLarge
	}

	if length == 0 {
		client.Pushback(extra)
		return nil
	}

	// a fresh buffer each time, so a body retained by the handler isn't overwritten by
	// the next request
	body := make([]byte, 0, length)
	for {
		piece := min(len(extra), int(length)-len(body))
		body = append(body, extra[:piece]...)
		extra = extra[piece:]

		if int64(len(body)) == length {
			break
		}

		if extra, err = client.Read(); err != nil {
			return err
		}
	}

	client.Pushback(extra)
	req.Body = body

	return nil
}

func (p *Parser) readChunked(client transport.Client, req *http.Request, data []byte) error {
	parser := chunkedbody.NewParser(p.chunked)
	trailer := req.Headers.Has("Trailer")

	var (
		body        []byte
		chunk, rest []byte
		err         error
	)

	for {
		if len(data) == 0 {
			if data, err = client.Read(); err != nil {
				return err
			}
		}

		chunk, rest, err = parser.Parse(data, trailer)
		if len(body)+len(chunk) > int(p.cfg.Body.MaxSize) {
			return status.ErrBodyTooLarge
		}

		body = append(body, chunk...)
		data = rest

		switch {
		case errors.Is(err, io.EOF):
			client.Pushback(data)
			req.Body = body
			return nil
		case err != nil:
			return status.ErrBadChunk
		}
	}
}

func contentLength(headers http.Headers) (length int64, err error) {
	values := headers.Values("Content-Length")
	if len(values) == 0 {
		return 0, nil
	}

	for i, value := range values {
		n, ok := parseUint(value)
		if !ok || (i > 0 && n != length) {
			return 0, status.ErrBadContentLength
		}

		length = n
	}

	return length, nil
}

func parseUint(s string) (n int64, ok bool) {
	if len(s) == 0 || len(s) > 18 {
		return 0, false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}

		n = n*10 + int64(s[i]-'0')
	}

	return n, true
}

// isChunked reports whether chunked is the only transfer coding. Any other one applied
// before it, e.g. gzip, isn't supported.
func isChunked(te string) bool {
	return strcomp.EqualFold(strings.TrimSpace(te), "chunked")
}

func (*Parser) KeepAlive(req *http.Request) bool {
	return KeepAlive(req)
}

// KeepAlive decides whether the connection may serve further requests after this one.
// HTTP/1.1 connections are persistent unless the client sends Connection: close, while
// HTTP/1.0 ones require an explicit Connection: keep-alive.
func KeepAlive(req *http.Request) bool {
	switch req.Proto {
	case proto.HTTP11:
		return !hasConnectionToken(req.Headers, "close")
	case proto.HTTP10:
		return hasConnectionToken(req.Headers, "keep-alive")
	default:
		return false
	}
}

func hasConnectionToken(headers http.Headers, token string) bool {
	for _, value := range headers.Values("Connection") {
		for len(value) > 0 {
			var option string
			option, value, _ = strings.Cut(value, ",")
			if strcomp.EqualFold(strings.TrimSpace(option), token) {
				return true
			}
		}
	}

	return false
}

func isToken(b []byte) bool {
	for _, c := range b {
		if c <= ' ' || c >= 0x7f || strings.IndexByte("\"(),/:;<=>?@[\\]{}", c) != -1 {
			return false
		}
	}

	return true
}
