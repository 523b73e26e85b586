package http

import (
	"net"

	"github.com/indigo-web/serverio/http/proto"
)

// Params are named values the router extracted from the request, e.g. path segments.
type Params map[string]string

// Request is a single parsed HTTP request. Method, Path, Query and header values may
// reference the connection buffer, so they're valid only until the handler returns.
// Copy them (strings.Clone) in order to retain.
type Request struct {
	Method  string
	Path    string
	Query   string
	Proto   proto.Protocol
	Headers Headers
	// Body is the complete request body, empty if none was sent.
	Body []byte
	// Remote is the peer address of the connection.
	Remote net.Addr
	// Params are set by the router before the handler is called.
	Params Params
}

// Respond returns a new response builder. Shorthand for NewResponse, keeping handlers
// concise.
func (r *Request) Respond() *Response {
	return NewResponse()
}

// Reset clears the request, so it can be reused for the next one on the same connection.
func (r *Request) Reset() {
	r.Method = ""
	r.Path = ""
	r.Query = ""
	r.Proto = proto.Unknown
	r.Headers = r.Headers[:0]
	r.Body = nil
	r.Params = nil
}
