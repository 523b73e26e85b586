package http

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/indigo-web/serverio/config"
	"github.com/indigo-web/serverio/http"
	"github.com/indigo-web/serverio/http/status"
	"github.com/indigo-web/serverio/internal/protocol/http1"
	"github.com/indigo-web/serverio/internal/transfer"
	"github.com/indigo-web/serverio/metrics"
	"github.com/indigo-web/serverio/router"
	"github.com/indigo-web/serverio/transport"
	"go.uber.org/zap"
)

// writeBufferSize is the capacity of the buffer the response head is accumulated in.
// Bodies fitting into the rest of it are sent within the same write.
const writeBufferSize = 4096

// Parser reads requests off a single connection.
type Parser interface {
	// Parse reads exactly one request. Errors are either *transport.ReadError or
	// status.HTTPError.
	Parse(client transport.Client, req *http.Request) error
	// KeepAlive decides whether the connection may be reused after the request.
	KeepAlive(req *http.Request) bool
}

// ParserFactory makes a parser for a new connection.
type ParserFactory func(cfg *config.Config) Parser

// DefaultParser returns the built-in HTTP/1.x parser.
func DefaultParser(cfg *config.Config) Parser {
	return http1.NewParser(cfg)
}

// Server runs the request-response loop on connections. A single instance serves every
// connection of a server run, so it holds no per-connection state.
type Server struct {
	cfg       *config.Config
	router    router.Router
	newParser ParserFactory
	metrics   metrics.Metrics
	onUpgrade func(net.Conn)
	operating func() bool
}

// NewServer returns the connection handler. The operating callback is polled before
// every request and before writing every response: once it reports false, the loop
// ends without responding.
func NewServer(cfg *config.Config, r router.Router, operating func() bool) *Server {
	if r == nil {
		r = router.NotFound
	}

	return &Server{
		cfg:       cfg,
		router:    r,
		newParser: DefaultParser,
		metrics:   metrics.NewNoop(),
		onUpgrade: func(net.Conn) {},
		operating: operating,
	}
}

func (s *Server) Parser(factory ParserFactory) *Server {
	s.newParser = factory
	return s
}

func (s *Server) Metrics(m metrics.Metrics) *Server {
	s.metrics = m
	return s
}

// OnUpgrade sets the callback notified exactly once per protocol takeover, right before
// the upgrader gets the connection.
func (s *Server) OnUpgrade(cb func(net.Conn)) *Server {
	s.onUpgrade = cb
	return s
}

// Serve runs the loop until the connection breaks, the peer doesn't want to keep it
// alive, or the server stops operating. Unless the connection was hijacked by an
// upgrader, it's closed before returning. Hijacked connections are owned by the upgrader
// and must not be touched by the caller anymore.
func (s *Server) Serve(conn net.Conn, log *zap.Logger) (hijacked bool) {
	client := transport.NewClient(
		conn,
		s.cfg.NET.ReadTimeout,
		s.cfg.NET.WriteTimeout,
		make([]byte, s.cfg.NET.ReadBufferSize),
	)
	serializer := http1.NewSerializer(
		client,
		make([]byte, 0, writeBufferSize),
		transfer.Select(s.cfg.Body.ZeroCopy, s.cfg.Body.FileChunkSize),
		transfer.NewBuffered(s.cfg.Body.FileChunkSize),
	)

	return s.Run(client, s.newParser(s.cfg), serializer, log)
}

// Run is Serve over an already wrapped client.
func (s *Server) Run(client transport.Client, parser Parser, serializer *http1.Serializer, log *zap.Logger) (hijacked bool) {
	req := new(http.Request)

loop:
	for s.operating() {
		switch s.HandleRequest(client, parser, serializer, req, log) {
		case eHijacked:
			return true
		case eClose:
			break loop
		}
	}

	_ = client.Close()

	return false
}

// HandleRequest processes exactly one request-response cycle.
func (s *Server) HandleRequest(
	client transport.Client, parser Parser, serializer *http1.Serializer, req *http.Request, log *zap.Logger,
) outcome {
	if err := parser.Parse(client, req); err != nil {
		logReadFailure(log, err)
		return eClose
	}

	start := time.Now()
	req.Remote = client.Remote()
	params, handler := s.router.Dispatch(req)
	req.Params = params

	response, ok := s.call(handler, req, log)
	if !ok {
		return eClose
	}

	keep := parser.KeepAlive(req)

	if s.operating() {
		var err error
		if keep, err = serializer.Respond(response, keep); err != nil {
			log.Warn("failed to write the response", zap.Error(err))
			return eClose
		}

		s.metrics.RecordRequest(int(response.Expose().Code), time.Since(start))
		s.metrics.RecordBytesWritten(serializer.BodySize())
	} else {
		response.Expose().Content.Drop()
		keep = false
	}

	if upgrader := response.Expose().Upgrader; upgrader != nil {
		conn := transport.Hijack(client)
		log.Debug("connection is taken over", zap.String("path", req.Path))
		s.onUpgrade(conn)
		s.metrics.RecordUpgrade()
		upgrader.Takeover(conn)

		return eHijacked
	}

	if !keep {
		return eClose
	}

	return eProceed
}

// call runs the handler, recovering from its panic. In that case, ok is false and the
// connection must be closed, as nothing was written.
func (s *Server) call(handler router.Handler, req *http.Request, log *zap.Logger) (response *http.Response, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked",
				zap.Any("panic", r),
				zap.String("method", req.Method),
				zap.String("path", req.Path),
			)
			response, ok = nil, false
		}
	}()

	if handler == nil {
		return http.Respond(req).Code(status.NotFound), true
	}

	if response = handler(req); response == nil {
		response = http.Respond(req)
	}

	return response, true
}

func logReadFailure(log *zap.Logger, err error) {
	var httpErr status.HTTPError

	switch {
	case errors.As(err, &httpErr):
		log.Debug("malformed request",
			zap.Int("code", int(httpErr.Code)),
			zap.String("reason", httpErr.Message),
		)
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		log.Debug("connection closed")
	default:
		log.Debug("failed to read the request", zap.Error(err))
	}
}
