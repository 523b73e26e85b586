package serverio

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/serverio/config"
	"github.com/indigo-web/serverio/dispatcher"
	serverhttp "github.com/indigo-web/serverio/internal/server/http"
	"github.com/indigo-web/serverio/metrics"
	"github.com/indigo-web/serverio/router"
	"github.com/indigo-web/serverio/transport"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const connIDLength = 12

type (
	// Parser reads requests off a single connection. A new one is made for every
	// connection, so implementations may keep per-connection state.
	Parser = serverhttp.Parser
	// ParserFactory makes a Parser for a new connection.
	ParserFactory = serverhttp.ParserFactory
)

// Server owns the listening socket and every connection accepted on it. It's restartable:
// Start may be called again after Stop, or even without it, as every Start stops the
// previous run first.
type Server struct {
	// mu serializes Start and Stop
	mu         sync.Mutex
	state      atomic.Int32
	current    atomic.Pointer[run]
	cfg        *config.Config
	router     router.Router
	logger     *zap.Logger
	metrics    metrics.Metrics
	dispatcher dispatcher.Dispatcher
	newParser  ParserFactory
	onUpgrade  func(net.Conn)
}

// run is everything bound to a single Start.
type run struct {
	listener *transport.Listener
	conns    *transport.ConnSet
	// ctx is cancelled by Stop, interrupting a pending accept rate limiter wait.
	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a stopped server. If nil is passed instead of a router, every request is
// answered with 404 Not Found.
func New(r router.Router) *Server {
	if r == nil {
		r = router.NotFound
	}

	s := &Server{
		cfg:       config.Default(),
		router:    r,
		logger:    zap.NewNop(),
		metrics:   metrics.NewNoop(),
		newParser: serverhttp.DefaultParser,
		onUpgrade: func(net.Conn) {},
	}
	s.state.Store(int32(Stopped))

	return s
}

// Tune replaces the default config. Like every other setter, must be called before Start.
func (s *Server) Tune(cfg *config.Config) *Server {
	s.cfg = cfg
	return s
}

func (s *Server) Logger(logger *zap.Logger) *Server {
	s.logger = logger.With(zap.String("component", "server"))
	return s
}

func (s *Server) Metrics(m metrics.Metrics) *Server {
	s.metrics = m
	return s
}

// Dispatcher replaces the default dispatcher, which is chosen by the config. Note that the
// accept loop occupies one task for as long as the server runs.
func (s *Server) Dispatcher(d dispatcher.Dispatcher) *Server {
	s.dispatcher = d
	return s
}

// Parser replaces the built-in HTTP/1.x request parser.
func (s *Server) Parser(factory ParserFactory) *Server {
	s.newParser = factory
	return s
}

// NotifyOnUpgrade sets the callback, which is called exactly once per protocol takeover,
// right before the upgrader gets the connection.
func (s *Server) NotifyOnUpgrade(cb func(conn net.Conn)) *Server {
	s.onUpgrade = cb
	return s
}

// Start stops the server if it's running, binds the port and starts accepting connections
// in the background. Port 0 binds an ephemeral port, which can be retrieved via Port. If
// forceIPv4 isn't set, a dual-stack socket is preferred.
func (s *Server) Start(port uint16, forceIPv4 bool) error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.transition(Stopped, Starting) {
		return ErrAlreadyStarting
	}

	listener, err := transport.Bind(s.cfg.NET, port, forceIPv4)
	if err != nil {
		s.force(Stopped)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		listener: listener,
		conns:    transport.NewConnSet(),
		ctx:      ctx,
		cancel:   cancel,
	}

	if s.dispatcher == nil {
		s.dispatcher = s.defaultDispatcher()
	}

	handler := serverhttp.NewServer(s.cfg, s.router, s.Operating).
		Parser(s.newParser).
		Metrics(s.metrics).
		OnUpgrade(s.onUpgrade)

	s.current.Store(r)
	s.transition(Starting, Running)

	if err = s.dispatcher.Schedule(func() { s.acceptLoop(r, handler) }); err != nil {
		s.current.Store(nil)
		cancel()
		_ = listener.Close()
		s.force(Stopped)

		return fmt.Errorf("schedule the accept loop: %w", err)
	}

	s.logger.Info("server started",
		zap.Stringer("addr", listener.Addr()),
		zap.Bool("ipv4", listener.IsIPv4()),
	)

	return nil
}

// Stop closes every open connection and the listener. Handlers, that are in progress,
// won't be able to send their responses. Upgraded connections aren't affected once the
// upgrader returned. Calling Stop on a server, that isn't running, does nothing.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stop()
}

func (s *Server) stop() {
	if !s.transition(Running, Stopping) {
		return
	}

	r := s.current.Swap(nil)
	r.cancel()
	closed := r.conns.CloseAll()
	s.metrics.SetActiveConnections(0)

	if err := r.listener.Close(); err != nil {
		s.logger.Debug("failed to close the listener", zap.Error(err))
	}

	s.force(Stopped)
	s.logger.Info("server stopped", zap.Int("closed_connections", closed))
}

// Port returns the port the server is actually bound to.
func (s *Server) Port() (int, error) {
	r := s.current.Load()
	if r == nil {
		return 0, ErrNotBound
	}

	return r.listener.Port(), nil
}

// IsIPv4 reports whether the socket belongs to the IPv4 family.
func (s *Server) IsIPv4() (bool, error) {
	r := s.current.Load()
	if r == nil {
		return false, ErrNotBound
	}

	return r.listener.IsIPv4(), nil
}

// Operating reports whether the server is running and serving requests.
func (s *Server) Operating() bool {
	return s.State() == Running
}

func (s *Server) State() State {
	return State(s.state.Load())
}

// ActiveConnections returns the number of currently open connections, upgraded ones
// included until their upgrader returns.
func (s *Server) ActiveConnections() int {
	r := s.current.Load()
	if r == nil {
		return 0
	}

	return r.conns.Len()
}

func (s *Server) defaultDispatcher() dispatcher.Dispatcher {
	onPanic := func(r any) {
		s.logger.Error("task panicked", zap.Any("panic", r))
	}

	if s.cfg.Dispatcher.Workers == 0 {
		return dispatcher.NewSpawn().OnPanic(onPanic)
	}

	return dispatcher.NewPool(s.cfg.Dispatcher.Workers, s.cfg.Dispatcher.Backlog).OnPanic(onPanic)
}

func (s *Server) acceptLoop(r *run, handler *serverhttp.Server) {
	var limiter *rate.Limiter
	if s.cfg.NET.AcceptRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.NET.AcceptRate), s.cfg.NET.AcceptBurst)
	}

	for {
		if limiter != nil {
			if err := limiter.Wait(r.ctx); err != nil {
				break
			}
		}

		conn, err := r.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("failed to accept a connection", zap.Error(err))
			}

			break
		}

		s.accept(r, handler, conn)
	}

	s.terminate(r)
}

// terminate brings the server down if the listener died on its own. A loop that was
// ended by Stop, or belongs to an older run, finds another listener being the current one
// and leaves the server intact.
func (s *Server) terminate(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Load() != r {
		return
	}

	s.logger.Warn("listener is broken, stopping the server")
	s.stop()
}

func (s *Server) accept(r *run, handler *serverhttp.Server, conn net.Conn) {
	if !r.conns.Add(conn) {
		// stopped concurrently
		_ = conn.Close()
		return
	}

	s.metrics.ConnectionAccepted()
	s.metrics.SetActiveConnections(r.conns.Len())

	log := s.logger.With(
		zap.String("conn_id", uniuri.NewLen(connIDLength)),
		zap.Stringer("remote", conn.RemoteAddr()),
	)

	err := s.dispatcher.Schedule(func() {
		s.serve(r, handler, conn, log)
	})
	if err != nil {
		log.Warn("connection rejected", zap.Error(err))
		r.conns.Remove(conn)
		_ = conn.Close()
		s.metrics.ConnectionRejected(rejectionReason(err))
		s.metrics.SetActiveConnections(r.conns.Len())
	}
}

func (s *Server) serve(r *run, handler *serverhttp.Server, conn net.Conn, log *zap.Logger) {
	log.Debug("connection accepted")

	// the connection stays in the set while an upgrader owns it, so Stop still closes it.
	// Afterwards it's just forgotten, as closing it is up to the upgrader
	if hijacked := handler.Serve(conn, log); hijacked {
		log.Debug("upgrader returned")
	} else {
		log.Debug("connection closed")
	}

	r.conns.Remove(conn)
	s.metrics.ConnectionClosed()
	s.metrics.SetActiveConnections(r.conns.Len())
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, dispatcher.ErrOverloaded):
		return "overloaded"
	case errors.Is(err, dispatcher.ErrClosed):
		return "closed"
	default:
		return "other"
	}
}
