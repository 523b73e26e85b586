package serverio

import (
	"errors"

	"github.com/indigo-web/serverio/transport"
)

var (
	// ErrNotBound is returned by queries about the socket while the server isn't running.
	ErrNotBound = errors.New("server is not bound")
	// ErrAlreadyStarting is returned by Start if another Start won the race.
	ErrAlreadyStarting = errors.New("server is already starting")
)

// BindError is returned by Start if the listening socket couldn't be created.
type BindError = transport.BindError
