// Package metrics provides observability hooks for the server. All metrics are
// optional: unless a collector is passed, the server uses the no-op one.
package metrics

import (
	"time"
)

// Metrics is the set of hooks the server reports to. Implementations must be safe for
// concurrent use, as every connection reports from its own task.
type Metrics interface {
	// ConnectionAccepted is called once a connection was accepted and registered.
	ConnectionAccepted()
	// ConnectionClosed is called after a connection left the active set, either closed or
	// handed over to an upgrader.
	ConnectionClosed()
	// ConnectionRejected is called when the dispatcher refused to run the handler.
	ConnectionRejected(reason string)
	// SetActiveConnections reports the current size of the active connection set.
	SetActiveConnections(n int)
	// RecordRequest records a completed request-response cycle.
	RecordRequest(code int, duration time.Duration)
	// RecordBytesWritten records bytes of response bodies written to the wire.
	RecordBytesWritten(n int64)
	// RecordUpgrade is called once per protocol takeover.
	RecordUpgrade()
	// SetState reports a lifecycle state transition.
	SetState(state string)
}

type noop struct{}

// NewNoop returns a collector discarding everything.
func NewNoop() Metrics {
	return noop{}
}

func (noop) ConnectionAccepted()              {}
func (noop) ConnectionClosed()                {}
func (noop) ConnectionRejected(string)        {}
func (noop) SetActiveConnections(int)         {}
func (noop) RecordRequest(int, time.Duration) {}
func (noop) RecordBytesWritten(int64)         {}
func (noop) RecordUpgrade()                   {}
func (noop) SetState(string)                  {}
