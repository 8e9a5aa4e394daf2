package hub

import "errors"

// ErrSinkClosed is returned by sinks that have already been closed.
var ErrSinkClosed = errors.New("sink closed")

// Sink is the write side of one client stream. The transport layer implements
// it (SSE today) and translates WriteEvent into wire framing. Close must be
// idempotent: the hub may close a sink that the transport already tore down.
type Sink interface {
	WriteEvent(name string, data []byte) error
	Close() error
}
