package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pholzmann/pushhub/internal/hub"
)

// StreamSink adapts an HTTP response into a hub.Sink, emitting server-sent
// event framing:
//
//	event: <name>\ndata: <json>\n\n
//
// Each write flushes so the client observes events immediately. A best-effort
// write deadline bounds how long one stalled client can hold a writer.
type StreamSink struct {
	mu           sync.Mutex
	w            http.ResponseWriter
	rc           *http.ResponseController
	clock        clockwork.Clock
	writeTimeout time.Duration

	closed    chan struct{}
	closeOnce sync.Once
}

// NewStreamSink wraps w. writeTimeout <= 0 disables the per-write deadline.
func NewStreamSink(w http.ResponseWriter, clock clockwork.Clock, writeTimeout time.Duration) *StreamSink {
	return &StreamSink{
		w:            w,
		rc:           http.NewResponseController(w),
		clock:        clock,
		writeTimeout: writeTimeout,
		closed:       make(chan struct{}),
	}
}

// WriteEvent frames and flushes one event. Returns ErrSinkClosed after Close.
func (s *StreamSink) WriteEvent(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return hub.ErrSinkClosed
	default:
	}

	if s.writeTimeout > 0 {
		// Not every ResponseWriter supports deadlines (httptest recorders
		// don't), so failures here are not fatal.
		_ = s.rc.SetWriteDeadline(s.clock.Now().Add(s.writeTimeout))
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

// Close marks the sink closed and unblocks Done. Idempotent; the stream
// handler ends the HTTP response when Done fires. Taking the write mutex
// here makes Close wait out an in-flight WriteEvent, so the handler's return
// (and net/http's response finalization) happens after the last write.
func (s *StreamSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.closed)
		s.mu.Unlock()
	})
	return nil
}

// Done is closed once the sink has been closed.
func (s *StreamSink) Done() <-chan struct{} {
	return s.closed
}
