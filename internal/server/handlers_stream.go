package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pholzmann/pushhub/internal/errors"
	"github.com/pholzmann/pushhub/internal/logging"
	"github.com/pholzmann/pushhub/internal/metrics"
	"github.com/pholzmann/pushhub/internal/sse"
)

// handleStream opens a server-sent-events stream for the given user key and
// keeps it open until the client disconnects or the hub closes the sink
// (replacement, eviction, shutdown).
func (s *Server) handleStream(c echo.Context) error {
	userKey := c.QueryParam("userKey")
	if userKey == "" {
		return apperrors.ValidationError("userKey query parameter is required")
	}

	ip := c.RealIP()
	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.StreamRejectionsTotal.WithLabelValues(string(reason)).Inc()
		return apperrors.TooManyRequestsError("connection limit reached").
			WithField("reason", string(reason)).
			WithField("user_key", userKey)
	}
	defer s.limits.Release(ip)

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set(echo.HeaderAccessControlAllowOrigin, "*")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	log := logging.WithUser(userKey)
	log.Debug("Stream opened", "remote_ip", ip)

	sink := sse.NewStreamSink(w, s.clock, s.config.WriteTimeout)
	start := s.clock.Now()
	s.hub.Register(userKey, sink)

	select {
	case <-c.Request().Context().Done():
		// Client went away; identity-checked so a racing replacement survives.
		s.hub.Disconnect(userKey, sink)
		log.Debug("Stream closed by client", "duration", s.clock.Since(start))
	case <-sink.Done():
		log.Debug("Stream closed by hub", "duration", s.clock.Since(start))
	}

	metrics.StreamConnectionDuration.Observe(s.clock.Since(start).Seconds())
	return nil
}
