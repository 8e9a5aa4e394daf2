package server

import (
	"github.com/labstack/echo/v4"
	"github.com/pholzmann/pushhub/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := s.clock.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

// The hub is in-process state with no external dependencies, so readiness
// only reports capacity headroom alongside the hub's view of the world.
func (s *Server) handleReadiness(c echo.Context) error {
	return c.JSON(200, map[string]any{
		"status":       "ready",
		"client_count": s.hub.ClientCount(),
		"capacity_pct": s.limits.CapacityPct(),
	})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}
