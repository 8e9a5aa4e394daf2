package server

import (
	"fmt"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pholzmann/pushhub/internal/errors"
	"github.com/pholzmann/pushhub/internal/hub"
)

type controlRequest struct {
	Action    string         `json:"action"`
	UserKey   string         `json:"userKey"`
	EventName string         `json:"eventName"`
	Payload   map[string]any `json:"payload"`
}

// handleControl is the request/response surface for backend callers:
// sendToUser, broadcast, and getStatus.
func (s *Server) handleControl(c echo.Context) error {
	var req controlRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid JSON body")
	}

	switch req.Action {
	case "sendToUser":
		if req.UserKey == "" {
			return apperrors.ValidationError("userKey is required for sendToUser")
		}
		if req.EventName == "" {
			return apperrors.ValidationError("eventName is required for sendToUser")
		}
		if req.Payload == nil {
			return apperrors.ValidationError("payload is required for sendToUser")
		}
		s.hub.SendToUser(req.UserKey, req.EventName, hub.Payload(req.Payload))
		return c.JSON(200, map[string]any{
			"success": true,
			"message": fmt.Sprintf("event %q dispatched to user %q", req.EventName, req.UserKey),
		})

	case "broadcast":
		if req.EventName == "" {
			return apperrors.ValidationError("eventName is required for broadcast")
		}
		if req.Payload == nil {
			return apperrors.ValidationError("payload is required for broadcast")
		}
		s.hub.Broadcast(req.EventName, hub.Payload(req.Payload))
		return c.JSON(200, map[string]any{
			"success": true,
			"message": fmt.Sprintf("event %q broadcast to %d clients", req.EventName, s.hub.ClientCount()),
		})

	case "getStatus":
		return c.JSON(200, map[string]any{
			"success":        true,
			"clientCount":    s.hub.ClientCount(),
			"connectedUsers": s.hub.ConnectedUsers(),
			"pingActive":     s.hub.PingActive(),
		})

	case "":
		return apperrors.ValidationError("action is required")

	default:
		return apperrors.ValidationError("unknown action").WithField("action", req.Action)
	}
}
