package hub

import (
	"encoding/json"
	"time"
)

// Payload is the free-form body of an outbound event.
type Payload map[string]any

// Well-known event names emitted by the hub itself.
const (
	eventConnected = "connected"
	eventPing      = "ping"
)

// encodePayload marshals a payload with the send-time timestamp stamped in.
// The timestamp always wins over a caller-supplied field of the same name.
func encodePayload(p Payload, sentAt time.Time) ([]byte, error) {
	body := make(map[string]any, len(p)+1)
	for k, v := range p {
		body[k] = v
	}
	body["timestamp"] = sentAt.UTC().Format(time.RFC3339)
	return json.Marshal(body)
}
