package hub

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pholzmann/pushhub/internal/metrics"
)

const defaultPingInterval = 30 * time.Second

// Hub is the connection registry and dispatcher. It owns every live client
// stream, keyed by user key, and runs a single shared liveness-ping loop while
// at least one client is connected. One Hub per process; handlers receive it
// by reference.
type Hub struct {
	clock        clockwork.Clock
	pingInterval time.Duration

	mu         sync.Mutex
	clients    map[string]*connection
	pingActive bool
	pingStop   chan struct{}
}

// NewHub creates a hub. pingInterval <= 0 falls back to the 30s default.
func NewHub(clock clockwork.Clock, pingInterval time.Duration) *Hub {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	return &Hub{
		clock:        clock,
		pingInterval: pingInterval,
		clients:      make(map[string]*connection),
	}
}

// Register adds a connection for userKey, replacing (and closing) any
// existing one, and immediately sends a connected event to the new sink.
// The first registration starts the ping loop.
func (h *Hub) Register(userKey string, sink Sink) {
	conn := newConnection(userKey, sink, h.clock)

	h.mu.Lock()
	old := h.clients[userKey]
	h.clients[userKey] = conn
	if len(h.clients) == 1 {
		h.startPingLocked()
	}
	total := len(h.clients)
	// Set under the lock so concurrent registry changes cannot apply their
	// gauge updates out of order.
	metrics.HubConnectedClients.Set(float64(total))
	h.mu.Unlock()

	metrics.HubConnectionsTotal.Inc()

	if old != nil {
		old.close()
		metrics.HubEvictionsTotal.WithLabelValues("replaced").Inc()
		slog.Info("Replaced existing connection",
			"user_key", userKey,
			"old_connection_id", old.id,
			"connection_id", conn.id,
		)
	}

	data, err := encodePayload(Payload{
		"message": "connected to event stream",
		"userKey": userKey,
	}, h.clock.Now())
	if err != nil {
		slog.Error("Failed to encode connected event", "user_key", userKey, "error", err)
		return
	}
	if err := conn.writeEvent(eventConnected, data); err != nil {
		slog.Warn("Connected event write failed", "user_key", userKey, "connection_id", conn.id, "error", err)
		h.evict(userKey, conn, "write_failed")
		return
	}

	slog.Info("Client registered", "user_key", userKey, "connection_id", conn.id, "total_clients", total)
}

// Unregister removes the connection for userKey and closes its sink.
// Unregistering an absent key is a no-op. The last removal stops the ping loop.
func (h *Hub) Unregister(userKey string) {
	h.remove(userKey, nil)
}

// Disconnect unregisters userKey only if sink is still its registered sink.
// Transport handlers use it so a disconnect signal racing a replacement
// cannot tear down the replacement connection.
func (h *Hub) Disconnect(userKey string, sink Sink) {
	h.remove(userKey, sink)
}

// remove deletes the entry for userKey. A non-nil sink restricts removal to
// the connection still holding that sink.
func (h *Hub) remove(userKey string, sink Sink) {
	h.mu.Lock()
	conn, ok := h.clients[userKey]
	if !ok || (sink != nil && conn.sink != sink) {
		h.mu.Unlock()
		return
	}
	delete(h.clients, userKey)
	if len(h.clients) == 0 {
		h.stopPingLocked()
	}
	remaining := len(h.clients)
	metrics.HubConnectedClients.Set(float64(remaining))
	h.mu.Unlock()

	conn.close()
	slog.Info("Client unregistered", "user_key", userKey, "connection_id", conn.id, "remaining_clients", remaining)
}

// evict removes conn if it is still the registered connection for userKey.
// The identity check keeps a stale eviction (old writer failing after a
// replace) from tearing down the replacement.
func (h *Hub) evict(userKey string, conn *connection, reason string) {
	h.mu.Lock()
	current, ok := h.clients[userKey]
	if !ok || current != conn {
		h.mu.Unlock()
		conn.close()
		return
	}
	delete(h.clients, userKey)
	if len(h.clients) == 0 {
		h.stopPingLocked()
	}
	remaining := len(h.clients)
	metrics.HubConnectedClients.Set(float64(remaining))
	h.mu.Unlock()

	conn.close()
	metrics.HubEvictionsTotal.WithLabelValues(reason).Inc()
	slog.Warn("Connection evicted",
		"user_key", userKey,
		"connection_id", conn.id,
		"reason", reason,
		"idle_for", conn.idleFor(),
		"remaining_clients", remaining,
	)
}

// SendToUser delivers one event to the connection for userKey. Unknown keys
// are a silent no-op; a failed write evicts the connection. Delivery failure
// is never surfaced to the caller.
func (h *Hub) SendToUser(userKey, eventName string, payload Payload) {
	h.mu.Lock()
	conn, ok := h.clients[userKey]
	h.mu.Unlock()

	if !ok {
		metrics.HubEventsTotal.WithLabelValues("unicast", "no_client").Inc()
		slog.Debug("No connection for user, dropping event", "user_key", userKey, "event", eventName)
		return
	}

	data, err := encodePayload(payload, h.clock.Now())
	if err != nil {
		slog.Error("Failed to encode event payload", "event", eventName, "error", err)
		return
	}

	if err := conn.writeEvent(eventName, data); err != nil {
		metrics.HubEventsTotal.WithLabelValues("unicast", "write_failed").Inc()
		h.evict(userKey, conn, "write_failed")
		return
	}
	metrics.HubEventsTotal.WithLabelValues("unicast", "sent").Inc()
}

// Broadcast delivers one event to every registered connection. Writes run on
// independent goroutines so one slow sink cannot stall the others; failed
// connections are collected and evicted after the write pass, before the call
// returns.
func (h *Hub) Broadcast(eventName string, payload Payload) {
	h.mu.Lock()
	targets := make([]*connection, 0, len(h.clients))
	for _, conn := range h.clients {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	data, err := encodePayload(payload, h.clock.Now())
	if err != nil {
		slog.Error("Failed to encode event payload", "event", eventName, "error", err)
		return
	}

	start := h.clock.Now()

	var wg sync.WaitGroup
	var failedMu sync.Mutex
	var failed []*connection
	for _, conn := range targets {
		wg.Add(1)
		go func(conn *connection) {
			defer wg.Done()
			if err := conn.writeEvent(eventName, data); err != nil {
				failedMu.Lock()
				failed = append(failed, conn)
				failedMu.Unlock()
			}
		}(conn)
	}
	wg.Wait()

	for _, conn := range failed {
		metrics.HubEventsTotal.WithLabelValues("broadcast", "write_failed").Inc()
		h.evict(conn.userKey, conn, "write_failed")
	}

	sent := len(targets) - len(failed)
	metrics.HubEventsTotal.WithLabelValues("broadcast", "sent").Add(float64(sent))
	metrics.HubBroadcastDuration.Observe(h.clock.Since(start).Seconds())
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ConnectedUsers returns a sorted snapshot of registered user keys.
func (h *Hub) ConnectedUsers() []string {
	h.mu.Lock()
	users := make([]string, 0, len(h.clients))
	for userKey := range h.clients {
		users = append(users, userKey)
	}
	h.mu.Unlock()

	sort.Strings(users)
	return users
}

// PingActive reports whether the liveness-ping loop is running.
func (h *Hub) PingActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pingActive
}

// Shutdown stops the ping loop and closes every connection, leaving the hub
// empty. Idempotent.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	conns := make([]*connection, 0, len(h.clients))
	for _, conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[string]*connection)
	h.stopPingLocked()
	metrics.HubConnectedClients.Set(0)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
	if len(conns) > 0 {
		metrics.HubEvictionsTotal.WithLabelValues("shutdown").Add(float64(len(conns)))
	}
	slog.Info("Hub shut down", "closed_connections", len(conns))
}

// startPingLocked starts the ping loop. Caller holds h.mu.
func (h *Hub) startPingLocked() {
	if h.pingActive {
		slog.Warn("Ping loop already running")
		return
	}
	h.pingActive = true
	stop := make(chan struct{})
	h.pingStop = stop
	go h.runPingLoop(stop)
	slog.Info("Ping loop started", "interval", h.pingInterval)
}

// stopPingLocked stops the ping loop. Caller holds h.mu.
func (h *Hub) stopPingLocked() {
	if !h.pingActive {
		slog.Debug("Ping loop already stopped")
		return
	}
	h.pingActive = false
	close(h.pingStop)
	h.pingStop = nil
	slog.Info("Ping loop stopped")
}

func (h *Hub) runPingLoop(stop chan struct{}) {
	ticker := h.clock.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			metrics.HubPingTicksTotal.Inc()
			h.Broadcast(eventPing, Payload{"clients": h.ClientCount()})
		}
	}
}
