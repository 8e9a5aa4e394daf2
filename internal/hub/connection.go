package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// connection is one live client stream, exclusively owned by the hub while it
// sits in the registry. The write mutex keeps unicast, broadcast and ping
// writes from interleaving bytes on the same sink.
type connection struct {
	id      string
	userKey string
	sink    Sink
	clock   clockwork.Clock

	writeMu sync.Mutex

	activityMu   sync.Mutex
	lastActivity time.Time

	closeOnce sync.Once
}

func newConnection(userKey string, sink Sink, clock clockwork.Clock) *connection {
	return &connection{
		id:           uuid.NewString(),
		userKey:      userKey,
		sink:         sink,
		clock:        clock,
		lastActivity: clock.Now(),
	}
}

func (c *connection) writeEvent(name string, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.sink.WriteEvent(name, data); err != nil {
		return err
	}
	c.recordActivity()
	return nil
}

// close ends the sink. Safe under concurrent eviction triggers. Holding the
// write mutex ensures close returns only after any in-flight write on this
// connection has finished.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		_ = c.sink.Close()
	})
}

func (c *connection) recordActivity() {
	c.activityMu.Lock()
	defer c.activityMu.Unlock()
	c.lastActivity = c.clock.Now()
}

func (c *connection) idleFor() time.Duration {
	c.activityMu.Lock()
	defer c.activityMu.Unlock()
	return c.clock.Since(c.lastActivity)
}
