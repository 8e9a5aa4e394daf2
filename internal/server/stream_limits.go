package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	rateCleanupInterval = 5 * time.Minute
	rateEntryTTL        = 10 * time.Minute
)

// LimitReason describes why a stream connection was rejected.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

// StreamLimits guards the stream endpoint against resource exhaustion: a
// global concurrent-connection cap, a per-IP cap, and a per-IP token-bucket
// rate on new connections.
type StreamLimits struct {
	max     int64
	current atomic.Int64

	mu       sync.Mutex
	perIP    map[string]int
	maxPerIP int

	limiters  map[string]*rateEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time

	clock clockwork.Clock
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewStreamLimits creates a combined limiter.
// connectionsPerSecond is the sustained per-IP rate of new connections.
func NewStreamLimits(globalMax int64, maxPerIP int, connectionsPerSecond float64, burst int, clock clockwork.Clock) *StreamLimits {
	return &StreamLimits{
		max:       globalMax,
		perIP:     make(map[string]int),
		maxPerIP:  maxPerIP,
		limiters:  make(map[string]*rateEntry),
		rate:      rate.Limit(connectionsPerSecond),
		burst:     burst,
		cleanupAt: clock.Now().Add(rateCleanupInterval),
		clock:     clock,
	}
}

// Acquire attempts to take a connection slot for ip. On rejection it returns
// false and the first limit that tripped.
func (l *StreamLimits) Acquire(ip string) (bool, LimitReason) {
	if !l.allowRate(ip) {
		return false, LimitReasonRate
	}

	for {
		current := l.current.Load()
		if current >= l.max {
			return false, LimitReasonGlobal
		}
		if l.current.CompareAndSwap(current, current+1) {
			break
		}
	}

	l.mu.Lock()
	if l.perIP[ip] >= l.maxPerIP {
		l.mu.Unlock()
		l.current.Add(-1)
		return false, LimitReasonPerIP
	}
	l.perIP[ip]++
	l.mu.Unlock()

	return true, ""
}

// Release returns the slot taken by a successful Acquire.
func (l *StreamLimits) Release(ip string) {
	l.mu.Lock()
	if count := l.perIP[ip]; count > 0 {
		if count == 1 {
			delete(l.perIP, ip)
		} else {
			l.perIP[ip] = count - 1
		}
	}
	l.mu.Unlock()
	l.current.Add(-1)
}

// Current returns the number of held connection slots.
func (l *StreamLimits) Current() int64 {
	return l.current.Load()
}

// CapacityPct returns global capacity utilization as a percentage.
func (l *StreamLimits) CapacityPct() float64 {
	if l.max == 0 {
		return 0
	}
	return float64(l.Current()) / float64(l.max) * 100
}

// UniqueIPs returns the number of IPs currently holding connections.
func (l *StreamLimits) UniqueIPs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perIP)
}

func (l *StreamLimits) allowRate(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.After(l.cleanupAt) {
		cutoff := now.Add(-rateEntryTTL)
		for key, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, key)
			}
		}
		l.cleanupAt = now.Add(rateCleanupInterval)
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &rateEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}
