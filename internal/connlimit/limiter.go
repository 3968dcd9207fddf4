// Package connlimit throttles new TCP connections per source IP, guarding
// the listener against a single client opening sessions faster than the
// worker pool can serve them.
package connlimit

import (
	"sync"
	"time"
)

type entry struct {
	windowStart    time.Time
	cooldownExpiry time.Time
	lastSeen       time.Time
	count          int
}

// Limiter bounds the number of connection attempts per source IP within a
// one-second sliding window, dropping the IP into a cooldown once it is
// exceeded.
type Limiter struct {
	threshold  int
	cooldown   time.Duration
	maxEntries int

	mu      sync.Mutex
	sources map[string]*entry
}

// New creates a Limiter. threshold is the max connections/second per
// source IP; cooldown is how long a source is refused after crossing it;
// maxEntries bounds the tracked-source map, with LRU-style eviction of the
// oldest 10% once exceeded.
func New(threshold int, cooldown time.Duration, maxEntries int) *Limiter {
	return &Limiter{
		threshold:  threshold,
		cooldown:   cooldown,
		maxEntries: maxEntries,
		sources:    make(map[string]*entry),
	}
}

// Allow reports whether a new connection from ip should be accepted.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.sources[ip]
	if !ok {
		l.sources[ip] = &entry{windowStart: now, lastSeen: now, count: 1}
		if len(l.sources) > l.maxEntries {
			l.evictLocked()
		}
		return true
	}

	if !e.cooldownExpiry.IsZero() && now.Before(e.cooldownExpiry) {
		return false
	}

	if now.Sub(e.windowStart) > time.Second || !e.cooldownExpiry.IsZero() {
		e.count = 1
		e.windowStart = now
		e.cooldownExpiry = time.Time{}
	} else {
		e.count++
	}
	e.lastSeen = now

	if e.count > l.threshold {
		e.cooldownExpiry = now.Add(l.cooldown)
		return false
	}
	return true
}

// evictLocked drops the oldest 10% of tracked sources by lastSeen. Caller
// must hold l.mu.
func (l *Limiter) evictLocked() {
	evictCount := l.maxEntries / 10
	if evictCount == 0 {
		evictCount = 1
	}

	type aged struct {
		ip       string
		lastSeen time.Time
	}
	entries := make([]aged, 0, len(l.sources))
	for ip, e := range l.sources {
		entries = append(entries, aged{ip: ip, lastSeen: e.lastSeen})
	}

	for i := 0; i < evictCount && i < len(entries); i++ {
		oldest := i
		for j := i + 1; j < len(entries); j++ {
			if entries[j].lastSeen.Before(entries[oldest].lastSeen) {
				oldest = j
			}
		}
		entries[i], entries[oldest] = entries[oldest], entries[i]
	}
	for i := 0; i < evictCount && i < len(entries); i++ {
		delete(l.sources, entries[i].ip)
	}
}

// Cleanup removes sources that have not connected in the last minute. The
// accept loop in internal/transport does not call it; there the tracked
// map is bounded only by the eviction in Allow.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for ip, e := range l.sources {
		if now.Sub(e.lastSeen) > time.Minute {
			delete(l.sources, ip)
		}
	}
}
