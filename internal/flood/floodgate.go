// Package flood throttles natural-language requests per client with a
// sliding one-minute window.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the fixed time window for flood detection
	windowDuration = 60 * time.Second
	// cleanupInterval is how often expired entries are dropped
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long an idle client is remembered
	idleTimeout = 10 * time.Minute
)

// Floodgate limits how many requests each client may make per scope within
// a minute. A limit of zero or less disables limiting.
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*clientEntry // Key: "scope:clientID"
	mutex          sync.RWMutex
	now            func() time.Time
	stopCleanup    chan struct{}
	stopOnce       sync.Once
}

type clientEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// New starts a Floodgate with a background janitor; call Stop to end it.
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*clientEntry),
		now:            time.Now,
		stopCleanup:    make(chan struct{}),
	}

	go fg.cleanup()

	return fg
}

func (fg *Floodgate) Stop() {
	fg.stopOnce.Do(func() { close(fg.stopCleanup) })
}

// Allow records a request from clientID in scope and reports whether it is
// within the limit. Rejected requests do not count against the window.
func (fg *Floodgate) Allow(scope, clientID string) bool {
	if fg.limitPerMinute <= 0 {
		return true
	}

	key := scope + ":" + clientID
	now := fg.now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[key]
	if !exists {
		entry = &clientEntry{
			timestamps: make([]time.Time, 0, fg.limitPerMinute+1),
		}
		fg.entries[key] = entry
	}
	entry.lastSeen = now

	windowStart := now.Add(-windowDuration)
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= fg.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

// RetryAfter returns how long clientID has to wait before its next request
// in scope is allowed, or zero.
func (fg *Floodgate) RetryAfter(scope, clientID string) time.Duration {
	if fg.limitPerMinute <= 0 {
		return 0
	}

	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	entry, exists := fg.entries[scope+":"+clientID]
	if !exists || len(entry.timestamps) < fg.limitPerMinute {
		return 0
	}

	oldest := entry.timestamps[len(entry.timestamps)-fg.limitPerMinute]
	wait := oldest.Add(windowDuration).Sub(fg.now())
	if wait < 0 {
		return 0
	}
	return wait
}

func (fg *Floodgate) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := fg.now().Add(-idleTimeout)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// GetStats returns statistics about the floodgate for monitoring/debugging
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	return Stats{
		ActiveClients:  len(fg.entries),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

type Stats struct {
	ActiveClients  int `json:"active_clients"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
