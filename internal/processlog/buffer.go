// Package processlog keeps the bounded, human-readable trail of what the DJ
// engine did, newest entry first.
package processlog

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCapacity is the number of entries kept when no capacity is given.
const DefaultCapacity = 100

// Entry is a single timestamped line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// String renders the entry as "[HH:MM:SS] message".
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Timestamp.Format("15:04:05"), e.Message)
}

// Buffer is a thread-safe ring buffer of entries. Every entry is mirrored to
// the zap logger.
type Buffer struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	head     int
	count    int
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a buffer holding at most capacity entries.
func New(capacity int, logger *zap.Logger) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Buffer{
		entries:  make([]Entry, capacity),
		capacity: capacity,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source used to stamp entries.
func (b *Buffer) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Add appends a message, dropping the oldest entry when full.
func (b *Buffer) Add(message string) {
	b.mu.Lock()
	entry := Entry{Timestamp: b.now(), Message: message}
	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.capacity
	if b.count < b.capacity {
		b.count++
	}
	b.mu.Unlock()

	b.logger.Info(message)
}

// Addf formats and appends a message.
func (b *Buffer) Addf(format string, args ...any) {
	b.Add(fmt.Sprintf(format, args...))
}

// Entries returns a copy of the entries, newest first.
func (b *Buffer) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]Entry, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head - 1 - i + b.capacity) % b.capacity
		result[i] = b.entries[idx]
	}
	return result
}

// Lines returns the rendered entries, newest first.
func (b *Buffer) Lines() []string {
	entries := b.Entries()
	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = entry.String()
	}
	return lines
}

// Len returns the number of entries held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Reset drops every entry.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = make([]Entry, b.capacity)
	b.head = 0
	b.count = 0
}
