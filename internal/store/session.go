// Package store provides the per-session played-track set backed by a Bloom
// filter and an LRU bound.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Default sizing for a listening session.
const (
	DefaultSessionCapacity          = 2000
	DefaultSessionFalsePositiveRate = 0.001
)

// SessionSet remembers the track URIs surfaced while one intent is active.
// When the capacity is exceeded the least recently added URI is forgotten.
// The Bloom filter answers most misses without touching the LRU; the LRU is
// the exact membership record.
type SessionSet struct {
	bloom             *bloom.BloomFilter
	lru               *lru.Cache[string, struct{}]
	mutex             sync.RWMutex
	capacity          int
	falsePositiveRate float64
}

// NewSessionSet creates a set holding at most capacity URIs.
func NewSessionSet(capacity int, falsePositiveRate float64) *SessionSet {
	if capacity <= 0 {
		capacity = DefaultSessionCapacity
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = DefaultSessionFalsePositiveRate
	}

	s := &SessionSet{
		capacity:          capacity,
		falsePositiveRate: falsePositiveRate,
	}
	s.bloom = bloom.NewWithEstimates(uint(capacity), falsePositiveRate)

	cache, err := lru.New[string, struct{}](capacity)
	if err != nil {
		panic("session set: " + err.Error())
	}
	s.lru = cache

	return s
}

// Has reports whether uri was added in this session.
func (s *SessionSet) Has(uri string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.bloom.TestString(uri) {
		return false
	}

	return s.lru.Contains(uri)
}

// Add records uri. Empty URIs are ignored.
func (s *SessionSet) Add(uri string) {
	if uri == "" {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.lru.Contains(uri) {
		return
	}

	s.bloom.AddString(uri)
	s.lru.Add(uri, struct{}{})
}

// AddAll records every uri in uris.
func (s *SessionSet) AddAll(uris []string) {
	for _, uri := range uris {
		s.Add(uri)
	}
}

// Size returns the number of URIs currently remembered.
func (s *SessionSet) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lru.Len()
}

// Clear forgets everything. A fresh Bloom filter is allocated since the
// filter does not support removal.
func (s *SessionSet) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.bloom = bloom.NewWithEstimates(uint(s.capacity), s.falsePositiveRate)
	s.lru.Purge()
}
