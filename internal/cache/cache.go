// Package cache stores generated advice text keyed by prompt so identical
// requests skip the generation backend.
package cache

import (
	"context"
	"sync"
)

// Cache defines a generic in-process cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// Store is a string cache that may live outside the process.
type Store interface {
	// Get reports a miss as ok=false with a nil error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Name() string
	Close() error
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager tracks caches that need periodic expiry sweeps. The sweep itself
// is driven by the scheduler.
type Manager struct {
	mu     sync.Mutex
	caches []Cleaner
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a cache to the manager for cleanup. Stores that expire
// entries on their own need not register.
func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// Sweep removes expired entries from every registered cache and returns how
// many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}
