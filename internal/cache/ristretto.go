package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoStore is an admission-controlled in-process store. Entries expire
// on their own, so it does not need sweeping.
type RistrettoStore struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewRistrettoStore sizes the cache to hold roughly maxItems entries.
func NewRistrettoStore(maxItems int, ttl time.Duration) (*RistrettoStore, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("ristretto store size must be positive, got %d", maxItems)
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(maxItems) * 10,
		MaxCost:     int64(maxItems),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &RistrettoStore{cache: c, ttl: ttl}, nil
}

func (s *RistrettoStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	text, ok := v.(string)
	return text, ok, nil
}

// Set stores value at a cost of one entry. Writes are applied asynchronously
// and may be rejected by the admission policy.
func (s *RistrettoStore) Set(_ context.Context, key, value string) error {
	s.cache.SetWithTTL(key, value, 1, s.ttl)
	return nil
}

// Wait blocks until buffered writes are applied.
func (s *RistrettoStore) Wait() {
	s.cache.Wait()
}

func (s *RistrettoStore) Name() string { return "ristretto" }

func (s *RistrettoStore) Close() error {
	s.cache.Close()
	return nil
}
