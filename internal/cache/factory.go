package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Options selects and sizes a Store.
type Options struct {
	Backend string
	Size    int
	TTL     time.Duration
	Redis   RedisOptions
}

// New builds the store named by opts.Backend. The "none" backend returns a
// nil Store, which callers treat as caching disabled. LRU stores are
// registered with manager for sweeping when manager is not nil.
func New(ctx context.Context, opts Options, manager *Manager) (Store, error) {
	switch opts.Backend {
	case "", "none":
		return nil, nil
	case "lru":
		s := NewLRUStore(opts.Size, opts.TTL)
		if manager != nil {
			manager.Register(s)
		}
		return s, nil
	case "ristretto":
		s, err := NewRistrettoStore(opts.Size, opts.TTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := NewRedisStore(ctx, opts.Redis, opts.TTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", opts.Backend)
	}
}

// Key derives a fixed-length key from its parts.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
