// Package ratelimit bounds request volume per client address using fixed
// window counting: the quota resets entirely at window boundaries, so bursts
// are fully permitted up to the limit at the start of each window and fully
// blocked thereafter. No token bucket, no smoothing.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of counting one request against a client's window.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store decides whether a request from a client key is allowed right now.
// The memory implementation enforces the limit per process instance; for
// multi-instance deployments swap in the Redis store behind this interface.
type Store interface {
	Take(ctx context.Context, key string) (Decision, error)
	Close() error
}

// Config sets the window length and per-window request quota.
type Config struct {
	Window      time.Duration
	MaxRequests int
}

func (c *Config) withDefaults() {
	if c.Window <= 0 {
		c.Window = 60 * time.Second
	}
	if c.MaxRequests <= 0 {
		c.MaxRequests = 10
	}
}

type window struct {
	count  int
	expiry time.Time
}

// MemoryStore is a process-local fixed window counter map. Stale windows are
// pruned lazily once the map grows past a threshold, keeping it bounded even
// though clients are never explicitly deleted.
type MemoryStore struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

const pruneThreshold = 10_000

// NewMemoryStore constructs a process-local limiter store.
func NewMemoryStore(cfg Config) *MemoryStore {
	cfg.withDefaults()
	return &MemoryStore{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Take counts one request against the client's current window.
func (s *MemoryStore) Take(ctx context.Context, key string) (Decision, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.windows) > pruneThreshold {
		s.pruneLocked(now)
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.expiry) {
		s.windows[key] = &window{count: 1, expiry: now.Add(s.cfg.Window)}
		return Decision{Allowed: true, Remaining: s.cfg.MaxRequests - 1}, nil
	}

	w.count++
	if w.count <= s.cfg.MaxRequests {
		return Decision{Allowed: true, Remaining: s.cfg.MaxRequests - w.count}, nil
	}
	return Decision{Allowed: false, RetryAfter: w.expiry.Sub(now)}, nil
}

func (s *MemoryStore) pruneLocked(now time.Time) {
	for key, w := range s.windows {
		if !now.Before(w.expiry) {
			delete(s.windows, key)
		}
	}
}

// Close satisfies Store; the memory store holds no external resources.
func (s *MemoryStore) Close() error {
	return nil
}
