package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shuff57/wiSHlist-sub000/internal/urlutil"
)

// MemoryStore is the fallback store used when no database is configured,
// and the store unit tests exercise the cache semantics against. It keeps
// entries in a flat slice: like the SQL store there is deliberately no
// uniqueness constraint on the normalized URL.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	nextID  int64
	entries []*Entry
}

// NewMemoryStore constructs an in-memory cache store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:    ttl,
		now:    time.Now,
		nextID: 1,
	}
}

func (s *MemoryStore) expired(e *Entry, now time.Time) bool {
	return now.Sub(e.Timestamp) > s.ttl
}

// GetExact returns the freshest non-expired entry for the normalized URL.
func (s *MemoryStore) GetExact(ctx context.Context, normalizedURL string) (*Entry, error) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Entry
	for _, e := range s.entries {
		if e.NormalizedURL != normalizedURL || s.expired(e, now) {
			continue
		}
		if best == nil || e.Timestamp.After(best.Timestamp) {
			best = e
		}
	}
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

// GetSimilar scores every non-expired entry against the raw URL and returns
// the best match at or above the threshold. On equal scores the more recent
// timestamp wins.
func (s *MemoryStore) GetSimilar(ctx context.Context, rawURL string) (*Entry, float64, error) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Entry
	bestScore := 0.0
	for _, e := range s.entries {
		if s.expired(e, now) {
			continue
		}
		score := urlutil.Similarity(rawURL, e.URL)
		if score < SimilarityThreshold {
			continue
		}
		if best == nil || score > bestScore ||
			(score == bestScore && e.Timestamp.After(best.Timestamp)) {
			best = e
			bestScore = score
		}
	}
	if best == nil {
		return nil, 0, nil
	}
	copied := *best
	return &copied, bestScore, nil
}

// Put creates the entry when ID is zero, otherwise updates in place. The
// write timestamp is always refreshed.
func (s *MemoryStore) Put(ctx context.Context, e *Entry) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e.Timestamp = now
	if e.HitCount < 1 {
		e.HitCount = 1
	}
	if e.ID == 0 {
		e.ID = s.nextID
		s.nextID++
		stored := *e
		s.entries = append(s.entries, &stored)
		return nil
	}
	for i, existing := range s.entries {
		if existing.ID == e.ID {
			stored := *e
			s.entries[i] = &stored
			return nil
		}
	}
	// Updating an entry the sweep already removed recreates it.
	stored := *e
	s.entries = append(s.entries, &stored)
	return nil
}

// SweepExpired removes up to maxBatch expired entries, oldest first.
func (s *MemoryStore) SweepExpired(ctx context.Context, maxBatch int) (int, error) {
	if maxBatch <= 0 {
		return 0, nil
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := make([]*Entry, 0)
	for _, e := range s.entries {
		if s.expired(e, now) {
			expired = append(expired, e)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].Timestamp.Before(expired[j].Timestamp)
	})
	if len(expired) > maxBatch {
		expired = expired[:maxBatch]
	}
	doomed := make(map[int64]struct{}, len(expired))
	for _, e := range expired {
		doomed[e.ID] = struct{}{}
	}

	kept := s.entries[:0]
	for _, e := range s.entries {
		if _, ok := doomed[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return len(doomed), nil
}

// Stats counts live and expired entries.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	for _, e := range s.entries {
		stats.Entries++
		if s.expired(e, now) {
			stats.Expired++
		}
	}
	return stats, nil
}

// Close satisfies Store.
func (s *MemoryStore) Close() error {
	return nil
}
