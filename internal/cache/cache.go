// Package cache persists resolved URL metadata keyed by normalized URL,
// tracks hit counts and write timestamps, and supports similarity fallback
// lookup with lazy expiry.
package cache

import (
	"context"
	"time"

	"github.com/shuff57/wiSHlist-sub000/pkg/types"
)

// DefaultTTL is the maximum entry age before it is excluded from lookups.
const DefaultTTL = 7 * 24 * time.Hour

// SimilarityThreshold is the minimum score at which a similarity lookup
// accepts a cached entry.
const SimilarityThreshold = 0.8

// Entry is one cached resolution. hitCount starts at 1 on creation and is
// monotonically non-decreasing; Timestamp is refreshed on every write,
// including cache-hit updates.
type Entry struct {
	ID            int64
	URL           string
	NormalizedURL string
	URLHash       string
	ProductID     string
	Metadata      types.Metadata
	Timestamp     time.Time
	HitCount      int
}

// Stats summarises store contents for the admin surface.
type Stats struct {
	Entries int `json:"entries"`
	Expired int `json:"expired"`
}

// Store is the persistence interface for cached resolutions.
//
// The store enforces no uniqueness constraint on NormalizedURL: two
// concurrent misses for the same URL can both write, and the read path
// tolerates the duplicates by always taking the most recent match. Expiry is
// enforced at read time by timestamp comparison; SweepExpired physically
// removes what the reads already ignore.
type Store interface {
	// GetExact returns the freshest non-expired entry for a normalized
	// URL, or nil when none exists.
	GetExact(ctx context.Context, normalizedURL string) (*Entry, error)
	// GetSimilar scans all non-expired entries, scores each against the
	// raw URL, and returns the best match at or above the threshold with
	// its score, or nil when nothing qualifies. Ties break toward the
	// most recent timestamp.
	GetSimilar(ctx context.Context, rawURL string) (*Entry, float64, error)
	// Put creates the entry when ID is zero, otherwise updates by ID.
	// The write timestamp is always set to now; the caller dictates the
	// hit count (1 on create, previous+1 on a hit).
	Put(ctx context.Context, e *Entry) error
	// SweepExpired deletes up to maxBatch entries older than the TTL,
	// oldest-biased, and reports how many were removed.
	SweepExpired(ctx context.Context, maxBatch int) (int, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
