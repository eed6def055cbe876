// Package resolver orchestrates a URL resolution: rate limit check, cache
// lookup with similarity fallback, proxied fetch, metadata extraction, and
// cache write-back.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/url"
	"time"

	"github.com/shuff57/wiSHlist-sub000/internal/cache"
	"github.com/shuff57/wiSHlist-sub000/internal/fetcher"
	"github.com/shuff57/wiSHlist-sub000/internal/ratelimit"
	"github.com/shuff57/wiSHlist-sub000/internal/robots"
	"github.com/shuff57/wiSHlist-sub000/internal/urlutil"
	"github.com/shuff57/wiSHlist-sub000/pkg/types"
)

// ErrRateLimited reports that the client exhausted its request window.
var ErrRateLimited = errors.New("rate limit exceeded")

// CacheInfo is the provenance block attached to every resolution result.
type CacheInfo struct {
	Hit bool `json:"hit"`
	// OriginalURL is the URL of the entry that served the response; it
	// differs from the requested URL on a similarity hit.
	OriginalURL string    `json:"originalUrl,omitempty"`
	Similarity  float64   `json:"similarity,omitempty"`
	HitCount    int       `json:"hitCount,omitempty"`
	CachedAt    time.Time `json:"cachedAt,omitzero"`
}

// Result is a completed resolution.
type Result struct {
	Metadata types.Metadata
	URL      string
	Cache    CacheInfo
}

// Options wires the resolver's collaborators. Renderer and Robots are
// optional; everything else is required.
type Options struct {
	Limiter   ratelimit.Store
	Store     cache.Store
	Fetcher   fetcher.Fetcher
	Renderer  fetcher.Renderer
	Robots    *robots.Gate
	Extractor Extractor
	Logger    *slog.Logger

	// SweepProbability is the chance a cache miss triggers an asynchronous
	// expiry sweep; SweepBatch caps how many rows one sweep removes.
	SweepProbability float64
	SweepBatch       int
}

// Extractor narrows the extract package surface to what resolution needs.
type Extractor interface {
	Extract(pageURL string, body []byte) types.Metadata
}

// Resolver coordinates one resolution request end to end.
type Resolver struct {
	limiter   ratelimit.Store
	store     cache.Store
	fetcher   fetcher.Fetcher
	renderer  fetcher.Renderer
	robots    *robots.Gate
	extractor Extractor
	logger    *slog.Logger

	sweepProbability float64
	sweepBatch       int
	randFloat        func() float64
}

// New constructs a Resolver from its collaborators.
func New(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sweepBatch := opts.SweepBatch
	if sweepBatch <= 0 {
		sweepBatch = 50
	}
	return &Resolver{
		limiter:          opts.Limiter,
		store:            opts.Store,
		fetcher:          opts.Fetcher,
		renderer:         opts.Renderer,
		robots:           opts.Robots,
		extractor:        opts.Extractor,
		logger:           logger,
		sweepProbability: opts.SweepProbability,
		sweepBatch:       sweepBatch,
		randFloat:        rand.Float64,
	}
}

// Resolve serves metadata for rawURL on behalf of clientKey. The cache is
// consulted before the network: an exact normalized match first, then the
// best similar entry at or above the acceptance threshold. Only a full miss
// reaches the upstream fetch.
func (r *Resolver) Resolve(ctx context.Context, rawURL, clientKey string) (*Result, error) {
	decision, err := r.limiter.Take(ctx, clientKey)
	if err != nil {
		// A broken limiter store must not take resolution down with it.
		r.logger.Warn("rate limiter unavailable, allowing request", "error", err)
	} else if !decision.Allowed {
		r.logger.Info("rate limited", "client", clientKey, "retry_after", decision.RetryAfter)
		return nil, ErrRateLimited
	}

	normalized := urlutil.Normalize(rawURL)

	if entry, err := r.store.GetExact(ctx, normalized); err != nil {
		r.logger.Warn("exact cache lookup failed", "error", err)
	} else if entry != nil {
		return r.serveHit(ctx, entry, rawURL, 1.0), nil
	}

	if entry, score, err := r.store.GetSimilar(ctx, rawURL); err != nil {
		r.logger.Warn("similarity cache lookup failed", "error", err)
	} else if entry != nil {
		return r.serveHit(ctx, entry, rawURL, score), nil
	}

	r.maybeSweep()

	meta, err := r.fetchAndExtract(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	entry := &cache.Entry{
		URL:           rawURL,
		NormalizedURL: normalized,
		URLHash:       urlutil.Hash(normalized),
		ProductID:     urlutil.ProductID(rawURL),
		Metadata:      meta,
		HitCount:      1,
	}
	if err := r.store.Put(ctx, entry); err != nil {
		// Cache persistence is best-effort; the caller still gets metadata.
		r.logger.Warn("cache write failed", "url", rawURL, "error", err)
	}

	return &Result{
		Metadata: meta,
		URL:      rawURL,
		Cache:    CacheInfo{Hit: false},
	}, nil
}

// serveHit bumps the entry's hit count and returns the cached metadata with
// provenance. The write-back is best-effort.
func (r *Resolver) serveHit(ctx context.Context, entry *cache.Entry, rawURL string, score float64) *Result {
	entry.HitCount++
	if err := r.store.Put(ctx, entry); err != nil {
		r.logger.Warn("hit count update failed", "url", entry.URL, "error", err)
	}
	r.logger.Debug("cache hit",
		"url", rawURL,
		"original_url", entry.URL,
		"similarity", score,
		"hit_count", entry.HitCount,
	)
	return &Result{
		Metadata: entry.Metadata,
		URL:      rawURL,
		Cache: CacheInfo{
			Hit:         true,
			OriginalURL: entry.URL,
			Similarity:  score,
			HitCount:    entry.HitCount,
			CachedAt:    entry.Timestamp,
		},
	}
}

func (r *Resolver) fetchAndExtract(ctx context.Context, rawURL string) (types.Metadata, error) {
	if r.robots != nil {
		if target, err := url.Parse(rawURL); err == nil {
			if !r.robots.Allowed(ctx, target) {
				return types.Metadata{}, &fetcher.UpstreamError{
					URL: rawURL,
					Err: errors.New("disallowed by robots.txt"),
				}
			}
		}
	}

	page, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return types.Metadata{}, err
	}

	meta := r.extractor.Extract(page.FinalURL.String(), page.Body)
	if meta.Empty() && r.renderer != nil {
		rendered, err := r.renderer.Render(ctx, rawURL)
		if err != nil {
			r.logger.Warn("render fallback failed", "url", rawURL, "error", err)
			return meta, nil
		}
		meta = r.extractor.Extract(rendered.FinalURL.String(), rendered.Body)
	}
	return meta, nil
}

// maybeSweep fires an asynchronous expiry sweep on a fraction of cache
// misses. There is no scheduled sweeper; this keeps the store bounded without
// ever blocking a request on deletion.
func (r *Resolver) maybeSweep() {
	if r.sweepProbability <= 0 || r.randFloat() >= r.sweepProbability {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		removed, err := r.store.SweepExpired(ctx, r.sweepBatch)
		if err != nil {
			r.logger.Warn("expiry sweep failed", "error", err)
			return
		}
		if removed > 0 {
			r.logger.Info("expiry sweep removed entries", "removed", removed)
		}
	}()
}
