// Package robots provides an optional robots.txt gate in front of upstream
// page fetches. Resolution is a one-shot fetch of a user-pasted URL rather
// than a crawl, so the gate defaults to off and fails open on errors.
package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Options configures the robots gate.
type Options struct {
	Respect   bool
	UserAgent string
	CacheTTL  time.Duration
	Overrides []string
}

// Gate evaluates robots.txt rules with per-host caching and overrides.
type Gate struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration
	respect   bool

	mu        sync.RWMutex
	policies  map[string]hostPolicy
	overrides map[string]struct{}
}

type hostPolicy struct {
	fetched time.Time
	rules   *robotstxt.RobotsData
}

// NewGate constructs a robots gate; pass the fetcher's client so robots.txt
// requests travel the same proxy path as page fetches.
func NewGate(opts Options, client *http.Client) *Gate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	overrides := make(map[string]struct{}, len(opts.Overrides))
	for _, host := range opts.Overrides {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			overrides[host] = struct{}{}
		}
	}
	return &Gate{
		client:    client,
		userAgent: opts.UserAgent,
		ttl:       ttl,
		respect:   opts.Respect,
		policies:  make(map[string]hostPolicy),
		overrides: overrides,
	}
}

// Allowed reports whether fetching the target URL is permitted.
func (g *Gate) Allowed(ctx context.Context, target *url.URL) bool {
	if target == nil || !target.IsAbs() {
		return false
	}
	if !g.respect {
		return true
	}
	host := strings.ToLower(target.Hostname())
	if _, ok := g.overrides[host]; ok {
		return true
	}

	rules, err := g.rules(ctx, target)
	if err != nil {
		// Fail-open: a broken robots.txt should not block resolution.
		return true
	}
	group := rules.FindGroup(g.userAgent)
	if group == nil {
		if group = rules.FindGroup("*"); group == nil {
			return true
		}
	}
	return group.Test(target.Path)
}

func (g *Gate) rules(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	host := strings.ToLower(target.Host)

	g.mu.RLock()
	policy, ok := g.policies[host]
	g.mu.RUnlock()
	if ok && time.Since(policy.fetched) < g.ttl {
		return policy.rules, nil
	}

	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("robots returned status %d", resp.StatusCode)
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	g.mu.Lock()
	g.policies[host] = hostPolicy{fetched: time.Now(), rules: data}
	g.mu.Unlock()

	return data, nil
}
