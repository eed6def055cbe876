package fetcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostRateSettings configures token-bucket throttling per target host, so a
// burst of resolutions (or the retry loop) cannot hammer a single retailer.
type HostRateSettings struct {
	Requests int
	Window   time.Duration
}

// HostLimiter holds one token bucket per target host.
type HostLimiter struct {
	settings HostRateSettings
	enabled  bool

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter creates a per-host limiter; zero settings disable it.
func NewHostLimiter(settings HostRateSettings) *HostLimiter {
	l := &HostLimiter{settings: settings}
	if settings.Requests > 0 && settings.Window > 0 {
		l.enabled = true
		l.limiters = make(map[string]*rate.Limiter)
	}
	return l
}

// Wait blocks until the host's bucket permits another request.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil || !l.enabled || host == "" {
		return nil
	}
	host = strings.ToLower(host)

	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		interval := l.settings.Window / time.Duration(l.settings.Requests)
		if interval <= 0 {
			interval = time.Millisecond
		}
		limiter = rate.NewLimiter(rate.Every(interval), l.settings.Requests)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	return limiter.Wait(ctx)
}
