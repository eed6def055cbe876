package ratelimit

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T, cfg Config) (*MemoryStore, *time.Time) {
	t.Helper()
	store := NewMemoryStore(cfg)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestMemoryStoreBoundary(t *testing.T) {
	store, _ := newTestStore(t, Config{Window: time.Minute, MaxRequests: 3})
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := store.Take(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("take %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if d.Remaining != 3-i {
			t.Fatalf("request %d: remaining = %d, want %d", i, d.Remaining, 3-i)
		}
	}

	d, err := store.Take(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("take 4: %v", err)
	}
	if d.Allowed {
		t.Fatal("request over quota should be rejected")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("retry-after = %s, want within the window", d.RetryAfter)
	}
}

func TestMemoryStoreFreshWindowAlwaysAllows(t *testing.T) {
	store, now := newTestStore(t, Config{Window: time.Minute, MaxRequests: 1})
	ctx := context.Background()

	if d, _ := store.Take(ctx, "10.0.0.1"); !d.Allowed {
		t.Fatal("first request should be allowed")
	}
	if d, _ := store.Take(ctx, "10.0.0.1"); d.Allowed {
		t.Fatal("second request within window should be rejected")
	}

	*now = now.Add(time.Minute)
	if d, _ := store.Take(ctx, "10.0.0.1"); !d.Allowed {
		t.Fatal("first request of a fresh window should be allowed")
	}
}

func TestMemoryStoreKeysIsolated(t *testing.T) {
	store, _ := newTestStore(t, Config{Window: time.Minute, MaxRequests: 1})
	ctx := context.Background()

	if d, _ := store.Take(ctx, "10.0.0.1"); !d.Allowed {
		t.Fatal("first client should be allowed")
	}
	if d, _ := store.Take(ctx, "10.0.0.2"); !d.Allowed {
		t.Fatal("second client has its own window")
	}
	if d, _ := store.Take(ctx, "10.0.0.1"); d.Allowed {
		t.Fatal("first client is over quota")
	}
}

func TestMemoryStoreDefaults(t *testing.T) {
	store := NewMemoryStore(Config{})
	if store.cfg.Window != 60*time.Second {
		t.Fatalf("default window = %s, want 60s", store.cfg.Window)
	}
	if store.cfg.MaxRequests != 10 {
		t.Fatalf("default max requests = %d, want 10", store.cfg.MaxRequests)
	}
}
