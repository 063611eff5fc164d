package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gatekit/internal/platform/clock"
	"gatekit/internal/platform/configuration"
)

func cacheConfig(t *testing.T, dir string, extra string) *configuration.Configuration {
	t.Helper()
	text := fmt.Sprintf("[authentication_cache]\ncache_dir = %s\n%s", dir, extra)
	cfg, err := configuration.New(text)
	if err != nil {
		t.Fatalf("configuration.New: %v", err)
	}
	return cfg
}

func newTestCache(t *testing.T, clk clock.Clock, extra string) *FileAuthCache {
	t.Helper()
	cfg := cacheConfig(t, t.TempDir(), extra)
	cache, err := NewAuthCacheFromConfig(cfg, clk)
	if err != nil {
		t.Fatalf("NewAuthCacheFromConfig: %v", err)
	}
	fileCache, ok := cache.(*FileAuthCache)
	if !ok {
		t.Fatalf("expected *FileAuthCache, got %T", cache)
	}
	return fileCache
}

func TestAuthCacheDisabledByDefault(t *testing.T) {
	t.Parallel()

	cfg := cacheConfig(t, t.TempDir(), "")
	cache, err := NewAuthCacheFromConfig(cfg, clock.SystemClock{})
	if err != nil {
		t.Fatalf("NewAuthCacheFromConfig: %v", err)
	}
	if _, ok := cache.(NoopAuthCache); !ok {
		t.Fatalf("expected NoopAuthCache without reuse_limit, got %T", cache)
	}
	hit, err := cache.TryAuthenticate(context.Background(), "1.2.3.4", "alice")
	if err != nil || hit {
		t.Fatalf("noop cache: hit=%v err=%v", hit, err)
	}
}

func TestAuthCacheMissesWithoutEntry(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t, clock.NewFixed(time.Unix(1_700_000_000, 0)), "reuse_limit = 3\n")
	hit, err := cache.TryAuthenticate(context.Background(), "1.2.3.4", "alice")
	if err != nil {
		t.Fatalf("TryAuthenticate: %v", err)
	}
	if hit {
		t.Fatal("expected miss on empty cache")
	}
}

func TestAuthCacheReuseLimit(t *testing.T) {
	t.Parallel()

	clk := clock.NewFixed(time.Unix(1_700_000_000, 0))
	cache := newTestCache(t, clk, "reuse_limit = 2\n")
	ctx := context.Background()

	if err := cache.CacheAuthentication(ctx, "1.2.3.4", "alice"); err != nil {
		t.Fatalf("CacheAuthentication: %v", err)
	}
	for i := 0; i < 2; i++ {
		clk.Advance(time.Second)
		hit, err := cache.TryAuthenticate(ctx, "1.2.3.4", "alice")
		if err != nil {
			t.Fatalf("TryAuthenticate #%d: %v", i+1, err)
		}
		if !hit {
			t.Fatalf("expected hit #%d within reuse limit", i+1)
		}
	}
	clk.Advance(time.Second)
	hit, err := cache.TryAuthenticate(ctx, "1.2.3.4", "alice")
	if err != nil {
		t.Fatalf("TryAuthenticate after limit: %v", err)
	}
	if hit {
		t.Fatal("expected miss once reuse limit is exhausted")
	}
}

func TestAuthCacheSoftTimeoutExpiresIdleEntry(t *testing.T) {
	t.Parallel()

	clk := clock.NewFixed(time.Unix(1_700_000_000, 0))
	cache := newTestCache(t, clk, "reuse_limit = 10\nsoft_timeout = 15\nhard_timeout = 90\n")
	ctx := context.Background()

	if err := cache.CacheAuthentication(ctx, "1.2.3.4", "alice"); err != nil {
		t.Fatalf("CacheAuthentication: %v", err)
	}
	clk.Advance(16 * time.Second)
	hit, err := cache.TryAuthenticate(ctx, "1.2.3.4", "alice")
	if err != nil {
		t.Fatalf("TryAuthenticate: %v", err)
	}
	if hit {
		t.Fatal("expected miss after soft timeout with no reuse")
	}
}

func TestAuthCacheReuseKeepsEntryAliveUntilHardTimeout(t *testing.T) {
	t.Parallel()

	clk := clock.NewFixed(time.Unix(1_700_000_000, 0))
	cache := newTestCache(t, clk, "reuse_limit = 100\nsoft_timeout = 15\nhard_timeout = 90\n")
	ctx := context.Background()

	if err := cache.CacheAuthentication(ctx, "1.2.3.4", "alice"); err != nil {
		t.Fatalf("CacheAuthentication: %v", err)
	}
	// Reuse every 10 seconds: each hit renews the soft window but the hard
	// timeout still counts from the original authentication.
	for elapsed := 10; elapsed <= 90; elapsed += 10 {
		clk.Advance(10 * time.Second)
		hit, err := cache.TryAuthenticate(ctx, "1.2.3.4", "alice")
		if err != nil {
			t.Fatalf("TryAuthenticate at %ds: %v", elapsed, err)
		}
		if !hit {
			t.Fatalf("expected hit at %ds, inside hard timeout", elapsed)
		}
	}
	clk.Advance(10 * time.Second)
	hit, err := cache.TryAuthenticate(ctx, "1.2.3.4", "alice")
	if err != nil {
		t.Fatalf("TryAuthenticate past hard timeout: %v", err)
	}
	if hit {
		t.Fatal("expected miss past hard timeout despite steady reuse")
	}
}

func TestAuthCacheKeysAreScopedToClientAndUser(t *testing.T) {
	t.Parallel()

	clk := clock.NewFixed(time.Unix(1_700_000_000, 0))
	cache := newTestCache(t, clk, "reuse_limit = 5\n")
	ctx := context.Background()

	if err := cache.CacheAuthentication(ctx, "1.2.3.4", "alice"); err != nil {
		t.Fatalf("CacheAuthentication: %v", err)
	}
	for _, tc := range []struct{ clientIP, username string }{
		{"5.6.7.8", "alice"},
		{"1.2.3.4", "bob"},
	} {
		hit, err := cache.TryAuthenticate(ctx, tc.clientIP, tc.username)
		if err != nil {
			t.Fatalf("TryAuthenticate %s@%s: %v", tc.username, tc.clientIP, err)
		}
		if hit {
			t.Fatalf("expected miss for %s@%s", tc.username, tc.clientIP)
		}
	}
}

func TestAuthCacheFileNameUsesUsernameVerbatim(t *testing.T) {
	t.Parallel()

	clk := clock.NewFixed(time.Unix(1_700_000_000, 0))
	cache := newTestCache(t, clk, "reuse_limit = 1\n")

	if err := cache.CacheAuthentication(context.Background(), "1.2.3.4", "CORP\\alice"); err != nil {
		t.Fatalf("CacheAuthentication: %v", err)
	}
	entries, err := os.ReadDir(cache.dir)
	if err != nil {
		t.Fatalf("read cache dir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".cache" {
			names = append(names, entry.Name())
		}
	}
	if len(names) != 1 || names[0] != "CORP\\alice@1.2.3.4.cache" {
		t.Fatalf("unexpected cache files: %v", names)
	}
}
