package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	aaout "gatekit/internal/modules/aa/port/out"
	"gatekit/internal/platform/clock"
	"gatekit/internal/platform/configuration"
	"gatekit/internal/platform/lockfile"
)

const sectionAuthCache = "authentication_cache"

const (
	defaultSoftTimeout = 15
	defaultHardTimeout = 90
)

// cacheRecord is the JSON payload of one {username}@{client_ip}.cache file.
// Timestamps are Unix seconds.
type cacheRecord struct {
	LastAuthenticated int64 `json:"last_authenticated"`
	LastUsed          int64 `json:"last_used"`
	ReuseCount        int   `json:"reuse_count"`
}

// FileAuthCache reuses a recent successful authentication for the same
// (client_ip, username) pair. State lives one file per key, guarded by an
// advisory lock so concurrent broker processes agree on the reuse count.
type FileAuthCache struct {
	dir         string
	softTimeout time.Duration
	hardTimeout time.Duration
	reuseLimit  int
	clk         clock.Clock
}

// NewAuthCacheFromConfig builds the cache from [authentication_cache]. A
// reuse_limit of 0 (the default) disables caching entirely.
func NewAuthCacheFromConfig(cfg *configuration.Configuration, clk clock.Clock) (aaout.AuthenticationCache, error) {
	reuseLimit, err := cfg.GetInt(sectionAuthCache, "reuse_limit", 0)
	if err != nil {
		return nil, err
	}
	if reuseLimit == 0 {
		return NoopAuthCache{}, nil
	}
	soft, err := cfg.GetInt(sectionAuthCache, "soft_timeout", defaultSoftTimeout)
	if err != nil {
		return nil, err
	}
	hard, err := cfg.GetInt(sectionAuthCache, "hard_timeout", defaultHardTimeout)
	if err != nil {
		return nil, err
	}
	dir, err := cfg.Get(sectionAuthCache, "cache_dir", filepath.Join(pluginStateDir(), "auth_cache"))
	if err != nil {
		return nil, err
	}
	return &FileAuthCache{
		dir:         dir,
		softTimeout: time.Duration(soft) * time.Second,
		hardTimeout: time.Duration(hard) * time.Second,
		reuseLimit:  reuseLimit,
		clk:         clk,
	}, nil
}

// The cache file name template does not sanitise usernames; see the state
// directory contract.
func (c *FileAuthCache) keyPath(clientIP, username string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s@%s.cache", username, clientIP))
}

func (c *FileAuthCache) TryAuthenticate(_ context.Context, clientIP, username string) (bool, error) {
	// The lock file lives next to the entry, so the directory must exist
	// before the lock can be taken.
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return false, fmt.Errorf("create auth cache dir: %w", err)
	}
	path := c.keyPath(clientIP, username)
	now := c.clk.Now().Unix()
	hit := false
	err := lockfile.With(path, lockfile.DefaultTimeout, lockfile.DefaultRetries, func() error {
		record, ok, err := readCacheRecord(path)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if now-record.LastAuthenticated > int64(c.hardTimeout.Seconds()) {
			return nil
		}
		if now-record.LastUsed > int64(c.softTimeout.Seconds()) {
			return nil
		}
		if record.ReuseCount+1 > c.reuseLimit {
			return nil
		}
		record.LastUsed = now
		record.ReuseCount++
		if err := writeCacheRecord(path, record); err != nil {
			return err
		}
		hit = true
		return nil
	})
	return hit, err
}

func (c *FileAuthCache) CacheAuthentication(_ context.Context, clientIP, username string) error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("create auth cache dir: %w", err)
	}
	path := c.keyPath(clientIP, username)
	now := c.clk.Now().Unix()
	return lockfile.With(path, lockfile.DefaultTimeout, lockfile.DefaultRetries, func() error {
		return writeCacheRecord(path, cacheRecord{
			LastAuthenticated: now,
			LastUsed:          now,
			ReuseCount:        0,
		})
	})
}

func readCacheRecord(path string) (cacheRecord, bool, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cacheRecord{}, false, nil
		}
		return cacheRecord{}, false, fmt.Errorf("read auth cache entry: %w", err)
	}
	var record cacheRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return cacheRecord{}, false, fmt.Errorf("decode auth cache entry: %w", err)
	}
	return record, true, nil
}

func writeCacheRecord(path string, record cacheRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode auth cache entry: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write auth cache entry: %w", err)
	}
	return nil
}

// NoopAuthCache never hits and never stores.
type NoopAuthCache struct{}

func (NoopAuthCache) TryAuthenticate(context.Context, string, string) (bool, error) {
	return false, nil
}

func (NoopAuthCache) CacheAuthentication(context.Context, string, string) error {
	return nil
}

func pluginStateDir() string {
	if dir := os.Getenv("SCB_PLUGIN_STATE_DIRECTORY"); dir != "" {
		return dir
	}
	return os.TempDir()
}

func ephemeralStateDir() string {
	if dir := os.Getenv("EPHEMERAL_PLUGIN_STATE_DIRECTORY"); dir != "" {
		return dir
	}
	return os.TempDir()
}
