package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	aaout "gatekit/internal/modules/aa/port/out"
	"gatekit/internal/platform/configuration"
	"gatekit/internal/platform/lockfile"
)

const (
	sectionConnectionLimit = "connection_limit by=client_ip_gateway_user"
	connectionLimitSubdir  = "connection_limit_by_client_ip_gateway_user"
)

// FileConnectionLimiter counts concurrently held sessions per key with one
// JSON list of session ids per key file. Sessions that never report
// session_ended leave stale entries behind; there is no cleanup.
// TODO: expire entries whose broker process is gone.
type FileConnectionLimiter struct {
	dir   string
	limit int
}

// NewConnectionLimiterFromConfig builds the limiter from
// [connection_limit by=client_ip_gateway_user]. A limit of 0 disables it.
func NewConnectionLimiterFromConfig(cfg *configuration.Configuration) (aaout.ConnectionLimiter, error) {
	limit, err := cfg.GetInt(sectionConnectionLimit, "limit", 0)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		return NoopConnectionLimiter{}, nil
	}
	return &FileConnectionLimiter{
		dir:   filepath.Join(ephemeralStateDir(), connectionLimitSubdir),
		limit: limit,
	}, nil
}

func (l *FileConnectionLimiter) keyPath(key string) string {
	return filepath.Join(l.dir, key)
}

func (l *FileConnectionLimiter) TryConnect(_ context.Context, key, sessionID string) (bool, error) {
	// The lock file lives next to the entry, so the directory must exist
	// before the lock can be taken.
	if err := os.MkdirAll(l.dir, 0o700); err != nil {
		return false, fmt.Errorf("create connection limit dir: %w", err)
	}
	path := l.keyPath(key)
	ok := false
	err := lockfile.With(path, lockfile.DefaultTimeout, lockfile.DefaultRetries, func() error {
		sessions, err := readSessionList(path)
		if err != nil {
			return err
		}
		if len(sessions) >= l.limit {
			return nil
		}
		sessions = append(sessions, sessionID)
		if err := writeSessionList(path, sessions); err != nil {
			return err
		}
		ok = true
		return nil
	})
	return ok, err
}

func (l *FileConnectionLimiter) Disconnect(_ context.Context, key, sessionID string) error {
	if err := os.MkdirAll(l.dir, 0o700); err != nil {
		return fmt.Errorf("create connection limit dir: %w", err)
	}
	path := l.keyPath(key)
	return lockfile.With(path, lockfile.DefaultTimeout, lockfile.DefaultRetries, func() error {
		sessions, err := readSessionList(path)
		if err != nil {
			return err
		}
		if i := slices.Index(sessions, sessionID); i >= 0 {
			sessions = slices.Delete(sessions, i, i+1)
			return writeSessionList(path, sessions)
		}
		return nil
	})
}

func readSessionList(path string) ([]string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read connection limit entry: %w", err)
	}
	var sessions []string
	if err := json.Unmarshal(payload, &sessions); err != nil {
		return nil, fmt.Errorf("decode connection limit entry: %w", err)
	}
	return sessions, nil
}

func writeSessionList(path string, sessions []string) error {
	payload, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode connection limit entry: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write connection limit entry: %w", err)
	}
	return nil
}

// NoopConnectionLimiter never limits.
type NoopConnectionLimiter struct{}

func (NoopConnectionLimiter) TryConnect(context.Context, string, string) (bool, error) {
	return true, nil
}

func (NoopConnectionLimiter) Disconnect(context.Context, string, string) error {
	return nil
}
