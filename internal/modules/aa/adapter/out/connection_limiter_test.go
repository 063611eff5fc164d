package out

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"gatekit/internal/platform/configuration"
)

func newTestLimiter(t *testing.T, limit int) *FileConnectionLimiter {
	t.Helper()
	t.Setenv("EPHEMERAL_PLUGIN_STATE_DIRECTORY", t.TempDir())
	text := fmt.Sprintf("[connection_limit by=client_ip_gateway_user]\nlimit = %d\n", limit)
	cfg, err := configuration.New(text)
	if err != nil {
		t.Fatalf("configuration.New: %v", err)
	}
	limiter, err := NewConnectionLimiterFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewConnectionLimiterFromConfig: %v", err)
	}
	fileLimiter, ok := limiter.(*FileConnectionLimiter)
	if !ok {
		t.Fatalf("expected *FileConnectionLimiter, got %T", limiter)
	}
	return fileLimiter
}

func TestConnectionLimiterDisabledByDefault(t *testing.T) {
	t.Setenv("EPHEMERAL_PLUGIN_STATE_DIRECTORY", t.TempDir())
	cfg, err := configuration.New("")
	if err != nil {
		t.Fatalf("configuration.New: %v", err)
	}
	limiter, err := NewConnectionLimiterFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewConnectionLimiterFromConfig: %v", err)
	}
	if _, ok := limiter.(NoopConnectionLimiter); !ok {
		t.Fatalf("expected NoopConnectionLimiter without limit, got %T", limiter)
	}
	ok, err := limiter.TryConnect(context.Background(), "1.2.3.4_alice", "svc-1")
	if err != nil || !ok {
		t.Fatalf("noop limiter: ok=%v err=%v", ok, err)
	}
}

func TestConnectionLimiterEnforcesLimit(t *testing.T) {
	limiter := newTestLimiter(t, 2)
	ctx := context.Background()
	key := "1.2.3.4_alice"

	for i := 1; i <= 2; i++ {
		ok, err := limiter.TryConnect(ctx, key, fmt.Sprintf("svc-%d", i))
		if err != nil {
			t.Fatalf("TryConnect #%d: %v", i, err)
		}
		if !ok {
			t.Fatalf("expected slot #%d to be granted", i)
		}
	}
	ok, err := limiter.TryConnect(ctx, key, "svc-3")
	if err != nil {
		t.Fatalf("TryConnect over limit: %v", err)
	}
	if ok {
		t.Fatal("expected denial above the limit")
	}
}

func TestConnectionLimiterDisconnectFreesSlot(t *testing.T) {
	limiter := newTestLimiter(t, 1)
	ctx := context.Background()
	key := "1.2.3.4_alice"

	if ok, err := limiter.TryConnect(ctx, key, "svc-1"); err != nil || !ok {
		t.Fatalf("initial TryConnect: ok=%v err=%v", ok, err)
	}
	if ok, _ := limiter.TryConnect(ctx, key, "svc-2"); ok {
		t.Fatal("expected denial while slot is held")
	}
	if err := limiter.Disconnect(ctx, key, "svc-1"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if ok, err := limiter.TryConnect(ctx, key, "svc-2"); err != nil || !ok {
		t.Fatalf("TryConnect after release: ok=%v err=%v", ok, err)
	}
}

func TestConnectionLimiterKeysAreIndependent(t *testing.T) {
	limiter := newTestLimiter(t, 1)
	ctx := context.Background()

	if ok, err := limiter.TryConnect(ctx, "1.2.3.4_alice", "svc-1"); err != nil || !ok {
		t.Fatalf("first key: ok=%v err=%v", ok, err)
	}
	if ok, err := limiter.TryConnect(ctx, "1.2.3.4_bob", "svc-2"); err != nil || !ok {
		t.Fatalf("second key should not share the slot: ok=%v err=%v", ok, err)
	}
}

func TestConnectionLimiterUnderConcurrency(t *testing.T) {
	const limit = 3
	const attempts = 20

	limiter := newTestLimiter(t, limit)
	ctx := context.Background()
	key := "1.2.3.4_alice"

	var granted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := limiter.TryConnect(ctx, key, fmt.Sprintf("svc-%d", i))
			if err != nil {
				t.Errorf("TryConnect: %v", err)
				return
			}
			if ok {
				granted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := granted.Load(); got != limit {
		t.Fatalf("granted %d slots, want exactly %d", got, limit)
	}
}

func TestConnectionLimiterStaleSessionStaysCounted(t *testing.T) {
	limiter := newTestLimiter(t, 1)
	ctx := context.Background()
	key := "1.2.3.4_alice"

	if ok, err := limiter.TryConnect(ctx, key, "svc-gone"); err != nil || !ok {
		t.Fatalf("TryConnect: ok=%v err=%v", ok, err)
	}
	// A session that never reports session_ended keeps its slot; only an
	// explicit Disconnect for its id releases it.
	if err := limiter.Disconnect(ctx, key, "svc-other"); err != nil {
		t.Fatalf("Disconnect of unknown session: %v", err)
	}
	if ok, _ := limiter.TryConnect(ctx, key, "svc-2"); ok {
		t.Fatal("expected stale entry to keep the slot occupied")
	}
}
