package out

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"gatekit/internal/modules/simulator/domain"
)

func TestSQLiteAuditSinkRecords(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "audit.db")
	sink, err := NewSQLiteAuditSink(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteAuditSink: %v", err)
	}
	defer sink.Close()

	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0).UTC()
	for _, hook := range []string{"authenticate", "authorize", "session_ended"} {
		err := sink.Record(ctx, domain.AuditRecord{
			SessionID: "svc-1",
			Hook:      hook,
			Verdict:   "ACCEPT",
			Reason:    "test",
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("Record(%s): %v", hook, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invocations WHERE session_id = ?`, "svc-1").Scan(&count); err != nil {
		t.Fatalf("count invocations: %v", err)
	}
	if count != 3 {
		t.Fatalf("invocation rows = %d, want 3", count)
	}

	var hook, verdict string
	err = db.QueryRowContext(ctx, `SELECT hook, verdict FROM invocations ORDER BY id LIMIT 1`).Scan(&hook, &verdict)
	if err != nil {
		t.Fatalf("read first invocation: %v", err)
	}
	if hook != "authenticate" || verdict != "ACCEPT" {
		t.Fatalf("first row = (%s, %s)", hook, verdict)
	}
}
