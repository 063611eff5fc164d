package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"gatekit/internal/modules/simulator/domain"
	simout "gatekit/internal/modules/simulator/port/out"
)

type SQLiteAuditSink struct {
	db *sql.DB
}

func NewSQLiteAuditSink(dbPath string) (simout.AuditSink, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sink := &SQLiteAuditSink{db: db}
	if err := sink.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return sink, nil
}

func (s *SQLiteAuditSink) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS invocations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  hook TEXT NOT NULL,
  verdict TEXT NOT NULL,
  reason TEXT,
  created_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create invocations table: %w", err)
	}
	return nil
}

func (s *SQLiteAuditSink) Record(ctx context.Context, record domain.AuditRecord) error {
	const stmt = `
INSERT INTO invocations (session_id, hook, verdict, reason, created_at)
VALUES (?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(ctx, stmt,
		record.SessionID,
		record.Hook,
		record.Verdict,
		record.Reason,
		record.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

func (s *SQLiteAuditSink) Close() error {
	return s.db.Close()
}

// NoopAuditSink discards records when no audit db path is given.
type NoopAuditSink struct{}

func (NoopAuditSink) Record(context.Context, domain.AuditRecord) error { return nil }
func (NoopAuditSink) Close() error                                     { return nil }
