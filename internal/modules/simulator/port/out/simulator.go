package out

import (
	"context"

	"gatekit/internal/modules/simulator/domain"
)

// ScenarioStore loads scenario scripts from disk.
type ScenarioStore interface {
	Load(path string) (domain.Scenario, error)
}

// AuditSink persists one record per hook invocation.
type AuditSink interface {
	Record(ctx context.Context, record domain.AuditRecord) error
	Close() error
}
