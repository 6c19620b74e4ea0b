package backend

import (
	"context"

	"financas/internal/ledger"
	"financas/internal/services"
)

// CleanupFunc releases whatever the backend opened.
type CleanupFunc func() error

// BackendResult is a ready store plus the optional event publisher. Publisher
// is nil when AMQP is not configured or the broker could not be reached.
type BackendResult struct {
	Store     ledger.Store
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific
	DataDirectory string
	SeedOwnerID   string

	// Optional for both
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
