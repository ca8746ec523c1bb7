package repository

import (
	"context"

	"github.com/fastygo/taskscan/domain"
)

// TaskStore is the durable two-bucket task list. Implementations replace the
// whole list atomically on every save; there is no per-task mutation.
type TaskStore interface {
	Load(ctx context.Context) (*domain.TaskList, error)
	Save(ctx context.Context, list *domain.TaskList) error
}

// Ledger records which inbound messages have already been evaluated, capped
// to a bounded number of recent entries.
type Ledger interface {
	// Seen reports whether the composite id was already processed.
	Seen(id string) bool
	// Mark records the id as processed and persists the set.
	Mark(id string) error
}
