// Package tasklist exposes read and replace operations over the stored task
// list for the local HTTP surface.
package tasklist

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/repository"
)

type Usecase struct {
	store  repository.TaskStore
	logger *zap.Logger
}

func New(store repository.TaskStore, logger *zap.Logger) *Usecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Usecase{store: store, logger: logger}
}

// List returns the current task list.
func (u *Usecase) List(ctx context.Context) (*domain.TaskList, error) {
	list, err := u.store.Load(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "load task list", err)
	}
	return list, nil
}

// Replace overwrites the whole list. The UI edits tasks client-side and
// writes the full document back, so there is no per-task update path.
func (u *Usecase) Replace(ctx context.Context, list *domain.TaskList) error {
	if !list.Valid() {
		return domain.ErrInvalidPayload
	}
	if list.Longterm == nil {
		list.Longterm = []domain.Task{}
	}
	if err := u.store.Save(ctx, list); err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "save task list", err)
	}
	u.logger.Info("task list replaced",
		zap.Int("today", len(list.Today)),
		zap.Int("longterm", len(list.Longterm)))
	return nil
}
