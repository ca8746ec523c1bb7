// Package autotask merges extracted candidates into the persistent task list.
// All writes funnel through a single Merger so the read-check-append-save
// sequence cannot interleave with itself.
package autotask

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/repository"
)

// Merger appends candidates to the stored task list with exact-text
// deduplication across both buckets.
type Merger struct {
	store  repository.TaskStore
	logger *zap.Logger
	now    func() time.Time

	// mu spans the whole load-dedup-append-save cycle.
	mu sync.Mutex
}

// Option customizes a Merger.
type Option func(*Merger)

// WithClock fixes the merger's notion of now; tests use this.
func WithClock(now func() time.Time) Option {
	return func(m *Merger) { m.now = now }
}

func New(store repository.TaskStore, logger *zap.Logger, opts ...Option) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Merger{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add merges one candidate into the list. It reports whether a new task was
// actually appended; a dedup hit returns (false, nil).
func (m *Merger) Add(ctx context.Context, c domain.Candidate, source, sourceDetail string) (bool, error) {
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return false, domain.ErrEmptyText
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.store.Load(ctx)
	if err != nil {
		return false, domain.WrapError(domain.ErrCodeInternal, "load task list", err)
	}

	key := strings.ToLower(text)
	for _, existing := range list.All() {
		if strings.ToLower(existing.Text) == key {
			m.logger.Debug("duplicate task skipped",
				zap.String("text", text),
				zap.String("existing_id", existing.ID))
			return false, nil
		}
	}

	now := m.now()
	task := domain.Task{
		ID:           domain.NewTaskID(now),
		Text:         text,
		Priority:     normalizePriority(c.Priority),
		Due:          domain.NewDue(c.DueDate),
		Done:         false,
		Created:      now.UnixMilli(),
		Auto:         true,
		Source:       source,
		SourceDetail: sourceDetail,
	}

	bucket := domain.BucketFor(c.DueDate, now)
	list.Append(bucket, task)

	if err := m.store.Save(ctx, list); err != nil {
		return false, domain.WrapError(domain.ErrCodeInternal, "save task list", err)
	}

	m.logger.Info("task added",
		zap.String("id", task.ID),
		zap.String("bucket", bucket),
		zap.String("priority", task.Priority),
		zap.String("due", c.DueDate),
		zap.String("source", source))
	return true, nil
}

// AddAll merges a batch and returns how many tasks were actually appended.
func (m *Merger) AddAll(ctx context.Context, items []domain.Candidate, source, sourceDetail string) (int, error) {
	added := 0
	for _, c := range items {
		ok, err := m.Add(ctx, c, source, sourceDetail)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

func normalizePriority(p string) string {
	switch p {
	case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		return p
	default:
		return domain.PriorityMedium
	}
}
