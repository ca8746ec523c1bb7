// Package queue is the file-based handoff to the external deep-extraction
// agent. Content the deterministic pipeline cannot judge (external senders,
// notes-bot summaries, broadcast digests) is queued here; the agent consumes
// the files on its own schedule and deletes or quarantines them.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskscan/domain"
)

// Item is the on-disk queue entry format shared with the consumer.
type Item struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	QueuedAt string `json:"queued_at"`
}

// Queue writes pending items into a spool directory, one JSON file each.
type Queue struct {
	dir         string
	triggerPath string
	alivePath   string
	logger      *zap.Logger
	now         func() time.Time
}

// Option customizes a Queue.
type Option func(*Queue)

// WithClock fixes the queue's notion of now; tests use this.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New opens a queue rooted at dir, creating it if needed. triggerPath and
// alivePath are the companion handshake files next to the spool.
func New(dir, triggerPath, alivePath string, logger *zap.Logger, opts ...Option) (*Queue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}
	q := &Queue{
		dir:         dir,
		triggerPath: triggerPath,
		alivePath:   alivePath,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Enqueue spools one item. File names sort chronologically so the consumer
// processes oldest first.
func (q *Queue) Enqueue(text, source string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyText
	}
	now := q.now()
	item := Item{
		Text:     text,
		Source:   source,
		QueuedAt: now.Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode queue item: %w", err)
	}
	name := fmt.Sprintf("%s_%s.json", now.Format("20060102_150405"), uuid.NewString()[:6])
	path := filepath.Join(q.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write queue item: %w", err)
	}
	q.logger.Info("item queued",
		zap.String("file", name),
		zap.String("source", source),
		zap.Int("bytes", len(text)))
	return name, nil
}

// Pending counts spooled .json items. Quarantined .err files do not count.
func (q *Queue) Pending() (int, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return 0, fmt.Errorf("read queue dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n, nil
}

// Sweep deletes queue items whose text is empty; they carry nothing for the
// consumer and would otherwise sit in the spool forever. It returns the
// number of files removed.
func (q *Queue) Sweep() (int, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return 0, fmt.Errorf("read queue dir: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(q.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var item Item
		if err := json.Unmarshal(data, &item); err != nil {
			continue
		}
		if strings.TrimSpace(item.Text) != "" {
			continue
		}
		if err := os.Remove(path); err != nil {
			q.logger.Warn("sweep remove failed", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		q.logger.Info("swept empty queue items", zap.Int("removed", removed))
	}
	return removed, nil
}

// WriteTrigger drops the trigger file the companion watches; the companion
// deletes it once noticed.
func (q *Queue) WriteTrigger() error {
	if err := os.WriteFile(q.triggerPath, []byte(q.now().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write trigger file: %w", err)
	}
	return nil
}

// CompanionAlive reports whether the consumer's heartbeat file was touched
// within maxAge.
func (q *Queue) CompanionAlive(maxAge time.Duration) bool {
	info, err := os.Stat(q.alivePath)
	if err != nil {
		return false
	}
	return q.now().Sub(info.ModTime()) <= maxAge
}
