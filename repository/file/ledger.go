package file

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/repository"
)

// DefaultLedgerCap bounds the processed-message set. Eviction is oldest-first,
// so sufficiently old messages can in principle be reprocessed; that drift is
// accepted in exchange for bounded storage.
const DefaultLedgerCap = 10000

// Ledger is the processed-message idempotency set, persisted as a flat JSON
// array of composite ids ("{channel}_{nativeId}").
type Ledger struct {
	path string
	cap  int

	mu    sync.RWMutex
	order []string
	seen  map[string]struct{}

	logger *zap.Logger
}

// OpenLedger loads the ledger from disk, starting empty when the file is
// missing or unreadable (reprocessing a few messages beats refusing to boot).
func OpenLedger(path string, capacity int, logger *zap.Logger) (*Ledger, error) {
	if capacity <= 0 {
		capacity = DefaultLedgerCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	l := &Ledger{
		path:   path,
		cap:    capacity,
		order:  []string{},
		seen:   make(map[string]struct{}),
		logger: logger,
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		logger.Warn("processed ledger unreadable, starting empty", zap.Error(err))
		return l, nil
	}
	for _, id := range ids {
		if _, ok := l.seen[id]; ok {
			continue
		}
		l.seen[id] = struct{}{}
		l.order = append(l.order, id)
	}
	l.truncateLocked()
	return l, nil
}

// Seen reports whether the id was already processed.
func (l *Ledger) Seen(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[id]
	return ok
}

// Mark records the id and persists the capped set. Marking an id twice is a
// no-op.
func (l *Ledger) Mark(id string) error {
	if id == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[id]; !ok {
		l.seen[id] = struct{}{}
		l.order = append(l.order, id)
		l.truncateLocked()
	}
	return l.flushLocked()
}

// Len returns the current number of tracked ids.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// truncateLocked drops the oldest entries beyond the cap.
func (l *Ledger) truncateLocked() {
	excess := len(l.order) - l.cap
	if excess <= 0 {
		return
	}
	for _, id := range l.order[:excess] {
		delete(l.seen, id)
	}
	l.order = append([]string(nil), l.order[excess:]...)
}

func (l *Ledger) flushLocked() error {
	payload, err := json.Marshal(l.order)
	if err != nil {
		return err
	}
	if err := os.WriteFile(l.path, payload, 0o644); err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "write processed ledger", err)
	}
	return nil
}

var _ repository.Ledger = (*Ledger)(nil)
