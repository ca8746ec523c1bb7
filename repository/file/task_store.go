package file

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/repository"
)

// TaskStore persists the task list as pretty-printed JSON, written to a
// temp file and atomically renamed so a crash mid-write cannot corrupt it.
type TaskStore struct {
	path   string
	logger *zap.Logger

	loadMu sync.Mutex
	saveMu sync.Mutex
}

// NewTaskStore builds a store rooted at path, creating the parent directory.
func NewTaskStore(path string, logger *zap.Logger) (*TaskStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &TaskStore{path: path, logger: logger}, nil
}

func (s *TaskStore) tmpPath() string     { return s.path + ".tmp" }
func (s *TaskStore) corruptPath() string { return s.path + ".corrupt" }

// Load reads the current task list. A missing file yields an empty list.
// An unparseable file is recovered from the last structurally valid backup
// when one exists; otherwise the corrupt file is preserved under a side name
// and a fresh empty list is returned. Data loss is logged, never silent.
func (s *TaskStore) Load(ctx context.Context) (*domain.TaskList, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewTaskList(), nil
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "read task store", err)
	}

	list, parseErr := decodeList(raw)
	if parseErr == nil {
		return list, nil
	}
	s.logger.Error("task store is corrupt", zap.String("path", s.path), zap.Error(parseErr))
	return s.recover(), nil
}

// recover restores from the .corrupt backup if it parses, else moves the
// corrupt main file aside and starts empty.
func (s *TaskStore) recover() *domain.TaskList {
	if raw, err := os.ReadFile(s.corruptPath()); err == nil {
		if list, err := decodeList(raw); err == nil {
			s.logger.Warn("recovered task store from backup", zap.String("backup", s.corruptPath()))
			if err := s.writeAtomic(list); err != nil {
				s.logger.Error("failed to restore recovered store", zap.Error(err))
			}
			return list
		}
	}
	if err := os.Rename(s.path, s.corruptPath()); err != nil {
		s.logger.Error("failed to preserve corrupt store", zap.Error(err))
	} else {
		s.logger.Warn("corrupt task store preserved for inspection",
			zap.String("backup", s.corruptPath()))
	}
	return domain.NewTaskList()
}

// Save replaces the whole store atomically.
func (s *TaskStore) Save(ctx context.Context, list *domain.TaskList) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if list == nil {
		return domain.ErrInvalidPayload
	}
	if list.Today == nil {
		list.Today = []domain.Task{}
	}
	if list.Longterm == nil {
		list.Longterm = []domain.Task{}
	}
	return s.writeAtomic(list)
}

func (s *TaskStore) writeAtomic(list *domain.TaskList) error {
	payload, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "encode task store", err)
	}
	if err := os.WriteFile(s.tmpPath(), payload, 0o644); err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "write task store", err)
	}
	if err := os.Rename(s.tmpPath(), s.path); err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "replace task store", err)
	}
	return nil
}

func decodeList(raw []byte) (*domain.TaskList, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty file")
	}
	var list domain.TaskList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	if !list.Valid() {
		return nil, errors.New("missing today bucket")
	}
	if list.Longterm == nil {
		list.Longterm = []domain.Task{}
	}
	return &list, nil
}

var _ repository.TaskStore = (*TaskStore)(nil)
