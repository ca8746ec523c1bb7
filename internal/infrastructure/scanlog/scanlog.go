// Package scanlog persists the history of scan cycles so runs survive
// restarts and the status endpoint can report what actually happened, not
// just what is scheduled.
package scanlog

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const bucketName = "scan_cycles"

// Entry is one completed (or abandoned) scan cycle.
type Entry struct {
	ID        string    `json:"id"`
	Trigger   string    `json:"trigger"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Messages  int       `json:"messages"`
	Tasks     int       `json:"tasks"`
	Queued    int       `json:"queued"`
	Abandoned int       `json:"abandoned"`
	Error     string    `json:"error,omitempty"`
}

// Store is a bbolt-backed append-only cycle log.
type Store struct {
	db     *bbolt.DB
	logger *zap.Logger
}

// Open opens or creates the log database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open scan log db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create scan log bucket: %w", err)
	}
	logger.Info("scan log opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one cycle. Keys are start-time ordered so a reverse cursor
// walk yields newest first.
func (s *Store) Record(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode scan log entry: %w", err)
	}
	key := []byte(fmt.Sprintf("%020d_%s", e.Started.UnixNano(), e.ID))
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put(key, data)
	})
	if err != nil {
		return fmt.Errorf("record scan cycle: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketName)).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				s.logger.Warn("corrupt scan log entry skipped", zap.ByteString("key", k))
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read scan log: %w", err)
	}
	return out, nil
}

// Last returns the most recent entry, or ok=false when the log is empty.
func (s *Store) Last() (Entry, bool, error) {
	entries, err := s.Recent(1)
	if err != nil {
		return Entry{}, false, err
	}
	if len(entries) == 0 {
		return Entry{}, false, nil
	}
	return entries[0], true, nil
}

// Prune drops entries older than cutoff and returns how many were removed.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	limit := []byte(fmt.Sprintf("%020d", cutoff.UnixNano()))
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		c := b.Cursor()
		var stale [][]byte
		for k, _ := c.First(); k != nil && string(k) < string(limit); k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune scan log: %w", err)
	}
	return removed, nil
}
