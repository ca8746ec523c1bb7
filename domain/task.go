package domain

import (
	"crypto/rand"
	"strconv"
	"time"
)

// Priority levels assignable to a task. The extraction pipeline only ever
// produces high or medium; low exists for the store consumer.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Provenance channels for machine-created tasks.
const (
	SourceEmail = "email"
	SourceSlack = "slack"
	SourceGong  = "gong"
	SourceNotes = "notes"
)

// Bucket names inside a TaskList.
const (
	BucketToday    = "today"
	BucketLongterm = "longterm"
)

// DateLayout is the calendar-date format used for due dates.
const DateLayout = "2006-01-02"

// Task is a single action item. The field set and JSON tags are a shared
// contract with the UI and the external extraction agent — both read and
// write the same file.
type Task struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Priority string `json:"priority"`
	// Due serializes as null when the task has no deadline; the external
	// agent writes the key that way and both sides read the same file.
	Due          *string `json:"due"`
	Done         bool    `json:"done"`
	Created      int64   `json:"created"`
	Auto         bool    `json:"auto"`
	Source       string  `json:"source,omitempty"`
	SourceDetail string  `json:"sourceDetail,omitempty"`
}

// DueValue returns the due date, or "" when the task has none.
func (t Task) DueValue() string {
	if t.Due == nil {
		return ""
	}
	return *t.Due
}

// NewDue wraps a due date for assignment to Task.Due, nil when empty.
func NewDue(due string) *string {
	if due == "" {
		return nil
	}
	return &due
}

// TaskList holds the two named task buckets. Bucket membership is decided
// once at insertion and never re-evaluated afterwards.
type TaskList struct {
	Today    []Task `json:"today"`
	Longterm []Task `json:"longterm"`
}

// NewTaskList returns an empty list with both buckets non-nil so it
// marshals as {"today": [], "longterm": []} rather than nulls.
func NewTaskList() *TaskList {
	return &TaskList{Today: []Task{}, Longterm: []Task{}}
}

// All returns both buckets in order, today first.
func (l *TaskList) All() []Task {
	out := make([]Task, 0, len(l.Today)+len(l.Longterm))
	out = append(out, l.Today...)
	out = append(out, l.Longterm...)
	return out
}

// Append adds a task to the named bucket.
func (l *TaskList) Append(bucket string, t Task) {
	if bucket == BucketLongterm {
		l.Longterm = append(l.Longterm, t)
		return
	}
	l.Today = append(l.Today, t)
}

// Valid reports whether the list is structurally usable. A list decoded
// from a backup must at least carry a today bucket.
func (l *TaskList) Valid() bool {
	return l != nil && l.Today != nil
}

// Candidate is an extractor output prior to merge into the store.
type Candidate struct {
	Text     string `json:"text"`
	DueDate  string `json:"due_date,omitempty"`
	Priority string `json:"priority"`
}

// BucketFor picks the bucket for a due date relative to today: longterm
// only when the due date is strictly in the future.
func BucketFor(due string, today time.Time) string {
	if due != "" && due > today.Format(DateLayout) {
		return BucketLongterm
	}
	return BucketToday
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewTaskID builds an id in the scheme the external agent also uses:
// eight random alphanumerics followed by the hex unix-millisecond time.
func NewTaskID(now time.Time) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf) + strconv.FormatInt(now.UnixMilli(), 16)
}
