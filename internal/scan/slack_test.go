package scan

import (
	"context"
	"testing"
	"time"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/internal/extract"
	"github.com/fastygo/taskscan/usecase/autotask"
)

type fakeChat struct {
	messages []Message
	since    time.Time
}

func (f *fakeChat) Mentions(_ context.Context, since time.Time) ([]Message, error) {
	f.since = since
	return f.messages, nil
}

func TestSlackScanExtractsFromMentions(t *testing.T) {
	store := &memStore{list: domain.NewTaskList()}
	ledger := newMemLedger()
	clock := func() time.Time { return scanNow }
	ext := extract.New("Justin Miller", nil, extract.WithClock(clock))
	merger := autotask.New(store, nil, autotask.WithClock(clock))
	feed := &fakeChat{messages: []Message{
		{ID: "1724490000.000100", Sender: "drew", Channel: "deals",
			Body: "Justin, can you update the Cleveland Clinic forecast today?"},
		// Same message surfaced twice by search pagination.
		{ID: "1724490000.000100", Sender: "drew", Channel: "deals",
			Body: "Justin, can you update the Cleveland Clinic forecast today?"},
	}}
	s := NewSlackScanner(feed, ledger, ext, merger, nil)

	since := scanNow.Add(-5 * time.Minute)
	res := s.Scan(context.Background(), since)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Messages != 1 || res.Tasks != 1 {
		t.Errorf("result = %+v, want single deduplicated message", res)
	}
	if !feed.since.Equal(since.Add(-slackWindowSkew)) {
		t.Errorf("lookback = %v, want skewed %v", feed.since, since.Add(-slackWindowSkew))
	}
	task := store.list.Today[0]
	if task.Source != domain.SourceSlack || task.SourceDetail != "#deals from drew" {
		t.Errorf("provenance = %q/%q", task.Source, task.SourceDetail)
	}
	if task.Priority != domain.PriorityHigh {
		t.Errorf("priority = %q, want high from today marker", task.Priority)
	}
	if ledger.marks["slack_1724490000.000100"] != 1 {
		t.Error("mention not marked exactly once")
	}
}
