package scan

import (
	"context"
	"testing"
	"time"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/internal/extract"
	"github.com/fastygo/taskscan/usecase/autotask"
)

type fakeCalls struct {
	calls []Call
	since time.Time
}

func (f *fakeCalls) Calls(_ context.Context, since time.Time) ([]Call, error) {
	f.since = since
	return f.calls, nil
}

func TestGongScanUsesFixedLookback(t *testing.T) {
	store := &memStore{list: domain.NewTaskList()}
	ledger := newMemLedger()
	clock := func() time.Time { return scanNow }
	ext := extract.New("Justin Miller", nil, extract.WithClock(clock))
	merger := autotask.New(store, nil, autotask.WithClock(clock))
	feed := &fakeCalls{calls: []Call{
		{ID: "c1", Title: "Cleveland Clinic weekly", Started: scanNow.Add(-2 * time.Hour),
			Transcript: "Drew: Justin, can you send the revised pricing by Friday?\nDrew: Great, thanks."},
		{ID: "c2", Title: "Pipeline review", Started: scanNow.Add(-time.Hour), Transcript: ""},
	}}
	s := NewGongScanner(feed, ledger, ext, merger, nil)
	s.now = clock

	res := s.Scan(context.Background(), scanNow.Add(-5*time.Minute))
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if !feed.since.Equal(scanNow.Add(-gongLookback)) {
		t.Errorf("lookback = %v, want fixed %v", feed.since, scanNow.Add(-gongLookback))
	}
	if res.Messages != 1 || res.Tasks != 1 {
		t.Errorf("result = %+v, want one transcript processed", res)
	}
	task := store.list.Longterm[0]
	if task.Source != domain.SourceGong || task.SourceDetail != "Cleveland Clinic weekly" {
		t.Errorf("provenance = %q/%q", task.Source, task.SourceDetail)
	}
	if ledger.marks["gong_c1"] != 1 {
		t.Error("transcript call not marked exactly once")
	}
	if ledger.Seen("gong_c2") {
		t.Error("call without transcript must stay unmarked for a later cycle")
	}
}
