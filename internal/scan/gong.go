package scan

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/internal/extract"
	"github.com/fastygo/taskscan/repository"
	"github.com/fastygo/taskscan/usecase/autotask"
)

// gongLookback is fixed rather than cycle-relative: transcripts become
// available well after a call ends, so every cycle re-checks the last day
// plus an hour of slack. The ledger keeps re-checks idempotent.
const gongLookback = 25 * time.Hour

// GongScanner extracts action items from recorded call transcripts.
type GongScanner struct {
	feed      CallFeed
	ledger    repository.Ledger
	extractor *extract.Extractor
	merger    *autotask.Merger
	logger    *zap.Logger
	now       func() time.Time
}

func NewGongScanner(feed CallFeed, ledger repository.Ledger, extractor *extract.Extractor,
	merger *autotask.Merger, logger *zap.Logger) *GongScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GongScanner{
		feed:      feed,
		ledger:    ledger,
		extractor: extractor,
		merger:    merger,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *GongScanner) Name() string { return "gong" }

func (s *GongScanner) Scan(ctx context.Context, _ time.Time) Result {
	res := Result{Scanner: s.Name()}
	calls, err := s.feed.Calls(ctx, s.now().Add(-gongLookback))
	if err != nil {
		res.Err = fmt.Errorf("list calls: %w", err)
		return res
	}
	for _, call := range calls {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return res
		}
		id := "gong_" + call.ID
		if s.ledger.Seen(id) {
			continue
		}
		if call.Transcript == "" {
			// Transcript not ready yet; leave unmarked so a later cycle
			// picks the call up again.
			continue
		}
		res.Messages++

		items := s.extractor.Extract("meeting call transcript", call.Transcript)
		added, err := s.merger.AddAll(ctx, items, domain.SourceGong, call.Title)
		if err != nil {
			s.logger.Error("merge failed", zap.String("call", call.ID), zap.Error(err))
		}
		res.Tasks += added

		if err := s.ledger.Mark(id); err != nil {
			s.logger.Warn("ledger mark failed", zap.String("id", id), zap.Error(err))
		}
	}
	return res
}
