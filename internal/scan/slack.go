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

// slackWindowSkew widens the lookback so messages landing during the
// previous cycle's run are not missed; the ledger absorbs the overlap.
const slackWindowSkew = 2 * time.Minute

// SlackScanner extracts action items from chat messages that mention the
// tracked user.
type SlackScanner struct {
	feed      ChatFeed
	ledger    repository.Ledger
	extractor *extract.Extractor
	merger    *autotask.Merger
	logger    *zap.Logger
}

func NewSlackScanner(feed ChatFeed, ledger repository.Ledger, extractor *extract.Extractor,
	merger *autotask.Merger, logger *zap.Logger) *SlackScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlackScanner{
		feed:      feed,
		ledger:    ledger,
		extractor: extractor,
		merger:    merger,
		logger:    logger,
	}
}

func (s *SlackScanner) Name() string { return "slack" }

func (s *SlackScanner) Scan(ctx context.Context, since time.Time) Result {
	res := Result{Scanner: s.Name()}
	messages, err := s.feed.Mentions(ctx, since.Add(-slackWindowSkew))
	if err != nil {
		res.Err = fmt.Errorf("search mentions: %w", err)
		return res
	}
	// Search results can repeat a message across pages within one cycle.
	seen := make(map[string]struct{})
	for _, msg := range messages {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return res
		}
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}

		id := "slack_" + msg.ID
		if s.ledger.Seen(id) {
			continue
		}
		res.Messages++

		content := fmt.Sprintf("From: %s in #%s\n\n%s", msg.Sender, msg.Channel, msg.Body)
		items := s.extractor.Extract(domain.SourceSlack, content)
		detail := fmt.Sprintf("#%s from %s", msg.Channel, msg.Sender)
		added, err := s.merger.AddAll(ctx, items, domain.SourceSlack, detail)
		if err != nil {
			s.logger.Error("merge failed", zap.String("channel", msg.Channel), zap.Error(err))
		}
		res.Tasks += added

		if err := s.ledger.Mark(id); err != nil {
			s.logger.Warn("ledger mark failed", zap.String("id", id), zap.Error(err))
		}
	}
	return res
}
