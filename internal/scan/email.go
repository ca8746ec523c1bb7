package scan

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/internal/extract"
	"github.com/fastygo/taskscan/internal/infrastructure/queue"
	"github.com/fastygo/taskscan/repository"
	"github.com/fastygo/taskscan/usecase/autotask"
)

// mailLookback is fixed rather than cycle-relative: a cycle that fails or
// abandons its scanner leaves messages unmarked, and re-listing the last two
// days lets the next cycle pick them up. The ledger keeps re-lists idempotent.
const mailLookback = 48 * time.Hour

// Subject prefixes stamped by calendar and document tooling. Compared
// case-insensitively against the trimmed subject.
var calendarSubjectPrefixes = []string{
	"invitation:",
	"updated invitation:",
	"accepted:",
	"declined:",
	"tentatively accepted:",
	"canceled event:",
	"cancelled event:",
	"proposed new time:",
	"document shared with you:",
}

var (
	reReschedule = regexp.MustCompile(`(?i)proposed\s+new\s+time|new\s+time\s+proposed|rescheduled?\b`)
	reBroadcast  = regexp.MustCompile(`(?i)\b(?:summary|alignment|recap|readout|highlights|debrief|status\s+update)\b`)
)

// Body signals that mark a message as calendar machinery even when the
// subject looks ordinary. Two or more hits classify the message.
var calendarBodySignals = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^[>\s]*organizer\s*:`),
	regexp.MustCompile(`(?im)^[>\s]*when\s*:`),
	regexp.MustCompile(`(?im)^[>\s]*where\s*:`),
	regexp.MustCompile(`(?i)join\s+(?:zoom|google\s+meet|microsoft\s+teams|the\s+meeting)`),
	regexp.MustCompile(`(?i)(?:zoom\.us/j/|meet\.google\.com/|teams\.microsoft\.com/)`),
	regexp.MustCompile(`(?i)video\s+call\s+link`),
	regexp.MustCompile(`(?i)proposed\s+new\s+time`),
	regexp.MustCompile(`(?i)conference\s+(?:id|room|call)`),
	regexp.MustCompile(`(?i)dial[\s\-]?in[^\n]*number`),
	regexp.MustCompile(`(?i)guests\s+can`),
	regexp.MustCompile(`(?i)going\?\s*(?:yes|no|maybe)`),
}

// Sender substrings of automated mailers whose messages never carry a
// personal ask.
var automatedSenderParts = []string{
	"noreply@",
	"no-reply@",
	"donotreply@",
	"mailer-daemon@",
	"notifications@",
	"notification@",
	"calendar-notification@google.com",
	"drive-shares-dm-noreply@google.com",
	"atlassian",
	"bounce",
}

var (
	reQuoteAttribution = regexp.MustCompile(`(?m)^On\s+\w[^\n]{5,200}(?:\n[^\n]{0,100})?wrote:\s*$`)
	reSignatureCut     = regexp.MustCompile(`\n[-_]{3,}\s*\n`)
	reQuotedLine       = regexp.MustCompile(`^\s*>+`)
)

// EmailRouting carries the identities the classifier routes by.
type EmailRouting struct {
	// SelfAddress is the tracked user's own address; self-sent mail is noise.
	SelfAddress string
	// TrustedDomain is the home organization; senders outside it are routed
	// to the deep-extraction queue instead of the deterministic pipeline.
	TrustedDomain string
	// NotesBotSender is the meeting-notes bot whose summaries always go to
	// the queue.
	NotesBotSender string
}

// EmailScanner classifies inbox mail and routes each message to exactly one
// of: drop, queue, or extract-and-merge.
type EmailScanner struct {
	feed      MailFeed
	ledger    repository.Ledger
	extractor *extract.Extractor
	merger    *autotask.Merger
	queue     *queue.Queue
	routing   EmailRouting
	logger    *zap.Logger
	now       func() time.Time
}

func NewEmailScanner(feed MailFeed, ledger repository.Ledger, extractor *extract.Extractor,
	merger *autotask.Merger, q *queue.Queue, routing EmailRouting, logger *zap.Logger) *EmailScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	routing.SelfAddress = strings.ToLower(routing.SelfAddress)
	routing.TrustedDomain = strings.ToLower(routing.TrustedDomain)
	routing.NotesBotSender = strings.ToLower(routing.NotesBotSender)
	return &EmailScanner{
		feed:      feed,
		ledger:    ledger,
		extractor: extractor,
		merger:    merger,
		queue:     q,
		routing:   routing,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *EmailScanner) Name() string { return "email" }

func (s *EmailScanner) Scan(ctx context.Context, _ time.Time) Result {
	res := Result{Scanner: s.Name()}
	messages, err := s.feed.Recent(ctx, s.now().Add(-mailLookback))
	if err != nil {
		res.Err = fmt.Errorf("list mail: %w", err)
		return res
	}
	for _, msg := range messages {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return res
		}
		id := "email_" + msg.ID
		if s.ledger.Seen(id) {
			continue
		}
		res.Messages++

		tasks, queued := s.route(ctx, msg)
		res.Tasks += tasks
		res.Queued += queued

		if err := s.ledger.Mark(id); err != nil {
			s.logger.Warn("ledger mark failed", zap.String("id", id), zap.Error(err))
		}
	}
	return res
}

// route handles one unseen message and returns (tasks merged, items queued).
func (s *EmailScanner) route(ctx context.Context, msg Message) (int, int) {
	sender := strings.ToLower(msg.Sender)
	subject := strings.TrimSpace(msg.Subject)

	switch {
	case isCalendarSubject(subject) || reReschedule.MatchString(subject):
		s.logger.Debug("calendar message dropped", zap.String("subject", subject))
		return 0, 0

	case isAutomatedSender(sender):
		s.logger.Debug("automated sender dropped", zap.String("sender", sender))
		return 0, 0

	case s.routing.SelfAddress != "" && strings.Contains(sender, s.routing.SelfAddress):
		return 0, 0

	// The notes bot wins over the body heuristic: its meeting summaries
	// quote calendar boilerplate yet still carry real action items.
	case s.routing.NotesBotSender != "" && strings.Contains(sender, s.routing.NotesBotSender):
		return 0, s.enqueue(msg, domain.SourceNotes)

	case isCalendarBody(msg.Body):
		s.logger.Debug("calendar message dropped", zap.String("subject", subject))
		return 0, 0

	case s.isInternal(sender) && reBroadcast.MatchString(subject):
		// Internal broadcast digests carry indirect asks the deterministic
		// rules cannot read reliably.
		return 0, s.enqueue(msg, domain.SourceEmail)

	case !s.isInternal(sender):
		return 0, s.enqueue(msg, domain.SourceEmail)

	default:
		body := StripQuoted(msg.Body)
		items := s.extractor.Extract(domain.SourceEmail, body)
		added, err := s.merger.AddAll(ctx, items, domain.SourceEmail, subject)
		if err != nil {
			s.logger.Error("merge failed", zap.String("subject", subject), zap.Error(err))
		}
		return added, 0
	}
}

func (s *EmailScanner) isInternal(sender string) bool {
	return s.routing.TrustedDomain != "" && strings.Contains(sender, "@"+s.routing.TrustedDomain)
}

func (s *EmailScanner) enqueue(msg Message, source string) int {
	text := fmt.Sprintf("From: %s\nSubject: %s\n\n%s", msg.Sender, msg.Subject, msg.Body)
	if _, err := s.queue.Enqueue(text, source); err != nil {
		s.logger.Error("enqueue failed", zap.String("subject", msg.Subject), zap.Error(err))
		return 0
	}
	return 1
}

func isCalendarSubject(subject string) bool {
	lower := strings.ToLower(subject)
	for _, prefix := range calendarSubjectPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func isCalendarBody(body string) bool {
	hits := 0
	for _, re := range calendarBodySignals {
		if re.MatchString(body) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

func isAutomatedSender(sender string) bool {
	for _, part := range automatedSenderParts {
		if strings.Contains(sender, part) {
			return true
		}
	}
	return false
}

// StripQuoted removes reply history from a mail body: everything from the
// "On ... wrote:" attribution down, any remaining "> " quoted lines with the
// blank line that follows a quote run, and anything below a signature
// delimiter.
func StripQuoted(body string) string {
	if loc := reQuoteAttribution.FindStringIndex(body); loc != nil {
		body = body[:loc[0]]
	}
	if loc := reSignatureCut.FindStringIndex(body); loc != nil {
		body = body[:loc[0]]
	}

	lines := strings.Split(body, "\n")
	var kept []string
	inQuote := false
	for _, line := range lines {
		if reQuotedLine.MatchString(line) {
			inQuote = true
			continue
		}
		if inQuote && strings.TrimSpace(line) == "" {
			inQuote = false
			continue
		}
		inQuote = false
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
