// Package extract turns raw channel text into action-item candidates for one
// tracked person, using a layered cascade of pattern heuristics: hard-skip
// filters, name/trigger signal detection, refinements, due-date and priority
// inference, then cleanup and per-call deduplication.
package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/fastygo/taskscan/domain"
)

// Candidate text bounds; anything outside is dropped.
const (
	minTextLen = 8
	maxTextLen = 300
)

// dedupPrefixLen bounds the normalized key used for per-call deduplication.
const dedupPrefixLen = 80

var (
	reSentenceEnd = regexp.MustCompile(`([.!?])\s+`)
	reLineBreak   = regexp.MustCompile(`[\n\r]+`)
	reTrigger     = regexp.MustCompile(`(?i)\b(?:can you|could you|please|would you mind|i need you to|` +
		`you(?:\s+will)?\s+need to|you\s+should|you\s+must|action\s+item|action:|todo:|to-?do:|` +
		`follow[- ]?up|next\s+step|assigned\s+to|your\s+task|your\s+action|remind\s+you|` +
		`don'?t\s+forget|make\s+sure\s+you|ensure\s+you|you\s+(?:are|were)\s+asked)\b`)
	// Trigger-only lines must look like real directives, not casual or
	// marketing language ("please feel free", "please find", "please visit").
	reDirective = regexp.MustCompile(`(?i)\b(?:can you|could you|` +
		`please\s+(?:\w+\s+)?(?:do|send|review|confirm|check|let\s+me|` +
		`update|share|schedule|submit|complete|sign|approve|prepare|` +
		`create|follow|reply|respond|help|take|get|add|fix|write|provide|` +
		`reach\s+out|look\s+into|look\s+at|make\s+sure|note\s+that)|` +
		`action\s+item|follow[- ]?up|next\s+step|assigned)\b`)
	reUrgent       = regexp.MustCompile(`(?i)\b(?:urgent|asap|immediately|critical|blocker|p0|p1|top\s+priority)\b`)
	reImportant    = regexp.MustCompile(`(?i)\b(?:important|high\s+priority|soon|today|eod|cob|end\s+of\s+day)\b`)
	reParenthetic  = regexp.MustCompile(`\([^)]*\)`)
	reBulletPrefix = regexp.MustCompile(`^[-•*>\x{25cf}]+\s*`)
	reSpaceRun     = regexp.MustCompile(`\s{2,}`)
)

// Extractor is a pure classifier: the same content always yields the same
// candidate list for a given clock day.
type Extractor struct {
	name    string
	first   string
	clock   func() time.Time
	logger  *zap.Logger
	reName  *regexp.Regexp
	reThird *regexp.Regexp
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithClock fixes the notion of "today" for date resolution; tests use this.
func WithClock(clock func() time.Time) Option {
	return func(e *Extractor) { e.clock = clock }
}

// New builds an extractor for the named person. fullName must carry at least
// a first name.
func New(fullName string, logger *zap.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := strings.Fields(fullName)
	first := fullName
	if len(fields) > 0 {
		first = fields[0]
	}
	e := &Extractor{
		name:   fullName,
		first:  first,
		clock:  time.Now,
		logger: logger,
	}
	namePat := `(?:` + regexp.QuoteMeta(fullName) + `|` + regexp.QuoteMeta(first) + `)`
	e.reName = regexp.MustCompile(`(?i)(?:^|[\s,;:(\[@])` + namePat + `(?:\b|$)`)
	e.reThird = regexp.MustCompile(`(?i)^` + namePat +
		`\s+(?:will|is|was|has|had|can|could|would|should|may|might)\b`)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract classifies content into zero or more candidates, preserving input
// line order. It has no side effects beyond diagnostic logging.
func (e *Extractor) Extract(sourceKind, content string) []domain.Candidate {
	today := e.clock()
	lines := segment(content)

	var items []domain.Candidate
	seenKeys := make(map[string]struct{})

	for i, line := range lines {
		if reason, skip := skipReason(line); skip {
			e.logger.Debug("line skipped",
				zap.String("rule", reason),
				zap.String("source", sourceKind))
			continue
		}

		// Include the next line for context ("Justin:" followed by the
		// actual ask on the next line).
		ctx := line
		if i+1 < len(lines) {
			ctx += " " + lines[i+1]
		}

		hasName := e.reName.MatchString(ctx)
		hasTrigger := reTrigger.MatchString(ctx)
		if !hasName && !hasTrigger {
			continue
		}

		if hasName && !hasTrigger {
			// A name appearing only inside parentheses is a role label,
			// not a directive.
			if !e.reName.MatchString(reParenthetic.ReplaceAllString(ctx, " ")) {
				continue
			}
			// Third-person descriptions talk about the person, not to them.
			if e.reThird.MatchString(line) {
				continue
			}
		}

		if hasTrigger && !hasName {
			if !reDirective.MatchString(line) {
				continue
			}
			if wordCount(line) < 5 {
				continue
			}
		}

		text := cleanText(line)
		n := len([]rune(text))
		if n < minTextLen || n > maxTextLen {
			continue
		}

		key := dedupKey(text)
		if _, dup := seenKeys[key]; dup {
			continue
		}
		seenKeys[key] = struct{}{}

		item := domain.Candidate{
			Text:     text,
			DueDate:  extractDue(ctx, today),
			Priority: inferPriority(ctx),
		}
		items = append(items, item)
		e.logger.Debug("candidate extracted",
			zap.String("priority", item.Priority),
			zap.String("due", item.DueDate),
			zap.String("text", clip(text, 80)))
	}
	return items
}

// segment splits content into line-like units on newlines and
// sentence-ending punctuation.
func segment(content string) []string {
	broken := reSentenceEnd.ReplaceAllString(content, "$1\n")
	var out []string
	for _, part := range reLineBreak.Split(broken, -1) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func inferPriority(sentence string) string {
	if reUrgent.MatchString(sentence) || reImportant.MatchString(sentence) {
		return domain.PriorityHigh
	}
	return domain.PriorityMedium
}

// cleanText strips leading bullet glyphs, collapses whitespace runs, and
// capitalizes the first letter.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	s = reBulletPrefix.ReplaceAllString(s, "")
	s = reSpaceRun.ReplaceAllString(s, " ")
	runes := []rune(s)
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return string(runes)
}

func dedupKey(text string) string {
	return clip(strings.ToLower(text), dedupPrefixLen)
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
