// Package scan walks the inbound channels (mail, chat mentions, call
// transcripts), routes each message to the deterministic extractor or the
// external-agent queue, and merges the results into the task list. Every
// message is marked in the processed ledger exactly once regardless of route.
package scan

import (
	"context"
	"time"
)

// Message is a normalized inbound item from any feed.
type Message struct {
	ID        string
	Subject   string
	Sender    string
	Body      string
	Channel   string
	Timestamp time.Time
}

// Call is one recorded call with its transcript flattened to
// "Speaker: text" lines.
type Call struct {
	ID         string
	Title      string
	Started    time.Time
	Transcript string
}

// MailFeed lists inbox messages received since the given time.
type MailFeed interface {
	Recent(ctx context.Context, since time.Time) ([]Message, error)
}

// ChatFeed finds chat messages mentioning the tracked user since the given
// time.
type ChatFeed interface {
	Mentions(ctx context.Context, since time.Time) ([]Message, error)
}

// CallFeed lists calls that started since the given time.
type CallFeed interface {
	Calls(ctx context.Context, since time.Time) ([]Call, error)
}

// Result is one scanner's outcome for a cycle.
type Result struct {
	Scanner  string
	Messages int
	Tasks    int
	Queued   int
	Err      error
}

// Scanner processes one channel for a cycle. Scan must honor ctx
// cancellation; the orchestrator abandons scanners that outlive their
// deadline.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, since time.Time) Result
}
