package scan

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/internal/extract"
	"github.com/fastygo/taskscan/internal/infrastructure/queue"
	"github.com/fastygo/taskscan/usecase/autotask"
)

var scanNow = time.Date(2026, time.August, 24, 10, 0, 0, 0, time.UTC)

type memStore struct {
	list *domain.TaskList
}

func (s *memStore) Load(context.Context) (*domain.TaskList, error) {
	cp := *s.list
	return &cp, nil
}

func (s *memStore) Save(_ context.Context, list *domain.TaskList) error {
	s.list = list
	return nil
}

type memLedger struct {
	marks map[string]int
}

func newMemLedger() *memLedger { return &memLedger{marks: map[string]int{}} }

func (l *memLedger) Seen(id string) bool { return l.marks[id] > 0 }
func (l *memLedger) Mark(id string) error {
	l.marks[id]++
	return nil
}

type fakeMail struct {
	messages []Message
	since    time.Time
}

func (f *fakeMail) Recent(_ context.Context, since time.Time) ([]Message, error) {
	f.since = since
	return f.messages, nil
}

type emailFixture struct {
	scanner *EmailScanner
	store   *memStore
	ledger  *memLedger
	queue   *queue.Queue
	mail    *fakeMail
}

func newEmailFixture(t *testing.T, messages []Message) *emailFixture {
	t.Helper()
	dir := t.TempDir()
	q, err := queue.New(
		filepath.Join(dir, "spool"),
		filepath.Join(dir, ".scan-trigger"),
		filepath.Join(dir, ".scan-companion-alive"),
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	store := &memStore{list: domain.NewTaskList()}
	ledger := newMemLedger()
	clock := func() time.Time { return scanNow }
	ext := extract.New("Justin Miller", nil, extract.WithClock(clock))
	merger := autotask.New(store, nil, autotask.WithClock(clock))
	routing := EmailRouting{
		SelfAddress:    "justin@pactum.com",
		TrustedDomain:  "pactum.com",
		NotesBotSender: "gemini-notes@google.com",
	}
	mail := &fakeMail{messages: messages}
	scanner := NewEmailScanner(mail, ledger, ext, merger, q, routing, nil)
	scanner.now = clock
	return &emailFixture{
		scanner: scanner,
		store:   store,
		ledger:  ledger,
		queue:   q,
		mail:    mail,
	}
}

func TestEmailListsFixedLookback(t *testing.T) {
	f := newEmailFixture(t, nil)
	if res := f.scanner.Scan(context.Background(), scanNow.Add(-time.Minute)); res.Err != nil {
		t.Fatal(res.Err)
	}
	want := scanNow.Add(-mailLookback)
	if !f.mail.since.Equal(want) {
		t.Errorf("listed since %v, want fixed lookback %v", f.mail.since, want)
	}
}

func TestStripQuoted(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			"attribution cut",
			"New paragraph.\n\nOn Tue, Jan 2 at 3:00 PM A <a@x.com> wrote:\n> old content",
			"New paragraph.",
		},
		{
			"wrapped attribution cut",
			"Before.\nOn Tue, Feb 24 at 3:13 AM Sara Bunjaku <\nbunjaks@ccf.org> wrote:\n> quoted",
			"Before.",
		},
		{
			"quoted lines and trailing blank dropped",
			"Keep this\n> quoted one\n> quoted two\n\nAfter quote",
			"Keep this\nAfter quote",
		},
		{
			"signature delimiter cut",
			"Body text\n----\nJustin Miller | +1 415 555 0134",
			"Body text",
		},
		{
			"plain body untouched",
			"Just a normal body\nwith two lines",
			"Just a normal body\nwith two lines",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripQuoted(tc.body); got != tc.want {
				t.Errorf("StripQuoted = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCalendarBodyNeedsTwoSignals(t *testing.T) {
	two := "Organizer: drew@pactum.com\nWhen: Tuesday Apr 28, 2026 9am"
	if !isCalendarBody(two) {
		t.Error("two signals not classified as calendar")
	}
	one := "When: let me know what works for you"
	if isCalendarBody(one) {
		t.Error("single signal classified as calendar")
	}
}

func TestEmailRoutingInternalDirectiveMerges(t *testing.T) {
	f := newEmailFixture(t, []Message{{
		ID:      "m1",
		Subject: "Q3 pricing",
		Sender:  "Drew Carlson <drew@pactum.com>",
		Body:    "Justin, can you follow up with Drew on pricing by Friday?",
	}})

	res := f.scanner.Scan(context.Background(), scanNow.Add(-time.Hour))
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Messages != 1 || res.Tasks != 1 || res.Queued != 0 {
		t.Errorf("result = %+v, want 1 message, 1 task, 0 queued", res)
	}
	task := f.store.list.Longterm[0]
	if task.Source != domain.SourceEmail || task.SourceDetail != "Q3 pricing" {
		t.Errorf("provenance = %q/%q", task.Source, task.SourceDetail)
	}
	if task.DueValue() != "2026-08-28" {
		t.Errorf("due = %q", task.DueValue())
	}
}

func TestEmailRoutingToQueue(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
	}{
		{"external sender", Message{
			ID:      "ext",
			Subject: "Contract question",
			Sender:  "Sara Bunjaku <bunjaks@ccf.org>",
			Body:    "Could you confirm the signature timeline for our team?",
		}},
		{"notes bot", Message{
			ID:      "notes",
			Subject: "Notes: weekly sync",
			Sender:  "gemini-notes@google.com",
			Body:    "Summary of the weekly sync with action items.",
		}},
		{"internal broadcast", Message{
			ID:      "digest",
			Subject: "Weekly alignment recap",
			Sender:  "mike@pactum.com",
			Body:    "Highlights from this week across teams.",
		}},
		{"notes bot quoting calendar boilerplate", Message{
			ID:      "notescal",
			Subject: "Notes: Q3 review",
			Sender:  "gemini-notes@google.com",
			Body:    "When: Tue Apr 28\nJoin Zoom Meeting\nAction items: Justin to send pricing.",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newEmailFixture(t, []Message{tc.msg})
			res := f.scanner.Scan(context.Background(), scanNow.Add(-time.Hour))
			if res.Err != nil {
				t.Fatal(res.Err)
			}
			if res.Queued != 1 || res.Tasks != 0 {
				t.Errorf("result = %+v, want queued only", res)
			}
			if n, _ := f.queue.Pending(); n != 1 {
				t.Errorf("spool holds %d items, want 1", n)
			}
		})
	}
}

func TestEmailRoutingDrops(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
	}{
		{"calendar subject", Message{
			ID:      "cal",
			Subject: "Invitation: Q3 review @ Tue Apr 28",
			Sender:  "drew@pactum.com",
			Body:    "Justin, please review the agenda before the call",
		}},
		{"calendar body", Message{
			ID:      "calbody",
			Subject: "Q3 review",
			Sender:  "drew@pactum.com",
			Body:    "Organizer: drew@pactum.com\nJoin Zoom Meeting\nhttps://zoom.us/j/123",
		}},
		{"automated sender", Message{
			ID:      "bot",
			Subject: "Build finished",
			Sender:  "notifications@github.com",
			Body:    "Your build finished, please check the logs now",
		}},
		{"self sender", Message{
			ID:      "self",
			Subject: "Note to self",
			Sender:  "Justin Miller <justin@pactum.com>",
			Body:    "Justin, remember to send the deck to the board",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newEmailFixture(t, []Message{tc.msg})
			res := f.scanner.Scan(context.Background(), scanNow.Add(-time.Hour))
			if res.Err != nil {
				t.Fatal(res.Err)
			}
			if res.Tasks != 0 || res.Queued != 0 {
				t.Errorf("result = %+v, want message dropped", res)
			}
			if !f.ledger.Seen("email_" + tc.msg.ID) {
				t.Error("dropped message not marked processed")
			}
		})
	}
}

func TestEmailMarksEveryPathExactlyOnce(t *testing.T) {
	f := newEmailFixture(t, []Message{
		{ID: "a", Subject: "Q3", Sender: "drew@pactum.com",
			Body: "Justin, please send the revised deck to the team"},
		{ID: "b", Subject: "Hello", Sender: "bunjaks@ccf.org", Body: "External ask"},
		{ID: "c", Subject: "Accepted: standup", Sender: "drew@pactum.com", Body: ""},
	})
	if res := f.scanner.Scan(context.Background(), scanNow.Add(-time.Hour)); res.Err != nil {
		t.Fatal(res.Err)
	}
	for _, id := range []string{"email_a", "email_b", "email_c"} {
		if got := f.ledger.marks[id]; got != 1 {
			t.Errorf("%s marked %d times, want 1", id, got)
		}
	}
}

func TestEmailSkipsAlreadyProcessed(t *testing.T) {
	msg := Message{ID: "seen", Subject: "Q3", Sender: "drew@pactum.com",
		Body: "Justin, please send the revised deck to the team"}
	f := newEmailFixture(t, []Message{msg})
	if err := f.ledger.Mark("email_seen"); err != nil {
		t.Fatal(err)
	}

	res := f.scanner.Scan(context.Background(), scanNow.Add(-time.Hour))
	if res.Messages != 0 || res.Tasks != 0 {
		t.Errorf("result = %+v, want processed message skipped", res)
	}
	if f.ledger.marks["email_seen"] != 1 {
		t.Error("skipped message was re-marked")
	}
}
