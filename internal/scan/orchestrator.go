package scan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/internal/infrastructure/queue"
	"github.com/fastygo/taskscan/internal/infrastructure/scanlog"
)

// Cycle trigger kinds.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// Orchestrator states.
const (
	StateIdle    = "idle"
	StateRunning = "running"
)

// Status is the externally visible orchestrator state.
type Status struct {
	State string         `json:"state"`
	Last  *scanlog.Entry `json:"last,omitempty"`
	Next  *time.Time     `json:"next,omitempty"`
}

// Orchestrator runs all scanners as one cycle, at most one cycle at a time.
// Scheduled cycles rearm from completion, so the interval measures gap
// between runs rather than wall-clock cadence.
type Orchestrator struct {
	scanners       []Scanner
	log            *scanlog.Store
	queue          *queue.Queue
	logger         *zap.Logger
	interval       time.Duration
	scannerTimeout time.Duration
	startDelay     time.Duration

	// runMu is held for the whole cycle; TryLock makes triggers non-blocking.
	runMu sync.Mutex

	stateMu sync.RWMutex
	running bool
	last    *scanlog.Entry
	// cleanSince is the finish time of the last cycle that completed with
	// no scanner error and nothing abandoned. The scan window never
	// advances past a failed cycle: its unledgered messages must be
	// re-offered next time.
	cleanSince time.Time
	next       *time.Time
	timer      *time.Timer
	stopped    bool

	wg sync.WaitGroup
}

func NewOrchestrator(scanners []Scanner, log *scanlog.Store, q *queue.Queue,
	interval, scannerTimeout, startDelay time.Duration, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		scanners:       scanners,
		log:            log,
		queue:          q,
		logger:         logger,
		interval:       interval,
		scannerTimeout: scannerTimeout,
		startDelay:     startDelay,
	}
}

// Start arms the first scheduled cycle after the start delay.
func (o *Orchestrator) Start() {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	if last, ok, err := o.log.Last(); err == nil && ok {
		o.last = &last
		if last.Error == "" && last.Abandoned == 0 {
			o.cleanSince = last.Finished
		}
	}
	at := time.Now().Add(o.startDelay)
	o.next = &at
	o.timer = time.AfterFunc(o.startDelay, o.scheduledFire)
	o.logger.Info("scan schedule armed",
		zap.Duration("start_delay", o.startDelay),
		zap.Duration("interval", o.interval))
}

// Stop cancels the schedule and waits for an in-flight cycle to finish, up
// to the context deadline.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.stateMu.Lock()
	o.stopped = true
	if o.timer != nil {
		o.timer.Stop()
	}
	o.next = nil
	o.stateMu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger starts a cycle without blocking. A cycle already in flight makes
// the trigger a no-op: the request is dropped, not queued.
func (o *Orchestrator) Trigger(trigger string) error {
	if !o.runMu.TryLock() {
		o.logger.Info("scan trigger dropped, cycle in flight", zap.String("trigger", trigger))
		return domain.ErrScanRunning
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.runMu.Unlock()
		o.cycle(trigger)
	}()
	return nil
}

// Status reports the current state, the last recorded cycle, and the next
// scheduled run.
func (o *Orchestrator) Status() Status {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	st := Status{State: StateIdle, Last: o.last, Next: o.next}
	if o.running {
		st.State = StateRunning
	}
	return st
}

func (o *Orchestrator) scheduledFire() {
	// Busy means a manual cycle is in flight; its completion rearms the
	// schedule, so a dropped fire is not lost.
	_ = o.Trigger(TriggerScheduled)
}

func (o *Orchestrator) cycle(trigger string) {
	started := time.Now()
	since := started.Add(-o.interval)

	o.stateMu.Lock()
	o.running = true
	o.next = nil
	if !o.cleanSince.IsZero() {
		since = o.cleanSince
	}
	o.stateMu.Unlock()

	o.logger.Info("scan cycle started",
		zap.String("trigger", trigger),
		zap.Time("since", since))

	if trigger == TriggerManual && o.queue != nil {
		// A manual scan also nudges the external agent.
		if err := o.queue.WriteTrigger(); err != nil {
			o.logger.Warn("trigger file write failed", zap.Error(err))
		}
	}

	entry := o.runScanners(trigger, started, since)

	if err := o.log.Record(entry); err != nil {
		o.logger.Error("scan log record failed", zap.Error(err))
	}

	o.stateMu.Lock()
	o.running = false
	o.last = &entry
	if entry.Error == "" && entry.Abandoned == 0 {
		o.cleanSince = entry.Finished
	}
	if !o.stopped {
		at := time.Now().Add(o.interval)
		o.next = &at
		o.timer = time.AfterFunc(o.interval, o.scheduledFire)
	}
	o.stateMu.Unlock()

	o.logger.Info("scan cycle finished",
		zap.String("trigger", trigger),
		zap.Duration("took", entry.Finished.Sub(entry.Started)),
		zap.Int("messages", entry.Messages),
		zap.Int("tasks", entry.Tasks),
		zap.Int("queued", entry.Queued),
		zap.Int("abandoned", entry.Abandoned))
}

// runScanners fans the cycle out to every scanner and waits a bounded time
// for them to report back. The timeout bounds the wait only: scanners that
// outlive it are counted as abandoned and keep running, their writes still
// land through the ledger and the merger, only their counts are lost.
func (o *Orchestrator) runScanners(trigger string, started, since time.Time) scanlog.Entry {
	ctx := context.Background()

	results := make(chan Result, len(o.scanners))
	for _, sc := range o.scanners {
		go func(sc Scanner) {
			results <- sc.Scan(ctx, since)
		}(sc)
	}

	entry := scanlog.Entry{
		ID:      uuid.NewString(),
		Trigger: trigger,
		Started: started,
	}
	deadline := time.NewTimer(o.scannerTimeout)
	defer deadline.Stop()

	collected := 0
collect:
	for collected < len(o.scanners) {
		select {
		case res := <-results:
			collected++
			entry.Messages += res.Messages
			entry.Tasks += res.Tasks
			entry.Queued += res.Queued
			if res.Err != nil {
				o.logger.Error("scanner failed",
					zap.String("scanner", res.Scanner),
					zap.Error(res.Err))
				if entry.Error == "" {
					entry.Error = res.Scanner + ": " + res.Err.Error()
				}
			}
		case <-deadline.C:
			break collect
		}
	}
	entry.Abandoned = len(o.scanners) - collected
	if entry.Abandoned > 0 {
		o.logger.Warn("scanners abandoned", zap.Int("count", entry.Abandoned))
	}
	entry.Finished = time.Now()
	return entry
}
