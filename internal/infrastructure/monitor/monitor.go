// Package monitor periodically probes the pieces the pipeline depends on and
// caches the result for the health endpoint.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskscan/internal/infrastructure/queue"
	"github.com/fastygo/taskscan/repository"
)

// Check is one probed dependency.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Status is the cached health snapshot.
type Status struct {
	Online    bool      `json:"online"`
	Checks    []Check   `json:"checks"`
	CheckedAt time.Time `json:"checked_at"`
}

// Monitor refreshes a health snapshot on a fixed interval. The companion
// heartbeat is reported but does not gate Online: the external agent is a
// separate process with its own lifecycle.
type Monitor struct {
	store           repository.TaskStore
	queue           *queue.Queue
	feeds           int
	interval        time.Duration
	heartbeatMaxAge time.Duration
	logger          *zap.Logger

	mu     sync.RWMutex
	status Status

	stop chan struct{}
	done chan struct{}
}

// New builds a monitor. feeds is the number of scan channels that came up
// with credentials; zero feeds is reported but does not take health down.
func New(store repository.TaskStore, q *queue.Queue, feeds int, interval, heartbeatMaxAge time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		store:           store,
		queue:           q,
		feeds:           feeds,
		interval:        interval,
		heartbeatMaxAge: heartbeatMaxAge,
		logger:          logger,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// Start runs the first probe synchronously, then refreshes in the background.
func (m *Monitor) Start() {
	m.refresh()
	go m.loop()
}

// Stop halts the refresh loop.
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Monitor) loop() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.refresh()
		case <-m.stop:
			return
		}
	}
}

// IsOnline reports the cached overall health.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Online
}

// GetStatus returns the cached snapshot.
func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	checks := []Check{
		m.checkStore(ctx),
		m.checkQueue(),
		m.checkCompanion(),
		m.checkFeeds(),
	}
	online := true
	for _, c := range checks[:2] {
		if !c.OK {
			online = false
		}
	}

	m.mu.Lock()
	prev := m.status.Online
	m.status = Status{Online: online, Checks: checks, CheckedAt: time.Now()}
	m.mu.Unlock()

	if prev != online {
		m.logger.Warn("health changed", zap.Bool("online", online))
	}
}

func (m *Monitor) checkStore(ctx context.Context) Check {
	if _, err := m.store.Load(ctx); err != nil {
		return Check{Name: "task_store", Detail: err.Error()}
	}
	return Check{Name: "task_store", OK: true}
}

func (m *Monitor) checkQueue() Check {
	n, err := m.queue.Pending()
	if err != nil {
		return Check{Name: "queue", Detail: err.Error()}
	}
	c := Check{Name: "queue", OK: true}
	if n > 0 {
		c.Detail = "pending items"
	}
	return c
}

func (m *Monitor) checkCompanion() Check {
	if m.queue.CompanionAlive(m.heartbeatMaxAge) {
		return Check{Name: "companion", OK: true}
	}
	return Check{Name: "companion", Detail: "heartbeat stale or missing"}
}

func (m *Monitor) checkFeeds() Check {
	if m.feeds > 0 {
		return Check{Name: "feeds", OK: true}
	}
	return Check{Name: "feeds", Detail: "none configured"}
}
