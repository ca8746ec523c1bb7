// Package services hosts the background jobs that run beside the scan
// pipeline.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/taskscan/domain"
	"github.com/fastygo/taskscan/repository"
)

// Notifier delivers a reminder to the tracked user. Delivery is best-effort;
// reminders are regenerated on the next schedule anyway.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// LogNotifier writes reminders to the log. It is the fallback when no
// delivery channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, subject, body string) error {
	n.logger.Info("reminder",
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

// ReminderConfig sets the reminder schedules and alert windows.
type ReminderConfig struct {
	// MorningSpec and AfternoonSpec are cron expressions with seconds.
	MorningSpec   string
	AfternoonSpec string
	// DueThresholds lists the days-until-due values that fire a morning
	// alert for longterm tasks.
	DueThresholds []int
}

// ReminderService runs the two daily reminder jobs: an afternoon digest of
// unfinished today tasks and a morning alert for longterm tasks approaching
// their due dates.
type ReminderService struct {
	store    repository.TaskStore
	notifier Notifier
	cfg      ReminderConfig
	logger   *zap.Logger
	cron     *cron.Cron
	now      func() time.Time
}

func NewReminderService(store repository.TaskStore, notifier Notifier, cfg ReminderConfig, logger *zap.Logger) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *ReminderService) Start() error {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(s.cfg.AfternoonSpec, s.runAfternoonDigest); err != nil {
		return fmt.Errorf("schedule afternoon digest: %w", err)
	}
	if _, err := c.AddFunc(s.cfg.MorningSpec, s.runMorningAlerts); err != nil {
		return fmt.Errorf("schedule morning alerts: %w", err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("reminders scheduled",
		zap.String("morning", s.cfg.MorningSpec),
		zap.String("afternoon", s.cfg.AfternoonSpec))
	return nil
}

// Stop halts the scheduler and waits for running jobs up to the context
// deadline.
func (s *ReminderService) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ReminderService) runAfternoonDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	list, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("digest load failed", zap.Error(err))
		return
	}
	subject, body, ok := afternoonDigest(list)
	if !ok {
		return
	}
	s.send(subject, body)
}

func (s *ReminderService) runMorningAlerts() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	list, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("alerts load failed", zap.Error(err))
		return
	}
	subject, body, ok := morningAlerts(list, s.now(), s.cfg.DueThresholds)
	if !ok {
		return
	}
	s.send(subject, body)
}

// send delivers in the background so a slow channel never stalls the
// scheduler.
func (s *ReminderService) send(subject, body string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.notifier.Notify(ctx, subject, body); err != nil {
			s.logger.Warn("reminder delivery failed",
				zap.String("subject", subject),
				zap.Error(err))
		}
	}()
}

// afternoonDigest summarizes unfinished tasks in the today bucket.
func afternoonDigest(list *domain.TaskList) (subject, body string, ok bool) {
	var open []domain.Task
	for _, t := range list.Today {
		if !t.Done {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		return "", "", false
	}
	var b strings.Builder
	for _, t := range open {
		fmt.Fprintf(&b, "- [%s] %s", t.Priority, t.Text)
		if due := t.DueValue(); due != "" {
			fmt.Fprintf(&b, " (due %s)", due)
		}
		b.WriteByte('\n')
	}
	subject = fmt.Sprintf("%d open tasks for today", len(open))
	return subject, b.String(), true
}

// morningAlerts lists unfinished longterm tasks whose days-until-due hits
// one of the thresholds. Overdue tasks always alert.
func morningAlerts(list *domain.TaskList, now time.Time, thresholds []int) (subject, body string, ok bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	hit := make(map[int]bool, len(thresholds))
	for _, d := range thresholds {
		hit[d] = true
	}

	var due []string
	for _, t := range list.Longterm {
		dueDate := t.DueValue()
		if t.Done || dueDate == "" {
			continue
		}
		d, err := time.ParseInLocation(domain.DateLayout, dueDate, now.Location())
		if err != nil {
			continue
		}
		daysLeft := int(d.Sub(today).Hours() / 24)
		switch {
		case daysLeft < 0:
			due = append(due, fmt.Sprintf("- OVERDUE %s (was due %s)", t.Text, dueDate))
		case hit[daysLeft]:
			due = append(due, fmt.Sprintf("- %s due in %d day(s) on %s", t.Text, daysLeft, dueDate))
		}
	}
	if len(due) == 0 {
		return "", "", false
	}
	subject = fmt.Sprintf("%d upcoming deadlines", len(due))
	return subject, strings.Join(due, "\n") + "\n", true
}
