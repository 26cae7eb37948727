package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/notexe/forget-me-not/internal/notify"
	"go.uber.org/zap"
)

// DefaultDueTitle is the title of overdue task notifications.
const DefaultDueTitle = "Task due"

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithDueTitle sets the notification title.
func WithDueTitle(title string) SchedulerOption {
	return func(s *Scheduler) { s.title = title }
}

// WithSchedulerClock replaces time.Now.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(l *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l.Named("scheduler")
		}
	}
}

// Scheduler periodically announces todos whose due date has passed. Each
// todo is announced once; a failed dispatch is retried on the next tick.
type Scheduler struct {
	todos      *Repository
	dispatcher notify.Dispatcher
	interval   time.Duration
	title      string
	now        func() time.Time
	logger     *zap.Logger
}

// NewScheduler creates a Scheduler checking todos every interval.
func NewScheduler(todos *Repository, dispatcher notify.Dispatcher, interval time.Duration, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		todos:      todos,
		dispatcher: dispatcher,
		interval:   interval,
		title:      DefaultDueTitle,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run checks immediately and then on every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}

	s.logger.Info("started", zap.Duration("interval", s.interval))

	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick announces every overdue todo not announced yet and returns the ids
// that were dispatched.
func (s *Scheduler) Tick(ctx context.Context) []string {
	due := s.todos.Due(s.now())
	if len(due) == 0 {
		return nil
	}

	var sent []string
	for _, t := range due {
		if err := s.dispatcher.Notify(ctx, s.notification(t)); err != nil {
			s.logger.Warn("failed to dispatch due notification", zap.String("id", t.ID), zap.Error(err))
			continue
		}
		sent = append(sent, t.ID)
	}

	if len(sent) > 0 {
		s.todos.MarkNotified(ctx, sent...)
		s.logger.Info("due todos announced", zap.Int("count", len(sent)))
	}
	return sent
}

func (s *Scheduler) notification(t Todo) notify.Notification {
	return notify.Notification{
		Title:   s.title,
		Body:    fmt.Sprintf("%s (due %s)", t.Text, t.DueDate.Format(time.DateOnly)),
		Payload: map[string]string{"todoId": t.ID},
	}
}
