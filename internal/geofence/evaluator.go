package geofence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/notexe/forget-me-not/internal/geo"
	"github.com/notexe/forget-me-not/internal/notify"
	"github.com/notexe/forget-me-not/internal/reminder"
	"go.uber.org/zap"
)

// DefaultCooldown is the minimum time between two triggers of one reminder.
const DefaultCooldown = 15 * time.Minute

// DefaultTitle is the notification title.
const DefaultTitle = "Forget Me Not!"

// Reminders is the part of the reminder repository the evaluator uses.
type Reminders interface {
	ListActive() []reminder.Reminder
	RecordTrigger(ids ...string) int
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithCooldown sets the minimum time between two triggers of one reminder.
func WithCooldown(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) { e.cooldown = d }
}

// WithTitle sets the notification title.
func WithTitle(title string) EvaluatorOption {
	return func(e *Evaluator) { e.title = title }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

// WithEvaluatorLogger sets the logger. The evaluator names itself "evaluator".
func WithEvaluatorLogger(l *zap.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l.Named("evaluator")
		}
	}
}

// Result summarizes one evaluation pass.
type Result struct {
	Fix        Fix      `json:"fix"`
	Active     int      `json:"active"`
	Candidates int      `json:"candidates"`
	Fired      []string `json:"fired"`
	CoolingOff []string `json:"coolingOff"`
	Failed     []string `json:"failed"`
}

// Evaluator decides which reminders fire for a position.
//
// Passes are serialized: each pass snapshots the active reminders, and the
// next pass only starts after the previous one recorded its triggers, so a
// reminder is never fired twice inside one cooldown window.
type Evaluator struct {
	pass sync.Mutex

	reminders  Reminders
	dispatcher notify.Dispatcher
	cooldown   time.Duration
	title      string
	now        func() time.Time
	logger     *zap.Logger
}

// NewEvaluator creates an Evaluator that notifies through dispatcher.
func NewEvaluator(reminders Reminders, dispatcher notify.Dispatcher, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		reminders:  reminders,
		dispatcher: dispatcher,
		cooldown:   DefaultCooldown,
		title:      DefaultTitle,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs one pass for the position in fix. Every reminder inside its
// radius whose cooldown has elapsed gets a notification; the ones that were
// dispatched successfully are then recorded in a single batch. A failed
// dispatch is logged and leaves the reminder eligible for the next pass.
//
// Delivery is at-least-once: a crash between dispatch and RecordTrigger
// lets the reminder fire again on the next pass.
func (e *Evaluator) Evaluate(ctx context.Context, fix Fix) Result {
	e.pass.Lock()
	defer e.pass.Unlock()

	active := e.reminders.ListActive()
	now := e.now()
	res := Result{Fix: fix, Active: len(active)}

	for _, r := range active {
		d := geo.Distance(fix.Latitude, fix.Longitude, r.Location.Latitude, r.Location.Longitude)
		if d > float64(r.Location.Radius) {
			continue
		}
		res.Candidates++

		if !r.CooledDown(now, e.cooldown) {
			res.CoolingOff = append(res.CoolingOff, r.ID)
			continue
		}

		if err := e.dispatcher.Notify(ctx, e.notification(r)); err != nil {
			e.logger.Warn("failed to dispatch reminder notification",
				zap.String("id", r.ID),
				zap.Float64("distance_m", d),
				zap.Error(err))
			res.Failed = append(res.Failed, r.ID)
			continue
		}

		e.logger.Info("reminder fired",
			zap.String("id", r.ID),
			zap.String("location", r.Location.Name),
			zap.Float64("distance_m", d))
		res.Fired = append(res.Fired, r.ID)
	}

	if len(res.Fired) > 0 {
		e.reminders.RecordTrigger(res.Fired...)
	}

	e.logger.Debug("proximity pass complete",
		zap.Int("active", res.Active),
		zap.Int("candidates", res.Candidates),
		zap.Int("fired", len(res.Fired)),
		zap.Int("failed", len(res.Failed)))
	return res
}

func (e *Evaluator) notification(r reminder.Reminder) notify.Notification {
	return notify.Notification{
		Title:   e.title,
		Body:    fmt.Sprintf("%s at %s", r.Text, r.Location.Name),
		Payload: map[string]string{"reminderId": r.ID},
	}
}
