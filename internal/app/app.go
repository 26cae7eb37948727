// Package app wires configuration, persistence, geofencing and notification
// delivery into one running engine shared by the console and MCP front-ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/notexe/forget-me-not/internal/config"
	"github.com/notexe/forget-me-not/internal/geo"
	"github.com/notexe/forget-me-not/internal/geofence"
	"github.com/notexe/forget-me-not/internal/kvstore"
	"github.com/notexe/forget-me-not/internal/logging"
	"github.com/notexe/forget-me-not/internal/notify"
	"github.com/notexe/forget-me-not/internal/platform"
	"github.com/notexe/forget-me-not/internal/reminder"
	"github.com/notexe/forget-me-not/internal/todo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoDispatcher is returned when every notification channel is disabled.
var ErrNoDispatcher = errors.New("no notification channel enabled")

type options struct {
	kv         kvstore.Store
	console    io.Writer
	dispatcher notify.Dispatcher
	now        func() time.Time
	onResult   []func(geofence.Result)
}

// Option customizes New.
type Option func(*options)

// WithKVStore uses kv instead of opening the configured backend.
func WithKVStore(kv kvstore.Store) Option {
	return func(o *options) { o.kv = kv }
}

// WithConsoleOutput sets where console alerts are printed. Defaults to stdout.
func WithConsoleOutput(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithDispatcher replaces the configured notification channels.
func WithDispatcher(d notify.Dispatcher) Option {
	return func(o *options) { o.dispatcher = d }
}

// WithClock replaces time.Now across the engine.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithResultHandler receives every evaluation pass run by the worker.
func WithResultHandler(fn func(geofence.Result)) Option {
	return func(o *options) { o.onResult = append(o.onResult, fn) }
}

// App holds the engine's components. It is built once by New and torn down
// by Close.
type App struct {
	Config    *config.Config
	Reminders *reminder.Repository
	Location  *platform.SimulatedProvider
	Session   *geofence.Session
	Evaluator *geofence.Evaluator
	Worker    *geofence.Worker
	Todos     *todo.Repository
	Due       *todo.Scheduler

	kv     kvstore.Store
	now    func() time.Time
	logger *zap.Logger
}

// New builds the engine and loads the persisted reminders and todos.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	logger = logging.OrNop(logger)
	o := options{console: os.Stdout, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	dispatcher := o.dispatcher
	if dispatcher == nil {
		d, err := dispatchers(cfg.Notify, cfg.UI, o.console, logger)
		if err != nil {
			return nil, err
		}
		dispatcher = d
	}

	kv := o.kv
	if kv == nil {
		var err error
		kv, err = kvstore.Open(ctx, &cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
	}

	a := &App{Config: cfg, kv: kv, now: o.now, logger: logger}

	a.Reminders = reminder.NewRepository(
		reminder.NewStore(kv, cfg.Store.Key),
		reminder.WithClock(o.now),
		reminder.WithLogger(logger),
		reminder.WithLimits(reminder.Limits{
			MinRadius:     cfg.Geofence.MinRadius,
			MaxRadius:     cfg.Geofence.MaxRadius,
			DefaultRadius: cfg.Geofence.DefaultRadius,
		}),
	)
	if err := a.Reminders.Load(ctx); err != nil {
		kv.Close()
		return nil, err
	}

	a.Todos = todo.NewRepository(
		todo.NewStore(kv, cfg.Todo.Key),
		todo.WithClock(o.now),
		todo.WithLogger(logger),
	)
	if err := a.Todos.Load(ctx); err != nil {
		kv.Close()
		return nil, err
	}
	if cfg.Todo.CheckIntervalSeconds > 0 {
		a.Due = todo.NewScheduler(a.Todos, dispatcher, cfg.Todo.CheckInterval(),
			todo.WithDueTitle(cfg.Todo.DueTitle),
			todo.WithSchedulerClock(o.now),
			todo.WithSchedulerLogger(logger),
		)
	}

	a.Evaluator = geofence.NewEvaluator(a.Reminders, dispatcher,
		geofence.WithCooldown(cfg.Geofence.Cooldown()),
		geofence.WithTitle(cfg.Notify.Title),
		geofence.WithClock(o.now),
		geofence.WithEvaluatorLogger(logger),
	)

	a.Location = platform.NewSimulatedProvider(logger)
	a.Location.SetClock(o.now)

	workerOpts := []geofence.WorkerOption{geofence.WithWorkerLogger(logger)}
	for _, fn := range o.onResult {
		workerOpts = append(workerOpts, geofence.WithResultHandler(fn))
	}

	// The worker is created before the session so the session callback can
	// feed it; the idle handler is attached once the session exists.
	var session *geofence.Session
	workerOpts = append(workerOpts, geofence.WithIdleHandler(func() bool {
		return session.StopIfIdle()
	}))
	a.Worker = geofence.NewWorker(a.Evaluator, cfg.Geofence.QueueSize, workerOpts...)

	var activeCount func() int
	if cfg.Geofence.StopWhenIdle {
		activeCount = func() int { return len(a.Reminders.ListActive()) }
	}

	session = geofence.NewSession(
		a.Location,
		platform.NewStaticPermissions(cfg.Permissions),
		geofence.UpdateConfig{
			Accuracy:    cfg.Geofence.Accuracy,
			MinInterval: cfg.Geofence.MinInterval(),
			MinDistance: float64(cfg.Geofence.MinDistanceM),
		},
		a.Worker.Deliver,
		geofence.WithStopWhenIdle(activeCount),
		geofence.WithSessionLogger(logger),
	)
	a.Session = session
	a.Reminders.OnCreate(session.HandleActivated)
	a.Reminders.OnActivate(session.HandleActivated)

	return a, nil
}

func dispatchers(cfg config.NotifyConfig, ui config.UIConfig, console io.Writer, logger *zap.Logger) (notify.Dispatcher, error) {
	var multi notify.Multi
	if cfg.Console && console != nil {
		multi = append(multi, notify.NewConsole(console, ui.ColoredOutput))
	}
	if cfg.Log {
		multi = append(multi, notify.NewLog(logger))
	}
	if cfg.Telegram.Enabled() {
		multi = append(multi, notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	if len(multi) == 0 {
		return nil, ErrNoDispatcher
	}
	return multi, nil
}

// Start resolves permissions and, when there is something to watch, starts
// location updates. Missing permission leaves geofencing inactive without
// failing startup. With nothing to watch, the first reminder created or
// reopened starts them.
func (a *App) Start(ctx context.Context) {
	a.Session.RequestPermissions(ctx)
	if len(a.Reminders.ListActive()) == 0 {
		a.logger.Info("no active reminders; location updates deferred")
		return
	}
	if err := a.Session.EnsureStarted(ctx, a.Session.Ready()); err != nil {
		a.logger.Warn("geofencing inactive", zap.Error(err))
	}
}

// Run processes location fixes and, when enabled, announces overdue todos
// until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Worker.Run(gctx)
	})
	if a.Due != nil {
		g.Go(func() error {
			return a.Due.Run(gctx)
		})
	}
	return g.Wait()
}

// ReportLocation offers a position to the location provider. The fix is
// evaluated asynchronously by the worker. It reports whether the provider
// delivered the fix; fixes inside the update cadence window are dropped.
func (a *App) ReportLocation(lat, lon float64) (bool, error) {
	if err := a.checkPosition(lat, lon); err != nil {
		return false, err
	}
	if a.Session.State() != geofence.Active {
		return false, a.inactiveErr()
	}
	return a.Location.Push(lat, lon), nil
}

// CheckProximity runs one evaluation pass for the position immediately and
// returns its result. Geofencing must be active.
func (a *App) CheckProximity(ctx context.Context, lat, lon float64) (geofence.Result, error) {
	if err := a.checkPosition(lat, lon); err != nil {
		return geofence.Result{}, err
	}
	if a.Session.State() != geofence.Active {
		return geofence.Result{}, a.inactiveErr()
	}
	res := a.Evaluator.Evaluate(ctx, geofence.Fix{Latitude: lat, Longitude: lon, Timestamp: a.now()})
	a.Session.StopIfIdle()
	return res, nil
}

func (a *App) checkPosition(lat, lon float64) error {
	if !(geo.Point{Latitude: lat, Longitude: lon}).Valid() {
		return &reminder.ValidationError{Field: "position", Reason: "coordinates out of range"}
	}
	return nil
}

func (a *App) inactiveErr() error {
	if !a.Session.Ready() {
		return fmt.Errorf("%w: %w", geofence.ErrInactive, geofence.ErrPermissionDenied)
	}
	return geofence.ErrInactive
}

// Status summarizes the engine for display.
type Status struct {
	Session    string        `json:"session"`
	Permission string        `json:"permission"`
	Ready      bool          `json:"ready"`
	Active     int           `json:"active"`
	Completed  int           `json:"completed"`
	OpenTodos  int           `json:"openTodos"`
	DueTodos   int           `json:"dueTodos"`
	Backend    string        `json:"backend"`
	Cooldown   string        `json:"cooldown"`
	LastFix    *geofence.Fix `json:"lastFix,omitempty"`
}

// Status returns a snapshot of the engine state.
func (a *App) Status() Status {
	st := Status{
		Session:    a.Session.State().String(),
		Permission: string(a.Session.PermissionLevel()),
		Ready:      a.Session.Ready(),
		Active:     len(a.Reminders.ListActive()),
		Completed:  len(a.Reminders.ListCompleted()),
		OpenTodos:  len(a.Todos.ListActive()),
		DueTodos:   a.overdueTodos(),
		Backend:    a.Config.Store.Backend,
		Cooldown:   a.Config.Geofence.Cooldown().String(),
	}
	if fix, ok := a.Location.Last(); ok {
		st.LastFix = &fix
	}
	return st
}

func (a *App) overdueTodos() int {
	now := a.now()
	n := 0
	for _, t := range a.Todos.ListActive() {
		if t.Overdue(now) {
			n++
		}
	}
	return n
}

// Close stops location updates, waits for pending writes and closes the
// store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Session.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Reminders.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush reminders: %w", err))
	}
	if err := a.kv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	return errors.Join(errs...)
}
