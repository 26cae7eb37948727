package geofence

import (
	"context"

	"go.uber.org/zap"
)

// Worker owns the evaluator for the life of a location subscription. The
// subscription callback hands fixes to Deliver; Run evaluates them one at a
// time.
type Worker struct {
	evaluator *Evaluator
	fixes     chan Fix
	onResult  []func(Result)
	onIdle    func() bool
	logger    *zap.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithResultHandler registers fn to receive every pass result.
func WithResultHandler(fn func(Result)) WorkerOption {
	return func(w *Worker) { w.onResult = append(w.onResult, fn) }
}

// WithIdleHandler registers fn to run after each pass, typically
// Session.StopIfIdle.
func WithIdleHandler(fn func() bool) WorkerOption {
	return func(w *Worker) { w.onIdle = fn }
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(l *zap.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l.Named("worker")
		}
	}
}

// NewWorker returns a worker buffering up to queueSize pending fixes.
func NewWorker(evaluator *Evaluator, queueSize int, opts ...WorkerOption) *Worker {
	if queueSize < 1 {
		queueSize = 1
	}
	w := &Worker{
		evaluator: evaluator,
		fixes:     make(chan Fix, queueSize),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Deliver queues a fix without blocking. When the queue is full the oldest
// pending fix is dropped; only the latest position matters.
func (w *Worker) Deliver(fix Fix) {
	for {
		select {
		case w.fixes <- fix:
			return
		default:
		}

		select {
		case dropped := <-w.fixes:
			w.logger.Debug("dropping stale location fix",
				zap.Time("timestamp", dropped.Timestamp))
		default:
		}
	}
}

// Run evaluates queued fixes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down")
			return nil
		case fix := <-w.fixes:
			w.process(ctx, fix)
		}
	}
}

func (w *Worker) process(ctx context.Context, fix Fix) {
	res := w.evaluator.Evaluate(ctx, fix)
	for _, fn := range w.onResult {
		fn(res)
	}
	if w.onIdle != nil {
		w.onIdle()
	}
}
