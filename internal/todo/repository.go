package todo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Persister is the durable side of the Repository.
type Persister interface {
	Load(ctx context.Context) ([]Todo, error)
	Save(ctx context.Context, todos []Todo) error
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithLogger sets the logger. The repository names itself "todos".
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l.Named("todos")
		}
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Repository) { r.newID = fn }
}

// Repository owns the todo list. Mutations are applied and saved under one
// lock, so snapshots reach the store in order. A failed save is logged and
// the in-memory list stays authoritative.
type Repository struct {
	mu    sync.RWMutex
	todos []Todo // newest first

	store  Persister
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// NewRepository returns an empty Repository persisting through store.
func NewRepository(store Persister, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the in-memory list with the persisted snapshot.
func (r *Repository) Load(ctx context.Context) error {
	todos, err := r.store.Load(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.todos = todos
	r.mu.Unlock()

	r.logger.Info("loaded todos", zap.Int("count", len(todos)))
	return nil
}

// Add prepends a new open todo. due may be nil.
func (r *Repository) Add(ctx context.Context, text string, due *time.Time) (Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Todo{}, fmt.Errorf("text must not be empty: %w", ErrValidation)
	}

	t := Todo{
		ID:        r.newID(),
		Text:      text,
		CreatedAt: r.now(),
		DueDate:   cloneTime(due),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(t.ID) >= 0 {
		return Todo{}, fmt.Errorf("failed to add todo: duplicate id %s", t.ID)
	}
	r.todos = append([]Todo{t}, r.todos...)
	r.saveLocked(ctx)

	r.logger.Info("todo added", zap.String("id", t.ID), zap.Bool("has_due_date", due != nil))
	return t.Clone(), nil
}

// Toggle flips the completion flag and sets or clears CompletedAt.
func (r *Repository) Toggle(ctx context.Context, id string) (Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return Todo{}, fmt.Errorf("failed to toggle todo %s: %w", id, ErrNotFound)
	}

	t := &r.todos[i]
	t.Completed = !t.Completed
	if t.Completed {
		now := r.now()
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
	r.saveLocked(ctx)

	r.logger.Debug("todo toggled", zap.String("id", id), zap.Bool("completed", t.Completed))
	return t.Clone(), nil
}

// Delete removes a todo permanently.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("failed to delete todo %s: %w", id, ErrNotFound)
	}
	r.todos = append(r.todos[:i:i], r.todos[i+1:]...)
	r.saveLocked(ctx)

	r.logger.Info("todo deleted", zap.String("id", id))
	return nil
}

// ClearCompleted deletes every completed todo in one update and returns
// how many were removed.
func (r *Repository) ClearCompleted(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.todos[:0:0]
	for _, t := range r.todos {
		if t.Active() {
			kept = append(kept, t)
		}
	}
	removed := len(r.todos) - len(kept)
	if removed == 0 {
		return 0
	}
	r.todos = kept
	r.saveLocked(ctx)

	r.logger.Info("completed todos cleared", zap.Int("count", removed))
	return removed
}

// MarkNotified stamps NotifiedAt on the listed todos so Due skips them.
// It returns the number of todos updated.
func (r *Repository) MarkNotified(ctx context.Context, ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	updated := 0
	for i := range r.todos {
		if _, ok := set[r.todos[i].ID]; !ok {
			continue
		}
		t := now
		r.todos[i].NotifiedAt = &t
		updated++
	}
	if updated > 0 {
		r.saveLocked(ctx)
	}
	return updated
}

// Get returns the todo with the given id.
func (r *Repository) Get(id string) (Todo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexLocked(id)
	if i < 0 {
		return Todo{}, false
	}
	return r.todos[i].Clone(), true
}

// All returns every todo, newest first.
func (r *Repository) All() []Todo {
	return r.filter(func(Todo) bool { return true })
}

// ListActive returns the open todos.
func (r *Repository) ListActive() []Todo {
	return r.filter(Todo.Active)
}

// ListCompleted returns the completed todos.
func (r *Repository) ListCompleted() []Todo {
	return r.filter(func(t Todo) bool { return t.Completed })
}

// CreatedOn returns the todos created on the calendar day of day, in the
// location of day.
func (r *Repository) CreatedOn(day time.Time) []Todo {
	return r.filter(func(t Todo) bool { return sameDay(t.CreatedAt, day) })
}

// OnDate returns the todos created or due on the calendar day of day.
func (r *Repository) OnDate(day time.Time) []Todo {
	return r.filter(func(t Todo) bool {
		return sameDay(t.CreatedAt, day) || (t.DueDate != nil && sameDay(*t.DueDate, day))
	})
}

// History returns the completed todos the filter keeps, relative to now.
func (r *Repository) History(f Filter, now time.Time) []Todo {
	since := f.Since(now)
	return r.filter(func(t Todo) bool {
		return t.Completed && t.CompletedAt != nil && !t.CompletedAt.Before(since)
	})
}

// Due returns the open todos whose due date has passed and that have not
// been announced yet.
func (r *Repository) Due(now time.Time) []Todo {
	return r.filter(func(t Todo) bool {
		return t.Overdue(now) && t.NotifiedAt == nil
	})
}

// Count returns the total number of todos.
func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.todos)
}

func (r *Repository) filter(keep func(Todo) bool) []Todo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Todo, 0, len(r.todos))
	for _, t := range r.todos {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (r *Repository) indexLocked(id string) int {
	for i := range r.todos {
		if r.todos[i].ID == id {
			return i
		}
	}
	return -1
}

// saveLocked writes the current list. r.mu must be held.
func (r *Repository) saveLocked(ctx context.Context) {
	snapshot := make([]Todo, len(r.todos))
	for i, t := range r.todos {
		snapshot[i] = t.Clone()
	}
	if err := r.store.Save(ctx, snapshot); err != nil {
		r.logger.Warn("failed to persist todos", zap.Int("count", len(snapshot)), zap.Error(err))
	}
}
