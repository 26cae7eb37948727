package reminder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const saveTimeout = 10 * time.Second

// Persister is the durable side of the Repository.
type Persister interface {
	Load(ctx context.Context) ([]Reminder, error)
	Save(ctx context.Context, reminders []Reminder) error
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithLogger sets the logger. The repository names itself "repository".
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l.Named("repository")
		}
	}
}

// WithLimits sets the radius limits applied by Create.
func WithLimits(l Limits) Option {
	return func(r *Repository) { r.limits = l }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Repository) { r.newID = fn }
}

// Repository owns the canonical in-memory list of reminders. Every mutation
// is applied under one lock and then handed to a background writer, so a
// slow or failing store never blocks or rolls back the caller.
//
// Writes are coalesced: the writer always saves the newest snapshot and an
// older snapshot is never written after a newer one.
type Repository struct {
	mu        sync.RWMutex
	reminders []Reminder // newest first
	version   uint64
	onCreate   []func(Reminder)
	onActivate []func(Reminder)

	store  Persister
	now    func() time.Time
	newID  func() string
	limits Limits
	logger *zap.Logger

	saveMu    sync.Mutex
	saveCond  *sync.Cond
	queued    []Reminder
	queuedVer uint64
	attempted uint64
	writing   bool
}

// NewRepository returns an empty Repository persisting through store.
func NewRepository(store Persister, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		limits: DefaultLimits(),
		logger: zap.NewNop(),
	}
	r.saveCond = sync.NewCond(&r.saveMu)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the in-memory list with the persisted snapshot.
func (r *Repository) Load(ctx context.Context) error {
	reminders, err := r.store.Load(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.reminders = reminders
	r.mu.Unlock()

	r.logger.Info("loaded reminders", zap.Int("count", len(reminders)))
	return nil
}

// OnCreate registers fn to run after every successful Create.
func (r *Repository) OnCreate(fn func(Reminder)) {
	r.mu.Lock()
	r.onCreate = append(r.onCreate, fn)
	r.mu.Unlock()
}

// OnActivate registers fn to run whenever ToggleCompleted reopens a
// completed reminder.
func (r *Repository) OnActivate(fn func(Reminder)) {
	r.mu.Lock()
	r.onActivate = append(r.onActivate, fn)
	r.mu.Unlock()
}

// Create validates the input, prepends a new reminder and persists the list.
func (r *Repository) Create(text string, loc Location) (Reminder, error) {
	text, loc, err := r.limits.normalize(text, loc)
	if err != nil {
		return Reminder{}, err
	}

	rem := Reminder{
		ID:        r.newID(),
		Text:      text,
		Location:  loc,
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	for _, existing := range r.reminders {
		if existing.ID == rem.ID {
			r.mu.Unlock()
			return Reminder{}, fmt.Errorf("failed to create reminder: duplicate id %s", rem.ID)
		}
	}
	r.reminders = append([]Reminder{rem}, r.reminders...)
	r.persistLocked()
	hooks := append([]func(Reminder){}, r.onCreate...)
	r.mu.Unlock()

	r.logger.Info("reminder created",
		zap.String("id", rem.ID),
		zap.String("location", loc.Name),
		zap.Int("radius", loc.Radius))

	for _, fn := range hooks {
		fn(rem.Clone())
	}
	return rem.Clone(), nil
}

// ToggleCompleted flips the completion flag of a reminder and sets or
// clears CompletedAt. It returns ErrNotFound for an unknown id and leaves
// the collection unchanged.
func (r *Repository) ToggleCompleted(id string) (Reminder, error) {
	r.mu.Lock()

	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return Reminder{}, fmt.Errorf("failed to toggle reminder %s: %w", id, ErrNotFound)
	}

	rem := &r.reminders[i]
	rem.Completed = !rem.Completed
	if rem.Completed {
		now := r.now()
		rem.CompletedAt = &now
	} else {
		rem.CompletedAt = nil
	}
	r.persistLocked()

	out := rem.Clone()
	var hooks []func(Reminder)
	if out.Active() {
		hooks = append(hooks, r.onActivate...)
	}
	r.mu.Unlock()

	r.logger.Debug("reminder toggled", zap.String("id", id), zap.Bool("completed", out.Completed))

	for _, fn := range hooks {
		fn(out.Clone())
	}
	return out, nil
}

// Delete removes a reminder permanently. It returns ErrNotFound for an
// unknown id and leaves the collection unchanged.
func (r *Repository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("failed to delete reminder %s: %w", id, ErrNotFound)
	}

	r.reminders = append(r.reminders[:i:i], r.reminders[i+1:]...)
	r.persistLocked()

	r.logger.Info("reminder deleted", zap.String("id", id))
	return nil
}

// RecordTrigger increments TriggeredCount and stamps LastTriggeredAt for
// every listed reminder that still exists, in one atomic update. It
// returns the number of reminders updated.
//
// Reminders completed after their notification went out are still counted:
// the notification was delivered.
func (r *Repository) RecordTrigger(ids ...string) int {
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
	for i := range r.reminders {
		if _, ok := set[r.reminders[i].ID]; !ok {
			continue
		}
		r.reminders[i].TriggeredCount++
		t := now
		r.reminders[i].LastTriggeredAt = &t
		updated++
	}
	if updated > 0 {
		r.persistLocked()
	}
	return updated
}

// Get returns the reminder with the given id.
func (r *Repository) Get(id string) (Reminder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexLocked(id)
	if i < 0 {
		return Reminder{}, false
	}
	return r.reminders[i].Clone(), true
}

// All returns a snapshot of every reminder, newest first.
func (r *Repository) All() []Reminder {
	return r.filter(func(Reminder) bool { return true })
}

// ListActive returns the reminders that are not completed.
func (r *Repository) ListActive() []Reminder {
	return r.filter(Reminder.Active)
}

// ListCompleted returns the completed reminders.
func (r *Repository) ListCompleted() []Reminder {
	return r.filter(func(rem Reminder) bool { return rem.Completed })
}

// ListByLocationNameContains returns the reminders whose location name
// contains substr, ignoring case.
func (r *Repository) ListByLocationNameContains(substr string) []Reminder {
	needle := strings.ToLower(substr)
	return r.filter(func(rem Reminder) bool {
		return strings.Contains(strings.ToLower(rem.Location.Name), needle)
	})
}

// Count returns the total number of reminders.
func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reminders)
}

// GroupByLocation groups reminders by location name, busiest locations
// first and then alphabetically.
func (r *Repository) GroupByLocation() []LocationGroup {
	var groups []*LocationGroup
	byName := make(map[string]*LocationGroup)

	for _, rem := range r.All() {
		g, ok := byName[rem.Location.Name]
		if !ok {
			g = &LocationGroup{Name: rem.Location.Name, Location: rem.Location}
			byName[rem.Location.Name] = g
			groups = append(groups, g)
		}
		g.Reminders = append(g.Reminders, rem)
		if rem.Completed {
			g.CompletedCount++
		} else {
			g.ActiveCount++
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].ActiveCount != groups[j].ActiveCount {
			return groups[i].ActiveCount > groups[j].ActiveCount
		}
		return groups[i].Name < groups[j].Name
	})

	out := make([]LocationGroup, len(groups))
	for i, g := range groups {
		out[i] = *g
	}
	return out
}

// Flush blocks until every mutation made before the call has been handed
// to the store, or ctx is done.
func (r *Repository) Flush(ctx context.Context) error {
	r.mu.RLock()
	target := r.version
	r.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		r.saveMu.Lock()
		for r.attempted < target {
			r.saveCond.Wait()
		}
		r.saveMu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Repository) filter(keep func(Reminder) bool) []Reminder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Reminder, 0, len(r.reminders))
	for _, rem := range r.reminders {
		if keep(rem) {
			out = append(out, rem.Clone())
		}
	}
	return out
}

func (r *Repository) indexLocked(id string) int {
	for i := range r.reminders {
		if r.reminders[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked queues the current list for the background writer.
// r.mu must be held.
func (r *Repository) persistLocked() {
	r.version++
	snapshot := make([]Reminder, len(r.reminders))
	for i, rem := range r.reminders {
		snapshot[i] = rem.Clone()
	}

	r.saveMu.Lock()
	r.queued = snapshot
	r.queuedVer = r.version
	if !r.writing {
		r.writing = true
		go r.drain()
	}
	r.saveMu.Unlock()
}

func (r *Repository) drain() {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	for r.queued != nil {
		snapshot, version := r.queued, r.queuedVer
		r.queued = nil
		r.saveMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := r.store.Save(ctx, snapshot)
		cancel()
		if err != nil {
			// In-memory state stays authoritative; the next write reconciles.
			r.logger.Warn("failed to persist reminders",
				zap.Uint64("version", version),
				zap.Int("count", len(snapshot)),
				zap.Error(err))
		}

		r.saveMu.Lock()
		r.attempted = version
		r.saveCond.Broadcast()
	}
	r.writing = false
}
