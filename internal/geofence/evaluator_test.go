package geofence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/notexe/forget-me-not/internal/kvstore"
	"github.com/notexe/forget-me-not/internal/notify"
	"github.com/notexe/forget-me-not/internal/reminder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recorder captures dispatched notifications and can fail selected ids.
type recorder struct {
	mu   sync.Mutex
	sent []notify.Notification
	fail map[string]bool
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[n.Payload["reminderId"]] {
		return fmt.Errorf("%w: simulated outage", notify.ErrDispatch)
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorder) Sent() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

func newRepo(t *testing.T, c *clock) *reminder.Repository {
	t.Helper()
	n := 0
	return reminder.NewRepository(
		reminder.NewStore(kvstore.NewMemory(), ""),
		reminder.WithClock(c.Now),
		reminder.WithIDGenerator(func() string { n++; return fmt.Sprintf("r%d", n) }),
	)
}

func at(lat, lon float64) Fix {
	return Fix{Latitude: lat, Longitude: lon}
}

func TestEvaluateFiresOnEntry(t *testing.T) {
	c := newClock()
	repo := newRepo(t, c)
	rem, err := repo.Create("Buy milk", reminder.Location{Name: "Store", Latitude: 40.0, Longitude: -75.0, Radius: 100})
	require.NoError(t, err)

	rec := &recorder{}
	ev := NewEvaluator(repo, rec, WithClock(c.Now))

	res := ev.Evaluate(context.Background(), at(40.0, -75.0))

	assert.Equal(t, []string{rem.ID}, res.Fired)
	require.Len(t, rec.Sent(), 1)
	n := rec.Sent()[0]
	assert.Equal(t, "Forget Me Not!", n.Title)
	assert.Equal(t, "Buy milk at Store", n.Body)
	assert.Equal(t, map[string]string{"reminderId": rem.ID}, n.Payload)

	got, _ := repo.Get(rem.ID)
	assert.Equal(t, 1, got.TriggeredCount)
	require.NotNil(t, got.LastTriggeredAt)
	assert.Equal(t, c.Now(), *got.LastTriggeredAt)
}

func TestEvaluateCooldown(t *testing.T) {
	c := newClock()
	repo := newRepo(t, c)
	rem, err := repo.Create("Buy milk", reminder.Location{Name: "Store", Latitude: 40.0, Longitude: -75.0, Radius: 100})
	require.NoError(t, err)

	rec := &recorder{}
	ev := NewEvaluator(repo, rec, WithClock(c.Now))
	ctx := context.Background()

	ev.Evaluate(ctx, at(40.0, -75.0))

	c.Advance(time.Minute)
	res := ev.Evaluate(ctx, at(40.0, -75.0))
	assert.Empty(t, res.Fired)
	assert.Equal(t, []string{rem.ID}, res.CoolingOff)
	assert.Len(t, rec.Sent(), 1)

	c.Advance(14 * time.Minute)
	res = ev.Evaluate(ctx, at(40.0, -75.0))
	assert.Equal(t, []string{rem.ID}, res.Fired, "cooldown of exactly 15 minutes has elapsed")

	c.Advance(16 * time.Minute)
	res = ev.Evaluate(ctx, at(40.0, -75.0))
	assert.Equal(t, []string{rem.ID}, res.Fired)

	got, _ := repo.Get(rem.ID)
	assert.Equal(t, 3, got.TriggeredCount)
	assert.Len(t, rec.Sent(), 3)
}

func TestEvaluateCustomCooldown(t *testing.T) {
	c := newClock()
	repo := newRepo(t, c)
	_, err := repo.Create("Buy milk", reminder.Location{Name: "Store", Latitude: 40.0, Longitude: -75.0, Radius: 100})
	require.NoError(t, err)

	rec := &recorder{}
	ev := NewEvaluator(repo, rec, WithClock(c.Now), WithCooldown(time.Minute), WithTitle("Heads up"))

	ev.Evaluate(context.Background(), at(40.0, -75.0))
	c.Advance(time.Minute)
	res := ev.Evaluate(context.Background(), at(40.0, -75.0))

	assert.Len(t, res.Fired, 1)
	assert.Equal(t, "Heads up", rec.Sent()[1].Title)
}

func TestEvaluateOutsideRadius(t *testing.T) {
	c := newClock()
	repo := newRepo(t, c)
	_, err := repo.Create("Buy milk", reminder.Location{Name: "Store", Latitude: 40.0, Longitude: -75.0, Radius: 100})
	require.NoError(t, err)

	rec := &recorder{}
	ev := NewEvaluator(repo, rec, WithClock(c.Now))

	// 0.001 degrees of latitude is roughly 111 m.
	res := ev.Evaluate(context.Background(), at(40.001, -75.0))

	assert.Zero(t, res.Candidates)
	assert.Empty(t, res.Fired)
	assert.Empty(t, rec.Sent())

	// Roughly 89 m away.
	res = ev.Evaluate(context.Background(), at(40.0008, -75.0))
	assert.Equal(t, 1, res.Candidates)
	assert.Len(t, res.Fired, 1)
}

func TestEvaluateIgnoresCompleted(t *testing.T) {
	c := newClock()
	repo := newRepo(t, c)
	rem, err := repo.Create("Buy milk", reminder.Location{Name: "Store", Latitude: 40.0, Longitude: -75.0, Radius: 100})
	require.NoError(t, err)
	_, err = repo.ToggleCompleted(rem.ID)
	require.NoError(t, err)

	rec := &recorder{}
	ev := NewEvaluator(repo, rec, WithClock(c.Now))
	res := ev.Evaluate(context.Background(), at(40.0, -75.0))

	assert.Zero(t, res.Active)
	assert.Empty(t, rec.Sent())
}

func TestEvaluateIsolatesDispatchFailure(t *testing.T) {
	c := newClock()
	repo := newRepo(t, c)
	loc := reminder.Location{Name: "Store", Latitude: 40.0, Longitude: -75.0, Radius: 100}
	first, err := repo.Create("Buy milk", loc)
	require.NoError(t, err)
	second, err := repo.Create("Buy eggs", loc)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	rec := &recorder{fail: map[string]bool{first.ID: true}}
	ev := NewEvaluator(repo, rec, WithClock(c.Now), WithEvaluatorLogger(zap.New(core)))

	res := ev.Evaluate(context.Background(), at(40.0, -75.0))

	assert.Equal(t, []string{second.ID}, res.Fired)
	assert.Equal(t, []string{first.ID}, res.Failed)

	got, _ := repo.Get(first.ID)
	assert.Zero(t, got.TriggeredCount)
	assert.Nil(t, got.LastTriggeredAt)
	got, _ = repo.Get(second.ID)
	assert.Equal(t, 1, got.TriggeredCount)

	entries := logs.FilterMessage("failed to dispatch reminder notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, first.ID, entries[0].ContextMap()["id"])

	// The failed reminder stays eligible.
	rec.mu.Lock()
	rec.fail = nil
	rec.mu.Unlock()
	res = ev.Evaluate(context.Background(), at(40.0, -75.0))
	assert.Equal(t, []string{first.ID}, res.Fired)
}

// countingRepo records how often RecordTrigger is called.
type countingRepo struct {
	reminders []reminder.Reminder
	calls     [][]string
}

func (r *countingRepo) ListActive() []reminder.Reminder { return r.reminders }

func (r *countingRepo) RecordTrigger(ids ...string) int {
	r.calls = append(r.calls, ids)
	return len(ids)
}

func TestEvaluateRecordsOncePerPass(t *testing.T) {
	repo := &countingRepo{reminders: []reminder.Reminder{
		{ID: "a", Text: "A", Location: reminder.Location{Name: "X", Latitude: 1, Longitude: 1, Radius: 100}},
		{ID: "b", Text: "B", Location: reminder.Location{Name: "X", Latitude: 1, Longitude: 1, Radius: 100}},
		{ID: "c", Text: "C", Location: reminder.Location{Name: "Y", Latitude: 2, Longitude: 2, Radius: 100}},
	}}
	ev := NewEvaluator(repo, &recorder{})

	ev.Evaluate(context.Background(), at(1, 1))
	require.Len(t, repo.calls, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, repo.calls[0])

	ev.Evaluate(context.Background(), at(10, 10))
	assert.Len(t, repo.calls, 1, "nothing fired, nothing recorded")
}

func TestEvaluateConcurrentPassesFireOnce(t *testing.T) {
	c := newClock()
	repo := newRepo(t, c)
	_, err := repo.Create("Buy milk", reminder.Location{Name: "Store", Latitude: 40.0, Longitude: -75.0, Radius: 100})
	require.NoError(t, err)

	rec := &recorder{}
	ev := NewEvaluator(repo, rec, WithClock(c.Now))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ev.Evaluate(context.Background(), at(40.0, -75.0))
		}()
	}
	wg.Wait()

	assert.Len(t, rec.Sent(), 1)
}
