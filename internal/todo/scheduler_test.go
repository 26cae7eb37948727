package todo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/notexe/forget-me-not/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	sent []notify.Notification
	fail map[string]bool
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[n.Payload["todoId"]] {
		return notify.ErrDispatch
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorder) Sent() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

func TestSchedulerTick(t *testing.T) {
	repo, _, clock := newTestRepo(t)
	ctx := context.Background()
	_, err := repo.Add(ctx, "File taxes", date(2025, 3, 10))
	require.NoError(t, err)
	_, err = repo.Add(ctx, "Renew passport", date(2025, 3, 11))
	require.NoError(t, err)
	_, err = repo.Add(ctx, "Book flights", date(2025, 4, 1))
	require.NoError(t, err)

	rec := &recorder{fail: map[string]bool{"t2": true}}
	s := NewScheduler(repo, rec, time.Minute, WithSchedulerClock(clock.Now), WithDueTitle("Overdue"))

	assert.Equal(t, []string{"t1"}, s.Tick(ctx))
	require.Len(t, rec.Sent(), 1)
	n := rec.Sent()[0]
	assert.Equal(t, "Overdue", n.Title)
	assert.Equal(t, "File taxes (due 2025-03-10)", n.Body)
	assert.Equal(t, "t1", n.Payload["todoId"])

	got, ok := repo.Get("t1")
	require.True(t, ok)
	require.NotNil(t, got.NotifiedAt)

	assert.Empty(t, s.Tick(ctx), "failed dispatch is retried, sent one is not")
	rec.mu.Lock()
	rec.fail = nil
	rec.mu.Unlock()
	assert.Equal(t, []string{"t2"}, s.Tick(ctx))
	assert.Empty(t, s.Tick(ctx))
}

func TestSchedulerRun(t *testing.T) {
	repo, _, clock := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	_, err := repo.Add(ctx, "File taxes", date(2025, 3, 10))
	require.NoError(t, err)

	rec := &recorder{}
	s := NewScheduler(repo, rec, time.Hour, WithSchedulerClock(clock.Now))

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(rec.Sent()) == 1 }, 2*time.Second, 5*time.Millisecond,
		"checks once on start")
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, DefaultDueTitle, rec.Sent()[0].Title)
}

func TestSchedulerRejectsBadInterval(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	err := NewScheduler(repo, &recorder{}, 0).Run(context.Background())
	assert.ErrorContains(t, err, "interval must be positive")
}
