package todo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/notexe/forget-me-not/internal/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func newTestRepo(t *testing.T, opts ...Option) (*Repository, *kvstore.Memory, *fakeClock) {
	t.Helper()
	kv := kvstore.NewMemory()
	clock := newFakeClock()
	base := []Option{WithClock(clock.Now), WithIDGenerator(sequentialIDs())}
	return NewRepository(NewStore(kv, ""), append(base, opts...)...), kv, clock
}

func persisted(t *testing.T, kv *kvstore.Memory) []Todo {
	t.Helper()
	got, err := NewStore(kv, "").Load(context.Background())
	require.NoError(t, err)
	return got
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func ids(todos []Todo) []string {
	out := make([]string, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.ID)
	}
	return out
}

func TestAdd(t *testing.T) {
	repo, kv, clock := newTestRepo(t)
	ctx := context.Background()

	plain, err := repo.Add(ctx, "  Call mom  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Call mom", plain.Text)
	assert.False(t, plain.Completed)
	assert.Nil(t, plain.DueDate)
	assert.Equal(t, clock.Now(), plain.CreatedAt)

	due, err := repo.Add(ctx, "File taxes", date(2025, 4, 15))
	require.NoError(t, err)
	require.NotNil(t, due.DueDate)
	assert.Equal(t, *date(2025, 4, 15), *due.DueDate)

	assert.Equal(t, []string{"t2", "t1"}, ids(repo.All()), "newest first")
	assert.Equal(t, []string{"t2", "t1"}, ids(persisted(t, kv)))

	_, err = repo.Add(ctx, "   ", nil)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 2, repo.Count())
}

func TestToggleAndDelete(t *testing.T) {
	repo, kv, clock := newTestRepo(t)
	ctx := context.Background()
	td, err := repo.Add(ctx, "Call mom", nil)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	done, err := repo.Toggle(ctx, td.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, clock.Now(), *done.CompletedAt)
	assert.Empty(t, repo.ListActive())
	assert.Len(t, repo.ListCompleted(), 1)

	reopened, err := repo.Toggle(ctx, td.ID)
	require.NoError(t, err)
	assert.False(t, reopened.Completed)
	assert.Nil(t, reopened.CompletedAt)

	_, err = repo.Toggle(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), ErrNotFound)

	require.NoError(t, repo.Delete(ctx, td.ID))
	assert.Zero(t, repo.Count())
	assert.Empty(t, persisted(t, kv))
}

func TestClearCompleted(t *testing.T) {
	repo, kv, _ := newTestRepo(t)
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c"} {
		_, err := repo.Add(ctx, text, nil)
		require.NoError(t, err)
	}
	assert.Zero(t, repo.ClearCompleted(ctx))

	_, err := repo.Toggle(ctx, "t1")
	require.NoError(t, err)
	_, err = repo.Toggle(ctx, "t3")
	require.NoError(t, err)
	writes := kv.Writes()

	assert.Equal(t, 2, repo.ClearCompleted(ctx))
	assert.Equal(t, []string{"t2"}, ids(repo.All()))
	assert.Equal(t, writes+1, kv.Writes(), "one save for the whole batch")
	assert.Equal(t, []string{"t2"}, ids(persisted(t, kv)))
}

func TestCreatedOnAndOnDate(t *testing.T) {
	repo, _, clock := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Add(ctx, "made on the 12th", nil)
	require.NoError(t, err)
	_, err = repo.Add(ctx, "made on the 12th, due on the 14th", date(2025, 3, 14))
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	_, err = repo.Add(ctx, "made on the 14th", nil)
	require.NoError(t, err)

	day := time.Date(2025, 3, 12, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, []string{"t2", "t1"}, ids(repo.CreatedOn(day)))
	assert.Equal(t, []string{"t2", "t1"}, ids(repo.OnDate(day)))

	day14 := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"t3"}, ids(repo.CreatedOn(day14)))
	assert.Equal(t, []string{"t3", "t2"}, ids(repo.OnDate(day14)))

	assert.Empty(t, repo.OnDate(time.Date(2025, 3, 13, 12, 0, 0, 0, time.UTC)))
}

func TestHistory(t *testing.T) {
	repo, _, clock := newTestRepo(t)
	ctx := context.Background()

	complete := func(text string, ago time.Duration) {
		td, err := repo.Add(ctx, text, nil)
		require.NoError(t, err)
		clock.Advance(-ago)
		_, err = repo.Toggle(ctx, td.ID)
		require.NoError(t, err)
		clock.Advance(ago)
	}

	// now is 2025-03-12 09:00
	complete("this morning", time.Hour)
	complete("three days ago", 3*24*time.Hour)
	complete("twenty days ago", 20*24*time.Hour)
	complete("sixty days ago", 60*24*time.Hour)
	_, err := repo.Add(ctx, "still open", nil)
	require.NoError(t, err)

	now := clock.Now()
	tests := []struct {
		filter Filter
		want   []string
	}{
		{FilterAll, []string{"t4", "t3", "t2", "t1"}},
		{FilterToday, []string{"t1"}},
		{FilterWeek, []string{"t2", "t1"}},
		{FilterMonth, []string{"t3", "t2", "t1"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(repo.History(tt.filter, now)))
		})
	}
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{"": FilterAll, "all": FilterAll, "Today": FilterToday, " week ": FilterWeek, "month": FilterMonth} {
		got, err := ParseFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFilter("year")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-04-15", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, *date(2025, 4, 15), got)

	got, err = ParseDate("2025-04-15T17:00:00Z", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 17, got.Hour())

	_, err = ParseDate("next tuesday", time.UTC)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDueAndMarkNotified(t *testing.T) {
	repo, _, clock := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Add(ctx, "overdue", date(2025, 3, 10))
	require.NoError(t, err)
	_, err = repo.Add(ctx, "later", date(2025, 3, 20))
	require.NoError(t, err)
	_, err = repo.Add(ctx, "no date", nil)
	require.NoError(t, err)
	done, err := repo.Add(ctx, "overdue but done", date(2025, 3, 1))
	require.NoError(t, err)
	_, err = repo.Toggle(ctx, done.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"t1"}, ids(repo.Due(clock.Now())))

	assert.Equal(t, 1, repo.MarkNotified(ctx, "t1", "missing"))
	assert.Empty(t, repo.Due(clock.Now()))

	clock.Advance(10 * 24 * time.Hour)
	assert.Equal(t, []string{"t2"}, ids(repo.Due(clock.Now())))
}

func TestSaveFailureKeepsState(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	repo, kv, _ := newTestRepo(t, WithLogger(zap.New(core)))
	ctx := context.Background()

	kv.FailWrites(errors.New("disk full"))
	td, err := repo.Add(ctx, "Call mom", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Count())
	assert.Equal(t, 1, logs.FilterMessage("failed to persist todos").Len())

	kv.FailWrites(nil)
	_, err = repo.Toggle(ctx, td.ID)
	require.NoError(t, err)

	got := persisted(t, kv)
	require.Len(t, got, 1)
	assert.True(t, got[0].Completed)
}

func TestLoad(t *testing.T) {
	kv := kvstore.NewMemory()
	legacy := `[{"id":"1700000000000","text":"Water plants","completed":false,"createdAt":"2025-03-01T08:00:00.000Z","completedAt":null,"dueDate":"2025-03-02T00:00:00.000Z"}]`
	require.NoError(t, kv.Set(context.Background(), DefaultKey, []byte(legacy)))

	repo := NewRepository(NewStore(kv, ""))
	require.NoError(t, repo.Load(context.Background()))

	got, ok := repo.Get("1700000000000")
	require.True(t, ok)
	assert.Equal(t, "Water plants", got.Text)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, 2, got.DueDate.Day())
}
