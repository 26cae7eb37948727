package geofence

import (
	"context"
	"testing"
	"time"

	"github.com/notexe/forget-me-not/internal/reminder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerEvaluatesFixes(t *testing.T) {
	c := newClock()
	repo := newRepo(t, c)
	_, err := repo.Create("Buy milk", reminder.Location{Name: "Store", Latitude: 40.0, Longitude: -75.0, Radius: 100})
	require.NoError(t, err)

	rec := &recorder{}
	results := make(chan Result, 4)
	idle := 0
	w := NewWorker(NewEvaluator(repo, rec, WithClock(c.Now)), 4,
		WithResultHandler(func(r Result) { results <- r }),
		WithIdleHandler(func() bool { idle++; return false }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.Deliver(at(40.0, -75.0))

	select {
	case res := <-results:
		assert.Len(t, res.Fired, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, idle)
	assert.Len(t, rec.Sent(), 1)
}

func TestWorkerDropsOldest(t *testing.T) {
	w := NewWorker(nil, 2)

	w.Deliver(at(1, 1))
	w.Deliver(at(2, 2))
	w.Deliver(at(3, 3))

	require.Len(t, w.fixes, 2)
	assert.Equal(t, at(2, 2), <-w.fixes)
	assert.Equal(t, at(3, 3), <-w.fixes)
}

func TestWorkerMinimumQueue(t *testing.T) {
	w := NewWorker(nil, 0)

	w.Deliver(at(1, 1))
	w.Deliver(at(2, 2))

	assert.Equal(t, at(2, 2), <-w.fixes)
}
