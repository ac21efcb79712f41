package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	refreshes atomic.Int32
	finalizes atomic.Int32
	lastNow   atomic.Int64
}

func (c *countingSweeper) RefreshActive(_ context.Context, now time.Time) (int, error) {
	c.refreshes.Add(1)
	c.lastNow.Store(now.Unix())
	return 1, nil
}

func (c *countingSweeper) FinalizeCompleted(context.Context, time.Time) (int, error) {
	c.finalizes.Add(1)
	return 0, errors.New("badger unavailable")
}

func TestScheduler_RunsJobsWithInjectedClock(t *testing.T) {
	sweeper := &countingSweeper{}
	fixed := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

	s, err := New(sweeper, Config{
		RefreshInterval:  20 * time.Millisecond,
		FinalizeInterval: time.Hour,
	}, func() time.Time { return fixed }, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Shutdown() })

	require.Eventually(t, func() bool {
		return sweeper.refreshes.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)

	// Finalize starts immediately, and a failing run does not stop the scheduler.
	assert.Equal(t, int32(1), sweeper.finalizes.Load())
	assert.Equal(t, fixed.Unix(), sweeper.lastNow.Load())
}

func TestScheduler_DefaultsIntervals(t *testing.T) {
	s, err := New(&countingSweeper{}, Config{}, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, DefaultRefreshInterval, s.cfg.RefreshInterval)
	assert.Equal(t, DefaultFinalizeInterval, s.cfg.FinalizeInterval)
	assert.NotNil(t, s.clock)
}
