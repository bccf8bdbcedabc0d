package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSweeper struct {
	calls   atomic.Int64
	removed int64
	err     error
}

func (f *fakeSweeper) CleanupExpired(_ context.Context) (int64, error) {
	f.calls.Add(1)
	return f.removed, f.err
}

func TestSweeperRunsImmediatelyOnStart(t *testing.T) {
	sweeper := &fakeSweeper{removed: 3}
	s := NewCartSweeper(CartSweeperConfig{Enabled: true, Interval: time.Hour}, sweeper, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestSweeperTicksOnInterval(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewCartSweeper(CartSweeperConfig{Enabled: true, Interval: 20 * time.Millisecond}, sweeper, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 3
	}, time.Second, 10*time.Millisecond)
}

func TestSweeperDisabledNeverRuns(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewCartSweeper(CartSweeperConfig{Enabled: false, Interval: time.Millisecond}, sweeper, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, sweeper.calls.Load())
	require.NoError(t, s.Stop(context.Background()))
}

func TestSweeperSurvivesCleanupErrors(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db unavailable")}
	s := NewCartSweeper(CartSweeperConfig{Enabled: true, Interval: 20 * time.Millisecond}, sweeper, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2
	}, time.Second, 10*time.Millisecond, "the loop keeps ticking after a failed sweep")
}

func TestSweeperStopIsIdempotent(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewCartSweeper(CartSweeperConfig{Enabled: true, Interval: time.Hour}, sweeper, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	calls := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, sweeper.calls.Load(), "no sweeps after stop")
}
