package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"

	"github.com/smallbiznis/laudo/internal/clock"
)

type fakeReconciler struct {
	calls  atomic.Int32
	maxAge atomic.Int64
	err    error
	block  bool
}

func (f *fakeReconciler) ReconcileStaging(ctx context.Context, maxAge time.Duration) (int, error) {
	f.calls.Add(1)
	f.maxAge.Store(int64(maxAge))
	if f.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return 2, f.err
}

func newTestScheduler(t *testing.T, rec *fakeReconciler, cfg Config) *Scheduler {
	t.Helper()
	s, err := New(Params{
		Log:     zaptest.NewLogger(t),
		Clock:   clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)),
		Staging: rec,
		Config:  cfg,
	})
	require.NoError(t, err)
	return s
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOncePassesStagingMaxAge(t *testing.T) {
	rec := &fakeReconciler{}
	s := newTestScheduler(t, rec, Config{StagingMaxAge: 30 * time.Minute})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(1), rec.calls.Load())
	assert.Equal(t, int64(30*time.Minute), rec.maxAge.Load())
}

func TestRunOnceWrapsJobError(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("permission denied")}
	s := newTestScheduler(t, rec, Config{})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), jobReconcileStaging)
}

func TestRunOnceTreatsTimeoutAsSoft(t *testing.T) {
	rec := &fakeReconciler{block: true}
	s := newTestScheduler(t, rec, Config{JobTimeout: 5 * time.Millisecond})

	assert.NoError(t, s.RunOnce(context.Background()))
}

func TestLifecycleRunsImmediatelyAndStops(t *testing.T) {
	rec := &fakeReconciler{}
	s := newTestScheduler(t, rec, Config{RunInterval: time.Hour})

	lc := fxtest.NewLifecycle(t)
	NewScheduler(lc, s)
	lc.RequireStart()

	require.Eventually(t, func() bool { return rec.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	lc.RequireStop()
	assert.Equal(t, int32(1), rec.calls.Load())
}
