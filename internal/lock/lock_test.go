package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLockerAcquireRelease(t *testing.T) {
	_, client := newTestClient(t)
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "k", token))

	_, ok, err = locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerReleaseIgnoresForeignToken(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewLocker(client)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(ctx, "k", "someone-else"))
	assert.True(t, mr.Exists("k"))
}

func TestLockerExpires(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewLocker(client)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerValidation(t *testing.T) {
	var nilLocker *Locker
	_, _, err := nilLocker.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, client := newTestClient(t)
	locker := NewLocker(client)
	_, _, err = locker.TryLock(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, _, err = locker.TryLock(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestRenderLockPerReport(t *testing.T) {
	mr, client := newTestClient(t)
	rl := NewRenderLockWithClient(client, time.Minute)
	ctx := context.Background()

	token, ok, err := rl.TryLockReport(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("laudo:render:lock:42"))

	_, ok, err = rl.TryLockReport(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = rl.TryLockReport(ctx, "43")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, rl.ReleaseReport(ctx, "42", token))
	assert.False(t, mr.Exists("laudo:render:lock:42"))
}

func TestNilRenderLockAlwaysGrants(t *testing.T) {
	var rl *RenderLock
	_, ok, err := rl.TryLockReport(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, rl.ReleaseReport(context.Background(), "1", ""))
}
