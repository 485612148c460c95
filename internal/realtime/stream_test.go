package realtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testManager() *StreamManager {
	m := NewStreamManager(time.Second)
	m.minInterval = time.Millisecond
	return m
}

func TestStreamManager_TicksUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := testManager()
	defer m.StopAll()

	var ticks atomic.Int64
	require.NoError(t, m.Start("u1:a1", 5*time.Millisecond, func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	}))
	assert.True(t, m.Active("u1:a1"))

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	assert.True(t, m.Stop("u1:a1"))
	stopped := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, ticks.Load())
	assert.False(t, m.Active("u1:a1"))

	// idempotent
	assert.False(t, m.Stop("u1:a1"))
}

func TestStreamManager_StartReplacesExisting(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := testManager()
	defer m.StopAll()

	var first, second atomic.Int64
	require.NoError(t, m.Start("u1:a1", 5*time.Millisecond, func(ctx context.Context) error {
		first.Add(1)
		return nil
	}))
	require.Eventually(t, func() bool { return first.Load() >= 1 }, time.Second, time.Millisecond)

	require.NoError(t, m.Start("u1:a1", 5*time.Millisecond, func(ctx context.Context) error {
		second.Add(1)
		return nil
	}))
	frozen := first.Load()

	require.Eventually(t, func() bool { return second.Load() >= 2 }, time.Second, time.Millisecond)
	assert.Equal(t, frozen, first.Load())
	assert.Equal(t, 1, m.Count())
}

func TestStreamManager_ReplaceDoesNotBlockOtherKeys(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := testManager()
	defer m.StopAll()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once atomic.Bool
	stuck := func(ctx context.Context) error {
		if once.CompareAndSwap(false, true) {
			close(entered)
			<-release
		}
		return nil
	}
	require.NoError(t, m.Start("u1:a1", time.Millisecond, stuck))
	<-entered

	replaced := make(chan error, 1)
	go func() {
		replaced <- m.Start("u1:a1", time.Millisecond, func(ctx context.Context) error { return nil })
	}()

	// other keys stay usable while the replacement waits on the in-flight tick
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Start("u2:a2", time.Millisecond, func(ctx context.Context) error { return nil })
		m.Active("u2:a2")
		m.Stop("u2:a2")
		m.Count()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		close(release)
		t.Fatal("stream manager blocked by an in-flight tick on another key")
	}

	close(release)
	require.NoError(t, <-replaced)
	assert.True(t, m.Active("u1:a1"))
}

func TestStreamManager_RejectsIntervalOutOfRange(t *testing.T) {
	m := NewStreamManager(time.Second)
	defer m.StopAll()
	noop := func(ctx context.Context) error { return nil }

	assert.ErrorIs(t, m.Start("k", 500*time.Millisecond, noop), ErrInvalidInterval)
	assert.ErrorIs(t, m.Start("k", 61*time.Second, noop), ErrInvalidInterval)
	assert.Zero(t, m.Count())
}

func TestStreamManager_TickTimeoutAndStopAll(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := testManager()
	m.tickTimeout = 10 * time.Millisecond

	var expired atomic.Int64
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		expired.Add(1)
		return ctx.Err()
	}
	require.NoError(t, m.Start("u1:a1", 2*time.Millisecond, slow))
	require.NoError(t, m.Start("u2:a2", 2*time.Millisecond, slow))

	require.Eventually(t, func() bool { return expired.Load() >= 2 }, time.Second, time.Millisecond)

	m.StopAll()
	assert.Zero(t, m.Count())
	assert.Error(t, m.Start("u3:a3", 2*time.Millisecond, slow))
}
