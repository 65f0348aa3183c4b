package breaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }
func succeeding(context.Context) error { return nil }

func TestClosedPassesThrough(t *testing.T) {
	b := New("test", 3, time.Minute, time.Second)

	require.NoError(t, b.Do(context.Background(), succeeding))
	assert.Equal(t, StateClosed, b.State())
}

func TestOpensAfterThresholdFailures(t *testing.T) {
	b := New("test", 3, time.Minute, time.Second)

	for i := 0; i < 3; i++ {
		err := b.Do(context.Background(), failing)
		require.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, StateOpen, b.State())

	// Further calls are rejected without invoking the function.
	called := false
	err := b.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestFailureCountResetsOnSuccess(t *testing.T) {
	b := New("test", 3, time.Minute, time.Second)

	require.Error(t, b.Do(context.Background(), failing))
	require.Error(t, b.Do(context.Background(), failing))
	require.NoError(t, b.Do(context.Background(), succeeding))

	snap := b.Snapshot()
	assert.Equal(t, 0, snap.Failures)
	assert.Equal(t, StateClosed, snap.State)
}

func TestHalfOpenAfterResetTimeout(t *testing.T) {
	b := New("test", 1, 20*time.Millisecond, time.Second)

	require.Error(t, b.Do(context.Background(), failing))
	require.Equal(t, StateOpen, b.State())

	time.Sleep(30 * time.Millisecond)

	// Trial call succeeds: breaker closes and counter resets.
	require.NoError(t, b.Do(context.Background(), succeeding))
	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 0, snap.Failures)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := New("test", 1, 20*time.Millisecond, time.Second)

	require.Error(t, b.Do(context.Background(), failing))
	time.Sleep(30 * time.Millisecond)

	before := b.Snapshot().LastFailure
	require.ErrorIs(t, b.Do(context.Background(), failing), errBoom)

	snap := b.Snapshot()
	assert.Equal(t, StateOpen, snap.State)
	assert.True(t, snap.LastFailure.After(before), "failure timestamp should be refreshed")

	// Reset window restarts from the new failure.
	assert.ErrorIs(t, b.Do(context.Background(), succeeding), ErrCircuitOpen)
}

func TestTimeoutCountsAsFailure(t *testing.T) {
	b := New("test", 1, time.Minute, 20*time.Millisecond)

	err := b.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, StateOpen, b.State())
}

func TestSingleTrialWhileHalfOpen(t *testing.T) {
	b := New("test", 1, 10*time.Millisecond, time.Second)

	require.Error(t, b.Do(context.Background(), failing))
	time.Sleep(20 * time.Millisecond)

	release := make(chan struct{})
	var admitted, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Do(context.Background(), func(context.Context) error {
				admitted.Add(1)
				<-release
				return nil
			})
			if errors.Is(err, ErrCircuitOpen) {
				rejected.Add(1)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load(), "exactly one trial call should pass while half-open")
	assert.Equal(t, int32(7), rejected.Load())
	assert.Equal(t, StateClosed, b.State())
}

func TestCancelledContextPropagates(t *testing.T) {
	b := New("test", 3, time.Minute, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Do(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCallerCancellationNotCountedAsFailure(t *testing.T) {
	b := New("test", 1, time.Minute, time.Second)

	blocking := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	// Several callers hanging up against a healthy dependency must not trip
	// the breaker.
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := b.Do(ctx, blocking)
		require.ErrorIs(t, err, context.Canceled)
	}

	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 0, snap.Failures)

	// The dependency is still reachable afterwards.
	require.NoError(t, b.Do(context.Background(), succeeding))
}

func TestMidCallCancellationNotCountedAsFailure(t *testing.T) {
	b := New("test", 1, time.Minute, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := b.Do(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)

	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 0, snap.Failures)
}
