package timer

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

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testKey = Key{FormID: "form-1", ActorID: "user-1", DeviceID: "device-1"}

func TestInitPersistsStartOnlyOnce(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()

	first := New(store, testKey, time.Minute, WithClock(clock))
	remaining, err := first.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, remaining)

	clock.Advance(25 * time.Second)

	// A reload builds a fresh countdown; it must resume from the stored start.
	second := New(store, testKey, time.Minute, WithClock(clock))
	remaining, err = second.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, 35, remaining)

	m, ok, err := store.Load(ctx, testKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Minute, m.Duration)
}

func TestInitAfterExpiryFiresExactlyOnce(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()
	_, err := store.Start(ctx, testKey, Marker{StartedAt: clock.Now().Add(-90 * time.Second), Duration: time.Minute})
	require.NoError(t, err)

	var calls int32
	c := New(store, testKey, time.Minute, WithClock(clock), WithTimeUp(func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	remaining, err := c.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	remaining, err = c.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, c.Expired())
}

func TestExpiryClaimIsSharedAcrossCountdowns(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()
	_, err := store.Start(ctx, testKey, Marker{StartedAt: clock.Now().Add(-2 * time.Minute), Duration: time.Minute})
	require.NoError(t, err)

	var calls int32
	onTimeUp := WithTimeUp(func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := New(store, testKey, time.Minute, WithClock(clock), onTimeUp)
			_, _ = c.Resume(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFailedTimeUpKeepsMarkerForRetry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()
	started := Marker{StartedAt: clock.Now().Add(-2 * time.Minute), Duration: time.Minute}
	_, err := store.Start(ctx, testKey, started)
	require.NoError(t, err)

	storeDown := errors.New("store down")
	var calls int32
	c := New(store, testKey, time.Minute, WithClock(clock), WithTimeUp(func(context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return storeDown
		}
		return nil
	}))

	_, err = c.Resume(ctx)
	require.ErrorIs(t, err, storeDown)

	m, ok, err := store.Load(ctx, testKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, started.StartedAt, m.StartedAt)

	// Init must not hand out a fresh duration; it retries the expiry.
	remaining, err := c.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, ok, err = store.Load(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResumeWithoutMarker(t *testing.T) {
	c := New(NewMemoryStore(), testKey, time.Minute)

	_, err := c.Resume(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = c.Remaining()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestRunTicksAndFiresOnExpiry(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := newFakeClock()
	store := NewMemoryStore()

	var (
		mu    sync.Mutex
		ticks []int
		calls int32
	)
	c := New(store, testKey, 3*time.Second,
		WithClock(clock),
		WithInterval(time.Millisecond),
		WithTick(func(remaining int) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
			clock.Advance(time.Second)
		}),
		WithTimeUp(func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		}),
	)

	_, err := c.Init(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{3, 2, 1, 0}, ticks)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, ok, err := store.Load(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, ok, "expiry clears the marker")
}

func TestFinalizeStopsRunAndClearsMarker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := newFakeClock()
	store := NewMemoryStore()

	var calls int32
	c := New(store, testKey, time.Minute,
		WithClock(clock),
		WithInterval(time.Millisecond),
		WithTimeUp(func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		}),
	)
	_, err := c.Init(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.NoError(t, c.Finalize(ctx))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("run did not stop after finalize")
	}

	clock.Advance(2 * time.Minute)
	_, err = c.Init(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "a finalized countdown never fires")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New(NewMemoryStore(), testKey, time.Hour, WithInterval(time.Millisecond))
	_, err := c.Init(ctx)
	require.NoError(t, err)

	cancel()
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
}

func TestMarkerRemaining(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := Marker{StartedAt: start, Duration: time.Minute}

	assert.Equal(t, 60, m.Remaining(start))
	assert.Equal(t, 60, m.Remaining(start.Add(900*time.Millisecond)))
	assert.Equal(t, 59, m.Remaining(start.Add(time.Second)))
	assert.Equal(t, -30, m.Remaining(start.Add(90*time.Second)))
}
