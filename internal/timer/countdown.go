// Package timer implements the durable exam countdown. The start instant is
// persisted once per attempt and remaining time is recomputed from the wall
// clock on every read, so a reloaded client resumes where it left off.
package timer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrNotStarted = errors.New("countdown not started")

// TimeUpFunc is called once when the countdown expires.
type TimeUpFunc func(ctx context.Context) error

// TickFunc receives the remaining seconds on every tick.
type TickFunc func(remaining int)

type Option func(*Countdown)

func WithClock(clock Clock) Option {
	return func(c *Countdown) { c.clock = clock }
}

func WithTimeUp(fn TimeUpFunc) Option {
	return func(c *Countdown) { c.onTimeUp = fn }
}

func WithTick(fn TickFunc) Option {
	return func(c *Countdown) { c.onTick = fn }
}

func WithInterval(d time.Duration) Option {
	return func(c *Countdown) { c.interval = d }
}

// Countdown drives one attempt's timer. Expiry triggers the time-up callback
// at most once per countdown, and at most once per persisted marker across
// countdowns sharing a store.
type Countdown struct {
	key      Key
	duration time.Duration
	store    Store
	clock    Clock
	interval time.Duration
	onTimeUp TimeUpFunc
	onTick   TickFunc

	mu        sync.Mutex
	marker    *Marker
	fired     bool
	finalized bool
}

func New(store Store, key Key, duration time.Duration, opts ...Option) *Countdown {
	c := &Countdown{
		key:      key,
		duration: duration,
		store:    store,
		clock:    SystemClock{},
		interval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Countdown) Key() Key {
	return c.key
}

// Init persists the start instant if none exists yet and returns the
// remaining seconds. An already expired countdown fires immediately.
func (c *Countdown) Init(ctx context.Context) (int, error) {
	m, err := c.store.Start(ctx, c.key, Marker{StartedAt: c.clock.Now(), Duration: c.duration})
	if err != nil {
		return 0, fmt.Errorf("failed to start countdown: %w", err)
	}
	return c.adopt(ctx, m)
}

// Resume attaches to an existing marker without creating one.
func (c *Countdown) Resume(ctx context.Context) (int, error) {
	m, ok, err := c.store.Load(ctx, c.key)
	if err != nil {
		return 0, fmt.Errorf("failed to load countdown: %w", err)
	}
	if !ok {
		return 0, ErrNotStarted
	}
	return c.adopt(ctx, m)
}

func (c *Countdown) adopt(ctx context.Context, m Marker) (int, error) {
	c.mu.Lock()
	c.marker = &m
	c.mu.Unlock()

	remaining := m.Remaining(c.clock.Now())
	if remaining <= 0 {
		return 0, c.expire(ctx)
	}
	return remaining, nil
}

// Remaining returns the seconds left, never negative.
func (c *Countdown) Remaining() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.marker == nil {
		return 0, ErrNotStarted
	}
	return max(c.marker.Remaining(c.clock.Now()), 0), nil
}

// Expired reports whether the time-up path already ran or the countdown
// reached zero.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fired {
		return true
	}
	return c.marker != nil && c.marker.Remaining(c.clock.Now()) <= 0
}

// Run ticks until the countdown expires, is finalized or ctx is done. The
// first tick is emitted immediately.
func (c *Countdown) Run(ctx context.Context) error {
	if _, err := c.Remaining(); err != nil {
		return err
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if c.isFinalized() {
			return nil
		}
		remaining, err := c.Remaining()
		if err != nil {
			return err
		}
		if c.onTick != nil {
			c.onTick(remaining)
		}
		if remaining <= 0 {
			return c.expire(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Finalize stops the countdown for good and clears the persisted marker.
// Call it after a successful submit.
func (c *Countdown) Finalize(ctx context.Context) error {
	c.mu.Lock()
	c.finalized = true
	c.mu.Unlock()

	if _, err := c.store.Release(ctx, c.key); err != nil {
		return fmt.Errorf("failed to clear countdown: %w", err)
	}
	return nil
}

func (c *Countdown) isFinalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalized
}

func (c *Countdown) expire(ctx context.Context) error {
	c.mu.Lock()
	if c.fired || c.finalized {
		c.mu.Unlock()
		return nil
	}
	c.fired = true
	c.mu.Unlock()

	// Releasing the marker claims the expiry. Another countdown on the same
	// key that lost the race must not submit again.
	claimed, err := c.store.Release(ctx, c.key)
	if err != nil {
		return fmt.Errorf("failed to claim expired countdown: %w", err)
	}

	c.mu.Lock()
	c.finalized = true
	marker := c.marker
	c.mu.Unlock()

	if !claimed || c.onTimeUp == nil {
		return nil
	}
	if err := c.onTimeUp(ctx); err != nil {
		return c.restore(ctx, marker, err)
	}
	return nil
}

// restore puts the claimed marker back after a failed time-up so the next
// Init or Resume retries the expiry instead of starting a fresh countdown.
func (c *Countdown) restore(ctx context.Context, marker *Marker, cause error) error {
	c.mu.Lock()
	c.fired = false
	c.finalized = false
	c.mu.Unlock()

	if marker == nil {
		return cause
	}
	if _, err := c.store.Start(context.WithoutCancel(ctx), c.key, *marker); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to restore countdown: %w", err))
	}
	return cause
}
