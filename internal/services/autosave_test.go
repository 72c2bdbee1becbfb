package services

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerDropsTriggersBeforeInit(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)

	var runs atomic.Int32
	assert.False(t, d.Trigger(func() { runs.Add(1) }))
	assert.False(t, d.Pending())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestDebouncerRunsLatestOnce(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	d.MarkInitialized()

	var last atomic.Int32
	var runs atomic.Int32
	for i := 1; i <= 5; i++ {
		i := int32(i)
		assert.True(t, d.Trigger(func() {
			runs.Add(1)
			last.Store(i)
		}))
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(5), last.Load())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, d.Pending())
}

func TestDebouncerCancelAndFlush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	d.MarkInitialized()

	var runs atomic.Int32
	d.Trigger(func() { runs.Add(1) })
	assert.True(t, d.Pending())

	d.Cancel()
	assert.False(t, d.Pending())
	d.Flush()
	assert.Equal(t, int32(0), runs.Load())

	d.Trigger(func() { runs.Add(1) })
	d.Flush()
	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, d.Pending())
}

func TestNewDebouncerDefaultsDelay(t *testing.T) {
	assert.Equal(t, DefaultAutosaveDelay, NewDebouncer(0).delay)
}
