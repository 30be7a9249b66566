package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClock_AdvancesByStep(t *testing.T) {
	clock := NewStepClock(5 * time.Millisecond)

	first := clock.Now()
	second := clock.Now()
	assert.Equal(t, 5*time.Millisecond, second.Sub(first))
	assert.Equal(t, int64(2), clock.Ticks())
}

func TestStepClock_DefaultStep(t *testing.T) {
	clock := NewStepClock(0)
	first := clock.Now()
	assert.Equal(t, time.Millisecond, clock.Now().Sub(first))
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(time.Second)
	first := clock.Now()
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Ticks())
	assert.Equal(t, first, clock.Now())
}

func TestStepClock_ThreadSafe(t *testing.T) {
	clock := NewStepClock(time.Millisecond)
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				clock.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(numGoroutines*callsPerGoroutine), clock.Ticks())
}
