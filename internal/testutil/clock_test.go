package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualTime_StartsAtEpoch(t *testing.T) {
	m := NewManualTime(0)
	assert.Equal(t, Epoch, m.Now())
	assert.Equal(t, Epoch, m.Now(), "zero step never moves")
}

func TestManualTime_StepsPerReading(t *testing.T) {
	m := NewManualTime(16 * time.Millisecond)

	first := m.Now()
	second := m.Now()
	assert.Equal(t, 16*time.Millisecond, second.Sub(first))
	assert.Equal(t, Epoch.Add(32*time.Millisecond), m.Peek())
}

func TestManualTime_Advance(t *testing.T) {
	m := NewManualTime(0)
	m.Advance(time.Second)
	assert.Equal(t, Epoch.Add(time.Second), m.Now())

	m.SetStep(time.Millisecond)
	m.Now()
	assert.Equal(t, Epoch.Add(time.Second+time.Millisecond), m.Peek())

	m.Reset()
	assert.Equal(t, Epoch, m.Peek())
}

func TestManualTime_ThreadSafe(t *testing.T) {
	m := NewManualTime(time.Nanosecond)
	const goroutines = 50
	const reads = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range reads {
				m.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(goroutines*reads*time.Nanosecond), m.Peek())
}
