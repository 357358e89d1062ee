package sched

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_After_RunsTask(t *testing.T) {
	// Given: the production scheduler
	s := NewTimer()
	done := make(chan struct{})

	// When: scheduling with a tiny delay
	s.After(time.Millisecond, func() { close(done) })

	// Then: the task runs
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled task never ran")
	}
}

func TestManual_After_QueuesWithoutRunning(t *testing.T) {
	m := NewManual()
	ran := false

	m.After(30*time.Second, func() { ran = true })

	assert.False(t, ran)
	assert.Equal(t, 1, m.Pending())

	d, ok := m.NextDelay()
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, d)
}

func TestManual_Fire_RunsOldestFirst(t *testing.T) {
	m := NewManual()
	var order []int
	m.After(time.Second, func() { order = append(order, 1) })
	m.After(time.Second, func() { order = append(order, 2) })

	require.True(t, m.Fire())
	require.True(t, m.Fire())
	assert.False(t, m.Fire())

	assert.Equal(t, []int{1, 2}, order)
}

func TestManual_FireAll_DrainsRequeues(t *testing.T) {
	// Given: a task that schedules a follow-up
	m := NewManual()
	var order []int
	m.After(time.Second, func() {
		order = append(order, 1)
		m.After(time.Second, func() { order = append(order, 2) })
	})

	// When: draining
	n := m.FireAll()

	// Then: the follow-up ran too
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_After_ConcurrentSchedulers(t *testing.T) {
	m := NewManual()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.After(time.Second, func() {})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, m.Pending())
}
