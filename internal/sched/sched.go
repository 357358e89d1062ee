// Package sched provides delayed one-shot task execution. The index uses it
// to retire superseded reader generations after a grace period.
package sched

import (
	"sync"
	"time"
)

// Scheduler runs fn once, after roughly d has elapsed. Implementations are
// fire-and-forget: scheduled tasks cannot be cancelled and run on their own
// goroutine.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// Timer schedules tasks on the runtime timer heap.
type Timer struct{}

var _ Scheduler = (*Timer)(nil)

// NewTimer returns the production Scheduler.
func NewTimer() *Timer {
	return &Timer{}
}

// After implements Scheduler via time.AfterFunc.
func (*Timer) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// Manual queues tasks and runs them only when told to. It exists so tests can
// drive grace-period expiry deterministically.
type Manual struct {
	mu    sync.Mutex
	tasks []manualTask
}

type manualTask struct {
	delay time.Duration
	fn    func()
}

var _ Scheduler = (*Manual)(nil)

// NewManual returns an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// After queues fn without running it.
func (m *Manual) After(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, manualTask{delay: d, fn: fn})
}

// Pending reports how many tasks are queued.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// NextDelay returns the delay of the oldest queued task.
func (m *Manual) NextDelay() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return 0, false
	}
	return m.tasks[0].delay, true
}

// Fire runs and removes the oldest queued task, reporting whether one existed.
// The task runs outside the scheduler lock, like a real timer callback.
func (m *Manual) Fire() bool {
	m.mu.Lock()
	if len(m.tasks) == 0 {
		m.mu.Unlock()
		return false
	}
	t := m.tasks[0]
	m.tasks = m.tasks[1:]
	m.mu.Unlock()

	t.fn()
	return true
}

// FireAll drains the queue in order and returns the number of tasks run.
// Tasks queued by a running task are drained too.
func (m *Manual) FireAll() int {
	n := 0
	for m.Fire() {
		n++
	}
	return n
}
