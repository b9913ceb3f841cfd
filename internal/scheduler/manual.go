package scheduler

import (
	"sync"
	"time"
)

// Manual is a virtual-time scheduler. Callbacks run synchronously inside
// Advance, in due order.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	tasks  map[int]*manualTask
}

type manualTask struct {
	interval time.Duration
	next     time.Time
	fn       func()
}

// NewManual creates a virtual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:   start,
		tasks: make(map[int]*manualTask, 4),
	}
}

// Every implements Scheduler.
func (m *Manual) Every(interval time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.tasks[id] = &manualTask{
		interval: interval,
		next:     m.now.Add(interval),
		fn:       fn,
	}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		delete(m.tasks, id)
	}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// Pending returns the number of active registrations.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.tasks)
}

// Advance moves virtual time forward by d, firing every callback that
// falls due on the way.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()

		var (
			due   *manualTask
			dueID int
		)

		for id, task := range m.tasks {
			if task.next.After(target) {
				continue
			}

			if due == nil || task.next.Before(due.next) ||
				(task.next.Equal(due.next) && id < dueID) {
				due, dueID = task, id
			}
		}

		if due == nil {
			m.now = target
			m.mu.Unlock()

			return
		}

		m.now = due.next
		due.next = due.next.Add(due.interval)
		fn := due.fn
		m.mu.Unlock()

		fn()
	}
}
