// Package loop provides the single cooperative executor that owns all
// adapter state. Work posted from any goroutine runs serially, in order,
// on the goroutine that called Run.
package loop

import (
	"sync"
	"time"
)

// TimerID identifies a pending timeout.
type TimerID = uint

// Loop is an unbounded task queue with timers.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
	timers map[TimerID]*time.Timer
	nextID TimerID
}

// New returns a loop that is not yet running.
func New() *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		timers: make(map[TimerID]*time.Timer),
	}
}

// Post queues f. It never blocks, so it is safe from reader goroutines
// while the loop itself waits on a controller reply.
func (l *Loop) Post(f func()) {
	l.mu.Lock()
	l.queue = append(l.queue, f)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs f on the loop and waits for it to return. It must not be
// used from the loop goroutine. Returns false if the loop stopped first.
func (l *Loop) Call(f func()) bool {
	ran := make(chan struct{})
	l.Post(func() {
		f()
		close(ran)
	})

	select {
	case <-ran:
		return true
	case <-l.done:
		return false
	}
}

// Run executes tasks until Stop is called.
func (l *Loop) Run() {
	for {
		l.mu.Lock()
		q := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, f := range q {
			f()
		}
		if len(q) != 0 {
			continue
		}

		select {
		case <-l.done:
			return
		case <-l.wake:
		}
	}
}

// Stop ends Run and cancels every timer. Queued tasks are dropped.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.mu.Lock()
		for id, t := range l.timers {
			t.Stop()
			delete(l.timers, id)
		}
		l.mu.Unlock()
		close(l.done)
	})
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// AddTimeout runs f on the loop after d. If f returns true it is
// scheduled again with the same interval.
func (l *Loop) AddTimeout(d time.Duration, f func() bool) TimerID {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	l.arm(id, d, f)
	return id
}

func (l *Loop) arm(id TimerID, d time.Duration, f func() bool) {
	l.timers[id] = time.AfterFunc(d, func() {
		l.Post(func() {
			l.mu.Lock()
			_, ok := l.timers[id]
			l.mu.Unlock()
			if !ok {
				// removed after it fired
				return
			}

			again := f()

			l.mu.Lock()
			defer l.mu.Unlock()
			if _, ok := l.timers[id]; !ok {
				return
			}
			if again {
				l.arm(id, d, f)
			} else {
				delete(l.timers, id)
			}
		})
	})
}

// RemoveTimeout cancels a pending timeout. It reports whether id was pending.
func (l *Loop) RemoveTimeout(id TimerID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.timers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(l.timers, id)
	return true
}
