package tick

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// DefaultDelay is the "next tick" used for deferred delivery.
const DefaultDelay = time.Millisecond

var ErrStopped = errors.New("tick: loop stopped")

// Scheduler runs fn once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// Timer schedules on the runtime timer. Callbacks run on their own goroutine.
type Timer struct{}

func (Timer) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

type queued struct {
	due time.Duration
	seq int
	fn  func()
}

// Manual is a scheduler driven by the caller. Nothing runs until Advance or
// RunAll is called, and everything runs on the calling goroutine.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	queue []queued
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.queue = append(m.queue, queued{due: m.now + d, seq: m.seq, fn: fn})
}

// Pending reports how many callbacks are waiting.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Advance moves the clock forward and runs every callback that became due,
// including ones scheduled by callbacks while advancing.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	ran := 0
	for {
		fn, ok := m.next(target)
		if !ok {
			break
		}
		fn()
		ran++
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
	return ran
}

// RunAll runs callbacks until the queue is empty.
func (m *Manual) RunAll() int {
	ran := 0
	for {
		fn, ok := m.next(-1)
		if !ok {
			return ran
		}
		fn()
		ran++
	}
}

func (m *Manual) next(until time.Duration) (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil, false
	}
	sort.SliceStable(m.queue, func(i, j int) bool {
		if m.queue[i].due != m.queue[j].due {
			return m.queue[i].due < m.queue[j].due
		}
		return m.queue[i].seq < m.queue[j].seq
	})
	q := m.queue[0]
	if until >= 0 && q.due > until {
		return nil, false
	}
	m.queue = m.queue[1:]
	if q.due > m.now {
		m.now = q.due
	}
	return q.fn, true
}

// Loop is a single goroutine executor. Work handed to Do and callbacks
// scheduled through AfterFunc are run one at a time on the goroutine that
// called Run, so state touched only from the loop needs no locking. Work
// queued after Run returned is dropped.
type Loop struct {
	work chan func()
	done chan struct{}
	stop sync.Once
}

func NewLoop() *Loop {
	return &Loop{
		work: make(chan func(), 64),
		done: make(chan struct{}),
	}
}

// Run processes work until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.work:
			fn()
		}
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case l.work <- func() {
		defer close(done)
		fn()
	}:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go queues fn on the loop without waiting. It reports false once the loop
// has stopped.
func (l *Loop) Go(fn func()) bool {
	select {
	case l.work <- fn:
		return true
	case <-l.done:
		return false
	}
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		l.Go(fn)
	})
}
