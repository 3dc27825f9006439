// Package runloop provides the single-goroutine cooperative loop that owns all
// scheduling state. Timers are measured against an injected Clock rather than
// wall time, so tests drive the loop by advancing a fake clock and calling
// RunDue.
package runloop

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Clock is a monotonic time source in seconds.
type Clock interface {
	Now() float64
}

// DefaultResolution is how often Run wakes up to check for due timers.
const DefaultResolution = 5 * time.Millisecond

// ErrClosed is returned by Call once the loop has stopped running.
var ErrClosed = errors.New("runloop: loop closed")

// Timer is a scheduled callback returned by Every and At.
type Timer struct {
	loop     *Loop
	due      float64
	interval float64 // 0 for one-shot
	fn       func()
	seq      uint64
	active   bool
}

// Stop cancels future runs of the timer. It reports whether the timer was
// still active.
func (t *Timer) Stop() bool {
	if t == nil || !t.active {
		return false
	}
	t.active = false
	t.loop.remove(t)
	return true
}

// Active reports whether the timer will run again.
func (t *Timer) Active() bool {
	return t != nil && t.active
}

// Due returns the clock time of the next run.
func (t *Timer) Due() float64 {
	return t.due
}

type Loop struct {
	clock Clock

	// Resolution is the wake-up cadence of Run.
	Resolution time.Duration

	timers []*Timer // sorted by (due, seq)
	seq    uint64

	mu     sync.Mutex
	posted []func()
	wake   chan struct{}
	closed bool
}

func New(clock Clock) *Loop {
	return &Loop{
		clock:      clock,
		Resolution: DefaultResolution,
		wake:       make(chan struct{}, 1),
	}
}

// Now reads the loop's clock.
func (l *Loop) Now() float64 {
	return l.clock.Now()
}

// Every runs fn every interval seconds, starting one interval from now.
// Must be called from the loop goroutine (or before Run starts).
func (l *Loop) Every(interval float64, fn func()) *Timer {
	if interval <= 0 {
		interval = DefaultResolution.Seconds()
	}
	t := &Timer{loop: l, due: l.clock.Now() + interval, interval: interval, fn: fn}
	l.insert(t)
	return t
}

// At runs fn once, on the first loop pass where the clock has reached t.
// It never runs early.
func (l *Loop) At(at float64, fn func()) *Timer {
	t := &Timer{loop: l, due: at, fn: fn}
	l.insert(t)
	return t
}

// Pending returns the number of active timers.
func (l *Loop) Pending() int {
	return len(l.timers)
}

func (l *Loop) insert(t *Timer) {
	l.seq++
	t.seq = l.seq
	t.active = true
	i := sort.Search(len(l.timers), func(i int) bool {
		o := l.timers[i]
		return o.due > t.due || (o.due == t.due && o.seq > t.seq)
	})
	l.timers = append(l.timers, nil)
	copy(l.timers[i+1:], l.timers[i:])
	l.timers[i] = t
}

func (l *Loop) remove(t *Timer) {
	for i, o := range l.timers {
		if o == t {
			l.timers = append(l.timers[:i], l.timers[i+1:]...)
			return
		}
	}
}

// Post queues fn to run on the loop goroutine. Safe from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call posts fn and waits for it to finish. A task accepted before Run
// returns always runs, either on the loop or while Run drains on exit.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.posted = append(l.posted, func() {
		fn()
		close(done)
	})
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunDue runs posted tasks and then every timer whose due time has been
// reached, in due order.
func (l *Loop) RunDue() {
	l.mu.Lock()
	tasks := l.posted
	l.posted = nil
	l.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}

	for len(l.timers) > 0 {
		now := l.clock.Now()
		t := l.timers[0]
		if t.due > now {
			return
		}
		l.timers = l.timers[1:]
		if t.interval > 0 {
			next := t.due + t.interval
			if next <= now {
				// stalled: resume the cadence from now instead of bursting
				next = now + t.interval
			}
			t.due = next
			l.insert(t)
		} else {
			t.active = false
		}
		t.fn()
	}
}

// Run drives the loop in real time until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	res := l.Resolution
	if res <= 0 {
		res = DefaultResolution
	}
	l.mu.Lock()
	l.closed = false
	l.mu.Unlock()

	ticker := time.NewTicker(res)
	defer ticker.Stop()
	defer func() {
		l.mu.Lock()
		l.closed = true
		tasks := l.posted
		l.posted = nil
		l.mu.Unlock()
		for _, fn := range tasks {
			fn()
		}
	}()

	for {
		l.RunDue()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-l.wake:
		}
	}
}
