// Package scheduler wakes the reminder runtime at the exact instant the next
// occurrence becomes due, so hosts are not limited to the polling cadence.
package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidWakeupTime = errors.New("scheduler: invalid wakeup time")
	ErrStopped           = errors.New("scheduler: engine stopped")
)

// Wakeup asks the engine to signal when At has passed.
type Wakeup struct {
	ReminderID string
	At         time.Time
}

type wakeupQueue []Wakeup

func (q wakeupQueue) Len() int { return len(q) }

func (q wakeupQueue) Less(i, j int) bool {
	if q[i].At.Equal(q[j].At) {
		return q[i].ReminderID < q[j].ReminderID
	}
	return q[i].At.Before(q[j].At)
}

func (q wakeupQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *wakeupQueue) Push(x any) { *q = append(*q, x.(Wakeup)) }

func (q *wakeupQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Engine holds pending wakeups in a min-heap and emits them on C once due.
// Emission never blocks: when the consumer lags the wakeup is counted as
// dropped, which is harmless because the polling tick catches up.
type Engine struct {
	mu      sync.Mutex
	queue   wakeupQueue
	out     chan Wakeup
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(wakeupQueue, 0),
		out:    make(chan Wakeup, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Wakeup {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Schedule(w Wakeup) error {
	if w.At.IsZero() {
		return ErrInvalidWakeupTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}

	heap.Push(&e.queue, w)
	e.signalWakeup()
	return nil
}

// Reset discards every pending wakeup. The runtime calls it before re-arming
// from a fresh snapshot.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = e.queue[:0]
	e.signalWakeup()
}

// Len reports the number of pending wakeups.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, ok := e.peek()
		if !ok {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		timer = resetTimer(timer, max(time.Until(next.At), 0))

		select {
		case <-timer.C:
			for _, w := range e.popDue(time.Now()) {
				select {
				case e.out <- w:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Wakeup, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return Wakeup{}, false
	}
	return e.queue[0], true
}

func (e *Engine) popDue(now time.Time) []Wakeup {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Wakeup, 0)
	for len(e.queue) > 0 && !e.queue[0].At.After(now) {
		out = append(out, heap.Pop(&e.queue).(Wakeup))
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
