// Package reactor provides the single-goroutine event loop every scope
// handler runs on. Socket readers, HTTP handlers and UI loops never touch
// session state directly: they Post closures, and the loop runs them one
// at a time in arrival order, interleaved with timers.
package reactor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Constants
const (
	NOW   = 0.0
	NEVER = 9999999999999999.0
)

// Common errors
var (
	ErrReactorClosed = errors.New("reactor: reactor closed")
	ErrTimeout       = errors.New("reactor: operation timed out")
)

// DefaultQueueSize bounds the posted-callback queue. Posters block when it
// is full; nothing is ever dropped.
const DefaultQueueSize = 256

// TimerCallback is called when a timer fires.
// The callback receives the event time and returns the next wake time.
// Return NEVER to unregister the timer.
type TimerCallback func(eventtime float64) float64

// Timer represents a registered timer.
type Timer struct {
	id       uint64
	callback TimerCallback
	waketime float64
}

// Waketime returns the timer's current wake time. Only meaningful on the
// reactor goroutine or before Run.
func (t *Timer) Waketime() float64 {
	return t.waketime
}

// Completion represents an async operation that will complete with a result.
type Completion struct {
	reactor *Reactor
	result  interface{}
	done    chan struct{}
	once    sync.Once
}

// Test returns true if the completion has a result.
func (c *Completion) Test() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Complete sets the completion result and wakes any waiters.
func (c *Completion) Complete(result interface{}) {
	c.once.Do(func() {
		c.result = result
		close(c.done)
	})
}

// Wait blocks until the completion is done or the timeout expires.
// Returns the result or timeoutResult if the timeout expires.
func (c *Completion) Wait(timeout time.Duration, timeoutResult interface{}) interface{} {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.done:
		return c.result
	case <-timer.C:
		return timeoutResult
	case <-c.reactor.ctx.Done():
		return timeoutResult
	}
}

// Reactor manages timers and posted callbacks on one goroutine.
type Reactor struct {
	mu          sync.Mutex
	timers      []*Timer
	nextTimerID uint64

	queue chan func(eventtime float64)
	wake  chan struct{}

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc

	running atomic.Bool
	wg      sync.WaitGroup

	// Start time for monotonic clock
	startTime time.Time
}

// New creates a new Reactor.
func New() *Reactor {
	return NewWithQueue(DefaultQueueSize)
}

// NewWithQueue creates a Reactor whose Post queue holds size callbacks.
func NewWithQueue(size int) *Reactor {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reactor{
		queue:     make(chan func(float64), size),
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Monotonic returns the current monotonic time in seconds.
func (r *Reactor) Monotonic() float64 {
	return time.Since(r.startTime).Seconds()
}

// Done is closed when the reactor ends.
func (r *Reactor) Done() <-chan struct{} {
	return r.ctx.Done()
}

// RegisterTimer registers a new timer with the given callback and wake time.
func (r *Reactor) RegisterTimer(callback TimerCallback, waketime float64) *Timer {
	r.mu.Lock()
	r.nextTimerID++
	timer := &Timer{
		id:       r.nextTimerID,
		callback: callback,
		waketime: waketime,
	}
	r.timers = append(r.timers, timer)
	r.mu.Unlock()

	r.kick()
	return timer
}

// UnregisterTimer removes a timer.
func (r *Reactor) UnregisterTimer(timer *Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer.waketime = NEVER
	for i, t := range r.timers {
		if t.id == timer.id {
			r.timers = append(r.timers[:i], r.timers[i+1:]...)
			break
		}
	}
}

// UpdateTimer updates a timer's wake time.
func (r *Reactor) UpdateTimer(timer *Timer, waketime float64) {
	r.mu.Lock()
	timer.waketime = waketime
	r.mu.Unlock()
	r.kick()
}

// Completion creates a new Completion object.
func (r *Reactor) Completion() *Completion {
	return &Completion{
		reactor: r,
		done:    make(chan struct{}),
	}
}

// Post queues fn to run on the reactor goroutine. Callbacks run in the
// order they were posted. Post blocks while the queue is full and fails
// only once the reactor has ended.
func (r *Reactor) Post(fn func(eventtime float64)) error {
	if r.ctx.Err() != nil {
		return ErrReactorClosed
	}
	select {
	case r.queue <- fn:
		return nil
	case <-r.ctx.Done():
		return ErrReactorClosed
	}
}

// Call runs fn on the reactor goroutine and waits for its result.
func (r *Reactor) Call(fn func(eventtime float64) interface{}, timeout time.Duration) (interface{}, error) {
	c := r.Completion()
	if err := r.Post(func(eventtime float64) {
		c.Complete(fn(eventtime))
	}); err != nil {
		return nil, err
	}
	res := c.Wait(timeout, c)
	if res == c {
		if r.ctx.Err() != nil {
			return nil, ErrReactorClosed
		}
		return nil, ErrTimeout
	}
	return res, nil
}

// Run starts the reactor's main dispatch loop.
func (r *Reactor) Run() {
	if r.running.Swap(true) {
		return // Already running
	}

	r.wg.Add(1)
	go r.dispatchLoop()
}

// End signals the reactor to stop.
func (r *Reactor) End() {
	r.running.Store(false)
	r.cancel()
}

// Wait waits for the reactor to stop.
func (r *Reactor) Wait() {
	r.wg.Wait()
}

func (r *Reactor) kick() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// dispatchLoop is the main event dispatch loop.
func (r *Reactor) dispatchLoop() {
	defer r.wg.Done()

	sleep := time.NewTimer(time.Hour)
	defer sleep.Stop()

	for r.running.Load() {
		timeout := r.checkTimers(r.Monotonic())

		delay := time.Duration(timeout * float64(time.Second))
		if delay > time.Second {
			delay = time.Second
		}
		if !sleep.Stop() {
			select {
			case <-sleep.C:
			default:
			}
		}
		sleep.Reset(delay)

		select {
		case fn := <-r.queue:
			fn(r.Monotonic())
		case <-r.wake:
		case <-sleep.C:
		case <-r.ctx.Done():
			return
		}
	}
}

// checkTimers fires due timers and returns the time until the next one.
func (r *Reactor) checkTimers(eventtime float64) float64 {
	r.mu.Lock()
	timers := make([]*Timer, len(r.timers))
	copy(timers, r.timers)
	r.mu.Unlock()

	for _, timer := range timers {
		r.mu.Lock()
		due := eventtime >= timer.waketime
		if due {
			timer.waketime = NEVER
		}
		r.mu.Unlock()
		if !due {
			continue
		}

		next := timer.callback(eventtime)

		r.mu.Lock()
		if next < timer.waketime {
			timer.waketime = next
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	nextWake := NEVER
	for _, timer := range r.timers {
		if timer.waketime < nextWake {
			nextWake = timer.waketime
		}
	}
	delay := nextWake - r.Monotonic()
	if delay < 0 {
		delay = 0
	}
	return delay
}
