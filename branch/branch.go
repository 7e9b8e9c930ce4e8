// Package branch implements a single elastic worker pool: a task deque,
// a pluggable wait strategy for idle workers, and cooperative add/remove of
// workers that never kills a worker mid-task.
package branch

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Branch owns one task queue and the set of workers draining it. All
// mutation of worker bookkeeping (decline counters, quiescence handshake
// state) goes through mu; the queue guards its own contents separately, so
// a worker can pop and run a task without holding the branch lock.
type Branch struct {
	mu sync.Mutex

	strategy WaitStrategy
	queue    *TaskQueue

	workers      map[int]struct{}
	nextWorkerID int
	decline      int
	destructing  bool
	closed       bool

	// isWaiting does not pause task execution: a worker still finishes
	// whatever it already popped, and keeps popping, until it finds the
	// queue empty. Quiescence is observed, not enforced.
	isWaiting              bool
	taskDoneWorkers        int
	waitingFinishedWorkers int

	taskCV            *sync.Cond // Blocking-strategy workers park here
	threadCV          *sync.Cond // resume signal (WaitTasks phase 2, Shutdown decline-drained)
	taskDoneCV        *sync.Cond // WaitTasks phase 1 arrivals
	waitingFinishedCV *sync.Cond // WaitTasks phase 2 arrivals

	wg sync.WaitGroup

	name    string
	logger  func(format string, args ...interface{})
	metrics *Metrics
}

// NewBranch creates a branch with the given initial worker count (at least
// one) and starts its workers immediately.
func NewBranch(workers int, opts ...Option) *Branch {
	if workers < 1 {
		workers = 1
	}
	b := &Branch{
		strategy: DefaultWaitStrategy,
		queue:    NewTaskQueue(),
		workers:  make(map[int]struct{}),
		logger:   func(format string, args ...interface{}) { log.Printf(format, args...) },
	}
	b.taskCV = sync.NewCond(&b.mu)
	b.threadCV = sync.NewCond(&b.mu)
	b.taskDoneCV = sync.NewCond(&b.mu)
	b.waitingFinishedCV = sync.NewCond(&b.mu)

	for _, opt := range opts {
		opt(b)
	}
	for i := 0; i < workers; i++ {
		b.AddWorker()
	}
	return b
}

func (b *Branch) logf(format string, args ...interface{}) {
	if b.logger != nil {
		b.logger(format, args...)
	}
}

// AddWorker starts one more worker goroutine.
func (b *Branch) AddWorker() {
	b.mu.Lock()
	id := b.nextWorkerID
	b.nextWorkerID++
	b.workers[id] = struct{}{}
	b.metrics.setWorkers(len(b.workers))
	b.mu.Unlock()

	b.wg.Add(1)
	go b.mission(id)
}

// DelWorker asks exactly one worker to exit once it next reaches a safe
// point; it never interrupts a task in progress. Returns ErrNoWorkers if
// the branch is already empty.
func (b *Branch) DelWorker() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.workers) == 0 {
		return ErrNoWorkers
	}
	b.decline++
	if b.strategy == Blocking {
		b.taskCV.Signal()
	}
	return nil
}

// NumWorkers reports the current worker count.
func (b *Branch) NumWorkers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.workers)
}

// NumTasks reports the number of tasks waiting in the queue.
func (b *Branch) NumTasks() int {
	return b.queue.Len()
}

// Stats returns a snapshot of worker and queue load, for a supervisor's
// scaling heuristic or external monitoring.
func (b *Branch) Stats() Stats {
	return Stats{Workers: b.NumWorkers(), Tasks: b.NumTasks()}
}

func (b *Branch) enqueue(j *job, urgent bool) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.mu.Unlock()

	if urgent {
		b.queue.PushFront(j)
	} else {
		b.queue.PushBack(j)
	}
	b.metrics.onSubmit()
	b.metrics.setQueued(b.queue.Len())

	if b.strategy == Blocking {
		b.mu.Lock()
		b.taskCV.Signal()
		b.mu.Unlock()
	}
	return nil
}

// Submit enqueues fn at the back of the queue.
func (b *Branch) Submit(fn func(), opts ...TaskOption) error {
	return b.submitOne(fn, false, opts)
}

// SubmitUrgent enqueues fn at the front of the queue, ahead of work already waiting.
func (b *Branch) SubmitUrgent(fn func(), opts ...TaskOption) error {
	return b.submitOne(fn, true, opts)
}

func (b *Branch) submitOne(fn func(), urgent bool, opts []TaskOption) error {
	cfg := newTaskConfig(opts)
	var failed bool
	j := &job{
		tag:   cfg.tag,
		logFn: b.logger,
		steps: []func(){fn},
		onPanic: func(tag string, cause interface{}) {
			failed = true
			b.metrics.onFailure()
		},
	}
	j.after = func() {
		if !failed {
			b.metrics.onComplete()
		}
	}
	return b.enqueue(j, urgent)
}

// SubmitSequence binds fns into a single task: one worker runs them back to
// back, stopping at (and reporting) the first step that panics. The whole
// chain lands as one entry at the back of the queue.
func (b *Branch) SubmitSequence(fns []func(), opts ...TaskOption) error {
	if len(fns) == 0 {
		return ErrEmptySequence
	}
	cfg := newTaskConfig(opts)
	var failed bool
	steps := make([]func(), len(fns))
	copy(steps, fns)
	j := &job{
		tag:   cfg.tag,
		logFn: b.logger,
		steps: steps,
		onPanic: func(tag string, cause interface{}) {
			failed = true
			b.metrics.onFailure()
		},
	}
	j.after = func() {
		if !failed {
			b.metrics.onComplete()
		}
	}
	return b.enqueue(j, false)
}

// Result carries the outcome of a SubmitResult/SubmitResultUrgent task.
type Result[T any] struct {
	Value T
	Err   error
}

// SubmitResult runs fn on the branch and delivers its outcome on the
// returned channel, which receives exactly one value and is then closed
// once the task runs. A task that Shutdown discards from the queue never
// runs, so its channel receives nothing and is never closed.
func SubmitResult[T any](b *Branch, fn func() (T, error), opts ...TaskOption) (<-chan Result[T], error) {
	return submitResult(b, fn, false, opts)
}

// SubmitResultUrgent is SubmitResult with front-of-queue placement.
func SubmitResultUrgent[T any](b *Branch, fn func() (T, error), opts ...TaskOption) (<-chan Result[T], error) {
	return submitResult(b, fn, true, opts)
}

func submitResult[T any](b *Branch, fn func() (T, error), urgent bool, opts []TaskOption) (<-chan Result[T], error) {
	cfg := newTaskConfig(opts)
	ch := make(chan Result[T], 1)
	var failed bool
	j := &job{
		tag:   cfg.tag,
		logFn: b.logger,
		steps: []func(){func() {
			v, err := fn()
			ch <- Result[T]{Value: v, Err: err}
		}},
		onPanic: func(tag string, cause interface{}) {
			failed = true
			b.metrics.onFailure()
			var zero T
			ch <- Result[T]{Value: zero, Err: &TaskFailure{Tag: tag, Cause: cause}}
		},
	}
	j.after = func() {
		close(ch)
		if !failed {
			b.metrics.onComplete()
		}
	}
	return ch, b.enqueue(j, urgent)
}

// WaitTasks blocks until every worker that reported the queue empty in
// Phase 1 has resumed, or until timeout elapses. A zero timeout returns
// false immediately without blocking; a negative timeout waits
// indefinitely, the same sentinel convention Suspend uses. It returns
// false if the timeout expired before quiescence was observed, but Phase
// 2 always runs to completion regardless: only the workers that actually
// parked in Phase 1 are required to resume, so a worker still mid-task
// when the timeout fires (and so never reached the quiescence path) is
// never waited on. A second call while one is already outstanding
// returns ErrWaitInProgress immediately.
func (b *Branch) WaitTasks(timeout time.Duration) (bool, error) {
	b.mu.Lock()
	if b.isWaiting {
		b.mu.Unlock()
		return false, ErrWaitInProgress
	}
	if timeout == 0 {
		b.mu.Unlock()
		return false, nil
	}
	b.isWaiting = true
	if b.strategy == Blocking {
		b.taskCV.Broadcast()
	}

	var timedOut atomic.Bool
	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, func() {
			b.mu.Lock()
			timedOut.Store(true)
			b.taskDoneCV.Broadcast()
			b.mu.Unlock()
		})
	}
	for b.taskDoneWorkers < len(b.workers) && !timedOut.Load() {
		b.taskDoneCV.Wait()
	}
	if timer != nil {
		timer.Stop()
	}
	completed := !timedOut.Load()
	quiesced := b.taskDoneWorkers
	b.taskDoneWorkers = 0
	b.isWaiting = false
	b.mu.Unlock()

	b.mu.Lock()
	b.threadCV.Broadcast()
	for b.waitingFinishedWorkers < quiesced {
		b.waitingFinishedCV.Wait()
	}
	b.waitingFinishedWorkers = 0
	b.mu.Unlock()

	return completed, nil
}

// Shutdown asks every worker to exit at its next safe point and blocks
// until all of them have. A task already in flight runs to completion, but
// anything still waiting in the queue is discarded, never popped. After
// Shutdown returns, Submit* calls fail with ErrClosed.
func (b *Branch) Shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.decline = len(b.workers)
	b.destructing = true
	if b.strategy == Blocking {
		b.taskCV.Broadcast()
	}
	for b.decline > 0 {
		b.threadCV.Wait()
	}
	b.mu.Unlock()

	b.wg.Wait()

	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// mission is a worker's run loop. Priority order, in this order every
// iteration: run a queued task if one is ready; honor a pending decline by
// exiting; report quiescence during an outstanding WaitTasks; otherwise
// idle per the configured wait strategy.
func (b *Branch) mission(id int) {
	defer b.wg.Done()
	spinCount := 0

	for {
		b.mu.Lock()
		decline := b.decline
		b.mu.Unlock()

		if decline <= 0 {
			if j, ok := b.queue.TryPop(); ok {
				j.run()
				b.metrics.setQueued(b.queue.Len())
				spinCount = 0
				continue
			}
		} else {
			b.mu.Lock()
			if b.decline > 0 {
				b.decline--
				delete(b.workers, id)
				b.metrics.setWorkers(len(b.workers))
				if b.isWaiting {
					b.taskDoneCV.Signal()
				}
				if b.destructing {
					b.threadCV.Signal()
				}
				b.mu.Unlock()
				return
			}
			b.mu.Unlock()
			continue
		}

		// A worker only reaches here once it finds the queue empty, so a
		// worker still draining tasks when WaitTasks is called (or when its
		// timeout fires) never reports quiescence and is never required to.
		b.mu.Lock()
		if b.isWaiting {
			b.taskDoneWorkers++
			b.taskDoneCV.Signal()
			for b.isWaiting {
				b.threadCV.Wait()
			}
			b.waitingFinishedWorkers++
			b.waitingFinishedCV.Broadcast()
			b.mu.Unlock()
			continue
		}
		b.mu.Unlock()

		switch b.strategy {
		case LowLatency:
			runtime.Gosched()
		case Balance:
			if spinCount < maxSpinCount {
				spinCount++
				runtime.Gosched()
			} else {
				time.Sleep(balanceSleep)
			}
		case Blocking:
			b.mu.Lock()
			for b.queue.Len() == 0 && !b.isWaiting && !b.destructing && b.decline <= 0 {
				b.taskCV.Wait()
			}
			b.mu.Unlock()
		}
	}
}
