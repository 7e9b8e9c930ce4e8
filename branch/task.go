package branch

import (
	"container/list"
	"sync"
)

// Kind names the three submission kinds and where each lands in the queue.
// No Branch method takes a Kind: each kind has its own method (Submit,
// SubmitUrgent, SubmitSequence).
type Kind int

const (
	// Normal tasks join the back of the queue.
	Normal Kind = iota
	// Urgent tasks jump the queue by joining the front.
	Urgent
	// Sequence tasks bind several steps together; a single worker runs them
	// to completion, back to back, stopping at the first step that panics.
	Sequence
)

// job is the unit a worker pulls off the queue. It is move-only in spirit:
// a worker runs it exactly once and discards it.
type job struct {
	tag     string
	logFn   func(format string, args ...interface{})
	steps   []func()
	onPanic func(tag string, cause interface{})
	after   func() // runs exactly once, success or failure, when the job is done
}

// run executes each step in order, stopping at (and reporting) the first
// step that panics. A single-step job is the Normal/Urgent case; a job with
// several steps is a Sequence, fail-stop as in a chained sunshine::rexec.
func (j *job) run() {
	if j.after != nil {
		defer j.after()
	}
	for i, step := range j.steps {
		failed := func() (panicked bool) {
			defer func() {
				if r := recover(); r != nil {
					panicked = true
					if j.logFn != nil {
						j.logFn("branch: worker caught panic in task tag=%s step=%d: %v", j.tag, i, r)
					}
					if j.onPanic != nil {
						j.onPanic(j.tag, r)
					}
				}
			}()
			step()
			return false
		}()
		if failed {
			return
		}
	}
}

// TaskQueue is a thread-safe FIFO/LIFO-at-the-front deque of jobs, modeled
// directly on a mutex-guarded double-ended queue: PushBack for normal work,
// PushFront for urgent work, TryPop to drain from the front.
type TaskQueue struct {
	mu sync.Mutex
	l  list.List
}

// NewTaskQueue returns an empty queue.
func NewTaskQueue() *TaskQueue {
	q := &TaskQueue{}
	q.l.Init()
	return q
}

// PushBack enqueues a job at the tail, to run after everything already queued.
func (q *TaskQueue) PushBack(j *job) {
	q.mu.Lock()
	q.l.PushBack(j)
	q.mu.Unlock()
}

// PushFront enqueues a job at the head, to run before everything already queued.
func (q *TaskQueue) PushFront(j *job) {
	q.mu.Lock()
	q.l.PushFront(j)
	q.mu.Unlock()
}

// TryPop removes and returns the job at the head, or reports false if empty.
func (q *TaskQueue) TryPop() (*job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	front := q.l.Front()
	if front == nil {
		return nil, false
	}
	q.l.Remove(front)
	return front.Value.(*job), true
}

// Len reports the current number of queued jobs.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.l.Len()
}
