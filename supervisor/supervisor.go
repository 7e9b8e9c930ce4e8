// Package supervisor runs a background control loop that scales the
// worker count of a set of branches up and down against their backlog.
package supervisor

import (
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/branchpool/branchpool/branch"
)

// ErrInvalidBounds is returned by New when the worker bounds don't satisfy
// wmax > 0 && wmax > wmin.
var ErrInvalidBounds = errors.New("supervisor: wmax must be > 0 and > wmin")

// TickFunc runs once per control-loop tick, after scaling decisions for
// that tick have been applied and strictly outside the supervisor's lock.
type TickFunc func()

// Supervisor periodically inspects every attached branch's backlog and
// calls AddWorker/DelWorker to keep worker count between wmin and wmax.
type Supervisor struct {
	mu       sync.Mutex
	wmin     int
	wmax     int
	interval time.Duration
	baseline time.Duration // restores interval after Proceed
	stopping bool

	branches map[*branch.Branch]struct{}
	order    []*branch.Branch // preserves attach order for deterministic ticks

	cond *sync.Cond
	tick TickFunc

	logger  func(format string, args ...interface{})
	metrics *Metrics

	done chan struct{}
}

// Option configures a Supervisor at construction time.
type Option func(*Supervisor)

// WithLogger installs a pluggable diagnostic sink.
func WithLogger(logger func(format string, args ...interface{})) Option {
	return func(s *Supervisor) { s.logger = logger }
}

// WithTick sets the per-tick callback, equivalent to calling SetTick after construction.
func WithTick(fn TickFunc) Option {
	return func(s *Supervisor) { s.tick = fn }
}

// WithMetrics attaches an optional Prometheus metrics set.
func WithMetrics(m *Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// New starts a Supervisor goroutine that keeps every attached branch's
// worker count within [wmin, wmax], checking every interval.
func New(wmin, wmax int, interval time.Duration, opts ...Option) (*Supervisor, error) {
	if wmax <= 0 || wmax <= wmin {
		return nil, ErrInvalidBounds
	}
	s := &Supervisor{
		wmin:     wmin,
		wmax:     wmax,
		interval: interval,
		baseline: interval,
		branches: make(map[*branch.Branch]struct{}),
		logger:   func(format string, args ...interface{}) { log.Printf(format, args...) },
		done:     make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	go s.mission()
	return s, nil
}

// AddBranch attaches a branch to the supervisor's watch set. Attaching the
// same branch twice is a no-op: the set is de-duplicated by identity.
func (s *Supervisor) AddBranch(b *branch.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.branches[b]; ok {
		return
	}
	s.branches[b] = struct{}{}
	s.order = append(s.order, b)
}

// RemoveBranch detaches a branch from the watch set, if present.
func (s *Supervisor) RemoveBranch(b *branch.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.branches[b]; !ok {
		return
	}
	delete(s.branches, b)
	for i, cur := range s.order {
		if cur == b {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Suspend pauses scaling decisions without stopping the goroutine; the
// current tick in progress is not interrupted. A negative duration pauses
// indefinitely until Proceed is called.
func (s *Supervisor) Suspend(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
}

// Proceed restores the tick interval to its configured value and wakes the
// control loop immediately.
func (s *Supervisor) Proceed() {
	s.mu.Lock()
	s.interval = s.baseline
	s.mu.Unlock()
	s.cond.Signal()
}

// SetTick replaces the per-tick callback.
func (s *Supervisor) SetTick(fn TickFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = fn
}

// Close stops the control loop and waits for it to exit.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	s.mu.Unlock()
	s.cond.Signal()
	<-s.done
}

// mission is the background control loop: every interval it scales each
// attached branch toward its backlog, then invokes the tick callback
// outside the lock.
func (s *Supervisor) mission() {
	defer close(s.done)
	for {
		s.mu.Lock()
		if s.stopping {
			s.mu.Unlock()
			return
		}

		branches := make([]*branch.Branch, len(s.order))
		copy(branches, s.order)
		for _, b := range branches {
			s.scaleOne(b)
		}

		interval := s.interval
		if interval >= 0 {
			waitUntil := time.Now().Add(interval)
			for !s.stopping && time.Now().Before(waitUntil) {
				s.waitUpTo(time.Until(waitUntil))
			}
		} else {
			for !s.stopping && s.interval < 0 {
				s.cond.Wait()
			}
		}
		stopping := s.stopping
		tick := s.tick
		s.mu.Unlock()

		if stopping {
			return
		}
		if tick != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						s.logf("supervisor: tick callback panicked: %v", r)
					}
				}()
				tick()
			}()
		}
	}
}

// scaleOne applies one tick's scaling decision to a single branch. Must be
// called with s.mu held.
func (s *Supervisor) scaleOne(b *branch.Branch) {
	stats := b.Stats()
	if stats.Tasks > 0 {
		needed := stats.Tasks - stats.Workers
		if needed < 0 {
			needed = 0
		}
		capacity := s.wmax - stats.Workers
		if capacity < 0 {
			capacity = 0
		}
		toAdd := needed
		if capacity < toAdd {
			toAdd = capacity
		}
		for i := 0; i < toAdd; i++ {
			b.AddWorker()
			s.metrics.onScaleUp()
		}
	} else if stats.Workers > s.wmin {
		if err := b.DelWorker(); err == nil {
			s.metrics.onScaleDown()
		}
	}
}

// waitUpTo blocks on the control-loop condition variable for at most d,
// using a timer to force a wake-up since sync.Cond has no timed wait. Must
// be called with s.mu held; re-acquires it before returning.
func (s *Supervisor) waitUpTo(d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.AfterFunc(d, func() {
		s.mu.Lock()
		s.cond.Signal()
		s.mu.Unlock()
	})
	s.cond.Wait()
	timer.Stop()
}

func (s *Supervisor) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger(format, args...)
	}
}
