// Package workspace is a façade over a set of branches and supervisors: it
// owns attach/detach handles and spreads submissions across branches with
// a round-robin-plus-load-peek dispatcher.
//
// Workspace is not internally synchronized. A caller driving it from
// multiple goroutines concurrently (attaching, detaching, submitting at
// the same time) must provide its own locking, the same requirement the
// structure this package is modeled on places on its own callers.
package workspace

import (
	"container/list"
	"fmt"
	"strings"
	"time"

	"github.com/branchpool/branchpool/branch"
	"github.com/branchpool/branchpool/internal/telemetry"
	"github.com/branchpool/branchpool/supervisor"
)

// Workspace manages a collection of branches and supervisors under one roof.
type Workspace struct {
	branches list.List // of *branch.Branch
	cur      *list.Element

	supervisors map[*supervisor.Supervisor]struct{}

	logger func(format string, args ...interface{})
}

// New returns an empty Workspace.
func New() *Workspace {
	w := &Workspace{
		supervisors: make(map[*supervisor.Supervisor]struct{}),
		logger:      func(format string, args ...interface{}) {},
	}
	w.branches.Init()
	return w
}

// WithLogger installs a pluggable diagnostic sink, used only by StartReporter.
func (w *Workspace) WithLogger(logger func(format string, args ...interface{})) *Workspace {
	w.logger = logger
	return w
}

// Attach adds a branch to the dispatch rotation and resets the round-robin
// cursor to the front of the list, matching the behavior of every attach,
// not just the first.
func (w *Workspace) Attach(b *branch.Branch) BranchID {
	w.branches.PushBack(b)
	w.cur = w.branches.Front()
	return BranchID{ptr: b}
}

// AttachSupervisor adds a supervisor to the workspace's watch set.
func (w *Workspace) AttachSupervisor(s *supervisor.Supervisor) SupervisorID {
	w.supervisors[s] = struct{}{}
	return SupervisorID{ptr: s}
}

// Detach removes a branch from the dispatch rotation, returning ownership
// of the pointer to the caller, and repairs the round-robin cursor: it
// advances to the element that followed the removed one, wrapping to the
// front if the removed branch was last, or clears to nothing if the
// workspace is now empty. It also removes the branch from every attached
// supervisor's watch set first, enforcing the invariant that a supervisor
// never holds a branch the workspace no longer owns.
func (w *Workspace) Detach(id BranchID) (*branch.Branch, error) {
	for e := w.branches.Front(); e != nil; e = e.Next() {
		if e.Value.(*branch.Branch) != id.ptr {
			continue
		}
		for s := range w.supervisors {
			s.RemoveBranch(id.ptr)
		}
		next := e.Next()
		w.branches.Remove(e)
		switch {
		case w.branches.Len() == 0:
			w.cur = nil
		case next == nil:
			w.cur = w.branches.Front()
		default:
			w.cur = next
		}
		return id.ptr, nil
	}
	return nil, ErrNotFound
}

// DetachSupervisor removes a supervisor from the watch set, returning
// ownership of the pointer to the caller.
func (w *Workspace) DetachSupervisor(id SupervisorID) (*supervisor.Supervisor, error) {
	if _, ok := w.supervisors[id.ptr]; !ok {
		return nil, ErrNotFound
	}
	delete(w.supervisors, id.ptr)
	return id.ptr, nil
}

// Branch dereferences a handle directly, with no check that it is still
// attached: a detached handle is a dangling reference, exactly as a raw
// pointer handle would be.
func (w *Workspace) Branch(id BranchID) *branch.Branch { return id.ptr }

// Supervisor dereferences a handle directly, with the same no-safety
// contract as Branch.
func (w *Workspace) Supervisor(id SupervisorID) *supervisor.Supervisor { return id.ptr }

// ForEachBranch visits every attached branch in attach order.
func (w *Workspace) ForEachBranch(fn func(*branch.Branch)) {
	for e := w.branches.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*branch.Branch))
	}
}

// ForEachSupervisor visits every attached supervisor, in no particular order.
func (w *Workspace) ForEachSupervisor(fn func(*supervisor.Supervisor)) {
	for s := range w.supervisors {
		fn(s)
	}
}

// forward advances the round-robin cursor by exactly one position, wrapping
// to the front, and returns the new position. Called on every dispatch,
// even the first, so the cursor never lingers on one branch.
func (w *Workspace) forward() *list.Element {
	w.cur = w.cur.Next()
	if w.cur == nil {
		w.cur = w.branches.Front()
	}
	return w.cur
}

// pickTarget implements the dispatch rule: advance the cursor one step,
// then submit to whichever of the pre-advance and post-advance branch has
// fewer queued tasks right now.
func (w *Workspace) pickTarget() (*branch.Branch, error) {
	if w.branches.Len() == 0 {
		return nil, ErrEmptyDispatch
	}
	thisBr := w.cur.Value.(*branch.Branch)
	nextEl := w.forward()
	nextBr := nextEl.Value.(*branch.Branch)
	if nextBr.NumTasks() < thisBr.NumTasks() {
		return nextBr, nil
	}
	return thisBr, nil
}

// Submit dispatches fn to whichever branch the round-robin-plus-load-peek
// rule selects.
func (w *Workspace) Submit(fn func(), opts ...branch.TaskOption) error {
	target, err := w.pickTarget()
	if err != nil {
		return err
	}
	return target.Submit(fn, opts...)
}

// SubmitUrgent is Submit with front-of-queue placement on the chosen branch.
func (w *Workspace) SubmitUrgent(fn func(), opts ...branch.TaskOption) error {
	target, err := w.pickTarget()
	if err != nil {
		return err
	}
	return target.SubmitUrgent(fn, opts...)
}

// SubmitSequence dispatches a bound chain of steps to the chosen branch.
func (w *Workspace) SubmitSequence(fns []func(), opts ...branch.TaskOption) error {
	target, err := w.pickTarget()
	if err != nil {
		return err
	}
	return target.SubmitSequence(fns, opts...)
}

// SubmitResult dispatches a result-bearing task to the chosen branch.
func SubmitResult[T any](w *Workspace, fn func() (T, error), opts ...branch.TaskOption) (<-chan branch.Result[T], error) {
	target, err := w.pickTarget()
	if err != nil {
		return nil, err
	}
	return branch.SubmitResult(target, fn, opts...)
}

// StartReporter begins logging an aggregate load snapshot across every
// attached branch every interval, until the returned stop function runs.
func (w *Workspace) StartReporter(interval time.Duration) (stop func()) {
	return telemetry.StartReporter(interval, w.loadSnapshot, w.logger)
}

func (w *Workspace) loadSnapshot() string {
	var b strings.Builder
	i := 0
	w.ForEachBranch(func(br *branch.Branch) {
		if i > 0 {
			b.WriteString(", ")
		}
		stats := br.Stats()
		fmt.Fprintf(&b, "branch#%d workers=%d tasks=%d", i, stats.Workers, stats.Tasks)
		i++
	})
	if i == 0 {
		return "no branches attached"
	}
	return b.String()
}
