package branch

import "time"

// Brancher is the surface a Supervisor or Workspace needs from a branch.
// *Branch satisfies it directly. Supervisor and Workspace take the concrete
// *Branch type rather than this interface, so a fake cannot be passed to them.
type Brancher interface {
	Submit(fn func(), opts ...TaskOption) error
	SubmitUrgent(fn func(), opts ...TaskOption) error
	SubmitSequence(fns []func(), opts ...TaskOption) error
	AddWorker()
	DelWorker() error
	NumWorkers() int
	NumTasks() int
	Stats() Stats
	WaitTasks(timeout time.Duration) (bool, error)
	Shutdown()
}

var _ Brancher = (*Branch)(nil)
