package branch

import "github.com/pkg/errors"

// Sentinel errors returned by Branch operations. Wrap with errors.Wrap/Wrapf
// at call sites that need to preserve an inner cause.
var (
	// ErrClosed is returned by Submit* when the branch has already shut down.
	ErrClosed = errors.New("branch: closed")

	// ErrNoWorkers is returned by DelWorker when the branch has no worker to remove.
	ErrNoWorkers = errors.New("branch: no workers to delete")

	// ErrWaitInProgress is returned by WaitTasks when another WaitTasks call
	// on the same branch has not yet completed.
	ErrWaitInProgress = errors.New("branch: wait_tasks already in progress")

	// ErrEmptySequence is returned by SubmitSequence when called with zero steps.
	ErrEmptySequence = errors.New("branch: sequence submitted with no steps")
)

// TaskFailure wraps a panic value recovered from a running task, carrying the
// tag the caller attached for diagnostics.
type TaskFailure struct {
	Tag   string
	Cause interface{}
}

func (f *TaskFailure) Error() string {
	return errors.Errorf("branch: task %q failed: %v", f.Tag, f.Cause).Error()
}
