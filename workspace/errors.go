package workspace

import "github.com/pkg/errors"

var (
	// ErrEmptyDispatch is returned by Submit* when no branch is attached.
	ErrEmptyDispatch = errors.New("workspace: no branches attached")

	// ErrNotFound is returned by Detach/DetachSupervisor for an unknown handle.
	ErrNotFound = errors.New("workspace: handle not attached")
)
