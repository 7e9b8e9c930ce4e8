package workspace

import (
	"fmt"

	"github.com/branchpool/branchpool/branch"
	"github.com/branchpool/branchpool/supervisor"
)

// BranchID is a lightweight, comparable handle to an attached branch. It
// does not extend the branch's lifetime and becomes meaningless once the
// branch is detached.
type BranchID struct {
	ptr *branch.Branch
}

// Equal reports whether two handles refer to the same branch.
func (b BranchID) Equal(other BranchID) bool { return b.ptr == other.ptr }

// Less gives BranchID a total order by identity, so handles can be used as
// map/set keys sorted deterministically (e.g. in test output).
func (b BranchID) Less(other BranchID) bool { return fmt.Sprintf("%p", b.ptr) < fmt.Sprintf("%p", other.ptr) }

func (b BranchID) String() string { return fmt.Sprintf("branch(%p)", b.ptr) }

// SupervisorID is a lightweight, comparable handle to an attached supervisor.
type SupervisorID struct {
	ptr *supervisor.Supervisor
}

// Equal reports whether two handles refer to the same supervisor.
func (s SupervisorID) Equal(other SupervisorID) bool { return s.ptr == other.ptr }

// Less gives SupervisorID a total order by identity.
func (s SupervisorID) Less(other SupervisorID) bool {
	return fmt.Sprintf("%p", s.ptr) < fmt.Sprintf("%p", other.ptr)
}

func (s SupervisorID) String() string { return fmt.Sprintf("supervisor(%p)", s.ptr) }
