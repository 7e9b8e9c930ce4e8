// Package branchpool re-exports the branch, supervisor, and workspace
// packages' constructors under one import, for callers that only need the
// common path and don't want three import lines.
package branchpool

import (
	"time"

	"github.com/branchpool/branchpool/branch"
	"github.com/branchpool/branchpool/supervisor"
	"github.com/branchpool/branchpool/workspace"
)

// NewBranch creates a single elastic worker pool. See branch.NewBranch.
func NewBranch(workers int, opts ...branch.Option) *branch.Branch {
	return branch.NewBranch(workers, opts...)
}

// NewSupervisor starts a background scaling controller. See supervisor.New.
func NewSupervisor(wmin, wmax int, interval time.Duration, opts ...supervisor.Option) (*supervisor.Supervisor, error) {
	return supervisor.New(wmin, wmax, interval, opts...)
}

// NewWorkspace returns an empty multi-branch façade. See workspace.New.
func NewWorkspace() *workspace.Workspace {
	return workspace.New()
}
