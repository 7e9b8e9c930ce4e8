package branch

import "time"

// WaitStrategy governs what an idle worker does while the queue is empty.
type WaitStrategy int

const (
	// LowLatency spins and yields continuously. Lowest wake-up latency,
	// highest CPU burn; pick this only for latency-critical branches with
	// room to spare.
	LowLatency WaitStrategy = iota
	// Balance spins up to maxSpinCount times, then falls back to a short
	// sleep between checks. The default for most branches.
	Balance
	// Blocking parks the worker on a condition variable and only wakes on
	// an explicit signal. Lowest CPU burn, highest wake-up latency.
	Blocking
)

// maxSpinCount bounds the busy-wait phase of the Balance strategy before it
// falls back to sleeping. Matches the workbranch default exactly.
const maxSpinCount = 10000

// balanceSleep is the fallback sleep once a Balance worker exhausts its spin budget.
const balanceSleep = time.Nanosecond

// DefaultWaitStrategy is used when NewBranch is not given an explicit one.
const DefaultWaitStrategy = Balance
