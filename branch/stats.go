package branch

// Stats is a point-in-time snapshot of a branch's load.
type Stats struct {
	Workers int // current worker count
	Tasks   int // tasks currently queued, not counting one in flight per worker
}
