package pagination

import "golang.org/x/sync/semaphore"

// FetchState is the load cycle state guarded by a Gate.
type FetchState int

const (
	Idle FetchState = iota
	InFlight
)

func (s FetchState) String() string {
	if s == InFlight {
		return "in-flight"
	}
	return "idle"
}

// Gate allows at most one load cycle at a time. Attempts made while a
// cycle is in flight are rejected, never queued. End and State probe the
// semaphore, so callers drive a Gate from a single goroutine.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate returns an idle gate.
func NewGate() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// TryBegin moves the gate to InFlight. It returns false if a cycle is
// already running.
func (g *Gate) TryBegin() bool {
	return g.sem.TryAcquire(1)
}

// End returns the gate to Idle. Ending an idle gate does nothing.
func (g *Gate) End() {
	if g.sem.TryAcquire(1) {
		// Was idle; undo the probe.
		g.sem.Release(1)
		return
	}
	g.sem.Release(1)
}

// State reports the current fetch state.
func (g *Gate) State() FetchState {
	if g.sem.TryAcquire(1) {
		g.sem.Release(1)
		return Idle
	}
	return InFlight
}
