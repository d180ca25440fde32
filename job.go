package wavez

import "time"

// Job wraps a Node with the bookkeeping the pool and profiler need to
// report on a single dispatch-to-completion cycle: which worker ran it and
// when each lifecycle edge was crossed.
type Job struct {
	// Node is the unit of work to execute.
	Node Node
	// JobID is the wave-local dispatch index assigned by the runner (the
	// node's position in the sorted NodeList for this wave), used to
	// correlate a completed Job back to its slot and to identify it in
	// profiling output independent of the node's own Identifier.
	JobID int
	// Scheduled is when the job was accepted by the pool.
	Scheduled time.Time
	// Started is when a worker goroutine picked the job up.
	Started time.Time
	// Finished is when the worker's call to Node.Run returned.
	Finished time.Time
	// Synced is when the caller collected the job via TryTakeDone or
	// TakeDoneBlocking. The gap between Finished and Synced is time spent
	// sitting in the done ring, waiting for the wave runner to drain it.
	Synced time.Time
	// Worker is the 0-based index of the worker goroutine that ran it.
	Worker int
}
