package wavez

// This file collects the engine's error taxonomy in one place for
// reference; the concrete types themselves live next to the code that
// raises them (MissingDependencyError and NodeCallableError in node.go,
// CycleError in nodelist.go, the pool's ErrPoolClosed/ErrPoolFull
// sentinels in pool.go).
//
// Two classes of failure exist:
//
//   - Programmer errors are fatal: a missing dependency slot observed at
//     IsReady/Run, a cycle detected during NodeList.Sort, an Add past a
//     NodeList's fixed capacity. These panic rather than return an error,
//     so a misconfigured graph aborts the process instead of producing a
//     meaningless result. A node callable that returns a non-nil error is
//     treated the same way (*NodeCallableError) — the engine's contract is
//     that callables do not fail across the boundary.
//   - Recoverable conditions are returned as ordinary error values:
//     ErrPoolFull from ScheduleNonBlocking, ErrPoolClosed once a pool has
//     been closed, and context cancellation from TakeDoneBlocking,
//     WaitIdle and Shutdown (ScheduleBlocking does not observe ctx).
//     "Nothing to take right now" is not an error at all: TryTakeDone and
//     TakeDoneBlocking report it as an empty opt.Optional[Job].
//
// IsFatal reports whether a value recovered from a panic is one of the
// engine's own fatal error types, as opposed to an unrelated panic
// bubbling up from elsewhere (a nil pointer dereference in a callable,
// for instance). Supervisory code that wraps RunOnce/RunN/RunLoop in a
// recover() can use it to decide whether to log-and-reraise or attempt
// any cleanup specific to a known failure mode.
func IsFatal(r any) bool {
	switch r.(type) {
	case *MissingDependencyError, *NodeCallableError, *CycleError:
		return true
	default:
		return false
	}
}
