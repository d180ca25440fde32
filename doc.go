// Package wavez provides a typed task-graph execution engine: a fixed
// compile-time arity of dependency slots per node, wired into a DAG, run
// wave by wave either serially on the calling goroutine or in parallel
// across a bounded worker pool.
//
// # Overview
//
// A graph is built from Node0 through Node4 values — generic structs
// whose arity (0 through 4 typed dependency slots) is fixed at
// construction, not discovered at runtime. Each node wraps a callable of
// the matching shape (func(context.Context) (O, error), func(context.Context, A) (O, error),
// and so on) and exposes its result through Output() once it has run.
// Wiring two nodes together is a SetDependencyN call, which replaces
// whatever was in that slot before.
//
// A NodeList collects the nodes belonging to one graph, at a fixed
// capacity set up front. Sort computes each node's depth via DFS over its
// dependency edges and reorders the list accordingly — SortDepth,
// SortPriority, SortDepthOrPriority, and SortCustomPriority for a
// caller-supplied comparator. The wave runners never sort the list
// themselves; they run it in whatever order Sort left it.
//
// # Execution
//
// SerialRunner runs a sorted NodeList wave by wave on the calling
// goroutine, in list order, resetting every node's readiness at the start
// of each wave. ParallelRunner does the same but dispatches ready nodes
// onto a JobPool, draining completions and dispatching newly-ready
// dependents until the wave is exhausted. Both expose RunOnce (one wave),
// RunN (a fixed number of waves), and RunLoop (until a caller-supplied
// stop flag is set).
//
// # Failure model
//
// Two classes of failure exist, and the engine does not blur them. A
// missing dependency slot, a cycle in the graph, adding past a NodeList's
// capacity, and a callable that returns a non-nil error are all
// programmer errors — they panic (MissingDependencyError, CycleError,
// a plain panic from NodeList.Add, NodeCallableError) rather than
// returning an error, because a misconfigured graph should abort the
// process, not silently produce a meaningless result. IsFatal reports
// whether a recovered panic value is one of the engine's error types
// (MissingDependencyError, CycleError, NodeCallableError); the plain panic
// from NodeList.Add is not one of them. Recoverable conditions — a full or closed
// JobPool, context cancellation — are returned as ordinary error values:
// ErrPoolFull, ErrPoolClosed. TryTakeDone and TakeDoneBlocking report "no
// job ready" as an empty opt.Optional[Job] rather than an error. The
// engine never retries a callable automatically.
//
// # Observability
//
// JobPool and both runners each create their own metricz.Registry
// (exposed through Metrics) and tracez.Tracer, take hookz listeners
// through their OnXxx registration methods, and take a clockz.Clock
// through WithClock for deterministic time in tests. A Profiler records per-job, per-wave, and
// per-run timing as compact CSV-style lines: NullProfiler discards them,
// SingleThreadedProfiler writes them directly with periodic flushing, and
// MultiThreadedProfiler drains them from a background goroutine so
// workers never block on profiler I/O.
//
// # Usage Example
//
//	root := wavez.NewNode0(1, func(context.Context) (int, error) { return 1, nil })
//	left := wavez.NewNode1(2, root, func(_ context.Context, v int) (int, error) { return v + 10, nil })
//	right := wavez.NewNode1(3, root, func(_ context.Context, v int) (int, error) { return v + 20, nil })
//	join := wavez.NewNode2(4, left, right, func(_ context.Context, a, b int) (int, error) { return a + b, nil })
//
//	list := wavez.NewNodeList(4)
//	list.Add(root)
//	list.Add(left)
//	list.Add(right)
//	list.Add(join)
//	list.Sort(wavez.SortDepthOrPriority, nil)
//
//	runner := wavez.NewSerialRunner(nil)
//	runner.RunOnce(context.Background(), list, nil)
//	// join.Output() == 32
package wavez
