package wavez

import "context"

// Identifier is a user-assigned numeric label for a node, opaque to the
// engine. It is used only for correlation in profiling output and error
// messages.
type Identifier = uint64

// Node is the type-erased capability set the DAG, the job pool, and the
// wave runners operate on: readiness, completion, dependency traversal and
// execution, independent of a node's concrete arity or output type.
//
// Node is intentionally sealed (its dependency-traversal and DFS-coloring
// methods are unexported) — the only way to obtain one is through
// NewNode0..NewNode4, which statically check slot/output type assignability
// at compile time the way the teacher's generic Chainable[T] types do for
// their own concern. There is no supported path to implement Node yourself.
type Node interface {
	// ID returns the opaque identifier assigned at construction.
	ID() Identifier
	// Priority returns the node's scheduling priority (higher runs first
	// under SortPriority/SortDepthOrPriority). Default 0.
	Priority() uint
	// SetPriority updates the node's priority.
	SetPriority(uint)
	// Depth returns the node's computed depth (0 for a node with no
	// dependencies), valid only after NodeList.Sort has run.
	Depth() int
	// IsReady reports whether every dependency is Done. Memoized within a
	// wave; cleared by Reset.
	IsReady() bool
	// Done reports whether this node's callable has run and its output is
	// available to successors in the current wave.
	Done() bool
	// SetDone marks the node done for the current wave. Called by the wave
	// runner after Run completes.
	SetDone()
	// Reset clears both the readiness memo and the done flag, re-entering
	// the Fresh state for a new wave.
	Reset()
	// Run asserts IsReady, reads every dependency's output, invokes the
	// node's callable and stores its result. A callable that returns an
	// error is a fatal programmer error per the engine's failure model —
	// Run panics rather than propagating it, so a worker goroutine that
	// observes a failing callable brings down the process, matching the
	// original design's "assumed not to fail" contract.
	Run(ctx context.Context)

	deps() []Node
	setDepth(int)
	isVisited() bool
	setVisited(bool)
	isActive() bool
	setActive(bool)
}

// Producer is a Node that additionally exposes its last computed output of
// type O. Dependency slots are typed in terms of Producer so that
// SetDependencyN calls are checked for output-type assignability by the Go
// compiler at the call site — no runtime type assertions are needed.
type Producer[O any] interface {
	Node
	// Output returns the last value computed by Run. Undefined before the
	// node has completed its first Run in the current wave.
	Output() O
}

// nodeBase holds the state shared by every arity, mutated only by whichever
// agent currently holds single-writer discipline for it: the wave runner
// before dispatch and during drain, or the worker goroutine during Run.
type nodeBase struct {
	id       Identifier
	priority uint
	depth    int
	ready    bool
	done     bool
	visited  bool
	active   bool
}

func (b *nodeBase) ID() Identifier      { return b.id }
func (b *nodeBase) Priority() uint      { return b.priority }
func (b *nodeBase) SetPriority(p uint)  { b.priority = p }
func (b *nodeBase) Depth() int          { return b.depth }
func (b *nodeBase) setDepth(d int)      { b.depth = d }
func (b *nodeBase) Done() bool          { return b.done }
func (b *nodeBase) SetDone()            { b.done = true }
func (b *nodeBase) Reset()              { b.ready = false; b.done = false }
func (b *nodeBase) isVisited() bool     { return b.visited }
func (b *nodeBase) setVisited(v bool)   { b.visited = v }
func (b *nodeBase) isActive() bool      { return b.active }
func (b *nodeBase) setActive(v bool)    { b.active = v }

// MissingDependencyError is raised by IsReady/Run when a slot required by
// the node's arity was never wired via SetDependencyN. Run also panics with
// it when called while IsReady is false, i.e. a wired dependency is not yet
// done. It is a programmer error per spec: fatal, not recoverable.
type MissingDependencyError struct {
	NodeID Identifier
	Slot   int
}

func (e *MissingDependencyError) Error() string {
	return "wavez: node has unwired dependency slot"
}

// NodeCallableError wraps an error returned by a user callable. Per the
// engine's failure model this is fatal: Run panics with it rather than
// returning it, so a worker that hits one brings the process down.
type NodeCallableError struct {
	NodeID Identifier
	Err    error
}

func (e *NodeCallableError) Error() string {
	return "wavez: node callable failed: " + e.Err.Error()
}

func (e *NodeCallableError) Unwrap() error { return e.Err }

// ---- Arity 0 ----

// Node0 is a leaf node: no dependencies, output type O.
type Node0[O any] struct {
	nodeBase
	fn     func(context.Context) (O, error)
	output O
}

// NewNode0 creates a leaf node with no dependencies.
func NewNode0[O any](id Identifier, fn func(context.Context) (O, error)) *Node0[O] {
	return &Node0[O]{nodeBase: nodeBase{id: id}, fn: fn}
}

func (n *Node0[O]) IsReady() bool { return true }
func (n *Node0[O]) Output() O     { return n.output }
func (n *Node0[O]) deps() []Node  { return nil }

func (n *Node0[O]) Run(ctx context.Context) {
	out, err := n.fn(ctx)
	if err != nil {
		panic(&NodeCallableError{NodeID: n.id, Err: err})
	}
	n.output = out
}

// ---- Arity 1 ----

// Node1 depends on one upstream Producer of type A and produces O.
type Node1[A, O any] struct {
	nodeBase
	depA Producer[A]
	fn   func(context.Context, A) (O, error)
	output O
}

// NewNode1 creates a node with a single dependency slot, wired to depA.
func NewNode1[A, O any](id Identifier, depA Producer[A], fn func(context.Context, A) (O, error)) *Node1[A, O] {
	return &Node1[A, O]{nodeBase: nodeBase{id: id}, depA: depA, fn: fn}
}

// SetDependency0 replaces the node's single dependency slot.
func (n *Node1[A, O]) SetDependency0(dep Producer[A]) *Node1[A, O] {
	n.depA = dep
	return n
}

func (n *Node1[A, O]) Output() O    { return n.output }
func (n *Node1[A, O]) deps() []Node {
	if n.depA == nil {
		return []Node{nil}
	}
	return []Node{n.depA}
}

func (n *Node1[A, O]) IsReady() bool {
	if n.ready {
		return true
	}
	if n.depA == nil {
		panic(&MissingDependencyError{NodeID: n.id, Slot: 0})
	}
	if n.depA.Done() {
		n.ready = true
	}
	return n.ready
}

func (n *Node1[A, O]) Run(ctx context.Context) {
	if !n.IsReady() {
		panic(&MissingDependencyError{NodeID: n.id, Slot: 0})
	}
	out, err := n.fn(ctx, n.depA.Output())
	if err != nil {
		panic(&NodeCallableError{NodeID: n.id, Err: err})
	}
	n.output = out
}

// ---- Arity 2 ----

// Node2 depends on two upstream Producers (A, B) and produces O.
type Node2[A, B, O any] struct {
	nodeBase
	depA Producer[A]
	depB Producer[B]
	fn   func(context.Context, A, B) (O, error)
	output O
}

// NewNode2 creates a node with two dependency slots.
func NewNode2[A, B, O any](id Identifier, depA Producer[A], depB Producer[B], fn func(context.Context, A, B) (O, error)) *Node2[A, B, O] {
	return &Node2[A, B, O]{nodeBase: nodeBase{id: id}, depA: depA, depB: depB, fn: fn}
}

// SetDependency0 replaces slot 0.
func (n *Node2[A, B, O]) SetDependency0(dep Producer[A]) *Node2[A, B, O] { n.depA = dep; return n }

// SetDependency1 replaces slot 1.
func (n *Node2[A, B, O]) SetDependency1(dep Producer[B]) *Node2[A, B, O] { n.depB = dep; return n }

func (n *Node2[A, B, O]) Output() O { return n.output }
func (n *Node2[A, B, O]) deps() []Node {
	var a, b Node
	if n.depA != nil {
		a = n.depA
	}
	if n.depB != nil {
		b = n.depB
	}
	return []Node{a, b}
}

func (n *Node2[A, B, O]) IsReady() bool {
	if n.ready {
		return true
	}
	if n.depA == nil || n.depB == nil {
		panic(&MissingDependencyError{NodeID: n.id})
	}
	if n.depA.Done() && n.depB.Done() {
		n.ready = true
	}
	return n.ready
}

func (n *Node2[A, B, O]) Run(ctx context.Context) {
	if !n.IsReady() {
		panic(&MissingDependencyError{NodeID: n.id})
	}
	out, err := n.fn(ctx, n.depA.Output(), n.depB.Output())
	if err != nil {
		panic(&NodeCallableError{NodeID: n.id, Err: err})
	}
	n.output = out
}

// ---- Arity 3 ----

// Node3 depends on three upstream Producers (A, B, C) and produces O.
type Node3[A, B, C, O any] struct {
	nodeBase
	depA Producer[A]
	depB Producer[B]
	depC Producer[C]
	fn   func(context.Context, A, B, C) (O, error)
	output O
}

// NewNode3 creates a node with three dependency slots.
func NewNode3[A, B, C, O any](id Identifier, depA Producer[A], depB Producer[B], depC Producer[C], fn func(context.Context, A, B, C) (O, error)) *Node3[A, B, C, O] {
	return &Node3[A, B, C, O]{nodeBase: nodeBase{id: id}, depA: depA, depB: depB, depC: depC, fn: fn}
}

func (n *Node3[A, B, C, O]) SetDependency0(dep Producer[A]) *Node3[A, B, C, O] { n.depA = dep; return n }
func (n *Node3[A, B, C, O]) SetDependency1(dep Producer[B]) *Node3[A, B, C, O] { n.depB = dep; return n }
func (n *Node3[A, B, C, O]) SetDependency2(dep Producer[C]) *Node3[A, B, C, O] { n.depC = dep; return n }

func (n *Node3[A, B, C, O]) Output() O { return n.output }
func (n *Node3[A, B, C, O]) deps() []Node {
	var a, b, c Node
	if n.depA != nil {
		a = n.depA
	}
	if n.depB != nil {
		b = n.depB
	}
	if n.depC != nil {
		c = n.depC
	}
	return []Node{a, b, c}
}

func (n *Node3[A, B, C, O]) IsReady() bool {
	if n.ready {
		return true
	}
	if n.depA == nil || n.depB == nil || n.depC == nil {
		panic(&MissingDependencyError{NodeID: n.id})
	}
	if n.depA.Done() && n.depB.Done() && n.depC.Done() {
		n.ready = true
	}
	return n.ready
}

func (n *Node3[A, B, C, O]) Run(ctx context.Context) {
	if !n.IsReady() {
		panic(&MissingDependencyError{NodeID: n.id})
	}
	out, err := n.fn(ctx, n.depA.Output(), n.depB.Output(), n.depC.Output())
	if err != nil {
		panic(&NodeCallableError{NodeID: n.id, Err: err})
	}
	n.output = out
}

// ---- Arity 4 ----

// Node4 depends on four upstream Producers (A, B, C, D) and produces O.
type Node4[A, B, C, D, O any] struct {
	nodeBase
	depA Producer[A]
	depB Producer[B]
	depC Producer[C]
	depD Producer[D]
	fn   func(context.Context, A, B, C, D) (O, error)
	output O
}

// NewNode4 creates a node with four dependency slots.
func NewNode4[A, B, C, D, O any](id Identifier, depA Producer[A], depB Producer[B], depC Producer[C], depD Producer[D], fn func(context.Context, A, B, C, D) (O, error)) *Node4[A, B, C, D, O] {
	return &Node4[A, B, C, D, O]{nodeBase: nodeBase{id: id}, depA: depA, depB: depB, depC: depC, depD: depD, fn: fn}
}

func (n *Node4[A, B, C, D, O]) SetDependency0(dep Producer[A]) *Node4[A, B, C, D, O] { n.depA = dep; return n }
func (n *Node4[A, B, C, D, O]) SetDependency1(dep Producer[B]) *Node4[A, B, C, D, O] { n.depB = dep; return n }
func (n *Node4[A, B, C, D, O]) SetDependency2(dep Producer[C]) *Node4[A, B, C, D, O] { n.depC = dep; return n }
func (n *Node4[A, B, C, D, O]) SetDependency3(dep Producer[D]) *Node4[A, B, C, D, O] { n.depD = dep; return n }

func (n *Node4[A, B, C, D, O]) Output() O { return n.output }
func (n *Node4[A, B, C, D, O]) deps() []Node {
	var a, b, c, d Node
	if n.depA != nil {
		a = n.depA
	}
	if n.depB != nil {
		b = n.depB
	}
	if n.depC != nil {
		c = n.depC
	}
	if n.depD != nil {
		d = n.depD
	}
	return []Node{a, b, c, d}
}

func (n *Node4[A, B, C, D, O]) IsReady() bool {
	if n.ready {
		return true
	}
	if n.depA == nil || n.depB == nil || n.depC == nil || n.depD == nil {
		panic(&MissingDependencyError{NodeID: n.id})
	}
	if n.depA.Done() && n.depB.Done() && n.depC.Done() && n.depD.Done() {
		n.ready = true
	}
	return n.ready
}

func (n *Node4[A, B, C, D, O]) Run(ctx context.Context) {
	if !n.IsReady() {
		panic(&MissingDependencyError{NodeID: n.id})
	}
	out, err := n.fn(ctx, n.depA.Output(), n.depB.Output(), n.depC.Output(), n.depD.Output())
	if err != nil {
		panic(&NodeCallableError{NodeID: n.id, Err: err})
	}
	n.output = out
}
