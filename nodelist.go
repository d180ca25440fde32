package wavez

import (
	"fmt"
	"slices"
)

// SortType selects the ordering NodeList.Sort imposes on its nodes after
// computing depth and detecting cycles.
type SortType int

const (
	// SortTopological orders nodes so every dependency precedes its
	// dependents; ties (nodes at the same depth) keep insertion order.
	SortTopological SortType = iota
	// SortDepth orders strictly by computed depth, ascending.
	SortDepth
	// SortPriority orders by Priority, descending, ignoring depth. Callers
	// that use this are responsible for not violating dependency order —
	// typically combined with wave-by-wave dispatch where only ready
	// nodes within a depth band are affected.
	SortPriority
	// SortDepthOrPriority orders by depth ascending, breaking ties by
	// priority descending. The wave runners do not sort on their own; this
	// is the ordering typically chosen before handing a list to them.
	SortDepthOrPriority
	// SortCustomPriority delegates entirely to a caller-supplied
	// comparison function; Sort panics if none is given.
	SortCustomPriority
)

// CycleError is raised by NodeList.Sort when the dependency graph is not a
// DAG. NodeID identifies a node on the cycle (the one first re-observed
// while active).
type CycleError struct {
	NodeID Identifier
}

func (e *CycleError) Error() string { return "wavez: cycle detected in node graph" }

// NodeList is a fixed-capacity, insertion-ordered collection of Node. It
// owns no goroutine-safety of its own — callers build it up once, Sort it,
// then hand it to a wave runner for read-only traversal.
type NodeList struct {
	nodes []Node
	cap   int
	idx   map[Identifier]int
}

// NewNodeList creates a NodeList with the given fixed capacity.
func NewNodeList(capacity int) *NodeList {
	if capacity <= 0 {
		capacity = 1
	}
	return &NodeList{nodes: make([]Node, 0, capacity), cap: capacity}
}

// Add appends n. It panics if the list is already at capacity — node
// counts are a compile-time property of a graph definition, not a runtime
// one, so overflowing it is a programmer error.
func (l *NodeList) Add(n Node) {
	if len(l.nodes) >= l.cap {
		panic(fmt.Sprintf("wavez: node list at capacity %d", l.cap))
	}
	l.nodes = append(l.nodes, n)
	l.idx = nil
}

// Len returns the number of nodes currently held.
func (l *NodeList) Len() int { return len(l.nodes) }

// At returns the node at index i.
func (l *NodeList) At(i int) Node { return l.nodes[i] }

// All returns the underlying node slice in current order. Callers must not
// mutate it directly; use Add and Sort.
func (l *NodeList) All() []Node { return l.nodes }

// IndexOf returns the position of the node with the given ID, building and
// caching a lookup map on first use. The cache is invalidated by any call
// to Add or Sort, since both can change positions or membership.
func (l *NodeList) IndexOf(id Identifier) (int, bool) {
	if l.idx == nil {
		l.idx = make(map[Identifier]int, len(l.nodes))
		for i, n := range l.nodes {
			l.idx[n.ID()] = i
		}
	}
	i, ok := l.idx[id]
	return i, ok
}

// Sort computes each node's depth via DFS over its dependency edges and
// then reorders the list in place according to sortType. customCmp is
// only consulted for SortCustomPriority and is ignored otherwise. Sort is
// stable: nodes that compare equal keep their relative insertion order,
// matching the teacher's own use of slices.SortStableFunc for its
// processor chains.
//
// A cycle in the dependency graph is a programmer error per the engine's
// failure model (§7): Sort panics with *CycleError rather than returning
// it, so a misconfigured graph aborts the process instead of silently
// producing a meaningless order.
func (l *NodeList) Sort(sortType SortType, customCmp func(a, b Node) int) {
	l.idx = nil
	for _, n := range l.nodes {
		n.setVisited(false)
		n.setActive(false)
	}
	for _, n := range l.nodes {
		if !n.isVisited() {
			computeDepth(n)
		}
	}

	var cmp func(a, b Node) int
	switch sortType {
	case SortTopological, SortDepth:
		cmp = func(a, b Node) int { return a.Depth() - b.Depth() }
	case SortPriority:
		cmp = func(a, b Node) int { return int(b.Priority()) - int(a.Priority()) }
	case SortDepthOrPriority:
		cmp = func(a, b Node) int {
			if a.Depth() != b.Depth() {
				return a.Depth() - b.Depth()
			}
			return int(b.Priority()) - int(a.Priority())
		}
	case SortCustomPriority:
		if customCmp == nil {
			panic("wavez: SortCustomPriority requires a comparison function")
		}
		cmp = customCmp
	default:
		panic("wavez: unknown SortType")
	}
	slices.SortStableFunc(l.nodes, cmp)
}

// computeDepth performs the DFS with active/visited coloring: active marks
// a node currently on the recursion stack (a re-entry means a cycle),
// visited marks a node whose depth is finalized.
func computeDepth(n Node) {
	n.setActive(true)
	maxDepth := -1
	for _, d := range n.deps() {
		if d == nil {
			continue
		}
		if d.isActive() {
			panic(&CycleError{NodeID: d.ID()})
		}
		if !d.isVisited() {
			computeDepth(d)
		}
		if d.Depth() > maxDepth {
			maxDepth = d.Depth()
		}
	}
	n.setActive(false)
	n.setVisited(true)
	n.setDepth(maxDepth + 1)
}
