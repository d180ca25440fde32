package wavez

import (
	"context"
	"testing"
)

func constNode(id Identifier, v int) *Node0[int] {
	return NewNode0(id, func(context.Context) (int, error) { return v, nil })
}

func TestSortDepthLinearChain(t *testing.T) {
	a := constNode(1, 1)
	b := NewNode1(2, a, func(_ context.Context, v int) (int, error) { return v, nil })
	c := NewNode1(3, b, func(_ context.Context, v int) (int, error) { return v, nil })

	list := NewNodeList(3)
	list.Add(c)
	list.Add(a)
	list.Add(b)

	list.Sort(SortDepth, nil)
	if list.At(0).ID() != a.ID() || list.At(1).ID() != b.ID() || list.At(2).ID() != c.ID() {
		t.Fatalf("expected a,b,c order by depth, got %d,%d,%d", list.At(0).ID(), list.At(1).ID(), list.At(2).ID())
	}
	if a.Depth() != 0 || b.Depth() != 1 || c.Depth() != 2 {
		t.Fatalf("unexpected depths: a=%d b=%d c=%d", a.Depth(), b.Depth(), c.Depth())
	}
}

func TestSortDiamond(t *testing.T) {
	root := constNode(1, 1)
	left := NewNode1(2, root, func(_ context.Context, v int) (int, error) { return v, nil })
	right := NewNode1(3, root, func(_ context.Context, v int) (int, error) { return v, nil })
	join := NewNode2(4, left, right, func(_ context.Context, x, y int) (int, error) { return x + y, nil })

	list := NewNodeList(4)
	list.Add(join)
	list.Add(left)
	list.Add(right)
	list.Add(root)

	list.Sort(SortDepth, nil)
	if root.Depth() != 0 {
		t.Fatalf("root depth = %d, want 0", root.Depth())
	}
	if left.Depth() != 1 || right.Depth() != 1 {
		t.Fatalf("left/right depth = %d/%d, want 1/1", left.Depth(), right.Depth())
	}
	if join.Depth() != 2 {
		t.Fatalf("join depth = %d, want 2", join.Depth())
	}
	if list.At(0).ID() != root.ID() {
		t.Fatalf("expected root first, got %d", list.At(0).ID())
	}
	if list.At(3).ID() != join.ID() {
		t.Fatalf("expected join last, got %d", list.At(3).ID())
	}
}

func TestSortDetectsCycle(t *testing.T) {
	a := NewNode1[int, int](1, nil, func(_ context.Context, v int) (int, error) { return v, nil })
	b := NewNode1(2, a, func(_ context.Context, v int) (int, error) { return v, nil })
	a.SetDependency0(b) // a -> b -> a

	list := NewNodeList(2)
	list.Add(a)
	list.Add(b)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic on cycle")
		}
		if _, ok := r.(*CycleError); !ok {
			t.Fatalf("expected *CycleError, got %T", r)
		}
	}()
	list.Sort(SortDepth, nil)
}

func TestSortPriorityDescending(t *testing.T) {
	low := constNode(1, 1)
	low.SetPriority(1)
	high := constNode(2, 2)
	high.SetPriority(9)
	mid := constNode(3, 3)
	mid.SetPriority(5)

	list := NewNodeList(3)
	list.Add(low)
	list.Add(high)
	list.Add(mid)

	list.Sort(SortPriority, nil)
	if list.At(0).ID() != high.ID() || list.At(1).ID() != mid.ID() || list.At(2).ID() != low.ID() {
		t.Fatalf("expected high,mid,low order by priority")
	}
}

func TestSortCustomPriorityRequiresComparator(t *testing.T) {
	list := NewNodeList(1)
	list.Add(constNode(1, 1))

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for missing comparator")
		}
	}()
	list.Sort(SortCustomPriority, nil)
}

func TestAddPanicsPastCapacity(t *testing.T) {
	list := NewNodeList(1)
	list.Add(constNode(1, 1))

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on overflow")
		}
	}()
	list.Add(constNode(2, 2))
}
