package wavez

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestParallelRunnerDiamond(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pool := NewJobPool(ctx, 4, 8)
	defer pool.Close()

	root := NewNode0(1, func(context.Context) (int, error) { return 1, nil })
	left := NewNode1(2, root, func(_ context.Context, v int) (int, error) { return v + 10, nil })
	right := NewNode1(3, root, func(_ context.Context, v int) (int, error) { return v + 20, nil })
	join := NewNode2(4, left, right, func(_ context.Context, a, b int) (int, error) { return a + b, nil })

	list := NewNodeList(4)
	list.Add(join)
	list.Add(left)
	list.Add(right)
	list.Add(root)
	list.Sort(SortDepthOrPriority, nil)

	runner := NewParallelRunner(pool, nil)
	runner.RunOnce(ctx, list, nil)

	if join.Output() != 32 {
		t.Fatalf("got %d, want 32 (1+10 + 1+20)", join.Output())
	}
	for _, n := range list.All() {
		if !n.Done() {
			t.Fatalf("node %d not marked done after wave", n.ID())
		}
	}
}

func TestParallelRunnerMultipleWavesReuseGraph(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pool := NewJobPool(ctx, 2, 4)
	defer pool.Close()

	var calls int32
	a := NewNode0(1, func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	})
	list := NewNodeList(1)
	list.Add(a)
	list.Sort(SortDepth, nil)

	runner := NewParallelRunner(pool, nil)
	var stop atomic.Bool
	runner.RunN(ctx, list, &stop, 3)

	if calls != 3 {
		t.Fatalf("expected 3 runs across 3 waves, got %d", calls)
	}
}

func TestParallelRunnerStopFlagHaltsDispatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pool := NewJobPool(ctx, 1, 4)
	defer pool.Close()

	var stop atomic.Bool
	a := NewNode0(1, func(context.Context) (int, error) {
		stop.Store(true)
		return 0, nil
	})
	b := NewNode0(2, func(context.Context) (int, error) { return 0, nil })

	list := NewNodeList(2)
	list.Add(a)
	list.Add(b)

	runner := NewParallelRunner(pool, nil)
	runner.RunOnce(ctx, list, &stop)

	if !a.Done() {
		t.Fatalf("expected node a to have run")
	}
}
