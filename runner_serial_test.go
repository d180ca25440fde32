package wavez

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestSerialRunnerRunOnceRespectsDependencyOrder(t *testing.T) {
	var order []Identifier
	record := func(id Identifier) func(context.Context, int) (int, error) {
		return func(_ context.Context, v int) (int, error) {
			order = append(order, id)
			return v + 1, nil
		}
	}

	a := NewNode0(1, func(context.Context) (int, error) { order = append(order, 1); return 0, nil })
	b := NewNode1(2, a, record(2))
	c := NewNode1(3, b, record(3))

	list := NewNodeList(3)
	list.Add(c)
	list.Add(a)
	list.Add(b)
	list.Sort(SortDepthOrPriority, nil)

	runner := NewSerialRunner(nil)
	runner.RunOnce(context.Background(), list, nil)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected run order [1,2,3], got %v", order)
	}
	if c.Output() != 2 {
		t.Fatalf("got %d, want 2", c.Output())
	}
}

func TestSerialRunnerResetsBetweenWaves(t *testing.T) {
	calls := 0
	a := NewNode0(1, func(context.Context) (int, error) { calls++; return calls, nil })
	list := NewNodeList(1)
	list.Add(a)
	list.Sort(SortDepth, nil)

	runner := NewSerialRunner(nil)
	var stop atomic.Bool
	runner.RunN(context.Background(), list, &stop, 3)

	if calls != 3 {
		t.Fatalf("expected node to run 3 times across 3 waves, ran %d", calls)
	}
	if !a.Done() {
		t.Fatalf("expected node marked done after last wave")
	}
}

func TestSerialRunnerStopFlagHaltsMidWave(t *testing.T) {
	var ran []Identifier
	var stop atomic.Bool

	a := NewNode0(1, func(context.Context) (int, error) {
		ran = append(ran, 1)
		stop.Store(true)
		return 0, nil
	})
	b := NewNode0(2, func(context.Context) (int, error) {
		ran = append(ran, 2)
		return 0, nil
	})

	list := NewNodeList(2)
	list.Add(a)
	list.Add(b)

	runner := NewSerialRunner(nil)
	runner.RunOnce(context.Background(), list, &stop)

	if len(ran) != 1 || ran[0] != 1 {
		t.Fatalf("expected only node 1 to run before stop, got %v", ran)
	}
}
