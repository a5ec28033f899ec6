package til

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolSubmitCoversAllFragments(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	parent := &Fragment{Width: 100, Height: 100, FrameWidth: 100, FrameHeight: 100, Pitch: 100}
	ctx := &Context{NCPUs: 4}

	var rendered int64
	pool.Submit(parent, SlicePerCPU, func(c *Context, ticks uint, cpu int, frag *Fragment) {
		atomic.AddInt64(&rendered, int64(frag.Height))
	}, ctx, 1, false)

	pool.WaitIdle()

	if rendered != 100 {
		t.Fatalf("expected fragments to cover height 100 exactly once, got %d", rendered)
	}
}

func TestPoolSuccessiveFramesDontOverlap(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	parent := &Fragment{Width: 10, Height: 10, FrameWidth: 10, FrameHeight: 10, Pitch: 10}
	ctx := &Context{NCPUs: 2}

	for i := 0; i < 5; i++ {
		var n int64
		pool.Submit(parent, SlicePerCPU, func(c *Context, ticks uint, cpu int, frag *Fragment) {
			atomic.AddInt64(&n, 1)
		}, ctx, uint(i), false)
		pool.WaitIdle()
		if n != 2 {
			t.Fatalf("frame %d: expected 2 fragments rendered, got %d", i, n)
		}
	}
}

func TestPoolCPUAffinityGivesStableFragnumWorkerMapping(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	parent := &Fragment{Width: 100, Height: 100, FrameWidth: 100, FrameHeight: 100, Pitch: 100}
	ctx := &Context{NCPUs: 4}

	mapping := make(map[int]int) // fragment y offset (one per fragment) -> worker id
	var mu sync.Mutex

	submitFrame := func(ticks uint) {
		pool.Submit(parent, SlicePerCPU, func(c *Context, ticks uint, cpu int, frag *Fragment) {
			mu.Lock()
			defer mu.Unlock()
			mapping[frag.Y] = cpu
		}, ctx, ticks, true)
		pool.WaitIdle()
	}

	submitFrame(0)
	first := make(map[int]int, len(mapping))
	for k, v := range mapping {
		first[k] = v
	}

	for i := uint(1); i < 5; i++ {
		mapping = make(map[int]int)
		submitFrame(i)
		for fragNum, worker := range mapping {
			if first[fragNum] != worker {
				t.Fatalf("frame %d: fragment at y=%d rendered on worker %d, want stable worker %d", i, fragNum, worker, first[fragNum])
			}
		}
	}
}

func TestPoolCloseStopsWorkers(t *testing.T) {
	pool := NewPool(2)
	pool.Close()

	done := make(chan struct{})
	go func() {
		pool.Submit(&Fragment{}, func(ctx *Context, parent *Fragment, n int, res *Fragment) bool { return false }, nil, nil, 0, false)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Submit after Close should not hang")
	}
}
