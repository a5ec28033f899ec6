package til

import (
	"context"
	"testing"
)

func TestModuleRenderDispatchesPrepareRenderFinish(t *testing.T) {
	var calls []string

	m := &Module{
		Name: "test",
		PrepareFrame: func(goCtx context.Context, ctx any, stream *Stream, ticks uint, fragmentPtr **Fragment) FramePlan {
			calls = append(calls, "prepare")
			return FramePlan{Fragmenter: SlicePerCPU}
		},
		RenderFragment: func(goCtx context.Context, ctx any, stream *Stream, ticks uint, cpu int, fragmentPtr **Fragment) {
			calls = append(calls, "render")
		},
		FinishFrame: func(goCtx context.Context, ctx any, stream *Stream, ticks uint, fragmentPtr **Fragment) {
			calls = append(calls, "finish")
		},
	}

	pool := NewPool(2)
	defer pool.Close()

	base := &Context{NCPUs: 2}
	frag := &Fragment{Width: 10, Height: 10, FrameWidth: 10, FrameHeight: 10, Pitch: 10}

	ModuleRender(context.Background(), m, base, pool, nil, 1, &frag)

	if len(calls) != 4 || calls[0] != "prepare" || calls[3] != "finish" {
		t.Fatalf("unexpected call order: %v", calls)
	}
}

func TestModuleRenderProxyBypassesPrepareRender(t *testing.T) {
	called := false
	m := &Module{
		Name: "proxy",
		RenderProxy: func(goCtx context.Context, ctx any, stream *Stream, ticks uint, fragmentPtr **Fragment) bool {
			called = true
			return true
		},
		PrepareFrame: func(goCtx context.Context, ctx any, stream *Stream, ticks uint, fragmentPtr **Fragment) FramePlan {
			t.Fatalf("PrepareFrame must not run when RenderProxy is set")
			return FramePlan{}
		},
	}

	base := &Context{}
	frag := &Fragment{}
	ModuleRender(context.Background(), m, base, nil, nil, 1, &frag)
	if !called {
		t.Fatalf("expected RenderProxy to run")
	}
}

func TestModuleRenderInlineWhenAlreadyOnWorker(t *testing.T) {
	var sawCPU int
	inner := &Module{
		Name: "inner",
		PrepareFrame: func(goCtx context.Context, ctx any, stream *Stream, ticks uint, fragmentPtr **Fragment) FramePlan {
			return FramePlan{Fragmenter: SlicePerCPU}
		},
		RenderFragment: func(goCtx context.Context, ctx any, stream *Stream, ticks uint, cpu int, fragmentPtr **Fragment) {
			sawCPU = cpu
		},
	}

	base := &Context{NCPUs: 1}
	frag := &Fragment{Width: 4, Height: 4, FrameWidth: 4, FrameHeight: 4, Pitch: 4}

	// Simulate being inside another module's RenderFragment, running on
	// worker cpu 2: a pool of nil proves this path never touches the pool.
	goCtx := withWorkerCPU(context.Background(), 2)
	ModuleRender(goCtx, inner, base, nil, nil, 1, &frag)

	if sawCPU != 2 {
		t.Fatalf("expected inline render to preserve the outer worker cpu, got %d", sawCPU)
	}
}
