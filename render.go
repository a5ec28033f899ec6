package til

import "context"

// workerCPUKey is a context.Context key used to detect re-entrant
// rendering: a module whose RenderFragment itself renders a nested module
// (book, mixer, overlay) needs to know it's already running on worker cpu N
// rather than calling ModuleRender and deadlocking the pool waiting on
// itself. This replaces the original's implicit "we're inside
// til_threads_frame_submit already" assumption with an explicit value
// threaded through context.Context, the idiomatic Go way to carry
// call-scoped, optional ambient state -- each fragment's goroutine gets its
// own derived Context, so unlike a field on the shared module Context this
// carries no data race between concurrently rendering fragments.
type workerCPUKey struct{}

// OnWorker returns the logical worker cpu index the caller is currently
// executing on, and true, if goCtx was derived from a RenderFragment call;
// otherwise (0, false). A compositing module (mixer, book, ref) calls this
// on the goCtx it was itself given, to decide whether rendering a child
// module can still go through the pool (top-level call, pool idle) or must
// run inline on the current goroutine (already a worker; submitting again
// would deadlock waiting on itself).
func OnWorker(goCtx context.Context) (cpu int, ok bool) {
	v := goCtx.Value(workerCPUKey{})
	if v == nil {
		return 0, false
	}
	return v.(int), true
}

func withWorkerCPU(goCtx context.Context, cpu int) context.Context {
	return context.WithValue(goCtx, workerCPUKey{}, cpu)
}

// ModuleRender renders one frame of module's context into fragment, using
// pool to parallelize across fragments when the module provides
// PrepareFrame/RenderFragment. Ticks is advanced on the context's base
// regardless of which path is taken.
//
// If goCtx already carries a worker cpu (OnWorker(goCtx) is true --
// meaning this call is itself happening inside another module's
// RenderFragment), rendering is forced inline on the current goroutine
// rather than submitted to pool, since the pool's single frame/idle cond
// pair cannot nest.
//
// Dispatch order per call:
//  1. RenderProxy, if set, fully owns rendering and nothing else runs.
//  2. Otherwise PrepareFrame (if set) returns a FramePlan; if the module
//     also has RenderFragment, the frame is split across pool and each
//     piece rendered concurrently (or inline, if already on a worker).
//  3. A module with RenderFragment but no PrepareFrame renders its whole
//     fragment itself, single-threaded, on cpu 0.
//  4. FinishFrame, if set, always runs last.
func ModuleRender(goCtx context.Context, module *Module, tilCtx any, pool *Pool, stream *Stream, ticks uint, fragmentPtr **Fragment) {
	moduleRenderLimited(goCtx, module, tilCtx, pool, stream, ticks, fragmentPtr, 0)
}

// ModuleRenderLimited behaves like ModuleRender, but caps the number of
// fragment numbers a PrepareFrame/RenderFragment pair produces to limit
// (eg. a mixer reserving headroom for sibling modules sharing the same
// pool). limit <= 0 means "no cap".
func ModuleRenderLimited(goCtx context.Context, module *Module, tilCtx any, pool *Pool, stream *Stream, ticks uint, fragmentPtr **Fragment, limit int) {
	moduleRenderLimited(goCtx, module, tilCtx, pool, stream, ticks, fragmentPtr, limit)
}

func moduleRenderLimited(goCtx context.Context, module *Module, tilCtx any, pool *Pool, stream *Stream, ticks uint, fragmentPtr **Fragment, limit int) {
	base := contextBaseOf(tilCtx)
	if base != nil {
		base.Ticks = ticks
	}

	if module.RenderProxy != nil {
		module.RenderProxy(goCtx, tilCtx, stream, ticks, fragmentPtr)
		return
	}

	if module.PrepareFrame != nil {
		plan := module.PrepareFrame(goCtx, tilCtx, stream, ticks, fragmentPtr)

		if module.RenderFragment != nil {
			fragmenter := plan.Fragmenter
			if limit > 0 {
				fragmenter = limitingFragmenter(fragmenter, limit)
			}

			if _, onWorker := OnWorker(goCtx); onWorker || pool == nil {
				renderInline(goCtx, module, tilCtx, stream, base, *fragmentPtr, fragmenter, ticks)
			} else {
				renderFrag := func(c *Context, ticks uint, cpu int, frag *Fragment) {
					module.RenderFragment(withWorkerCPU(goCtx, cpu), tilCtx, stream, ticks, cpu, &frag)
				}
				pool.Submit(*fragmentPtr, fragmenter, renderFrag, base, ticks, plan.CPUAffinity)
				pool.WaitIdle()
			}
		}
	} else if module.RenderFragment != nil {
		module.RenderFragment(goCtx, tilCtx, stream, ticks, 0, fragmentPtr)
	}

	if module.FinishFrame != nil {
		module.FinishFrame(goCtx, tilCtx, stream, ticks, fragmentPtr)
	}
}

// renderInline drives a module's fragmenter/RenderFragment pair on the
// current goroutine, used when the pool can't be re-entered.
func renderInline(goCtx context.Context, module *Module, tilCtx any, stream *Stream, base *Context, parent *Fragment, fragmenter Fragmenter, ticks uint) {
	cpu, _ := OnWorker(goCtx)
	for number := 0; ; number++ {
		var frag Fragment
		if !fragmenter(base, parent, number, &frag) {
			break
		}
		fp := &frag
		module.RenderFragment(goCtx, tilCtx, stream, ticks, cpu, &fp)
	}
}

// limitingFragmenter wraps f so fragment numbers beyond limit never get
// produced, bounding how many of the pool's workers a call ends up using
// regardless of how many are actually idle.
func limitingFragmenter(f Fragmenter, limit int) Fragmenter {
	return func(ctx *Context, parent *Fragment, number int, res *Fragment) bool {
		if number >= limit {
			return false
		}
		return f(ctx, parent, number, res)
	}
}
