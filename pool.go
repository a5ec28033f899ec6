package til

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RenderFragmentFunc renders one fragment of a frame on behalf of ctx, on
// logical worker cpu.
type RenderFragmentFunc func(ctx *Context, ticks uint, cpu int, fragment *Fragment)

// Pool is a fixed-size set of worker goroutines, one per logical CPU,
// cooperatively dividing a frame's fragments among themselves (direct
// translation of the original's til_threads_t: a frame condvar wakes every
// worker when a new frame is submitted, an atomic fragment cursor hands out
// work, and an idle condvar lets Submit block until the frame completes).
type Pool struct {
	Logger zerolog.Logger

	n int

	idleMu   sync.Mutex
	idleCond *sync.Cond
	nIdle    int

	frameMu        sync.Mutex
	frameCond      *sync.Cond
	renderFragment RenderFragmentFunc
	ctx            *Context
	fragment       *Fragment
	fragmenter     Fragmenter
	ticks          uint
	frameNum       uint64
	cpuAffinity    bool

	nextFragment atomic.Uint32

	closed chan struct{}
	wg     sync.WaitGroup
}

// NewPool starts n worker goroutines (n <= 0 falls back to NumCPUs()) and
// returns the running Pool. Call Close when done to stop the workers.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = NumCPUs()
	}

	p := &Pool{
		Logger: log.With().Str("component", "pool").Logger(),
		n:      n,
		nIdle:  n,
		closed: make(chan struct{}),
	}
	p.idleCond = sync.NewCond(&p.idleMu)
	p.frameCond = sync.NewCond(&p.frameMu)

	p.Logger.Debug().Int("workers", n).Msg("starting pool")
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker(i)
	}

	return p
}

// NumThreads returns the number of worker goroutines in the pool.
func (p *Pool) NumThreads() int { return p.n }

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	var prevFrameNum uint64

	for {
		p.frameMu.Lock()
		for p.frameNum == prevFrameNum {
			p.frameCond.Wait()
			select {
			case <-p.closed:
				p.frameMu.Unlock()
				return
			default:
			}
		}
		prevFrameNum = p.frameNum
		renderFragment, ctx, fragment, fragmenter, ticks, cpuAffinity := p.renderFragment, p.ctx, p.fragment, p.fragmenter, p.ticks, p.cpuAffinity
		p.frameMu.Unlock()

		select {
		case <-p.closed:
			return
		default:
		}

		p.renderFrame(id, ctx, fragment, fragmenter, renderFragment, ticks, cpuAffinity)

		p.idleMu.Lock()
		p.nIdle++
		if p.nIdle == p.n {
			p.idleCond.Signal()
		}
		p.idleMu.Unlock()
	}
}

// renderFrame drains fragments for one frame on behalf of worker id,
// recovering from any panic a module's RenderFragment raises so one bad
// module can't take down the whole pool -- a module bug becomes a logged,
// dropped fragment instead of a crashed worker goroutine.
//
// With cpuAffinity set, worker id only ever claims fragment numbers
// id, id+n, id+2n, ... instead of racing every other worker on the shared
// atomic cursor. This gives a stable fragment-number:worker mapping across
// frames (a module's render_fragment for fragment K always lands on the
// same cpu), at the cost of a worker occasionally idling on a fragment
// count that isn't evenly divisible by n.
func (p *Pool) renderFrame(id int, ctx *Context, fragment *Fragment, fragmenter Fragmenter, renderFragment RenderFragmentFunc, ticks uint, cpuAffinity bool) {
	if cpuAffinity {
		for fragNum := id; ; fragNum += p.n {
			var frag Fragment
			if !fragmenter(ctx, fragment, fragNum, &frag) {
				return
			}
			p.renderOneFragment(id, ctx, renderFragment, ticks, &frag)
		}
	}

	for {
		fragNum := int(p.nextFragment.Add(1) - 1)

		var frag Fragment
		if !fragmenter(ctx, fragment, fragNum, &frag) {
			return
		}
		p.renderOneFragment(id, ctx, renderFragment, ticks, &frag)
	}
}

func (p *Pool) renderOneFragment(id int, ctx *Context, renderFragment RenderFragmentFunc, ticks uint, frag *Fragment) {
	defer func() {
		if r := recover(); r != nil {
			p.Logger.Error().Int("worker", id).Interface("panic", r).Msg("render fragment panicked")
		}
	}()
	renderFragment(ctx, ticks, id, frag)
}

// WaitIdle blocks until every worker has finished the current frame.
func (p *Pool) WaitIdle() {
	p.idleMu.Lock()
	defer p.idleMu.Unlock()
	for p.nIdle < p.n {
		p.idleCond.Wait()
	}
}

// Submit hands a new frame's fragments to the pool, blocking first on any
// still-running previous frame. fragmenter divides fragment into pieces
// that renderFragment renders, one per worker call, until fragmenter
// returns false. cpuAffinity requests a stable fragment-number:worker
// mapping (FramePlan.CPUAffinity) instead of the default atomic-cursor
// free-for-all.
func (p *Pool) Submit(fragment *Fragment, fragmenter Fragmenter, renderFragment RenderFragmentFunc, ctx *Context, ticks uint, cpuAffinity bool) {
	p.WaitIdle()

	p.frameMu.Lock()
	p.fragment = fragment
	p.fragmenter = fragmenter
	p.renderFragment = renderFragment
	p.ctx = ctx
	p.ticks = ticks
	p.cpuAffinity = cpuAffinity
	p.frameNum++
	p.nextFragment.Store(0)

	p.idleMu.Lock()
	p.nIdle = 0
	p.idleMu.Unlock()

	p.frameCond.Broadcast()
	p.frameMu.Unlock()
}

// Close stops every worker goroutine and waits for them to exit. The Pool
// must not be used afterward.
func (p *Pool) Close() {
	p.Logger.Debug().Msg("closing pool")
	close(p.closed)
	p.frameMu.Lock()
	p.frameNum++ // unstick any worker waiting for a new frame
	p.frameCond.Broadcast()
	p.frameMu.Unlock()
	p.wg.Wait()
}
