package til

import (
	"sync"
)

// Page is a page handle for the page-flip submission/lifecycle. Outside of
// FB.PageGet/FB.PagePut callers are interested in Page.Fragment, which
// describes the whole page and may be subdivided via Fragment.Divide.
type Page struct {
	Fragment Fragment
	backend  any // backend-private handle, opaque to FB
}

// FBOps is the capability interface a display backend implements. FB is
// otherwise opaque to backends: they never see the page queues, only
// individual pages handed to them by FB.
type FBOps interface {
	// Setup runs the resumable settings->setup protocol for the backend,
	// identical in shape to Module.Setup (see setup.go).
	Setup(settings *Settings, resSetting **Setting, resDesc **SettingDesc, resSetup **Setup) error

	// Init constructs backend-private context from settings that Setup accepts.
	Init(settings *Settings) (any, error)
	Shutdown(fb *FB, ctx any)

	// Acquire makes a page visible, Release tears down that visibility.
	Acquire(fb *FB, ctx any, page *Page) error
	Release(fb *FB, ctx any)

	PageAlloc(fb *FB, ctx any) (*Page, error)
	PageFree(fb *FB, ctx any, page *Page) error

	// PageFlip submits page for display and is expected to block until
	// vsync before returning, which is what keeps the render pipeline at
	// most one frame ahead of the display (spec §6).
	PageFlip(fb *FB, ctx any, page *Page) error
}

// FB manages N>=2 pages across three queues: active (currently displayed),
// ready (queued for display, FIFO), and inactive (available to render
// into, LIFO). A dedicated flipper goroutine drains ready -> submits for
// vsync -> returns the previously-active page to inactive.
type FB struct {
	ops FBOps
	ctx any

	mu       sync.Mutex
	cond     *sync.Cond
	inactive []*Page // LIFO
	ready    []*Page // FIFO
	active   *Page

	gets, puts uint64 // lifetime page_get/page_put counters

	flipperDone chan struct{}
	closed      bool
}

// NewFB allocates nPages (>=2) pages via ops and starts the flipper
// goroutine. settings has already been through the setup pipeline for ops.
func NewFB(ops FBOps, settings *Settings, nPages int) (*FB, error) {
	if nPages < 2 {
		nPages = 2
	}

	ctx, err := ops.Init(settings)
	if err != nil {
		return nil, err
	}

	fb := &FB{
		ops:         ops,
		ctx:         ctx,
		flipperDone: make(chan struct{}),
	}
	fb.cond = sync.NewCond(&fb.mu)

	for i := 0; i < nPages; i++ {
		p, err := ops.PageAlloc(fb, ctx)
		if err != nil {
			fb.Free()
			return nil, err
		}
		fb.inactive = append(fb.inactive, p)
	}

	go fb.flipper()

	return fb, nil
}

// Context returns the backend-private context, for backends that need to
// pass it to their own helpers outside the FBOps interface.
func (fb *FB) Context() any { return fb.ctx }

// PageGet blocks until an inactive page is available and returns it.
func (fb *FB) PageGet() *Page {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	for len(fb.inactive) == 0 && !fb.closed {
		fb.cond.Wait()
	}
	if fb.closed {
		return nil
	}

	n := len(fb.inactive)
	p := fb.inactive[n-1]
	fb.inactive = fb.inactive[:n-1]
	fb.gets++

	return p
}

// PagePut enqueues page for display.
func (fb *FB) PagePut(page *Page) {
	fb.mu.Lock()
	fb.ready = append(fb.ready, page)
	fb.puts++
	fb.mu.Unlock()
	fb.cond.Broadcast()
}

// GetPutCount returns the lifetime PageGet/PagePut counters.
func (fb *FB) GetPutCount() (gets, puts uint64) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.gets, fb.puts
}

// flipper drains ready pages FIFO, acquires+flips them, and returns the
// previously-active page to inactive.
func (fb *FB) flipper() {
	defer close(fb.flipperDone)

	for {
		fb.mu.Lock()
		for len(fb.ready) == 0 && !fb.closed {
			fb.cond.Wait()
		}
		if fb.closed && len(fb.ready) == 0 {
			fb.mu.Unlock()
			return
		}

		next := fb.ready[0]
		fb.ready = fb.ready[1:]
		prevActive := fb.active
		fb.active = next
		fb.mu.Unlock()

		if err := fb.ops.Acquire(fb, fb.ctx, next); err == nil {
			fb.ops.PageFlip(fb, fb.ctx, next)
		}

		if prevActive != nil {
			fb.ops.Release(fb, fb.ctx)
			fb.mu.Lock()
			fb.inactive = append(fb.inactive, prevActive)
			fb.mu.Unlock()
			fb.cond.Broadcast()
		}
	}
}

// Free tears the framebuffer down: stops the flipper, frees all pages, and
// shuts down the backend.
func (fb *FB) Free() {
	fb.mu.Lock()
	fb.closed = true
	fb.mu.Unlock()
	fb.cond.Broadcast()
	<-fb.flipperDone

	fb.mu.Lock()
	all := append(append(fb.inactive, fb.ready...), fb.active)
	fb.mu.Unlock()

	for _, p := range all {
		if p != nil {
			fb.ops.PageFree(fb, fb.ctx, p)
		}
	}
	fb.ops.Shutdown(fb, fb.ctx)
}
