package til

import "sync"

// Context is the base per-instance state every module's own context type
// embeds as its first field (the Go analog of the original's struct
// subclassing-by-embedding). It carries everything the dispatcher and
// stream need without requiring a module to know about either.
type Context struct {
	Module *Module
	Stream *Stream // optional; nil if this context was never registered
	Seed   uint
	Ticks  uint // timestamp of the last render, updated by ModuleRender
	NCPUs  int
	Setup  *Setup // baked setup this context was made from; always present

	mu       sync.Mutex
	children []any // child contexts created by this one, for recursive destruction
	taps     []*Tap
	impl     any // the module's own context value embedding this Context
}

// Path returns the context's path, derived from its Setup.
func (c *Context) Path() string { return c.Setup.Path }

// Base returns c itself. Module context types embed Context by value as
// their first field; because Base has a pointer receiver, Go's method
// promotion exposes it on *YourContext automatically, returning the
// address of the embedded Context -- no boilerplate required per module.
// This is how contextBaseOf recovers the shared base from an opaque any
// without reflection (see DESIGN NOTES on covariant pointers).
func (c *Context) Base() *Context { return c }

// NewContext allocates and initializes a context of module's own type via
// module.CreateContext, populates the embedded base fields, and (if
// stream != nil) registers it on the stream under its setup's path.
func NewContext(module *Module, stream *Stream, seed, ticks uint, nCPUs int, setup *Setup) (any, error) {
	base := Context{
		Module: module,
		Stream: stream,
		Seed:   seed,
		Ticks:  ticks,
		NCPUs:  nCPUs,
		Setup:  setup.Ref(),
	}

	var impl any
	var err error
	if module.CreateContext != nil {
		impl, err = module.CreateContext(module, base)
	} else {
		impl = &base
	}

	if err != nil {
		setup.Unref()
		if module.DestroyContext != nil && impl != nil {
			module.DestroyContext(impl)
		}
		return nil, err
	}

	if b := contextBaseOf(impl); b != nil {
		b.impl = impl
	}

	if stream != nil {
		stream.registerContext(impl)
	}

	return impl, nil
}

// NewContexts creates n independent contexts from the same seed+setup,
// used when an outer module uses module as a per-CPU fill module (eg. a
// checkerboard filler giving each worker its own context instance).
func NewContexts(module *Module, stream *Stream, seed, ticks uint, nCPUs int, setup *Setup, n int) ([]any, error) {
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		ctx, err := NewContext(module, stream, seed, ticks, nCPUs, setup)
		if err != nil {
			for _, c := range out {
				DestroyContext(c, stream)
			}
			return nil, err
		}
		out = append(out, ctx)
	}
	return out, nil
}

// DestroyContext recursively destroys ctx's children, un-registers it from
// stream, un-taps every pipe it owns, dereferences its Setup, and finally
// releases ctx via its module's DestroyContext. Idempotent: a context
// already destroyed (impl cleared) is a no-op, so the stream's GC path can
// safely call this redundantly with application code.
func DestroyContext(ctx any, stream *Stream) {
	base := contextBaseOf(ctx)
	if base == nil || base.impl == nil {
		return
	}

	base.mu.Lock()
	children := base.children
	base.children = nil
	base.mu.Unlock()

	for _, child := range children {
		DestroyContext(child, stream)
	}

	if stream != nil {
		stream.UntapOwner(ctx)
		stream.unregisterContext(ctx)
	}

	setup := base.Setup
	module := base.Module
	impl := base.impl
	base.impl = nil

	if module.DestroyContext != nil {
		module.DestroyContext(impl)
	}

	setup.Unref()
}

// AddChild records child as owned by ctx, so DestroyContext(ctx) will
// recursively destroy it too. Used by compositing modules (book,
// sequencer, mixer, overlay) that create sub-contexts.
func AddChild(ctx any, child any) {
	base := contextBaseOf(ctx)
	base.mu.Lock()
	base.children = append(base.children, child)
	base.mu.Unlock()
}

// contextBaseOf returns the embedded *Context of ctx, which must either be
// a *Context itself or a pointer to a struct embedding Context as its
// first field.
func contextBaseOf(ctx any) *Context {
	if v, ok := ctx.(interface{ Base() *Context }); ok {
		return v.Base()
	}
	return nil
}
