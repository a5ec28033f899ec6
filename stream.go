package til

import (
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StreamHooks lets an external driver (the Rocket sequencer is the
// motivating case) splice itself into pipe creation, substituting its own
// owner/tap for whatever a module was about to register. Exactly one
// (hooks, context) pair may be installed on a Stream at a time.
type StreamHooks struct {
	// PipeCtor is invoked the first time a given (parent_path, name) pipe
	// is about to be created. Returning handled=false leaves owner/foo/tap
	// untouched, so the pipe is created exactly as the caller intended.
	// Returning handled=true substitutes the returned owner/foo/tap as the
	// pipe's driver instead -- this is how Rocket hijacks a tap to drive it
	// from a timeline track rather than the module's own logic.
	PipeCtor func(hooksCtx any, s *Stream, owner, ownerFoo any, parentPath string, tap *Tap) (handled bool, owner2, ownerFoo2 any, tap2 *Tap)

	// PipeDtor is invoked when a pipe's owning context is destroyed, after
	// the pipe has been removed from the stream.
	PipeDtor func(hooksCtx any, s *Stream, pipe *Pipe)
}

type contextSlot struct {
	mu   sync.Mutex
	list []any
}

// Stream is the shared graph of pipes and registered module contexts for
// one render session. Contexts register themselves on creation (see
// NewContext) and un-register on destruction; pipes are created lazily,
// the first time a module calls Stream.Tap for a given name under its
// parent's path.
type Stream struct {
	Logger zerolog.Logger

	pipes    *xsync.Map[pipeKey, *Pipe]
	contexts *xsync.Map[string, *contextSlot] // keyed by context path

	hooksMu    sync.Mutex
	hooks      *StreamHooks
	hooksCtx   any
	hooksOwner any // not read anywhere; SetHooks and UnsetHooks compare hooksCtx

	active bool
}

// NewStream returns an empty Stream ready to register contexts and join
// pipes.
func NewStream() *Stream {
	return &Stream{
		Logger:   log.With().Str("component", "stream").Logger(),
		pipes:    xsync.NewMap[pipeKey, *Pipe](),
		contexts: xsync.NewMap[string, *contextSlot](),
		active:   true,
	}
}

// SetHooks installs hooks under hooksCtx. It is idempotent when called
// again with the exact same (hooks, hooksCtx) pair (a Rocket session
// re-attaching), but fails with ErrStreamHooksSet if different hooks are
// already installed by someone else.
func (s *Stream) SetHooks(hooks *StreamHooks, hooksCtx any) error {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()

	if s.hooks != nil && (s.hooks != hooks || s.hooksCtx != hooksCtx) {
		s.Logger.Warn().Msg("refusing to overwrite installed stream hooks")
		return ErrStreamHooksSet
	}
	s.hooks = hooks
	s.hooksCtx = hooksCtx
	return nil
}

// UnsetHooks removes hooks previously installed by hooksCtx. A no-op if
// hooksCtx does not currently own the installed hooks.
func (s *Stream) UnsetHooks(hooksCtx any) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()

	if s.hooksCtx == hooksCtx {
		s.hooks = nil
		s.hooksCtx = nil
	}
}

// Tap joins tap into the pipe identified by (parentPath, tap.Name),
// creating the pipe if this is the first arrival. It returns isPassenger
// = false when tap becomes (or remains) the pipe's driver, true when it
// reads through another tap's storage instead. owner identifies the
// context making the call (used for UntapOwner and hook substitution);
// ownerFoo is an opaque caller attachment forwarded to PipeCtor.
//
// Panics if an existing pipe's driving tap has a different Type or
// NElems than tap: this is a programmer error (two modules disagreeing
// about what a shared tap name means), not a runtime condition callers
// can recover from, matching the original's assert().
func (s *Stream) Tap(owner, ownerFoo any, parentPath string, tap *Tap) (isPassenger bool, err error) {
	key := pipeKey{ParentPath: parentPath, Name: tap.Name}

	pipe, loaded := s.pipes.LoadOrCompute(key, func() (*Pipe, bool) {
		resOwner, resFoo, resTap := owner, ownerFoo, tap

		s.hooksMu.Lock()
		hooks, hooksCtx := s.hooks, s.hooksCtx
		s.hooksMu.Unlock()

		if hooks != nil && hooks.PipeCtor != nil {
			if handled, o2, f2, t2 := hooks.PipeCtor(hooksCtx, s, owner, ownerFoo, parentPath, tap); handled {
				resOwner, resFoo, resTap = o2, f2, t2
			}
		}

		return &Pipe{
			Owner:      resOwner,
			OwnerFoo:   resFoo,
			ParentPath: parentPath,
			Name:       tap.Name,
			Hash:       tap.NameHash ^ JenkinsString(parentPath),
			Driving:    resTap,
		}, false
	})

	if !loaded {
		if pipe.Driving != tap {
			tap.redirect(pipe.Driving)
			return true, nil
		}
		tap.redirect(nil)
		return false, nil
	}

	if !pipe.Driving.sameShape(tap) {
		panic(fmt.Sprintf("til: tap %q at %q redeclared with incompatible type/n_elems", tap.Name, parentPath))
	}

	switch {
	case pipe.Driving == tap:
		tap.redirect(nil)
		return false, nil
	case pipe.Driving.Inactive:
		pipe.Driving = tap
		tap.redirect(nil)
		return false, nil
	default:
		tap.redirect(pipe.Driving)
		return true, nil
	}
}

// UntapOwner removes every pipe owned by ctx (identity match on Pipe.Owner)
// and invokes PipeDtor for each, used by DestroyContext to release
// whatever pipes a context created before it goes away.
func (s *Stream) UntapOwner(ctx any) {
	s.hooksMu.Lock()
	hooks, hooksCtx := s.hooks, s.hooksCtx
	s.hooksMu.Unlock()

	var doomed []pipeKey
	s.pipes.Range(func(key pipeKey, pipe *Pipe) bool {
		if pipe.Owner == ctx {
			doomed = append(doomed, key)
		}
		return true
	})

	for _, key := range doomed {
		if pipe, ok := s.pipes.LoadAndDelete(key); ok {
			if hooks != nil && hooks.PipeDtor != nil {
				hooks.PipeDtor(hooksCtx, s, pipe)
			}
		}
	}
}

// ForEachPipe iterates every currently registered pipe in unspecified
// order, stopping early if fn returns false.
func (s *Stream) ForEachPipe(fn func(*Pipe) bool) {
	s.pipes.Range(func(_ pipeKey, pipe *Pipe) bool { return fn(pipe) })
}

// PipeCount returns the number of pipes currently registered.
func (s *Stream) PipeCount() int { return s.pipes.Size() }

// registerContext adds ctx under its own path. Multiple contexts may
// legally share a path (eg. two independent attach points constructed
// from the same setup); FindModuleContexts returns all of them, in
// registration order.
func (s *Stream) registerContext(ctx any) {
	base := contextBaseOf(ctx)
	if base == nil {
		return
	}
	path := base.Path()
	slot, _ := s.contexts.LoadOrCompute(path, func() (*contextSlot, bool) { return &contextSlot{}, false })
	slot.mu.Lock()
	slot.list = append(slot.list, ctx)
	slot.mu.Unlock()
}

// unregisterContext removes ctx from its path's slot.
func (s *Stream) unregisterContext(ctx any) {
	base := contextBaseOf(ctx)
	if base == nil {
		return
	}
	path := base.Path()
	slot, ok := s.contexts.Load(path)
	if !ok {
		return
	}
	slot.mu.Lock()
	for i, c := range slot.list {
		if c == ctx {
			slot.list = append(slot.list[:i], slot.list[i+1:]...)
			break
		}
	}
	empty := len(slot.list) == 0
	slot.mu.Unlock()
	if empty {
		s.contexts.Delete(path)
	}
}

// FindModuleContexts returns up to n contexts registered at path, in
// registration order, or nil if none exist. n <= 0 means "all of them".
func (s *Stream) FindModuleContexts(path string, n int) []any {
	slot, ok := s.contexts.Load(path)
	if !ok {
		return nil
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if n <= 0 || n > len(slot.list) {
		n = len(slot.list)
	}
	out := make([]any, n)
	copy(out, slot.list[:n])
	return out
}

// ForEachModuleContext iterates every registered context in unspecified
// order, stopping early if fn returns false.
func (s *Stream) ForEachModuleContext(fn func(ctx any) bool) {
	s.contexts.Range(func(_ string, slot *contextSlot) bool {
		slot.mu.Lock()
		list := append([]any(nil), slot.list...)
		slot.mu.Unlock()
		for _, ctx := range list {
			if !fn(ctx) {
				return false
			}
		}
		return true
	})
}

// GCModuleContexts drops any registered contexts that were destroyed
// without going through DestroyContext(ctx, stream) (eg. a context
// embedded in a value that was simply discarded). Returns the number of
// contexts reaped. Ordinary use of DestroyContext already keeps the
// registry clean; this is a safety net for misbehaving callers.
func (s *Stream) GCModuleContexts() int {
	reaped := 0
	var emptyPaths []string

	s.contexts.Range(func(path string, slot *contextSlot) bool {
		slot.mu.Lock()
		kept := slot.list[:0]
		for _, ctx := range slot.list {
			if base := contextBaseOf(ctx); base != nil && base.impl != nil {
				kept = append(kept, ctx)
			} else {
				reaped++
			}
		}
		slot.list = kept
		empty := len(slot.list) == 0
		slot.mu.Unlock()
		if empty {
			emptyPaths = append(emptyPaths, path)
		}
		return true
	})

	for _, path := range emptyPaths {
		s.contexts.Delete(path)
	}
	return reaped
}

// End marks the stream inactive, signalling long-running drivers (Rocket's
// sequencer, a websocket introspection feed) to stop producing new work.
// It does not destroy any context or pipe.
func (s *Stream) End() { s.active = false }

// Active reports whether the stream is still accepting new frames.
func (s *Stream) Active() bool { return s.active }
