package til

import (
	"context"
	"slices"
	"strings"
)

// ModuleFlags describe module capabilities/suitability, consulted by
// pickers that want to hide experimental or hermetic modules from random
// selection (see ModuleSetupFull).
type ModuleFlags uint



const (
	ModuleOverlayable ModuleFlags = 1 << iota // appropriate for overlay use
	ModuleHermetic                            // doesn't compose readily / needs manual settings
	ModuleExperimental                        // buggy / unfinished
	ModuleBuiltin                             // implements built-in control functionality, not interesting standalone
	ModuleAudioOnly                           // only implements RenderAudio
)

// Module is the vtable every renderer implements. Every field is optional;
// a nil field behaves as a no-op default (see ModuleRender, Context
// lifecycle). This mirrors the original C til_module_t vtable of function
// pointers, modeled here as a plain struct of function-typed fields rather
// than an interface so a module can opt into only the capabilities it
// needs without writing stub methods for the rest.
type Module struct {
	Name        string
	Description string
	Author      string
	Flags       ModuleFlags

	// CreateContext allocates and returns the module's own context type,
	// which must embed Context as its first field. base has already been
	// populated by NewContext.
	CreateContext func(module *Module, base Context) (any, error)

	// DestroyContext releases module-owned resources. Called at most
	// once per context; DestroyContext itself need not be idempotent,
	// the caller (DestroyContext in context.go) guarantees single-call semantics.
	DestroyContext func(ctx any)

	// Clone produces n independent contexts sharing seed+setup, used when
	// an outer module fans a module out as a per-CPU fill module. Modules
	// with a non-default DestroyContext must supply Clone; its absence
	// implies a trivial shallow copy is legal.
	Clone func(ctx any, n int) ([]any, error)

	// goCtx carries ambient call-scoped state (currently: whether we're
	// already running on a pool worker, see OnWorker) through to nested
	// ModuleRender calls a proxy/compositing module makes on its
	// children -- the idiomatic Go replacement for a thread-local flag.
	PrepareFrame   func(goCtx context.Context, ctx any, stream *Stream, ticks uint, fragmentPtr **Fragment) FramePlan
	RenderFragment func(goCtx context.Context, ctx any, stream *Stream, ticks uint, cpu int, fragmentPtr **Fragment)
	FinishFrame    func(goCtx context.Context, ctx any, stream *Stream, ticks uint, fragmentPtr **Fragment)

	// RenderProxy lets a module redirect rendering entirely (ref/pre/
	// mixer/book/droste-style composition), bypassing Prepare/Render/
	// Finish when set.
	RenderProxy func(goCtx context.Context, ctx any, stream *Stream, ticks uint, fragmentPtr **Fragment) bool

	RenderAudio func(goCtx context.Context, ctx any, stream *Stream, ticks uint, samples []float32)

	Setup SetupFunc
}

// FramePlan is returned from PrepareFrame: the Fragmenter to drive this
// frame's sub-fragments and any flags controlling how the pool applies it.
type FramePlan struct {
	Fragmenter  Fragmenter
	CPUAffinity bool // maintain a stable fragment-number:worker mapping (slower)
}

// Registry is a process-wide, case-insensitive module lookup table,
// populated at startup by the modules an application imports (an explicit
// registry rather than a link-time array, so dynamic loading can be added
// later without changing callers -- see DESIGN NOTES).
type Registry struct {
	byName map[string]*Module
}

// NewRegistry returns an empty Registry. The package-level defaultRegistry
// is what Register/Lookup operate on unless a caller constructs its own.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Module)}
}

var defaultRegistry = NewRegistry()

// Register adds m to the default registry under its (lower-cased) name.
// Builtins (blank/noop/none/ref/pre) register themselves via init().
func Register(m *Module) { defaultRegistry.Register(m) }

// Lookup finds a module by case-insensitive name in the default registry.
func Lookup(name string) *Module { return defaultRegistry.Lookup(name) }

// List returns every module in the default registry with no flags in
// flagsExcluded and not present in exclusions, sorted by name.
func List(flagsExcluded ModuleFlags, exclusions []string) []*Module {
	return defaultRegistry.List(flagsExcluded, exclusions)
}

func (r *Registry) Register(m *Module) {
	r.byName[strings.ToLower(m.Name)] = m
}

func (r *Registry) Lookup(name string) *Module {
	return r.byName[strings.ToLower(name)]
}

func (r *Registry) List(flagsExcluded ModuleFlags, exclusions []string) []*Module {
	excluded := make(map[string]bool, len(exclusions))
	for _, e := range exclusions {
		excluded[strings.ToLower(e)] = true
	}

	var out []*Module
	for name, m := range r.byName {
		if m.Flags&flagsExcluded != 0 {
			continue
		}
		if excluded[name] {
			continue
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *Module) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// ModuleSetupFull selects one module by name and, when resSetup is
// non-nil, runs that module's own Setup. flagsExcluded and exclusions
// restrict only the random pick offered through the descriptor (eg. a
// compositing module forbidding recursive self-selection, or an
// interactive picker hiding experimental/hermetic modules); a module named
// explicitly in settings, with or without a leading ':', is looked up as
// given whatever its flags.
func ModuleSetupFull(reg *Registry, settings *Settings, resSetting **Setting, resDesc **SettingDesc, resSetup **Setup, name, preferred string, flagsExcluded ModuleFlags, exclusions []string) (*Module, error) {
	if reg == nil {
		reg = defaultRegistry
	}

	desc := &SettingDesc{
		Name:      "Module Name",
		Key:       name,
		Preferred: preferred,
		Random: func(seed int64) string {
			choices := reg.List(flagsExcluded, exclusions)
			if len(choices) == 0 {
				return preferred
			}
			return choices[int(seed)%len(choices)].Name
		},
	}

	setting, ok, err := GetAndDescribe(settings, desc, resSetting, resDesc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil // more input needed, *resDesc already set
	}

	// Keyed lookups ("module=rtv") carry the name in the value; positional
	// lookups ("rtv" as a bare entry, no "=") carry it in the key itself,
	// since GetAndDescribe's positional branch matches on Desc==nil
	// regardless of whether the entry happens to have a value.
	raw := desc.Preferred
	switch {
	case setting.Value != nil:
		raw = *setting.Value
	case desc.Key == "" && setting.Key != "":
		raw = setting.Key
	}

	m := reg.Lookup(strings.TrimPrefix(raw, ":"))
	if m == nil {
		if resSetting != nil {
			*resSetting = setting
		}
		return nil, ErrNotExist
	}

	if resSetup != nil && m.Setup != nil {
		if err := m.Setup(settings, resSetting, resDesc, resSetup); err != nil {
			return m, err
		}
	}

	return m, nil
}
