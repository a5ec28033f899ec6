package til

import (
	"context"
	"fmt"
)

// Built-in control modules, grounded directly on til_builtins.c: blank
// (clear the frame), noop (do nothing), none (a module slot that's
// explicitly disabled), ref (render another registered context by path,
// without owning or driving it), and pre (a context that exists purely to
// be discovered/hijacked via the stream, eg. by Rocket, optionally wrapping
// one real module underneath).
func init() {
	Register(blankModule)
	Register(noopModule)
	Register(noneModule)
	Register(refModule)
	Register(preModule)
}

// --- blank ---

type blankSetup struct {
	Force bool
}

var blankModule = &Module{
	Name:        "blank",
	Description: "Blanker (built-in)",
	Author:      "built-in",
	Flags:       ModuleBuiltin,

	PrepareFrame: func(goCtx context.Context, ctx any, stream *Stream, ticks uint, fragmentPtr **Fragment) FramePlan {
		base := contextBaseOf(ctx)
		if s, ok := base.Setup.Value.(*blankSetup); ok && s.Force {
			(*fragmentPtr).Cleared = false
		}
		return FramePlan{Fragmenter: SlicePerCPU}
	},
	RenderFragment: func(goCtx context.Context, ctx any, stream *Stream, ticks uint, cpu int, fragmentPtr **Fragment) {
		(*fragmentPtr).Clear()
	},
	FinishFrame: func(goCtx context.Context, ctx any, stream *Stream, ticks uint, fragmentPtr **Fragment) {
		// every sub-fragment has been cleared, so the whole fragment is too
		(*fragmentPtr).Cleared = true
	},
	Setup: func(settings *Settings, resSetting **Setting, resDesc **SettingDesc, resSetup **Setup) error {
		desc := &SettingDesc{
			Name:      "Force clearing",
			Key:       "force",
			Preferred: "off",
			Values:    []string{"off", "on"},
		}
		setting, ok, err := GetAndDescribe(settings, desc, resSetting, resDesc)
		if err != nil || !ok {
			return err
		}

		if resSetup != nil {
			force := setting.Value != nil && *setting.Value == "on"
			*resSetup = NewSetup(settings.Serialize(), blankModule, &blankSetup{Force: force}, nil)
		}
		return nil
	},
}

// --- noop ---

var noopModule = &Module{
	Name:        "noop",
	Description: "Nothing-doer (built-in)",
	Author:      "built-in",
	Flags:       ModuleBuiltin,
}

// --- none ---

var noneModule = &Module{
	Name:        "none",
	Description: "Disabled (built-in)",
	Author:      "built-in",
	Flags:       ModuleBuiltin,
	Setup: func(settings *Settings, resSetting **Setting, resDesc **SettingDesc, resSetup **Setup) error {
		if resSetup != nil {
			*resSetup = nil
		}
		return nil
	},
}

// --- ref ---

type refSetup struct {
	Path string
}

type refContext struct {
	Context
	ref any // resolved lazily on first render, via Stream.FindModuleContexts
}

var refModule = &Module{
	Name:        "ref",
	Description: "Context referencer (built-in)",
	Author:      "built-in",
	Flags:       ModuleBuiltin,

	CreateContext: func(module *Module, base Context) (any, error) {
		return &refContext{Context: base}, nil
	},

	RenderProxy: func(goCtx context.Context, ctx any, stream *Stream, ticks uint, fragmentPtr **Fragment) bool {
		rc := ctx.(*refContext)
		s := rc.Setup.Value.(*refSetup)

		if rc.ref == nil {
			found := stream.FindModuleContexts(s.Path, 1)
			if len(found) == 0 {
				msg := fmt.Sprintf("%s: BAD PATH %q", rc.Path(), s.Path)
				(*fragmentPtr).Clear()
				RenderText(*fragmentPtr, msg, 0xffffffff)
				return true
			}
			rc.ref = found[0]
		}

		refBase := contextBaseOf(rc.ref)
		ModuleRenderLimited(goCtx, refBase.Module, rc.ref, nil, stream, ticks, fragmentPtr, rc.NCPUs)
		return true
	},

	Setup: func(settings *Settings, resSetting **Setting, resDesc **SettingDesc, resSetup **Setup) error {
		path := "[a-zA-Z0-9/_]+"
		desc := &SettingDesc{
			Name:      "Context path to reference",
			Key:       "path",
			Regex:     &path,
			Preferred: "",
		}
		setting, ok, err := GetAndDescribe(settings, desc, resSetting, resDesc)
		if err != nil || !ok {
			return err
		}

		if resSetup != nil {
			value := ""
			if setting.Value != nil {
				value = *setting.Value
			}
			*resSetup = NewSetup(settings.Serialize(), refModule, &refSetup{Path: value}, nil)
		}
		return nil
	},
}

// --- pre ---

type preSetup struct {
	ModuleSetup *Setup
}

type preContext struct {
	Context
	inner any
}

var preModule = &Module{
	Name:        "pre",
	Description: "Pre-render hook context (built-in)",
	Author:      "built-in",
	Flags:       ModuleBuiltin,

	CreateContext: func(module *Module, base Context) (any, error) {
		pc := &preContext{Context: base}
		s := base.Setup.Value.(*preSetup)

		if s.ModuleSetup != nil {
			inner, err := NewContext(s.ModuleSetup.Module, base.Stream, base.Seed, base.Ticks, base.NCPUs, s.ModuleSetup)
			if err != nil {
				return nil, err
			}
			pc.inner = inner
			AddChild(pc, inner)
		}

		return pc, nil
	},

	RenderProxy: func(goCtx context.Context, ctx any, stream *Stream, ticks uint, fragmentPtr **Fragment) bool {
		pc := ctx.(*preContext)
		if pc.inner == nil {
			return true
		}
		innerBase := contextBaseOf(pc.inner)
		ModuleRender(goCtx, innerBase.Module, pc.inner, nil, stream, ticks, fragmentPtr)
		return true
	},

	Setup: func(settings *Settings, resSetting **Setting, resDesc **SettingDesc, resSetup **Setup) error {
		const defaultModule = "none"

		// module selection and the chosen module's own setup share this
		// same flat settings object, matching the original's pattern of
		// a "module" key naming the submodule and its own keys living
		// alongside it rather than in a separate nested tree.
		m, err := ModuleSetupFull(nil, settings, resSetting, resDesc, nil, "module", defaultModule, ModuleBuiltin, nil)
		if err != nil {
			return err
		}
		if m == nil {
			return nil // more input needed
		}

		if resSetup == nil {
			return nil
		}

		var moduleSetup *Setup
		if m.Setup != nil {
			if err := m.Setup(settings, resSetting, resDesc, &moduleSetup); err != nil {
				return fmt.Errorf("pre: setting up %q: %w", m.Name, err)
			}
		}

		*resSetup = NewSetup(settings.Serialize(), preModule, &preSetup{ModuleSetup: moduleSetup}, func() {
			moduleSetup.Unref()
		})
		return nil
	},
}
