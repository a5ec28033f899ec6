package til

import "sync/atomic"

// Setup is an immutable, typed object produced by a module's SetupFunc from
// a fully-described Settings tree. It is shared (ref-counted) by every
// Context built from it.
type Setup struct {
	Path     string // chosen by the NewSetup caller; the built-in modules pass settings.Serialize()
	PathHash uint32 // Jenkins hash of Path

	Module *Module // the module that produced this Setup

	// Value is the module-specific typed configuration, eg.
	// *roto.setup. Modules type-assert this back to their own type.
	Value any

	// Free, if set, releases setup-owned resources (parsed textures,
	// compiled expressions, etc.) when the refcount reaches zero.
	Free func()

	refs atomic.Int32
}

// NewSetup constructs a baked Setup with an initial reference count of 1.
func NewSetup(path string, module *Module, value any, free func()) *Setup {
	s := &Setup{
		Path:     path,
		PathHash: JenkinsString(path),
		Module:   module,
		Value:    value,
		Free:     free,
	}
	s.refs.Store(1)
	return s
}

// Ref increments the reference count and returns su, for call sites that
// want to chain (eg. `ctx.Setup = setup.Ref()`).
func (su *Setup) Ref() *Setup {
	su.refs.Add(1)
	return su
}

// Unref decrements the reference count, invoking Free and releasing setup
// resources once it reaches zero. Safe to call on a nil Setup (no-op).
func (su *Setup) Unref() {
	if su == nil {
		return
	}
	if su.refs.Add(-1) == 0 && su.Free != nil {
		su.Free()
	}
}

// SetupFunc is a module's (or backend's) resumable setup entry point (spec
// §4.3). It walks settings via GetAndDescribe:
//
//   - returns nil with resSetup untouched and no error: settings satisfied
//     every descriptor this call examined, but resSetup was nil so no bake
//     was attempted (used for "just validate what's there so far" passes).
//   - returns nil with resDesc set: settings is missing the setting
//     described by *resDesc; the caller should collect a value for it, add
//     it to settings, and call again. With a nil resDesc, missing settings
//     take their preferred values instead (see GetAndDescribe).
//   - returns a non-nil error (wrapping ErrInvalid): the setting at
//     *resSetting failed validation against *resDesc.
//   - when called with a non-nil resSetup and no errors/missing settings
//     remain, bakes and returns the Setup via *resSetup.
type SetupFunc func(settings *Settings, resSetting **Setting, resDesc **SettingDesc, resSetup **Setup) error

// GetAndDescribe looks up the setting for desc.Key (or, if desc.Key is
// empty, the first entry not yet bound to a descriptor) in settings. If
// present and valid, it binds desc to the setting (parsing its value into
// nested Settings when desc.AsNestedSettings is set) and returns it with
// ok=true. If absent and resDesc is non-nil, it sets *resDesc = desc and
// returns ok=false so the caller can ask for it; if absent and resDesc is
// nil, it appends the setting with desc.Preferred as its value and
// continues with that. If present but invalid, it returns an error wrapping
// ErrInvalid together with the offending setting and descriptor, exactly
// the (res_setting, res_desc) pair an interactive frontend needs to
// highlight and re-prompt.
func GetAndDescribe(settings *Settings, desc *SettingDesc, resSetting **Setting, resDesc **SettingDesc) (setting *Setting, ok bool, err error) {
	var found *Setting

	if desc.Key != "" {
		for _, e := range settings.Entries {
			if e.Key == desc.Key {
				found = e
				break
			}
		}
	} else {
		for _, e := range settings.Entries {
			if e.Desc == nil {
				found = e
				break
			}
		}
	}

	if found == nil {
		if resDesc != nil {
			*resDesc = desc
			return nil, false, nil
		}
		v := desc.Preferred
		found = settings.Add(desc.Key, &v)
	}

	raw := desc.Preferred
	if found.Value != nil {
		raw = *found.Value
	}

	if !desc.Valid(raw) {
		if resSetting != nil {
			*resSetting = found
		}
		if resDesc != nil {
			*resDesc = desc
		}
		return found, false, ErrInvalid
	}

	found.Desc = desc
	if desc.AsNestedSettings {
		settings.NestedFor(found)
	}
	return found, true, nil
}
